// Package datatable sorts, filters, paginates and exports in-memory listings.
package datatable

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 200
	sheetName       = "Sheet1"
)

type Column[T any] struct {
	Key    string
	Header string
	Value  func(T) string
	// Less overrides the default string ordering.
	Less func(a, b T) bool
}

type Query struct {
	Search   string
	SortBy   string
	Desc     bool
	Page     int
	PageSize int
}

type Page[T any] struct {
	Rows       []T `json:"rows"`
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

type Table[T any] struct {
	columns []Column[T]
}

func New[T any](columns ...Column[T]) *Table[T] {
	return &Table[T]{columns: columns}
}

func (t *Table[T]) column(key string) (Column[T], bool) {
	for _, c := range t.columns {
		if c.Key == key {
			return c, true
		}
	}
	return Column[T]{}, false
}

// Filter keeps rows where any column contains the search text, case-insensitively.
func (t *Table[T]) Filter(rows []T, search string) []T {
	needle := strings.ToLower(strings.TrimSpace(search))
	if needle == "" {
		return rows
	}
	out := make([]T, 0, len(rows))
	for _, row := range rows {
		for _, c := range t.columns {
			if strings.Contains(strings.ToLower(c.Value(row)), needle) {
				out = append(out, row)
				break
			}
		}
	}
	return out
}

// Sort orders rows by the named column. Unknown columns leave the order untouched.
func (t *Table[T]) Sort(rows []T, key string, desc bool) []T {
	c, ok := t.column(key)
	if !ok {
		return rows
	}
	out := make([]T, len(rows))
	copy(out, rows)
	less := c.Less
	if less == nil {
		less = func(a, b T) bool { return c.Value(a) < c.Value(b) }
	}
	sort.SliceStable(out, func(i, j int) bool {
		if desc {
			return less(out[j], out[i])
		}
		return less(out[i], out[j])
	})
	return out
}

func (t *Table[T]) Apply(rows []T, q Query) Page[T] {
	filtered := t.Sort(t.Filter(rows, q.Search), q.SortBy, q.Desc)
	return Paginate(filtered, q.Page, q.PageSize)
}

func Paginate[T any](rows []T, page, pageSize int) Page[T] {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	if page <= 0 {
		page = 1
	}
	total := len(rows)
	start := total
	// bound page before multiplying so huge page numbers cannot overflow
	if page-1 <= total/pageSize {
		start = min((page-1)*pageSize, total)
	}
	end := start + pageSize
	if end > total {
		end = total
	}
	return Page[T]{
		Rows:       rows[start:end],
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: int(math.Ceil(float64(total) / float64(pageSize))),
	}
}

func (t *Table[T]) headers() []string {
	out := make([]string, len(t.columns))
	for i, c := range t.columns {
		out[i] = c.Header
		if out[i] == "" {
			out[i] = c.Key
		}
	}
	return out
}

func (t *Table[T]) WriteCSV(w io.Writer, rows []T) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.headers()); err != nil {
		return err
	}
	for _, row := range rows {
		record := make([]string, len(t.columns))
		for i, c := range t.columns {
			record[i] = c.Value(row)
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func (t *Table[T]) WriteXLSX(w io.Writer, rows []T) error {
	f := excelize.NewFile()
	defer f.Close()

	for i, h := range t.headers() {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheetName, cell, h); err != nil {
			return err
		}
	}
	for r, row := range rows {
		for i, c := range t.columns {
			cell, err := excelize.CoordinatesToCellName(i+1, r+2)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheetName, cell, c.Value(row)); err != nil {
				return fmt.Errorf("set %s: %w", cell, err)
			}
		}
	}
	_, err := f.WriteTo(w)
	return err
}

// ParseQuery builds a Query from raw request parameters.
func ParseQuery(search, sortBy, order, page, pageSize string) Query {
	q := Query{Search: search, SortBy: sortBy, Desc: strings.EqualFold(order, "desc")}
	q.Page, _ = strconv.Atoi(page)
	q.PageSize, _ = strconv.Atoi(pageSize)
	return q
}
