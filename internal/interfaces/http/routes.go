package http

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
	"helpdesk-console/internal/adapters/http/middleware"
	"helpdesk-console/internal/domain"
)

//go:embed routes.yaml
var embeddedRoutes []byte

type Route struct {
	Path     string   `yaml:"path" json:"path"`
	Title    string   `yaml:"title" json:"title"`
	Roles    []string `yaml:"roles" json:"roles,omitempty"`
	MenuPath string   `yaml:"menu_path" json:"menu_path,omitempty"`
}

type RouteTable struct {
	Routes []Route `yaml:"routes"`
}

// LoadRoutes reads the route table from file, or the built-in table when file is empty.
func LoadRoutes(file string) (RouteTable, error) {
	if file == "" {
		return ParseRoutes(embeddedRoutes)
	}
	raw, err := os.ReadFile(file)
	if err != nil {
		return RouteTable{}, fmt.Errorf("read route table: %w", err)
	}
	return ParseRoutes(raw)
}

// ParseRoutes decodes and validates a route table. Unknown role labels are a
// configuration error here, not silently dropped.
func ParseRoutes(raw []byte) (RouteTable, error) {
	var table RouteTable
	if err := yaml.Unmarshal(raw, &table); err != nil {
		return RouteTable{}, fmt.Errorf("parse route table: %w", err)
	}
	seen := make(map[string]bool, len(table.Routes))
	for i, r := range table.Routes {
		if !strings.HasPrefix(r.Path, "/") {
			return RouteTable{}, fmt.Errorf("route %d: path %q must start with /", i, r.Path)
		}
		if r.Path == middleware.LoginPath || r.Path == middleware.UnauthorizedPath {
			return RouteTable{}, fmt.Errorf("route %s: reserved path", r.Path)
		}
		if seen[r.Path] {
			return RouteTable{}, fmt.Errorf("route %s: duplicate path", r.Path)
		}
		seen[r.Path] = true
		if _, err := r.Rule(); err != nil {
			return RouteTable{}, err
		}
	}
	return table, nil
}

func (r Route) Rule() (middleware.GuardRule, error) {
	rule := middleware.GuardRule{MenuPath: r.MenuPath}
	for _, label := range r.Roles {
		role, ok := domain.ParseRole(label)
		if !ok {
			return middleware.GuardRule{}, fmt.Errorf("route %s: unknown role %q", r.Path, label)
		}
		rule.Roles = append(rule.Roles, role)
	}
	return rule, nil
}
