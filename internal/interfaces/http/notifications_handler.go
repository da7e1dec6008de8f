package http

import (
	"bytes"
	"fmt"
	stdhttp "net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"helpdesk-console/internal/adapters/http/middleware"
	"helpdesk-console/internal/application"
	"helpdesk-console/internal/datatable"
	"helpdesk-console/internal/domain"
	"helpdesk-console/internal/ports"
)

const (
	streamWriteTimeout = 10 * time.Second
	streamPingInterval = 30 * time.Second
)

var notificationColumns = datatable.New(
	datatable.Column[domain.NotificationMessage]{
		Key: "created_at", Header: "Created",
		Value: func(m domain.NotificationMessage) string { return m.CreatedAt.UTC().Format(time.RFC3339) },
		Less:  func(a, b domain.NotificationMessage) bool { return a.CreatedAt.Before(b.CreatedAt) },
	},
	datatable.Column[domain.NotificationMessage]{Key: "title", Header: "Title", Value: func(m domain.NotificationMessage) string { return m.Title }},
	datatable.Column[domain.NotificationMessage]{Key: "body", Header: "Message", Value: func(m domain.NotificationMessage) string { return m.Body }},
	datatable.Column[domain.NotificationMessage]{Key: "type", Header: "Type", Value: func(m domain.NotificationMessage) string { return m.Type }},
	datatable.Column[domain.NotificationMessage]{Key: "ticket_id", Header: "Ticket", Value: func(m domain.NotificationMessage) string { return m.TicketID }},
	datatable.Column[domain.NotificationMessage]{
		Key: "read", Header: "Read",
		Value: func(m domain.NotificationMessage) string { return strconv.FormatBool(m.Read) },
	},
)

type notificationListView struct {
	datatable.Page[domain.NotificationMessage]
	Unread int `json:"unread"`
}

type NotificationsHandler struct {
	service  *application.NotificationService
	errs     errorResponder
	logger   ports.Logger
	upgrader websocket.Upgrader
}

func NewNotificationsHandler(service *application.NotificationService, errs errorResponder, logger ports.Logger) *NotificationsHandler {
	return &NotificationsHandler{
		service: service,
		errs:    errs,
		logger:  logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// List serves the local feed. With format=csv or format=xlsx the filtered and
// sorted rows are exported instead of paginated.
func (h *NotificationsHandler) List(c echo.Context) error {
	sess := middleware.SessionFrom(c)
	feed := h.service.Feed(sess.UserKey())
	rows := feed.List()
	if unread, _ := strconv.ParseBool(c.QueryParam("unread")); unread {
		filtered := rows[:0:0]
		for _, m := range rows {
			if !m.Read {
				filtered = append(filtered, m)
			}
		}
		rows = filtered
	}
	q := datatable.ParseQuery(c.QueryParam("q"), c.QueryParam("sort"), c.QueryParam("order"), c.QueryParam("page"), c.QueryParam("page_size"))

	switch format := c.QueryParam("format"); format {
	case "":
		return c.JSON(stdhttp.StatusOK, notificationListView{Page: notificationColumns.Apply(rows, q), Unread: feed.UnreadCount()})
	case "csv", "xlsx":
		return h.export(c, format, notificationColumns.Sort(notificationColumns.Filter(rows, q.Search), q.SortBy, q.Desc))
	default:
		return c.JSON(stdhttp.StatusBadRequest, map[string]string{"error": "unsupported format"})
	}
}

func (h *NotificationsHandler) export(c echo.Context, format string, rows []domain.NotificationMessage) error {
	var buf bytes.Buffer
	contentType := "text/csv"
	var err error
	if format == "xlsx" {
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
		err = notificationColumns.WriteXLSX(&buf, rows)
	} else {
		err = notificationColumns.WriteCSV(&buf, rows)
	}
	if err != nil {
		return h.errs.handleError(c, fmt.Errorf("export notifications: %w", err))
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="notifications.%s"`, format))
	return c.Blob(stdhttp.StatusOK, contentType, buf.Bytes())
}

func (h *NotificationsHandler) Fetch(c echo.Context) error {
	sess := middleware.SessionFrom(c)
	msgs, err := h.service.Fetch(c.Request().Context(), sess)
	if err != nil {
		return h.errs.handleError(c, err)
	}
	return c.JSON(stdhttp.StatusOK, map[string]any{
		"notifications": msgs,
		"unread":        h.service.Feed(sess.UserKey()).UnreadCount(),
	})
}

func (h *NotificationsHandler) MarkRead(c echo.Context) error {
	sess := middleware.SessionFrom(c)
	if err := h.service.MarkRead(c.Request().Context(), sess, c.Param("id")); err != nil {
		return h.errs.handleError(c, err)
	}
	return c.JSON(stdhttp.StatusOK, map[string]int{"unread": h.service.Feed(sess.UserKey()).UnreadCount()})
}

func (h *NotificationsHandler) MarkAllRead(c echo.Context) error {
	sess := middleware.SessionFrom(c)
	if err := h.service.MarkAllAsRead(c.Request().Context(), sess); err != nil {
		return h.errs.handleError(c, err)
	}
	return c.JSON(stdhttp.StatusOK, map[string]int{"unread": 0})
}

// Stream relays live notifications to the browser until either side closes.
func (h *NotificationsHandler) Stream(c echo.Context) error {
	sess := middleware.SessionFrom(c)
	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.logger.Warn(c.Request().Context(), "notification stream upgrade failed", "error", err)
		return nil
	}
	defer conn.Close()

	msgs, stop := h.service.Listen(sess.UserKey())
	defer stop()

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(streamPingInterval)
	defer ping.Stop()
	for {
		select {
		case <-closed:
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return nil
			}
			_ = conn.SetWriteDeadline(time.Now().Add(streamWriteTimeout))
			if err := conn.WriteJSON(msg); err != nil {
				return nil
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(streamWriteTimeout)); err != nil {
				return nil
			}
		}
	}
}
