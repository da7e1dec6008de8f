package backend

import (
	"context"
	"net/http"
	"net/url"

	"helpdesk-console/internal/domain"
)

func (c *Client) Notifications(ctx context.Context, accessToken string) ([]domain.NotificationMessage, error) {
	var out []domain.NotificationMessage
	err := c.do(ctx, http.MethodGet, "/notifications", accessToken, nil, &out)
	return out, err
}

func (c *Client) MarkRead(ctx context.Context, accessToken, notificationID string) error {
	return c.do(ctx, http.MethodPut, "/notifications/"+url.PathEscape(notificationID)+"/read", accessToken, nil, nil)
}

func (c *Client) MarkAllRead(ctx context.Context, accessToken string) error {
	return c.do(ctx, http.MethodPut, "/notifications/read-all", accessToken, nil, nil)
}
