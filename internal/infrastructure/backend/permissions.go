package backend

import (
	"context"
	"net/http"

	"helpdesk-console/internal/domain"
)

func (c *Client) Permissions(ctx context.Context, accessToken, userID string) ([]domain.PermissionRecord, error) {
	var out []domain.PermissionRecord
	err := c.do(ctx, http.MethodGet, userPath(userID, "/permissions"), accessToken, nil, &out)
	return out, err
}

func (c *Client) Menus(ctx context.Context, accessToken, userID string) ([]domain.MenuItem, error) {
	var out []domain.MenuItem
	err := c.do(ctx, http.MethodGet, userPath(userID, "/menus"), accessToken, nil, &out)
	return out, err
}

func (c *Client) MenuPermissions(ctx context.Context, accessToken, userID string) ([]domain.MenuPermission, error) {
	var out []domain.MenuPermission
	err := c.do(ctx, http.MethodGet, userPath(userID, "/menu-permissions"), accessToken, nil, &out)
	return out, err
}
