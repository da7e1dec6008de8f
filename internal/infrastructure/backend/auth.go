package backend

import (
	"context"
	"errors"
	"net/http"

	"helpdesk-console/internal/domain"
)

type loginResponse struct {
	AccessToken  string          `json:"access_token"`
	RefreshToken string          `json:"refresh_token"`
	User         domain.Identity `json:"user"`
}

func (c *Client) Login(ctx context.Context, creds domain.Credentials) (domain.LoginResult, error) {
	var out loginResponse
	if err := c.do(ctx, http.MethodPost, "/auth/login", "", creds, &out); err != nil {
		var status *StatusError
		if errors.As(err, &status) && status.Status == http.StatusUnauthorized {
			return domain.LoginResult{}, domain.ErrInvalidCredentials
		}
		return domain.LoginResult{}, err
	}
	return domain.LoginResult{
		Tokens:   domain.TokenPair{AccessToken: out.AccessToken, RefreshToken: out.RefreshToken},
		Identity: out.User,
	}, nil
}

func (c *Client) CurrentIdentity(ctx context.Context, accessToken string) (domain.Identity, error) {
	var out domain.Identity
	if err := c.do(ctx, http.MethodGet, "/auth/me", accessToken, nil, &out); err != nil {
		return domain.Identity{}, err
	}
	return out, nil
}

func (c *Client) Logout(ctx context.Context, tokens domain.TokenPair) error {
	body := map[string]string{"refresh_token": tokens.RefreshToken}
	return c.do(ctx, http.MethodPost, "/auth/logout", tokens.AccessToken, body, nil)
}
