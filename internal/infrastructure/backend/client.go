// Package backend is the JSON/HTTPS client for the helpdesk REST backend.
package backend

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-xray-sdk-go/xray"
	"github.com/go-resty/resty/v2"
	"helpdesk-console/internal/domain"
	"helpdesk-console/internal/ports"
)

type Client struct {
	http *resty.Client
}

// New returns a client for the backend rooted at baseURL. Outbound calls are
// traced with X-Ray.
func New(baseURL string, timeout time.Duration, logger ports.Logger) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid backend url %q", baseURL)
	}
	httpClient := resty.NewWithClient(xray.Client(&http.Client{Timeout: timeout})).
		SetBaseURL(u.String()).
		SetHeader("Accept", "application/json").
		SetLogger(restyLogger{logger: logger})
	httpClient.OnAfterResponse(func(_ *resty.Client, resp *resty.Response) error {
		return handleError(resp)
	})
	return &Client{http: httpClient}, nil
}

// StatusError carries a non-2xx backend answer.
type StatusError struct {
	Status  int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backend returned %d", e.Status)
	}
	return fmt.Sprintf("backend returned %d: %s", e.Status, e.Message)
}

func (e *StatusError) Unwrap() error {
	switch {
	case e.Status == http.StatusUnauthorized:
		return domain.ErrUnauthenticated
	case e.Status == http.StatusForbidden:
		return domain.ErrPermissionDeny
	case e.Status == http.StatusNotFound:
		return domain.ErrNotFound
	case e.Status == http.StatusBadRequest || e.Status == http.StatusUnprocessableEntity:
		return domain.ErrInvalidInput
	default:
		return domain.ErrBackendUnavailable
	}
}

type apiError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// handleError turns any non-2xx answer into a StatusError.
func handleError(resp *resty.Response) error {
	if resp.IsSuccess() {
		return nil
	}
	status := &StatusError{Status: resp.StatusCode()}
	if body, ok := resp.Error().(*apiError); ok && body != nil {
		status.Message = body.Message
		if status.Message == "" {
			status.Message = body.Error
		}
	}
	if status.Message == "" {
		status.Message = strings.TrimSpace(resp.String())
	}
	return status
}

func (c *Client) do(ctx context.Context, method, path, token string, body, out any) error {
	req := c.http.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetError(&apiError{}).
		ForceContentType("application/json")
	if body != nil {
		req.SetBody(body)
	}
	if out != nil {
		req.SetResult(out)
	}
	_, err := req.Execute(method, path)
	if err == nil {
		return nil
	}
	var status *StatusError
	if errors.As(err, &status) || errors.Is(err, context.Canceled) {
		return err
	}
	return fmt.Errorf("%s %s: %w: %v", method, path, domain.ErrBackendUnavailable, err)
}

func userPath(userID, suffix string) string {
	return "/users/" + url.PathEscape(userID) + suffix
}

// restyLogger routes resty's diagnostics into the service logger.
type restyLogger struct {
	logger ports.Logger
}

func (l restyLogger) Errorf(format string, v ...any) {
	l.logger.Error(context.Background(), "backend client", "detail", fmt.Sprintf(format, v...))
}

func (l restyLogger) Warnf(format string, v ...any) {
	l.logger.Warn(context.Background(), "backend client", "detail", fmt.Sprintf(format, v...))
}

func (l restyLogger) Debugf(format string, v ...any) {
	l.logger.Debug(context.Background(), "backend client", "detail", fmt.Sprintf(format, v...))
}
