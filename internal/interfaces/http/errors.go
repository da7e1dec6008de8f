package http

import (
	"context"
	"errors"
	stdhttp "net/http"

	"github.com/labstack/echo/v4"
	"helpdesk-console/internal/adapters/http/middleware"
	"helpdesk-console/internal/domain"
	"helpdesk-console/internal/ports"
)

type sessionForcer interface {
	ForceLogout(ctx context.Context, sessionID string) error
}

// errorResponder maps domain errors to HTTP answers. A backend 401 on an
// authenticated call ends the session.
type errorResponder struct {
	sessions sessionForcer
	cookie   middleware.SessionConfig
	logger   ports.Logger
}

func (r errorResponder) handleError(c echo.Context, err error) error {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		return c.JSON(stdhttp.StatusUnprocessableEntity, map[string]any{"error": "invalid input", "fields": verr.Fields})
	case errors.Is(err, domain.ErrInvalidInput):
		return c.JSON(stdhttp.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, domain.ErrInvalidCredentials):
		return c.JSON(stdhttp.StatusUnauthorized, map[string]string{"error": err.Error()})
	case errors.Is(err, domain.ErrUnauthenticated):
		r.expire(c)
		return c.JSON(stdhttp.StatusUnauthorized, map[string]string{"error": domain.ErrUnauthenticated.Error()})
	case errors.Is(err, domain.ErrPermissionDeny):
		return c.JSON(stdhttp.StatusForbidden, map[string]string{"error": domain.ErrPermissionDeny.Error()})
	case errors.Is(err, domain.ErrNotFound):
		return c.JSON(stdhttp.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.Is(err, domain.ErrBackendUnavailable):
		r.logger.Warn(c.Request().Context(), "backend unavailable", "error", err)
		return c.JSON(stdhttp.StatusBadGateway, map[string]string{"error": domain.ErrBackendUnavailable.Error()})
	default:
		r.logger.Error(c.Request().Context(), "unhandled error", "error", err)
		return c.JSON(stdhttp.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

// expire ends the caller's session after the backend rejected its token.
func (r errorResponder) expire(c echo.Context) {
	sess := middleware.SessionFrom(c)
	if !sess.Authenticated || r.sessions == nil {
		return
	}
	if err := r.sessions.ForceLogout(c.Request().Context(), sess.ID); err != nil {
		r.logger.Error(c.Request().Context(), "forced logout failed", "error", err)
	}
	middleware.ClearSessionCookie(c, r.cookie)
}

// requireAuth answers 401 for API calls made without a signed-in session.
func requireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if !middleware.SessionFrom(c).Authenticated {
			return c.JSON(stdhttp.StatusUnauthorized, map[string]string{"error": domain.ErrUnauthenticated.Error()})
		}
		return next(c)
	}
}
