package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"helpdesk-console/internal/application"
	"helpdesk-console/internal/domain"
	"helpdesk-console/internal/ports"
)

const (
	LoginPath        = "/login"
	UnauthorizedPath = "/unauthorized"
)

type NavigationLoader interface {
	Load(ctx context.Context, sess domain.Session) (application.NavigationSource, error)
}

// SessionExpirer ends the caller's session once the backend rejected its token.
type SessionExpirer func(c echo.Context)

type GuardRule struct {
	Roles    []domain.Role
	MenuPath string
}

// RouteGuard gates a route on the session loaded by SessionLoader. It is
// evaluated on every request, so role changes apply on the next navigation.
func RouteGuard(rule GuardRule, nav NavigationLoader, expire SessionExpirer, metrics ports.Metrics) echo.MiddlewareFunc {
	guard := application.Guard{}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := application.GuardRequest{
				Session:       SessionFrom(c),
				RequiredRoles: rule.Roles,
				MenuPath:      rule.MenuPath,
			}
			if rule.MenuPath != "" && req.Session.Authenticated && nav != nil {
				src, err := nav.Load(c.Request().Context(), req.Session)
				if err != nil {
					if !errors.Is(err, domain.ErrUnauthenticated) {
						return err
					}
					if expire != nil {
						expire(c)
					}
					metrics.GuardDecision(application.OutcomeRedirectLogin.String())
					return c.Redirect(http.StatusFound, LoginPath)
				}
				req.Source = src
			}
			outcome := guard.Evaluate(req)
			metrics.GuardDecision(outcome.String())
			switch outcome {
			case application.OutcomeRedirectLogin:
				return c.Redirect(http.StatusFound, LoginPath)
			case application.OutcomeRedirectUnauthorized:
				return c.Redirect(http.StatusFound, UnauthorizedPath)
			default:
				return next(c)
			}
		}
	}
}
