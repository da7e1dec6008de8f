package middleware

import (
	"time"

	"github.com/labstack/echo/v4"
	"helpdesk-console/internal/ports"
)

func RequestLogger(logger ports.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			started := time.Now()
			err := next(c)
			duration := time.Since(started)
			ctx := c.Request().Context()
			args := []any{
				"method", c.Request().Method,
				"path", c.Request().URL.Path,
				"route_pattern", c.Path(),
				"status", c.Response().Status,
				"duration", duration.String(),
			}
			if sess := SessionFrom(c); sess.Authenticated {
				args = append(args, "user_id", sess.UserKey())
			}
			logger.Info(ctx, "http request", args...)
			return err
		}
	}
}
