package middleware

import (
	"context"

	"github.com/aws/aws-xray-sdk-go/xray"
	"github.com/labstack/echo/v4"
	"helpdesk-console/internal/ports"
)

func XRayMiddleware(segmentName string, logger ports.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx, seg := xray.BeginSegment(c.Request().Context(), segmentName)
			req := c.Request().Clone(ctx)
			c.SetRequest(req)
			err := next(c)
			annotate(ctx, seg, logger, "route", c.Path())
			annotate(ctx, seg, logger, "status", c.Response().Status)
			seg.Close(err)
			return err
		}
	}
}

func annotate(ctx context.Context, seg *xray.Segment, logger ports.Logger, key string, value any) {
	if err := seg.AddAnnotation(key, value); err != nil {
		logger.Debug(ctx, "xray annotation dropped", "key", key, "error", err)
	}
}
