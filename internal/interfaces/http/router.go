package http

import (
	"fmt"
	stdhttp "net/http"
	"time"

	"github.com/go-chi/httprate"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"helpdesk-console/internal/adapters/http/middleware"
	"helpdesk-console/internal/application"
	"helpdesk-console/internal/ports"
)

type Services struct {
	Sessions      *application.SessionService
	Permissions   *application.PermissionCache
	Notifications *application.NotificationService
}

type RouterConfig struct {
	SegmentName string
	Session     middleware.SessionConfig
	// LoginRateLimit is the number of login attempts allowed per client IP per minute. Zero disables it.
	LoginRateLimit int
	Routes         RouteTable
	Gatherer       prometheus.Gatherer
}

func newEcho(cfg RouterConfig, sessions middleware.SessionResumer, logger ports.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	if cfg.SegmentName != "" {
		e.Use(middleware.XRayMiddleware(cfg.SegmentName, logger))
	}
	e.Use(middleware.SessionLoader(cfg.Session, sessions, logger))
	e.Use(middleware.RequestLogger(logger))
	return e
}

func NewMainRouter(svc Services, cfg RouterConfig, metrics ports.Metrics, logger ports.Logger) (*echo.Echo, error) {
	e := newEcho(cfg, svc.Sessions, logger)
	errs := errorResponder{sessions: svc.Sessions, cookie: cfg.Session, logger: logger}

	sessionH := NewSessionHandler(svc.Sessions, cfg.Session, errs)
	navH := NewNavigationHandler(svc.Permissions, errs)
	notifH := NewNotificationsHandler(svc.Notifications, errs, logger)
	pagesH := NewPagesHandler(svc.Permissions, errs)

	e.GET("/healthz", Health)
	if cfg.Gatherer != nil {
		e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{})))
	}

	api := e.Group("/api")
	var loginMW []echo.MiddlewareFunc
	if cfg.LoginRateLimit > 0 {
		loginMW = append(loginMW, echo.WrapMiddleware(httprate.Limit(
			cfg.LoginRateLimit, time.Minute,
			httprate.WithKeyFuncs(httprate.KeyByIP),
			httprate.WithLimitHandler(func(w stdhttp.ResponseWriter, _ *stdhttp.Request) {
				metrics.LoginAttempt("rate_limited")
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(stdhttp.StatusTooManyRequests)
				_, _ = w.Write([]byte(`{"error":"too many login attempts"}`))
			}),
		)))
	}
	api.POST("/session/login", sessionH.Login, loginMW...)
	api.POST("/session/logout", sessionH.Logout)
	api.GET("/session", sessionH.Current)

	authed := api.Group("", requireAuth)
	authed.GET("/navigation", navH.Get)
	authed.POST("/navigation/refresh", navH.Refresh)
	authed.GET("/permissions", navH.Permissions)
	authed.GET("/notifications", notifH.List)
	authed.POST("/notifications/fetch", notifH.Fetch)
	authed.POST("/notifications/read-all", notifH.MarkAllRead)
	authed.POST("/notifications/:id/read", notifH.MarkRead)
	authed.GET("/notifications/stream", notifH.Stream)

	e.GET(middleware.LoginPath, pagesH.Login)
	e.GET(middleware.UnauthorizedPath, pagesH.Unauthorized)
	for _, route := range cfg.Routes.Routes {
		rule, err := route.Rule()
		if err != nil {
			return nil, fmt.Errorf("register %s: %w", route.Path, err)
		}
		e.GET(route.Path, pagesH.Page(route), middleware.RouteGuard(rule, svc.Permissions, errs.expire, metrics))
	}
	return e, nil
}
