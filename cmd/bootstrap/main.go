package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-xray-sdk-go/xray"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	adapterlogger "helpdesk-console/internal/adapters/logger"
	adaptermetrics "helpdesk-console/internal/adapters/metrics"
	"helpdesk-console/internal/application"
	"helpdesk-console/internal/domain"
	"helpdesk-console/internal/infrastructure/auth"
	"helpdesk-console/internal/infrastructure/backend"
	"helpdesk-console/internal/infrastructure/dynamodb"
	"helpdesk-console/internal/infrastructure/memory"
	"helpdesk-console/internal/infrastructure/push"
	"helpdesk-console/internal/infrastructure/redis"
	httpiface "helpdesk-console/internal/interfaces/http"
	"helpdesk-console/internal/ports"
)

func main() {
	cfg, err := loadConfig()
	if err != nil {
		adapterlogger.New("info").Error(context.Background(), "configuration error", "error", err)
		os.Exit(1)
	}
	logger := adapterlogger.New(cfg.LogLevel)
	xray.Configure(xray.Config{LogLevel: "error"})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error(context.Background(), "server stopped", "error", err)
		os.Exit(1)
	}
}

func newStateStore(ctx context.Context, cfg config) (ports.SessionStateRepository, func(), error) {
	switch cfg.SessionStore {
	case storeRedis:
		client, err := redis.NewClient(ctx, cfg.RedisAddr)
		if err != nil {
			return nil, nil, err
		}
		return redis.NewStateStore(client, cfg.SessionTTL), func() { _ = client.Close() }, nil
	case storeDynamoDB:
		client, err := dynamodb.NewClient(ctx, cfg.Region, cfg.TableName)
		if err != nil {
			return nil, nil, err
		}
		return dynamodb.NewSessionStateRepository(client, cfg.SessionTTL), func() {}, nil
	default:
		return memory.NewStateStore(cfg.SessionTTL), func() {}, nil
	}
}

func run(ctx context.Context, cfg config, logger *adapterlogger.SlogLogger) error {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := adaptermetrics.NewCollector(registry)

	store, closeStore, err := newStateStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	client, err := backend.New(cfg.BackendURL, cfg.BackendTimeout, logger.With("component", "backend"))
	if err != nil {
		return err
	}
	tokens, err := auth.NewInspector(cfg.TokenMode, cfg.JWKSURL, nil)
	if err != nil {
		return err
	}

	sessions := application.NewSessionService(store, client, tokens, metrics, logger)

	var pushSub application.PushSubscriber
	if cfg.PushURL != "" {
		pushClient := push.New(cfg.PushURL, cfg.PushReconnectDelay, metrics, logger.With("component", "push"))
		pushClient.OnRejected(func(ctx context.Context, sess domain.Session) {
			if err := sessions.ForceLogout(ctx, sess.ID); err != nil {
				logger.Error(ctx, "forced logout after push rejection", "session_id", sess.ID, "error", err)
			}
		})
		defer pushClient.Close()
		pushSub = pushClient
	}

	permissions := application.NewPermissionCache(client, metrics, logger)
	notifications := application.NewNotificationService(client, pushSub, cfg.NotificationLimit, metrics, logger)
	sessions.AddObserver(permissions)
	sessions.AddObserver(notifications)

	routes, err := httpiface.LoadRoutes(cfg.RoutesFile)
	if err != nil {
		return err
	}
	e, err := httpiface.NewMainRouter(
		httpiface.Services{Sessions: sessions, Permissions: permissions, Notifications: notifications},
		httpiface.RouterConfig{
			SegmentName:    "helpdesk-console",
			Session:        cfg.sessionConfig(),
			LoginRateLimit: cfg.LoginRateLimit,
			Routes:         routes,
			Gatherer:       registry,
		},
		metrics,
		logger,
	)
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info(ctx, "starting http server", "port", cfg.Port, "session_store", cfg.SessionStore, "routes", len(routes.Routes))
		errCh <- e.Start(":" + cfg.Port)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	logger.Info(context.Background(), "shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}
