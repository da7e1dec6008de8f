package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	adaptermiddleware "helpdesk-console/internal/adapters/http/middleware"
	"helpdesk-console/internal/infrastructure/auth"
)

const (
	storeMemory   = "memory"
	storeRedis    = "redis"
	storeDynamoDB = "dynamodb"
)

type config struct {
	Port               string        `envconfig:"PORT" default:"8080"`
	LogLevel           string        `envconfig:"LOG_LEVEL" default:"info"`
	BackendURL         string        `envconfig:"BACKEND_URL" required:"true"`
	BackendTimeout     time.Duration `envconfig:"BACKEND_TIMEOUT" default:"10s"`
	PushURL            string        `envconfig:"PUSH_URL"`
	PushReconnectDelay time.Duration `envconfig:"PUSH_RECONNECT_DELAY" default:"5s"`

	SessionStore  string        `envconfig:"SESSION_STORE" default:"memory"`
	SessionMode   string        `envconfig:"SESSION_MODE" default:"cookie"`
	SessionCookie string        `envconfig:"SESSION_COOKIE" default:"helpdesk_session"`
	CookieSecure  bool          `envconfig:"COOKIE_SECURE" default:"true"`
	SessionTTL    time.Duration `envconfig:"SESSION_TTL" default:"12h"`

	RedisAddr string `envconfig:"REDIS_ADDR" default:"127.0.0.1:6379"`
	TableName string `envconfig:"TABLE_NAME"`
	Region    string `envconfig:"AWS_REGION" default:"us-east-1"`

	TokenMode string `envconfig:"TOKEN_MODE" default:"none"`
	JWKSURL   string `envconfig:"JWKS_URL"`

	NotificationLimit int    `envconfig:"NOTIFICATION_LIMIT" default:"100"`
	LoginRateLimit    int    `envconfig:"LOGIN_RATE_LIMIT" default:"10"`
	RoutesFile        string `envconfig:"ROUTES_FILE"`

	mode adaptermiddleware.Mode
}

func loadConfig() (config, error) {
	var cfg config
	if err := envconfig.Process("", &cfg); err != nil {
		return config{}, err
	}
	if strings.TrimSpace(cfg.BackendURL) == "" {
		return config{}, errors.New("BACKEND_URL is required")
	}
	mode, err := adaptermiddleware.ParseSessionMode(cfg.SessionMode)
	if err != nil {
		return config{}, err
	}
	cfg.mode = mode
	cfg.SessionStore = strings.ToLower(strings.TrimSpace(cfg.SessionStore))
	switch cfg.SessionStore {
	case storeMemory, storeRedis:
	case storeDynamoDB:
		if cfg.TableName == "" {
			return config{}, errors.New("TABLE_NAME is required for the dynamodb session store")
		}
	default:
		return config{}, fmt.Errorf("invalid SESSION_STORE %q", cfg.SessionStore)
	}
	switch strings.ToLower(cfg.TokenMode) {
	case auth.ModeNone:
	case auth.ModeJWKS:
		if cfg.JWKSURL == "" {
			return config{}, errors.New("JWKS_URL is required when TOKEN_MODE=jwks")
		}
	default:
		return config{}, fmt.Errorf("invalid TOKEN_MODE %q", cfg.TokenMode)
	}
	if cfg.NotificationLimit <= 0 {
		return config{}, errors.New("NOTIFICATION_LIMIT must be positive")
	}
	if cfg.PushReconnectDelay <= 0 {
		return config{}, errors.New("PUSH_RECONNECT_DELAY must be positive")
	}
	return cfg, nil
}

func (c config) sessionConfig() adaptermiddleware.SessionConfig {
	return adaptermiddleware.SessionConfig{
		Mode:       c.mode,
		CookieName: c.SessionCookie,
		Secure:     c.CookieSecure,
		TTL:        c.SessionTTL,
	}
}
