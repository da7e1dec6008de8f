package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"helpdesk-console/internal/domain"
	"helpdesk-console/internal/ports"
)

const (
	sessionKey      = "session"
	SessionIDHeader = "X-Session-ID"
)

type Mode string

const (
	// ModeCookie reads the session id from the session cookie only.
	ModeCookie Mode = "cookie"
	// ModeHeader additionally accepts the X-Session-ID header, for non-browser clients.
	ModeHeader Mode = "header"
)

func ParseSessionMode(raw string) (Mode, error) {
	mode := Mode(strings.ToLower(strings.TrimSpace(raw)))
	switch mode {
	case "":
		return ModeCookie, nil
	case ModeCookie, ModeHeader:
		return mode, nil
	default:
		return "", errors.New("invalid session mode")
	}
}

type SessionResumer interface {
	Resume(ctx context.Context, sessionID string) (domain.Session, error)
}

type SessionConfig struct {
	Mode       Mode
	CookieName string
	Secure     bool
	TTL        time.Duration
}

// SessionLoader resolves the caller's session once per request and stores it
// on the echo context. Requests without a session id get an anonymous session.
func SessionLoader(cfg SessionConfig, sessions SessionResumer, logger ports.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id := sessionIDFromRequest(c.Request(), cfg)
			sess, err := sessions.Resume(c.Request().Context(), id)
			if err != nil {
				logger.Error(c.Request().Context(), "resume session", "error", err)
				sess = domain.Session{ID: id}
			}
			if id != "" && !sess.Authenticated {
				// keep the id so login can discard its state
				sess.ID = id
			}
			c.Set(sessionKey, sess)
			return next(c)
		}
	}
}

func sessionIDFromRequest(r *http.Request, cfg SessionConfig) string {
	if cookie, err := r.Cookie(cfg.CookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	if cfg.Mode == ModeHeader {
		return strings.TrimSpace(r.Header.Get(SessionIDHeader))
	}
	return ""
}

func SessionFrom(c echo.Context) domain.Session {
	sess, _ := c.Get(sessionKey).(domain.Session)
	return sess
}

func SetSession(c echo.Context, sess domain.Session) {
	c.Set(sessionKey, sess)
}

func WriteSessionCookie(c echo.Context, cfg SessionConfig, id string) {
	c.SetCookie(&http.Cookie{
		Name:     cfg.CookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		Secure:   cfg.Secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(cfg.TTL.Seconds()),
	})
}

func ClearSessionCookie(c echo.Context, cfg SessionConfig) {
	c.SetCookie(&http.Cookie{
		Name:     cfg.CookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   cfg.Secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}
