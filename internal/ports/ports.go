package ports

import (
	"context"
	"time"

	"helpdesk-console/internal/domain"
)

type Logger interface {
	Info(ctx context.Context, msg string, args ...any)
	Error(ctx context.Context, msg string, args ...any)
	Warn(ctx context.Context, msg string, args ...any)
	Debug(ctx context.Context, msg string, args ...any)
}

// SessionStateRepository persists the client state of one browser session.
type SessionStateRepository interface {
	Load(ctx context.Context, sessionID string) (domain.PersistedState, error)
	Save(ctx context.Context, sessionID string, state domain.PersistedState) error
	Clear(ctx context.Context, sessionID string) error
}

type AuthBackend interface {
	Login(ctx context.Context, creds domain.Credentials) (domain.LoginResult, error)
	CurrentIdentity(ctx context.Context, accessToken string) (domain.Identity, error)
	Logout(ctx context.Context, tokens domain.TokenPair) error
}

type PermissionBackend interface {
	Permissions(ctx context.Context, accessToken, userID string) ([]domain.PermissionRecord, error)
	Menus(ctx context.Context, accessToken, userID string) ([]domain.MenuItem, error)
	MenuPermissions(ctx context.Context, accessToken, userID string) ([]domain.MenuPermission, error)
}

type NotificationBackend interface {
	Notifications(ctx context.Context, accessToken string) ([]domain.NotificationMessage, error)
	MarkRead(ctx context.Context, accessToken, notificationID string) error
	MarkAllRead(ctx context.Context, accessToken string) error
}

type TokenClaims struct {
	Subject   string
	ExpiresAt time.Time
}

// TokenInspector decides whether a persisted access token still describes a live session.
type TokenInspector interface {
	Inspect(ctx context.Context, token string) (TokenClaims, error)
}

// SessionObserver is told when a session becomes authenticated or is cleared.
type SessionObserver interface {
	SessionStarted(ctx context.Context, session domain.Session)
	SessionEnded(ctx context.Context, session domain.Session)
}

type Metrics interface {
	NavigationResolved(source string)
	GuardDecision(outcome string)
	LoginAttempt(result string)
	PushReconnect()
	NotificationReceived()
}
