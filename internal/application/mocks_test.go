package application

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"
	"helpdesk-console/internal/domain"
	"helpdesk-console/internal/ports"
)

type nopLogger struct{}

func (nopLogger) Info(context.Context, string, ...any)  {}
func (nopLogger) Error(context.Context, string, ...any) {}
func (nopLogger) Warn(context.Context, string, ...any)  {}
func (nopLogger) Debug(context.Context, string, ...any) {}

type nopMetrics struct{}

func (nopMetrics) NavigationResolved(string) {}
func (nopMetrics) GuardDecision(string)      {}
func (nopMetrics) LoginAttempt(string)       {}
func (nopMetrics) PushReconnect()            {}
func (nopMetrics) NotificationReceived()     {}

type stateStoreMock struct{ mock.Mock }

func (m *stateStoreMock) Load(ctx context.Context, sessionID string) (domain.PersistedState, error) {
	args := m.Called(ctx, sessionID)
	return args.Get(0).(domain.PersistedState), args.Error(1)
}

func (m *stateStoreMock) Save(ctx context.Context, sessionID string, state domain.PersistedState) error {
	args := m.Called(ctx, sessionID, state)
	return args.Error(0)
}

func (m *stateStoreMock) Clear(ctx context.Context, sessionID string) error {
	args := m.Called(ctx, sessionID)
	return args.Error(0)
}

type authBackendMock struct{ mock.Mock }

func (m *authBackendMock) Login(ctx context.Context, creds domain.Credentials) (domain.LoginResult, error) {
	args := m.Called(ctx, creds)
	return args.Get(0).(domain.LoginResult), args.Error(1)
}

func (m *authBackendMock) CurrentIdentity(ctx context.Context, accessToken string) (domain.Identity, error) {
	args := m.Called(ctx, accessToken)
	return args.Get(0).(domain.Identity), args.Error(1)
}

func (m *authBackendMock) Logout(ctx context.Context, tokens domain.TokenPair) error {
	args := m.Called(ctx, tokens)
	return args.Error(0)
}

type permissionBackendMock struct{ mock.Mock }

func (m *permissionBackendMock) Permissions(ctx context.Context, accessToken, userID string) ([]domain.PermissionRecord, error) {
	args := m.Called(ctx, accessToken, userID)
	return args.Get(0).([]domain.PermissionRecord), args.Error(1)
}

func (m *permissionBackendMock) Menus(ctx context.Context, accessToken, userID string) ([]domain.MenuItem, error) {
	args := m.Called(ctx, accessToken, userID)
	return args.Get(0).([]domain.MenuItem), args.Error(1)
}

func (m *permissionBackendMock) MenuPermissions(ctx context.Context, accessToken, userID string) ([]domain.MenuPermission, error) {
	args := m.Called(ctx, accessToken, userID)
	return args.Get(0).([]domain.MenuPermission), args.Error(1)
}

type notificationBackendMock struct{ mock.Mock }

func (m *notificationBackendMock) Notifications(ctx context.Context, accessToken string) ([]domain.NotificationMessage, error) {
	args := m.Called(ctx, accessToken)
	return args.Get(0).([]domain.NotificationMessage), args.Error(1)
}

func (m *notificationBackendMock) MarkRead(ctx context.Context, accessToken, id string) error {
	args := m.Called(ctx, accessToken, id)
	return args.Error(0)
}

func (m *notificationBackendMock) MarkAllRead(ctx context.Context, accessToken string) error {
	args := m.Called(ctx, accessToken)
	return args.Error(0)
}

type tokenInspectorMock struct{ mock.Mock }

func (m *tokenInspectorMock) Inspect(ctx context.Context, token string) (ports.TokenClaims, error) {
	args := m.Called(ctx, token)
	return args.Get(0).(ports.TokenClaims), args.Error(1)
}

type recordingObserver struct {
	mu      sync.Mutex
	started []domain.Session
	ended   []domain.Session
}

func (o *recordingObserver) SessionStarted(_ context.Context, s domain.Session) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.started = append(o.started, s)
}

func (o *recordingObserver) SessionEnded(_ context.Context, s domain.Session) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.ended = append(o.ended, s)
}
