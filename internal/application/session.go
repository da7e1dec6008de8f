package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"helpdesk-console/internal/domain"
	"helpdesk-console/internal/ports"
)

// SessionService owns the authenticated identity of every browser session.
type SessionService struct {
	store     ports.SessionStateRepository
	backend   ports.AuthBackend
	tokens    ports.TokenInspector
	observers []ports.SessionObserver
	metrics   ports.Metrics
	logger    ports.Logger
	validate  *validator.Validate
	now       func() time.Time
	newID     func() string
}

func NewSessionService(store ports.SessionStateRepository, backend ports.AuthBackend, tokens ports.TokenInspector, metrics ports.Metrics, logger ports.Logger) *SessionService {
	return &SessionService{
		store:    store,
		backend:  backend,
		tokens:   tokens,
		metrics:  metrics,
		logger:   logger,
		validate: validator.New(),
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

func (s *SessionService) AddObserver(o ports.SessionObserver) {
	s.observers = append(s.observers, o)
}

// Initialize restores a session from persisted state and confirms it with the
// backend. Any failure leaves the session cleared and unauthenticated.
func (s *SessionService) Initialize(ctx context.Context, sessionID string) (domain.Session, error) {
	anon := domain.Session{ID: sessionID}
	if sessionID == "" {
		return anon, nil
	}
	state, err := s.store.Load(ctx, sessionID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return anon, nil
		}
		return anon, err
	}
	if state.AccessToken == "" {
		return anon, nil
	}
	identity, err := s.backend.CurrentIdentity(ctx, state.AccessToken)
	if err != nil {
		s.logger.Warn(ctx, "session initialization failed, clearing state", "session_id", sessionID, "error", err)
		s.clear(ctx, restored(sessionID, state))
		return anon, nil
	}
	state.Identity = &identity
	state.Roles = domain.RoleNames(identity.Roles)
	if err := s.store.Save(ctx, sessionID, state); err != nil {
		return anon, fmt.Errorf("persist session: %w", err)
	}
	sess := restored(sessionID, state)
	s.notifyStarted(ctx, sess)
	return sess, nil
}

// Resume loads a session for a single request without calling the backend.
// A token the inspector rejects forces the session out.
func (s *SessionService) Resume(ctx context.Context, sessionID string) (domain.Session, error) {
	anon := domain.Session{ID: sessionID}
	if sessionID == "" {
		return anon, nil
	}
	state, err := s.store.Load(ctx, sessionID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return anon, nil
		}
		return anon, err
	}
	if state.AccessToken == "" {
		return anon, nil
	}
	claims, err := s.tokens.Inspect(ctx, state.AccessToken)
	if err == nil && !claims.ExpiresAt.IsZero() && !s.now().Before(claims.ExpiresAt) {
		err = errors.New("access token expired")
	}
	if err != nil {
		s.logger.Info(ctx, "persisted token rejected, forcing logout", "session_id", sessionID, "error", err)
		s.clear(ctx, restored(sessionID, state))
		return anon, nil
	}
	return restored(sessionID, state), nil
}

// Login authenticates against the backend and stores the result under a
// freshly minted session id. State held under previousID is discarded, so an
// id known before login never becomes authenticated.
func (s *SessionService) Login(ctx context.Context, previousID string, creds domain.Credentials) (domain.Session, error) {
	creds.Email = strings.TrimSpace(creds.Email)
	if err := s.validateCredentials(creds); err != nil {
		s.metrics.LoginAttempt("invalid")
		return domain.Session{ID: previousID}, err
	}
	result, err := s.backend.Login(ctx, creds)
	if err != nil {
		s.metrics.LoginAttempt("failed")
		if errors.Is(err, domain.ErrInvalidCredentials) || errors.Is(err, domain.ErrUnauthenticated) {
			return domain.Session{ID: previousID}, domain.ErrInvalidCredentials
		}
		if errors.Is(err, domain.ErrInvalidInput) {
			return domain.Session{ID: previousID}, err
		}
		return domain.Session{ID: previousID}, fmt.Errorf("login: %w: %v", domain.ErrBackendUnavailable, err)
	}
	if result.Tokens.AccessToken == "" {
		s.metrics.LoginAttempt("failed")
		return domain.Session{ID: previousID}, fmt.Errorf("login: empty access token: %w", domain.ErrBackendUnavailable)
	}
	identity := result.Identity
	state := domain.PersistedState{
		Roles:        domain.RoleNames(identity.Roles),
		Identity:     &identity,
		AccessToken:  result.Tokens.AccessToken,
		RefreshToken: result.Tokens.RefreshToken,
	}
	sessionID := s.newID()
	if err := s.store.Save(ctx, sessionID, state); err != nil {
		s.metrics.LoginAttempt("failed")
		return domain.Session{ID: previousID}, fmt.Errorf("persist session: %w", err)
	}
	if previousID != "" {
		s.discard(ctx, previousID)
	}
	s.metrics.LoginAttempt("success")
	sess := restored(sessionID, state)
	s.logger.Info(ctx, "user logged in", "user_id", identity.ID, "roles", state.Roles)
	s.notifyStarted(ctx, sess)
	return sess, nil
}

// discard drops the state of a session id replaced at login.
func (s *SessionService) discard(ctx context.Context, sessionID string) {
	state, err := s.store.Load(ctx, sessionID)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return
	case err != nil:
		s.logger.Warn(ctx, "load replaced session", "session_id", sessionID, "error", err)
	}
	if prev := restored(sessionID, state); prev.Authenticated {
		_ = s.clear(ctx, prev)
		return
	}
	if err := s.store.Clear(ctx, sessionID); err != nil {
		s.logger.Warn(ctx, "clear replaced session", "session_id", sessionID, "error", err)
	}
}

// Logout invalidates the session server-side on a best-effort basis. Local
// state is cleared whatever the backend answers.
func (s *SessionService) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	state, err := s.store.Load(ctx, sessionID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		s.logger.Warn(ctx, "load session during logout", "session_id", sessionID, "error", err)
	}
	if state.AccessToken != "" {
		if err := s.backend.Logout(ctx, domain.TokenPair{AccessToken: state.AccessToken, RefreshToken: state.RefreshToken}); err != nil {
			s.logger.Warn(ctx, "backend logout failed", "session_id", sessionID, "error", err)
		}
	}
	return s.clear(ctx, restored(sessionID, state))
}

// ForceLogout clears local state without contacting the backend, for
// sessions the backend already rejected.
func (s *SessionService) ForceLogout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	state, err := s.store.Load(ctx, sessionID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		s.logger.Warn(ctx, "load session during forced logout", "session_id", sessionID, "error", err)
	}
	return s.clear(ctx, restored(sessionID, state))
}

func (s *SessionService) clear(ctx context.Context, sess domain.Session) error {
	err := s.store.Clear(ctx, sess.ID)
	if err != nil {
		s.logger.Error(ctx, "clear session state", "session_id", sess.ID, "error", err)
	}
	for _, o := range s.observers {
		o.SessionEnded(ctx, sess)
	}
	return err
}

func (s *SessionService) notifyStarted(ctx context.Context, sess domain.Session) {
	for _, o := range s.observers {
		o.SessionStarted(ctx, sess)
	}
}

func (s *SessionService) validateCredentials(creds domain.Credentials) error {
	err := s.validate.Struct(creds)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("validate credentials: %w", domain.ErrInvalidInput)
	}
	fields := make(map[string]string, len(fieldErrs))
	for _, fe := range fieldErrs {
		fields[strings.ToLower(fe.Field())] = fe.Tag()
	}
	return &domain.ValidationError{Fields: fields}
}

func restored(sessionID string, state domain.PersistedState) domain.Session {
	sess := domain.Session{
		ID:     sessionID,
		Tokens: domain.TokenPair{AccessToken: state.AccessToken, RefreshToken: state.RefreshToken},
	}
	if state.Identity != nil {
		sess.Identity = *state.Identity
	}
	if len(sess.Identity.Roles) == 0 && len(state.Roles) > 0 {
		sess.Identity.Roles = domain.ParseRoles(state.Roles)
	}
	sess.Authenticated = state.AccessToken != ""
	return sess
}

func isAuthFailure(err error) bool {
	return errors.Is(err, domain.ErrUnauthenticated)
}
