package memory

import (
	"context"
	"sync"
	"time"

	"helpdesk-console/internal/domain"
)

type entry struct {
	state     domain.PersistedState
	expiresAt time.Time
}

// StateStore keeps session state in process memory. State is lost on restart.
type StateStore struct {
	mu      sync.RWMutex
	entries map[string]entry
	ttl     time.Duration
	now     func() time.Time
	// nextSweep is when Save next drops expired entries of abandoned sessions.
	nextSweep time.Time
}

func NewStateStore(ttl time.Duration) *StateStore {
	return &StateStore{entries: map[string]entry{}, ttl: ttl, now: time.Now}
}

func (s *StateStore) Load(_ context.Context, sessionID string) (domain.PersistedState, error) {
	s.mu.RLock()
	e, ok := s.entries[sessionID]
	s.mu.RUnlock()
	if !ok {
		return domain.PersistedState{}, domain.ErrNotFound
	}
	if !e.expiresAt.IsZero() && !s.now().Before(e.expiresAt) {
		s.mu.Lock()
		delete(s.entries, sessionID)
		s.mu.Unlock()
		return domain.PersistedState{}, domain.ErrNotFound
	}
	return e.state, nil
}

func (s *StateStore) Save(_ context.Context, sessionID string, state domain.PersistedState) error {
	if sessionID == "" {
		return domain.ErrInvalidInput
	}
	now := s.now()
	e := entry{state: state}
	if s.ttl > 0 {
		e.expiresAt = now.Add(s.ttl)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ttl > 0 && !now.Before(s.nextSweep) {
		s.sweep(now)
		s.nextSweep = now.Add(s.ttl)
	}
	s.entries[sessionID] = e
	return nil
}

func (s *StateStore) sweep(now time.Time) {
	for id, e := range s.entries {
		if !e.expiresAt.IsZero() && !now.Before(e.expiresAt) {
			delete(s.entries, id)
		}
	}
}

func (s *StateStore) Clear(_ context.Context, sessionID string) error {
	s.mu.Lock()
	delete(s.entries, sessionID)
	s.mu.Unlock()
	return nil
}
