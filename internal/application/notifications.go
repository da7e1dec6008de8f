package application

import (
	"context"
	"sort"
	"sync"

	"helpdesk-console/internal/domain"
	"helpdesk-console/internal/ports"
)

const DefaultNotificationLimit = 100

// NotificationFeed is a bounded list of one user's notifications. When full,
// the oldest message is evicted.
type NotificationFeed struct {
	mu    sync.RWMutex
	limit int
	items []domain.NotificationMessage
}

func NewNotificationFeed(limit int) *NotificationFeed {
	if limit <= 0 {
		limit = DefaultNotificationLimit
	}
	return &NotificationFeed{limit: limit}
}

// Append adds msg, replacing an existing message with the same id.
func (f *NotificationFeed) Append(msg domain.NotificationMessage) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.items {
		if msg.ID != "" && f.items[i].ID == msg.ID {
			// a pushed duplicate must not undo a local read mark
			msg.Read = msg.Read || f.items[i].Read
			f.items[i] = msg
			return
		}
	}
	f.items = append(f.items, msg)
	if len(f.items) > f.limit {
		f.items = f.items[len(f.items)-f.limit:]
	}
}

// List returns a copy of the feed, newest first.
func (f *NotificationFeed) List() []domain.NotificationMessage {
	f.mu.RLock()
	out := make([]domain.NotificationMessage, len(f.items))
	copy(out, f.items)
	f.mu.RUnlock()
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (f *NotificationFeed) UnreadCount() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	n := 0
	for _, m := range f.items {
		if !m.Read {
			n++
		}
	}
	return n
}

func (f *NotificationFeed) MarkRead(id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.items {
		if f.items[i].ID == id {
			f.items[i].Read = true
			return nil
		}
	}
	return domain.ErrNotFound
}

func (f *NotificationFeed) MarkAllAsRead() {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.items {
		f.items[i].Read = true
	}
}

func (f *NotificationFeed) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.items)
}

// PushSubscriber opens and closes the live notification channel of a user.
type PushSubscriber interface {
	Subscribe(ctx context.Context, sess domain.Session, deliver func(domain.NotificationMessage))
	Unsubscribe(userKey string)
}

// NotificationService holds the feeds of all signed-in users and fans pushed
// messages out to live browser streams.
type NotificationService struct {
	backend ports.NotificationBackend
	push    PushSubscriber
	metrics ports.Metrics
	logger  ports.Logger
	limit   int

	mu        sync.Mutex
	feeds     map[string]*NotificationFeed
	listeners map[string]map[int]chan domain.NotificationMessage
	nextID    int
}

func NewNotificationService(backend ports.NotificationBackend, push PushSubscriber, limit int, metrics ports.Metrics, logger ports.Logger) *NotificationService {
	return &NotificationService{
		backend:   backend,
		push:      push,
		metrics:   metrics,
		logger:    logger,
		limit:     limit,
		feeds:     map[string]*NotificationFeed{},
		listeners: map[string]map[int]chan domain.NotificationMessage{},
	}
}

func (s *NotificationService) Feed(userKey string) *NotificationFeed {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.feeds[userKey]
	if !ok {
		f = NewNotificationFeed(s.limit)
		s.feeds[userKey] = f
	}
	return f
}

// Fetch merges the backend's notifications into the feed. A backend failure
// is logged and the local list is returned as is.
func (s *NotificationService) Fetch(ctx context.Context, sess domain.Session) ([]domain.NotificationMessage, error) {
	feed := s.Feed(sess.UserKey())
	msgs, err := s.backend.Notifications(ctx, sess.Tokens.AccessToken)
	if err != nil {
		if isAuthFailure(err) {
			return nil, err
		}
		s.logger.Warn(ctx, "notification fetch failed", "user_id", sess.UserKey(), "error", err)
		return feed.List(), nil
	}
	for _, m := range msgs {
		feed.Append(m)
	}
	return feed.List(), nil
}

// Deliver appends a pushed message and forwards it to live subscribers.
func (s *NotificationService) Deliver(userKey string, msg domain.NotificationMessage) {
	s.Feed(userKey).Append(msg)
	s.metrics.NotificationReceived()

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ch := range s.listeners[userKey] {
		select {
		case ch <- msg:
		default:
			// slow browser stream, it can resync from the list endpoint
		}
	}
}

func (s *NotificationService) MarkRead(ctx context.Context, sess domain.Session, id string) error {
	if id == "" {
		return domain.ErrInvalidInput
	}
	if err := s.Feed(sess.UserKey()).MarkRead(id); err != nil {
		return err
	}
	if err := s.backend.MarkRead(ctx, sess.Tokens.AccessToken, id); err != nil {
		if isAuthFailure(err) {
			return err
		}
		s.logger.Warn(ctx, "backend mark read failed", "notification_id", id, "error", err)
	}
	return nil
}

func (s *NotificationService) MarkAllAsRead(ctx context.Context, sess domain.Session) error {
	s.Feed(sess.UserKey()).MarkAllAsRead()
	if err := s.backend.MarkAllRead(ctx, sess.Tokens.AccessToken); err != nil {
		if isAuthFailure(err) {
			return err
		}
		s.logger.Warn(ctx, "backend mark all read failed", "user_id", sess.UserKey(), "error", err)
	}
	return nil
}

// Listen registers a live stream for userKey. The returned func unregisters it.
// The channel is also closed when the user's session ends.
func (s *NotificationService) Listen(userKey string) (<-chan domain.NotificationMessage, func()) {
	ch := make(chan domain.NotificationMessage, 16)
	s.mu.Lock()
	s.nextID++
	id := s.nextID
	if s.listeners[userKey] == nil {
		s.listeners[userKey] = map[int]chan domain.NotificationMessage{}
	}
	s.listeners[userKey][id] = ch
	s.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			if _, ok := s.listeners[userKey][id]; !ok {
				// already closed by SessionEnded
				return
			}
			delete(s.listeners[userKey], id)
			if len(s.listeners[userKey]) == 0 {
				delete(s.listeners, userKey)
			}
			close(ch)
		})
	}
}

func (s *NotificationService) SessionStarted(ctx context.Context, sess domain.Session) {
	if s.push == nil {
		return
	}
	key := sess.UserKey()
	s.push.Subscribe(context.WithoutCancel(ctx), sess, func(msg domain.NotificationMessage) {
		s.Deliver(key, msg)
	})
}

func (s *NotificationService) SessionEnded(_ context.Context, sess domain.Session) {
	key := sess.UserKey()
	if s.push != nil {
		s.push.Unsubscribe(key)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.feeds, key)
	for _, ch := range s.listeners[key] {
		close(ch)
	}
	delete(s.listeners, key)
}
