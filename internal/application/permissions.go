package application

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
	"helpdesk-console/internal/domain"
	"helpdesk-console/internal/ports"
)

const (
	SourceServer = "server"
	SourceStatic = "static"
)

var errNoServerID = errors.New("identity has no server-side id")

// NavigationSource is either ServerAuthoritative or StaticFallback. Call
// sites switch on the concrete type.
type NavigationSource interface {
	Navigation() []domain.MenuItem
	Kind() string
	sealed()
}

type ServerAuthoritative struct {
	Menu        []domain.MenuItem
	Permissions []domain.PermissionRecord
	Grants      map[string]domain.MenuPermission
}

func (s ServerAuthoritative) Navigation() []domain.MenuItem { return s.Menu }
func (ServerAuthoritative) Kind() string                    { return SourceServer }
func (ServerAuthoritative) sealed()                         {}

// CanView, CanEdit and CanDelete deny any path without a grant.
func (s ServerAuthoritative) CanView(path string) bool   { return s.Grants[path].CanView }
func (s ServerAuthoritative) CanEdit(path string) bool   { return s.Grants[path].CanEdit }
func (s ServerAuthoritative) CanDelete(path string) bool { return s.Grants[path].CanDelete }

type StaticFallback struct {
	Menu   []domain.MenuItem
	Reason error
}

func (s StaticFallback) Navigation() []domain.MenuItem { return s.Menu }
func (StaticFallback) Kind() string                    { return SourceStatic }
func (StaticFallback) sealed()                         {}

// GrantFor returns the fine-grained grant for a path. known is false when the
// source carries no grants, and callers must then treat every predicate as denied.
func GrantFor(src NavigationSource, path string) (grant domain.MenuPermission, known bool) {
	switch s := src.(type) {
	case ServerAuthoritative:
		g, ok := s.Grants[path]
		if !ok {
			return domain.MenuPermission{Path: path}, true
		}
		return g, true
	case StaticFallback:
		return domain.MenuPermission{Path: path}, false
	default:
		return domain.MenuPermission{Path: path}, false
	}
}

type cacheEntry struct {
	source     NavigationSource
	loading    bool
	generation uint64
	cancel     context.CancelFunc
}

// errSuperseded marks a fetch whose result was discarded because a newer one
// replaced it.
var errSuperseded = errors.New("permission fetch superseded")

// PermissionCache keeps the navigation source of every authenticated user.
type PermissionCache struct {
	backend ports.PermissionBackend
	metrics ports.Metrics
	logger  ports.Logger

	flight     singleflight.Group
	mu         sync.Mutex
	entries    map[string]*cacheEntry
	generation uint64
}

func NewPermissionCache(backend ports.PermissionBackend, metrics ports.Metrics, logger ports.Logger) *PermissionCache {
	return &PermissionCache{
		backend: backend,
		metrics: metrics,
		logger:  logger,
		entries: map[string]*cacheEntry{},
	}
}

// Load returns the cached source for the session's user, fetching it on first
// use. Callers arriving while a fetch is in flight share its result. The error
// wraps domain.ErrUnauthenticated when the backend rejected the access token.
func (c *PermissionCache) Load(ctx context.Context, sess domain.Session) (NavigationSource, error) {
	key := sess.UserKey()
	for {
		if src, ok := c.cached(key); ok {
			return src, nil
		}
		src, err := c.join(ctx, sess)
		if errors.Is(err, errSuperseded) && ctx.Err() == nil {
			continue
		}
		if errors.Is(err, errSuperseded) {
			return src, nil
		}
		return src, err
	}
}

// Refresh re-runs the fetch sequence. A fetch still in flight for the same
// user is cancelled and its result discarded.
func (c *PermissionCache) Refresh(ctx context.Context, sess domain.Session) (NavigationSource, error) {
	c.flight.Forget(sess.UserKey())
	src, err := c.join(ctx, sess)
	if errors.Is(err, errSuperseded) {
		// a later refresh owns the entry now
		return c.Load(ctx, sess)
	}
	return src, err
}

func (c *PermissionCache) cached(key string) (NavigationSource, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok || e.source == nil {
		return nil, false
	}
	return e.source, true
}

// join runs one fetch per user at a time. The fetch is detached from the
// caller, whose cancellation would otherwise fail every waiter.
func (c *PermissionCache) join(ctx context.Context, sess domain.Session) (NavigationSource, error) {
	detached := context.WithoutCancel(ctx)
	v, err, _ := c.flight.Do(sess.UserKey(), func() (any, error) {
		return c.run(detached, sess)
	})
	src, _ := v.(NavigationSource)
	return src, err
}

func (c *PermissionCache) run(ctx context.Context, sess domain.Session) (NavigationSource, error) {
	key := sess.UserKey()
	fetchCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	c.mu.Lock()
	e, ok := c.entries[key]
	if !ok {
		e = &cacheEntry{}
		c.entries[key] = e
	}
	if e.cancel != nil {
		e.cancel()
	}
	c.generation++
	gen := c.generation
	e.generation = gen
	e.loading = true
	e.cancel = cancel
	c.mu.Unlock()

	src, err := c.fetch(fetchCtx, sess)

	c.mu.Lock()
	defer c.mu.Unlock()
	current, ok := c.entries[key]
	if !ok {
		// invalidated while fetching
		return src, err
	}
	if current.generation != gen {
		return src, errSuperseded
	}
	if err != nil {
		delete(c.entries, key)
		return nil, err
	}
	current.source = src
	current.loading = false
	current.cancel = nil
	c.metrics.NavigationResolved(src.Kind())
	return src, nil
}

func (c *PermissionCache) IsLoading(userKey string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[userKey]
	return ok && e.loading
}

func (c *PermissionCache) Invalidate(userKey string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[userKey]; ok && e.cancel != nil {
		e.cancel()
	}
	delete(c.entries, userKey)
	c.flight.Forget(userKey)
}

func (c *PermissionCache) SessionStarted(ctx context.Context, sess domain.Session) {
	go func() {
		if _, err := c.Load(context.WithoutCancel(ctx), sess); err != nil {
			c.logger.Warn(ctx, "initial permission fetch rejected", "user_id", sess.Identity.ID, "error", err)
		}
	}()
}

func (c *PermissionCache) SessionEnded(_ context.Context, sess domain.Session) {
	c.Invalidate(sess.UserKey())
}

// fetch runs the three backend calls concurrently. Any failure other than a
// rejected token degrades to the static table.
func (c *PermissionCache) fetch(ctx context.Context, sess domain.Session) (NavigationSource, error) {
	static := func(reason error) NavigationSource {
		return StaticFallback{Menu: ResolveNavigation(sess.Identity.Roles), Reason: reason}
	}
	userID := sess.Identity.ID
	if userID == "" {
		return static(errNoServerID), nil
	}

	var (
		g           errgroup.Group
		permissions []domain.PermissionRecord
		menus       []domain.MenuItem
		grants      []domain.MenuPermission
		failures    [3]error
	)
	g.Go(func() error {
		var err error
		if permissions, err = c.backend.Permissions(ctx, sess.Tokens.AccessToken, userID); err != nil {
			failures[0] = fmt.Errorf("fetch permissions: %w", err)
		}
		return failures[0]
	})
	g.Go(func() error {
		var err error
		if menus, err = c.backend.Menus(ctx, sess.Tokens.AccessToken, userID); err != nil {
			failures[1] = fmt.Errorf("fetch menus: %w", err)
		}
		return failures[1]
	})
	g.Go(func() error {
		var err error
		if grants, err = c.backend.MenuPermissions(ctx, sess.Tokens.AccessToken, userID); err != nil {
			failures[2] = fmt.Errorf("fetch menu permissions: %w", err)
		}
		return failures[2]
	})
	if err := g.Wait(); err != nil {
		// the first error may hide a rejected token reported by another call
		if joined := errors.Join(failures[:]...); errors.Is(joined, domain.ErrUnauthenticated) {
			return nil, joined
		}
		c.logger.Warn(ctx, "permission fetch failed, using static navigation", "user_id", userID, "error", err)
		return static(err), nil
	}

	byPath := make(map[string]domain.MenuPermission, len(grants))
	for _, grant := range grants {
		merged := byPath[grant.Path]
		merged.Path = grant.Path
		if merged.Role == "" {
			merged.Role = grant.Role
		}
		merged.CanView = merged.CanView || grant.CanView
		merged.CanEdit = merged.CanEdit || grant.CanEdit
		merged.CanDelete = merged.CanDelete || grant.CanDelete
		byPath[grant.Path] = merged
	}
	return ServerAuthoritative{Menu: menus, Permissions: permissions, Grants: byPath}, nil
}
