package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"helpdesk-console/internal/domain"
)

func newStore(t *testing.T, ttl time.Duration) (*StateStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewStateStore(client, ttl), mr
}

func TestStateStore_RoundTrip(t *testing.T) {
	store, mr := newStore(t, time.Hour)
	ctx := context.Background()

	state := domain.PersistedState{
		Roles:       []string{"ADMIN"},
		Identity:    &domain.Identity{ID: "u1", Email: "a@b.c", Roles: []domain.Role{domain.RoleAdmin}},
		AccessToken: "at",
	}
	require.NoError(t, store.Save(ctx, "s1", state))

	assert.Equal(t, "at", mr.HGet("helpdesk:session:s1", domain.StateKeyAccessToken))
	assert.Empty(t, mr.HGet("helpdesk:session:s1", domain.StateKeyRefreshToken))
	assert.Equal(t, time.Hour, mr.TTL("helpdesk:session:s1"))

	got, err := store.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, state, got)
}

func TestStateStore_SaveReplacesPreviousFields(t *testing.T) {
	store, mr := newStore(t, 0)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "s1", domain.PersistedState{AccessToken: "at", RefreshToken: "rt"}))
	require.NoError(t, store.Save(ctx, "s1", domain.PersistedState{AccessToken: "at2"}))

	assert.Equal(t, "", mr.HGet("helpdesk:session:s1", domain.StateKeyRefreshToken))
	got, err := store.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "at2", got.AccessToken)
}

func TestStateStore_ClearAndMissing(t *testing.T) {
	store, _ := newStore(t, time.Hour)
	ctx := context.Background()

	_, err := store.Load(ctx, "nobody")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, store.Save(ctx, "s1", domain.PersistedState{AccessToken: "at"}))
	require.NoError(t, store.Clear(ctx, "s1"))
	_, err = store.Load(ctx, "s1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStateStore_Expires(t *testing.T) {
	store, mr := newStore(t, time.Minute)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "s1", domain.PersistedState{AccessToken: "at"}))
	mr.FastForward(2 * time.Minute)
	_, err := store.Load(ctx, "s1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
