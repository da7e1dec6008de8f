package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"helpdesk-console/internal/domain"
)

const keyPrefix = "helpdesk:session:"

func sessionKey(sessionID string) string { return keyPrefix + sessionID }

// StateStore keeps each session's state in a Redis hash whose fields are the
// fixed state keys. The hash expires after the configured TTL.
type StateStore struct {
	client goredis.UniversalClient
	ttl    time.Duration
}

func NewStateStore(client goredis.UniversalClient, ttl time.Duration) *StateStore {
	return &StateStore{client: client, ttl: ttl}
}

func NewClient(ctx context.Context, addr string) (*goredis.Client, error) {
	client := goredis.NewClient(&goredis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return client, nil
}

func (s *StateStore) Load(ctx context.Context, sessionID string) (domain.PersistedState, error) {
	fields, err := s.client.HGetAll(ctx, sessionKey(sessionID)).Result()
	if err != nil {
		return domain.PersistedState{}, fmt.Errorf("load session state: %w", err)
	}
	if len(fields) == 0 {
		return domain.PersistedState{}, domain.ErrNotFound
	}
	return domain.StateFromFields(fields), nil
}

func (s *StateStore) Save(ctx context.Context, sessionID string, state domain.PersistedState) error {
	if sessionID == "" {
		return domain.ErrInvalidInput
	}
	fields, err := state.Fields()
	if err != nil {
		return err
	}
	key := sessionKey(sessionID)
	_, err = s.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.Del(ctx, key)
		if len(fields) == 0 {
			return nil
		}
		values := make([]any, 0, len(fields)*2)
		for k, v := range fields {
			values = append(values, k, v)
		}
		pipe.HSet(ctx, key, values...)
		if s.ttl > 0 {
			pipe.Expire(ctx, key, s.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("save session state: %w", err)
	}
	return nil
}

func (s *StateStore) Clear(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, sessionKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("clear session state: %w", err)
	}
	return nil
}
