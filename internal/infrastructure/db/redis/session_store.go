package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/prostech/salesbi-auth/internal/core/domain"
)

// SessionStore keeps each session as a Redis hash. The key TTL only reclaims
// abandoned sessions; the session manager decides expiry itself.
// Key format: session:<id>
type SessionStore struct {
	client redis.UniversalClient
	prefix string
}

func NewSessionStore(client redis.UniversalClient) *SessionStore {
	return &SessionStore{client: client, prefix: "session:"}
}

// NewSessionStoreWithPrefix creates a Redis session store with a custom key prefix.
func NewSessionStoreWithPrefix(client redis.UniversalClient, prefix string) *SessionStore {
	return &SessionStore{client: client, prefix: prefix}
}

func (s *SessionStore) Load(ctx context.Context, id string) (map[string]string, error) {
	if id == "" {
		return nil, domain.ErrSessionNotFound
	}
	values, err := s.client.HGetAll(ctx, s.prefix+id).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, fmt.Errorf("redis hgetall: %w", err)
	}
	if len(values) == 0 {
		return nil, domain.ErrSessionNotFound
	}
	return values, nil
}

func (s *SessionStore) Save(ctx context.Context, id string, values map[string]string, ttl time.Duration) error {
	if id == "" {
		return errors.New("session ID cannot be empty")
	}
	key := s.prefix + id
	fields := make([]string, 0, 2*len(values))
	for k, v := range values {
		fields = append(fields, k, v)
	}
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.HSet(ctx, key, fields)
		if ttl > 0 {
			pipe.PExpire(ctx, key, ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis save session: %w", err)
	}
	return nil
}

func (s *SessionStore) Delete(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	return s.client.Del(ctx, s.prefix+id).Err()
}
