package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/prostech/salesbi-auth/internal/pkg/retry"
)

const defaultTimeout = 5 * time.Second

// Config holds the connection settings shared by the lockout and session
// stores.
type Config struct {
	Addr     string
	Password string
	DB       int
	// Timeout bounds dialling and each startup ping. Zero means 5s.
	Timeout time.Duration
	// Retry governs the startup ping. The zero value means retry.Default.
	Retry retry.Policy
}

// Connect opens a client and blocks until the server answers a ping or the
// retry policy gives up.
func Connect(ctx context.Context, cfg Config) (*redis.Client, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	policy := cfg.Retry
	if policy.Attempts == 0 {
		policy = retry.Default
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  timeout,
		ReadTimeout:  timeout,
		WriteTimeout: timeout,
	})

	err := retry.Do(ctx, policy, func(ctx context.Context) error {
		pingCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		return client.Ping(pingCtx).Err()
	})
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", cfg.Addr, err)
	}
	return client, nil
}
