package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	defaultLockTTL = 5 * time.Second
	lockWait       = 3 * time.Second
	lockInterval   = 20 * time.Millisecond
)

// ErrLockTimeout is returned when the per-username lock cannot be taken
// within lockWait.
var ErrLockTimeout = errors.New("lockout lock wait timed out")

// releaseScript deletes the lock only if it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// renewScript extends the lock TTL only if it still holds our token.
var renewScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

// LockoutStore keeps failed-attempt timestamps in a sorted set per username,
// scored by unix microseconds.
// Key format: lockout:<username>, lock key: lockout:lock:<username>
type LockoutStore struct {
	client  redis.UniversalClient
	lockTTL time.Duration
}

// NewLockoutStore creates a LockoutStore wrapping the given Redis client.
func NewLockoutStore(client redis.UniversalClient) *LockoutStore {
	return &LockoutStore{client: client, lockTTL: defaultLockTTL}
}

func (s *LockoutStore) Failures(ctx context.Context, username string) ([]time.Time, error) {
	zs, err := s.client.ZRangeWithScores(ctx, s.key(username), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("lockout read: %w", err)
	}
	return toTimes(zs), nil
}

// Append adds at, prunes entries at or before keepAfter and refreshes the
// key TTL in a single transaction.
func (s *LockoutStore) Append(ctx context.Context, username string, at, keepAfter time.Time, ttl time.Duration) ([]time.Time, error) {
	key := s.key(username)
	var rng *redis.ZSliceCmd

	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZAdd(ctx, key, redis.Z{
			Score:  float64(at.UnixMicro()),
			Member: strconv.FormatInt(at.UnixMicro(), 10) + ":" + uuid.NewString(),
		})
		pipe.ZRemRangeByScore(ctx, key, "-inf", strconv.FormatInt(keepAfter.UnixMicro(), 10))
		rng = pipe.ZRangeWithScores(ctx, key, 0, -1)
		if ttl > 0 {
			pipe.PExpire(ctx, key, ttl)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("lockout append: %w", err)
	}
	return toTimes(rng.Val()), nil
}

func (s *LockoutStore) Clear(ctx context.Context, username string) error {
	if err := s.client.Del(ctx, s.key(username)).Err(); err != nil {
		return fmt.Errorf("lockout clear: %w", err)
	}
	return nil
}

// Lock takes a token lock so that concurrent logins for the same username,
// possibly on different processes, run one at a time. The lock TTL is renewed
// until the returned release func runs.
func (s *LockoutStore) Lock(ctx context.Context, username string) (func(), error) {
	key := s.lockKey(username)
	token := uuid.NewString()
	deadline := time.Now().Add(lockWait)

	for {
		ok, err := s.client.SetNX(ctx, key, token, s.lockTTL).Result()
		if err != nil {
			return nil, fmt.Errorf("lockout lock: %w", err)
		}
		if ok {
			break
		}
		if time.Now().After(deadline) {
			return nil, ErrLockTimeout
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(lockInterval):
		}
	}

	stop := make(chan struct{})
	done := make(chan struct{})
	go s.renew(key, token, stop, done)

	var once sync.Once
	return func() {
		once.Do(func() {
			close(stop)
			<-done
			// The caller's ctx may already be cancelled; release must still run.
			relCtx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			_ = releaseScript.Run(relCtx, s.client, []string{key}, token).Err()
		})
	}, nil
}

// renew keeps the lock alive until stop is closed or the lock is lost.
func (s *LockoutStore) renew(key, token string, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(s.lockTTL / 3)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), s.lockTTL/3)
			n, err := renewScript.Run(ctx, s.client, []string{key}, token, s.lockTTL.Milliseconds()).Int()
			cancel()
			if err == nil && n == 0 {
				return
			}
		}
	}
}

func (s *LockoutStore) key(username string) string {
	return "lockout:" + username
}

func (s *LockoutStore) lockKey(username string) string {
	return "lockout:lock:" + username
}

func toTimes(zs []redis.Z) []time.Time {
	out := make([]time.Time, 0, len(zs))
	for _, z := range zs {
		out = append(out, time.UnixMicro(int64(z.Score)))
	}
	return out
}
