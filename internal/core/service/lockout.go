package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/prostech/salesbi-auth/internal/core/domain"
	"github.com/prostech/salesbi-auth/internal/core/ports"
	"github.com/prostech/salesbi-auth/internal/pkg/metrics"
)

const (
	DefaultMaxAttempts     = 3
	DefaultLockoutDuration = 15 * time.Minute
)

// LockoutPolicy holds the lockout tunables.
type LockoutPolicy struct {
	MaxAttempts int
	Duration    time.Duration
}

// LockoutTracker counts failed logins per username inside a sliding window.
// State lives in a shared store, so opening a new client session does not
// reset it.
type LockoutTracker struct {
	store  ports.LockoutStore
	policy LockoutPolicy
	now    func() time.Time
	log    zerolog.Logger
}

// NewLockoutTracker returns a tracker. Non-positive tunables fall back to the
// defaults.
func NewLockoutTracker(store ports.LockoutStore, policy LockoutPolicy, log zerolog.Logger) *LockoutTracker {
	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = DefaultMaxAttempts
	}
	if policy.Duration <= 0 {
		policy.Duration = DefaultLockoutDuration
	}
	return &LockoutTracker{
		store:  store,
		policy: policy,
		now:    time.Now,
		log:    log.With().Str("component", "lockout").Logger(),
	}
}

func (t *LockoutTracker) Policy() LockoutPolicy { return t.policy }

// IsLocked reports whether username has reached MaxAttempts and its newest
// failure is still inside the lockout window. An elapsed lockout clears the
// username's failures.
func (t *LockoutTracker) IsLocked(ctx context.Context, username string) (bool, error) {
	failures, err := t.store.Failures(ctx, username)
	if err != nil {
		return false, fmt.Errorf("lockout failures: %w", err)
	}
	if len(failures) < t.policy.MaxAttempts {
		return false, nil
	}

	last := failures[len(failures)-1]
	if t.now().Before(last.Add(t.policy.Duration)) {
		return true, nil
	}

	if err := t.store.Clear(ctx, username); err != nil {
		return false, fmt.Errorf("lockout clear: %w", err)
	}
	t.log.Info().Str("username", username).Msg("lockout expired")
	return false, nil
}

// RecordFailure appends a failed attempt and prunes attempts older than the
// lockout window.
func (t *LockoutTracker) RecordFailure(ctx context.Context, username string) (domain.FailureStatus, error) {
	now := t.now()
	kept, err := t.store.Append(ctx, username, now, now.Add(-t.policy.Duration), t.policy.Duration)
	if err != nil {
		return domain.FailureStatus{}, fmt.Errorf("lockout record: %w", err)
	}

	status := domain.FailureStatus{
		Attempts:  len(kept),
		Remaining: t.policy.MaxAttempts - len(kept),
	}
	if status.Remaining <= 0 {
		status.Remaining = 0
		status.Locked = true
		metrics.LockoutsTotal.Inc()
		t.log.Warn().
			Str("username", username).
			Int("attempts", status.Attempts).
			Dur("lockout", t.policy.Duration).
			Msg("account locked")
		return status, nil
	}

	t.log.Warn().
		Str("username", username).
		Int("remaining", status.Remaining).
		Msg("failed login attempt")
	return status, nil
}

// Clear forgets every failure recorded for username.
func (t *LockoutTracker) Clear(ctx context.Context, username string) error {
	if err := t.store.Clear(ctx, username); err != nil {
		return fmt.Errorf("lockout clear: %w", err)
	}
	return nil
}

// Guard serializes authentication attempts for one username.
func (t *LockoutTracker) Guard(ctx context.Context, username string) (func(), error) {
	unlock, err := t.store.Lock(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("lockout guard: %w", err)
	}
	return unlock, nil
}
