// Package retry runs store queries with a fixed attempt count and linear
// backoff.
package retry

import (
	"context"
	"time"
)

// Policy configures Do. The wait before attempt n+1 is Delay*n.
type Policy struct {
	Attempts int
	Delay    time.Duration
	// Permanent marks errors that must not be retried (e.g. "no rows").
	Permanent func(error) bool
	// OnRetry is called before each wait.
	OnRetry func(attempt int, err error)
}

// Default matches the credential store contract: 3 attempts, 1s, 2s.
var Default = Policy{Attempts: 3, Delay: time.Second}

// Do calls fn until it succeeds, returns a permanent error, or the attempts
// are used up. The last error is returned. Waiting stops early when ctx is
// done.
func Do(ctx context.Context, p Policy, fn func(ctx context.Context) error) error {
	attempts := p.Attempts
	if attempts <= 0 {
		attempts = 1
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = fn(ctx); err == nil {
			return nil
		}
		if p.Permanent != nil && p.Permanent(err) {
			return err
		}
		if attempt == attempts {
			break
		}
		if p.OnRetry != nil {
			p.OnRetry(attempt, err)
		}

		t := time.NewTimer(p.Delay * time.Duration(attempt))
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}
	return err
}
