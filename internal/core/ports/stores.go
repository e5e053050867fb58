package ports

import (
	"context"
	"time"
)

// LockoutStore holds failed-attempt timestamps per username. It is shared by
// every session, and with a networked backend by every process.
type LockoutStore interface {
	// Failures returns the retained timestamps, oldest first.
	Failures(ctx context.Context, username string) ([]time.Time, error)
	// Append records at, drops entries not after keepAfter and returns what
	// remains. ttl bounds how long the backend keeps the record around.
	Append(ctx context.Context, username string, at, keepAfter time.Time, ttl time.Duration) ([]time.Time, error)
	Clear(ctx context.Context, username string) error
	// Lock serializes the check-then-record sequence for one username.
	Lock(ctx context.Context, username string) (unlock func(), err error)
}

// SessionStore persists per-session key/value records. Load returns
// domain.ErrSessionNotFound for unknown ids.
type SessionStore interface {
	Load(ctx context.Context, id string) (map[string]string, error)
	Save(ctx context.Context, id string, values map[string]string, ttl time.Duration) error
	Delete(ctx context.Context, id string) error
}
