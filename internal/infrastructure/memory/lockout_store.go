// Package memory provides in-process implementations of the lockout and
// session stores. State is shared by every client of one process but not
// across processes.
package memory

import (
	"context"
	"sync"
	"time"
)

const defaultSweepEvery = 256

// LockoutStore keeps failed-attempt timestamps in a map. Every sweepEvery
// appends, usernames whose newest failure has left the window are dropped.
type LockoutStore struct {
	mu         sync.Mutex
	failures   map[string][]time.Time
	locks      *keyedMutex
	appends    int
	sweepEvery int
}

func NewLockoutStore() *LockoutStore {
	return &LockoutStore{
		failures:   make(map[string][]time.Time),
		locks:      newKeyedMutex(),
		sweepEvery: defaultSweepEvery,
	}
}

func (s *LockoutStore) Failures(_ context.Context, username string) ([]time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]time.Time(nil), s.failures[username]...), nil
}

func (s *LockoutStore) Append(_ context.Context, username string, at, keepAfter time.Time, _ time.Duration) ([]time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := make([]time.Time, 0, len(s.failures[username])+1)
	for _, ts := range append(s.failures[username], at) {
		if ts.After(keepAfter) {
			kept = append(kept, ts)
		}
	}
	if len(kept) == 0 {
		delete(s.failures, username)
	} else {
		s.failures[username] = kept
	}

	s.appends++
	if s.appends >= s.sweepEvery {
		s.appends = 0
		s.sweep(keepAfter)
	}
	return append([]time.Time(nil), kept...), nil
}

// sweep must be called with s.mu held.
func (s *LockoutStore) sweep(keepAfter time.Time) {
	for name, ts := range s.failures {
		if len(ts) == 0 || !ts[len(ts)-1].After(keepAfter) {
			delete(s.failures, name)
		}
	}
}

// Len reports how many usernames currently have failures on record.
func (s *LockoutStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.failures)
}

func (s *LockoutStore) Clear(_ context.Context, username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.failures, username)
	return nil
}

func (s *LockoutStore) Lock(ctx context.Context, username string) (func(), error) {
	return s.locks.lock(ctx, username)
}

// keyedMutex hands out one mutex per key and drops it once unused.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*refLock
}

type refLock struct {
	ch   chan struct{}
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*refLock)}
}

func (k *keyedMutex) lock(ctx context.Context, key string) (func(), error) {
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &refLock{ch: make(chan struct{}, 1)}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	select {
	case l.ch <- struct{}{}:
	case <-ctx.Done():
		k.release(key, l)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-l.ch
			k.release(key, l)
		})
	}, nil
}

func (k *keyedMutex) release(key string, l *refLock) {
	k.mu.Lock()
	defer k.mu.Unlock()
	l.refs--
	if l.refs == 0 {
		delete(k.locks, key)
	}
}
