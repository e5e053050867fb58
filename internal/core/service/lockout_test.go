package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/prostech/salesbi-auth/internal/infrastructure/memory"
)

func newTracker(clock *fakeClock) *LockoutTracker {
	tr := NewLockoutTracker(memory.NewLockoutStore(), LockoutPolicy{MaxAttempts: 3, Duration: 15 * time.Minute}, zerolog.Nop())
	tr.now = clock.Now
	return tr
}

func TestLockoutTracker_LocksAfterMaxAttempts(t *testing.T) {
	clock := newFakeClock()
	tr := newTracker(clock)
	ctx := context.Background()

	for i, wantRemaining := range []int{2, 1} {
		st, err := tr.RecordFailure(ctx, "alice")
		if err != nil {
			t.Fatalf("record %d: %v", i, err)
		}
		if st.Locked || st.Remaining != wantRemaining || st.Attempts != i+1 {
			t.Fatalf("attempt %d: unexpected status %+v", i+1, st)
		}
		clock.Advance(time.Minute)
	}

	st, err := tr.RecordFailure(ctx, "alice")
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if !st.Locked || st.Remaining != 0 || st.Attempts != 3 {
		t.Fatalf("expected locked status, got %+v", st)
	}

	locked, err := tr.IsLocked(ctx, "alice")
	if err != nil || !locked {
		t.Fatalf("expected alice locked, got %v (%v)", locked, err)
	}
	if locked, _ := tr.IsLocked(ctx, "bob"); locked {
		t.Fatalf("lockout must be per username")
	}
}

func TestLockoutTracker_LockExpires(t *testing.T) {
	clock := newFakeClock()
	tr := newTracker(clock)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, _ = tr.RecordFailure(ctx, "alice")
	}

	clock.Advance(14 * time.Minute)
	if locked, _ := tr.IsLocked(ctx, "alice"); !locked {
		t.Fatalf("expected still locked before the window elapses")
	}

	clock.Advance(time.Minute)
	if locked, _ := tr.IsLocked(ctx, "alice"); locked {
		t.Fatalf("expected lock to expire after the window")
	}

	st, _ := tr.RecordFailure(ctx, "alice")
	if st.Attempts != 1 || st.Remaining != 2 {
		t.Fatalf("expected a fresh count after expiry, got %+v", st)
	}
}

func TestLockoutTracker_OldFailuresSlideOut(t *testing.T) {
	clock := newFakeClock()
	tr := newTracker(clock)
	ctx := context.Background()

	_, _ = tr.RecordFailure(ctx, "alice")
	clock.Advance(10 * time.Minute)
	_, _ = tr.RecordFailure(ctx, "alice")
	clock.Advance(6 * time.Minute)

	st, _ := tr.RecordFailure(ctx, "alice")
	if st.Locked || st.Attempts != 2 {
		t.Fatalf("expected the first failure to fall out of the window, got %+v", st)
	}
}

func TestLockoutTracker_ClearResets(t *testing.T) {
	clock := newFakeClock()
	tr := newTracker(clock)
	ctx := context.Background()

	_, _ = tr.RecordFailure(ctx, "alice")
	_, _ = tr.RecordFailure(ctx, "alice")
	if err := tr.Clear(ctx, "alice"); err != nil {
		t.Fatalf("clear: %v", err)
	}
	st, _ := tr.RecordFailure(ctx, "alice")
	if st.Attempts != 1 {
		t.Fatalf("expected count reset, got %+v", st)
	}
}

func TestNewLockoutTracker_Defaults(t *testing.T) {
	tr := NewLockoutTracker(memory.NewLockoutStore(), LockoutPolicy{}, zerolog.Nop())
	if p := tr.Policy(); p.MaxAttempts != DefaultMaxAttempts || p.Duration != DefaultLockoutDuration {
		t.Fatalf("unexpected defaults: %+v", p)
	}
}

type failingLockoutStore struct {
	*memory.LockoutStore
	err error
}

func (s *failingLockoutStore) Failures(context.Context, string) ([]time.Time, error) {
	return nil, s.err
}

func (s *failingLockoutStore) Append(context.Context, string, time.Time, time.Time, time.Duration) ([]time.Time, error) {
	return nil, s.err
}

func TestLockoutTracker_StoreErrors(t *testing.T) {
	boom := errors.New("redis down")
	tr := NewLockoutTracker(&failingLockoutStore{LockoutStore: memory.NewLockoutStore(), err: boom}, LockoutPolicy{}, zerolog.Nop())

	if _, err := tr.IsLocked(context.Background(), "alice"); !errors.Is(err, boom) {
		t.Fatalf("expected store error, got %v", err)
	}
	if _, err := tr.RecordFailure(context.Background(), "alice"); !errors.Is(err, boom) {
		t.Fatalf("expected store error, got %v", err)
	}
}
