package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/prostech/salesbi-auth/internal/core/domain"
)

func newTestClient(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestLockoutStore_AppendAndPrune(t *testing.T) {
	mr, client := newTestClient(t)
	s := NewLockoutStore(client)
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		if _, err := s.Append(ctx, "alice", base.Add(time.Duration(i)*time.Minute), base.Add(-time.Hour), 15*time.Minute); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}
	got, err := s.Append(ctx, "alice", base.Add(10*time.Minute), base.Add(90*time.Second), 15*time.Minute)
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 retained failures, got %d", len(got))
	}
	if !got[0].Equal(base.Add(2*time.Minute)) || !got[1].Equal(base.Add(10*time.Minute)) {
		t.Fatalf("unexpected timestamps: %v", got)
	}
	if ttl := mr.TTL("lockout:alice"); ttl <= 0 {
		t.Fatalf("expected a TTL on the lockout key, got %v", ttl)
	}

	read, err := s.Failures(ctx, "alice")
	if err != nil || len(read) != 2 {
		t.Fatalf("expected 2 failures, got %d (%v)", len(read), err)
	}
}

func TestLockoutStore_SameInstantIsNotDeduplicated(t *testing.T) {
	_, client := newTestClient(t)
	s := NewLockoutStore(client)
	ctx := context.Background()
	at := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	_, _ = s.Append(ctx, "alice", at, at.Add(-time.Hour), time.Minute)
	got, _ := s.Append(ctx, "alice", at, at.Add(-time.Hour), time.Minute)
	if len(got) != 2 {
		t.Fatalf("expected both failures kept, got %d", len(got))
	}
}

func TestLockoutStore_Clear(t *testing.T) {
	mr, client := newTestClient(t)
	s := NewLockoutStore(client)
	ctx := context.Background()
	now := time.Now()

	_, _ = s.Append(ctx, "alice", now, now.Add(-time.Hour), time.Minute)
	if err := s.Clear(ctx, "alice"); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if mr.Exists("lockout:alice") {
		t.Fatalf("expected lockout key removed")
	}
}

func TestLockoutStore_LockExcludesSecondHolder(t *testing.T) {
	mr, client := newTestClient(t)
	s := NewLockoutStore(client)
	ctx := context.Background()

	unlock, err := s.Lock(ctx, "alice")
	if err != nil {
		t.Fatalf("lock: %v", err)
	}

	short, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	if _, err := s.Lock(short, "alice"); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected second lock to wait out its context, got %v", err)
	}

	unlock()
	if mr.Exists("lockout:lock:alice") {
		t.Fatalf("expected lock key released")
	}

	again, err := s.Lock(ctx, "alice")
	if err != nil {
		t.Fatalf("relock: %v", err)
	}
	again()
}

func TestLockoutStore_LockRenewedWhileHeld(t *testing.T) {
	mr, client := newTestClient(t)
	s := NewLockoutStore(client)
	s.lockTTL = 300 * time.Millisecond
	ctx := context.Background()

	unlock, err := s.Lock(ctx, "alice")
	if err != nil {
		t.Fatalf("lock: %v", err)
	}
	// A slow credential lookup eats most of the TTL.
	mr.FastForward(250 * time.Millisecond)

	deadline := time.Now().Add(2 * time.Second)
	for mr.TTL("lockout:lock:alice") <= 150*time.Millisecond {
		if time.Now().After(deadline) {
			t.Fatalf("lock TTL was not renewed, ttl=%s", mr.TTL("lockout:lock:alice"))
		}
		time.Sleep(20 * time.Millisecond)
	}

	mr.FastForward(250 * time.Millisecond)
	short, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	if _, err := s.Lock(short, "alice"); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected renewed lock to exclude a second holder, got %v", err)
	}

	unlock()
	if mr.Exists("lockout:lock:alice") {
		t.Fatalf("expected lock key released")
	}
}

func TestLockoutStore_UnlockLeavesForeignLock(t *testing.T) {
	mr, client := newTestClient(t)
	s := NewLockoutStore(client)

	unlock, err := s.Lock(context.Background(), "alice")
	if err != nil {
		t.Fatalf("lock: %v", err)
	}
	// Simulate our lock expiring and another process taking it.
	if err := mr.Set("lockout:lock:alice", "someone-else"); err != nil {
		t.Fatalf("set: %v", err)
	}
	unlock()

	if v, _ := mr.Get("lockout:lock:alice"); v != "someone-else" {
		t.Fatalf("release removed a lock it did not own")
	}
}

func TestSessionStore_SaveLoadDelete(t *testing.T) {
	mr, client := newTestClient(t)
	s := NewSessionStore(client)
	ctx := context.Background()

	if _, err := s.Load(ctx, "missing"); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}

	values := map[string]string{
		domain.SessionKeyAuthenticated: "true",
		domain.SessionKeyLoginTime:     "2024-01-01T12:00:00Z",
		domain.SessionKeyUser:          `{"username":"alice"}`,
	}
	if err := s.Save(ctx, "sid", values, time.Hour); err != nil {
		t.Fatalf("save: %v", err)
	}
	if ttl := mr.TTL("session:sid"); ttl != time.Hour {
		t.Fatalf("expected 1h TTL, got %v", ttl)
	}

	got, err := s.Load(ctx, "sid")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	for k, v := range values {
		if got[k] != v {
			t.Fatalf("field %s: expected %q, got %q", k, v, got[k])
		}
	}

	if err := s.Save(ctx, "sid", map[string]string{domain.SessionKeyAuthenticated: "false"}, time.Hour); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	got, _ = s.Load(ctx, "sid")
	if _, ok := got[domain.SessionKeyUser]; ok {
		t.Fatalf("expected save to replace the whole record, got %v", got)
	}

	if err := s.Delete(ctx, "sid"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.Load(ctx, "sid"); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound after delete, got %v", err)
	}
}

func TestSessionStore_Prefix(t *testing.T) {
	mr, client := newTestClient(t)
	s := NewSessionStoreWithPrefix(client, "salesbi:session:")

	if err := s.Save(context.Background(), "sid", map[string]string{"a": "b"}, 0); err != nil {
		t.Fatalf("save: %v", err)
	}
	if !mr.Exists("salesbi:session:sid") {
		t.Fatalf("expected prefixed key")
	}
}

func TestSessionStore_EmptyID(t *testing.T) {
	_, client := newTestClient(t)
	s := NewSessionStore(client)
	if err := s.Save(context.Background(), "", map[string]string{"a": "b"}, 0); err == nil {
		t.Fatalf("expected error for empty id")
	}
	if _, err := s.Load(context.Background(), ""); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}
