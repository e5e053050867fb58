package queue

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/prostech/salesbi-auth/internal/core/domain"
)

type recordingSink struct {
	mu       sync.Mutex
	attempts []domain.LoginAttempt
}

func (s *recordingSink) Record(_ context.Context, a domain.LoginAttempt) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts = append(s.attempts, a)
}

func (s *recordingSink) snapshot() []domain.LoginAttempt {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.LoginAttempt(nil), s.attempts...)
}

func TestDispatcher_RecordsAllAttemptsBeforeStopping(t *testing.T) {
	sink := &recordingSink{}
	d := NewDispatcher(3, sink, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	d.Start(ctx)

	for i := 0; i < 30; i++ {
		d.Record(ctx, domain.LoginAttempt{Username: fmt.Sprintf("user%d", i%5)})
	}
	cancel()
	d.Wait()

	if got := len(sink.snapshot()); got != 30 {
		t.Fatalf("expected 30 recorded attempts, got %d", got)
	}
}

func TestDispatcher_PreservesPerUserOrder(t *testing.T) {
	sink := &recordingSink{}
	d := NewDispatcher(4, sink, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	d.Start(ctx)

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 20; i++ {
		d.Record(ctx, domain.LoginAttempt{Username: "alice", Timestamp: base.Add(time.Duration(i) * time.Second)})
	}
	cancel()
	d.Wait()

	var prev time.Time
	for _, a := range sink.snapshot() {
		if a.Timestamp.Before(prev) {
			t.Fatalf("attempts recorded out of order: %v after %v", a.Timestamp, prev)
		}
		prev = a.Timestamp
	}
}

func TestDispatcher_ShardIndexIsStable(t *testing.T) {
	d := NewDispatcher(8, &recordingSink{}, zerolog.Nop())
	first := d.shardIndex("alice")
	for i := 0; i < 10; i++ {
		if d.shardIndex("alice") != first {
			t.Fatalf("shard index changed between calls")
		}
	}
	if first < 0 || first >= 8 {
		t.Fatalf("shard index out of range: %d", first)
	}
}

func TestDispatcher_DropsWhenFull(t *testing.T) {
	sink := &recordingSink{}
	d := NewDispatcher(1, sink, zerolog.Nop())

	// Workers not started: the single shard fills and further records drop.
	for i := 0; i < channelBuffer+10; i++ {
		d.Record(context.Background(), domain.LoginAttempt{Username: "bob"})
	}
	if got := len(d.workers[0]); got != channelBuffer {
		t.Fatalf("expected a full shard of %d, got %d", channelBuffer, got)
	}
}
