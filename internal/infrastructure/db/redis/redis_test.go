package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/prostech/salesbi-auth/internal/pkg/retry"
)

func TestConnect(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := Connect(context.Background(), Config{Addr: mr.Addr(), Timeout: time.Second})
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer client.Close()

	if err := client.Set(context.Background(), "k", "v", 0).Err(); err != nil {
		t.Fatalf("set: %v", err)
	}
}

func TestConnect_PingFailureAfterRetries(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := Connect(context.Background(), Config{
		Addr:    addr,
		Timeout: 100 * time.Millisecond,
		Retry:   retry.Policy{Attempts: 2, Delay: time.Millisecond},
	})
	if err == nil {
		t.Fatal("expected ping error")
	}
}
