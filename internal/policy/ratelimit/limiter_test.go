package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestLimiterWaitSpacesRequestsPerHost(t *testing.T) {
	t.Parallel()

	// 20 RPS with burst 1: one token every 50ms.
	l := New(Config{RPS: 20, Burst: 1})
	ctx := context.Background()

	if err := l.Wait(ctx, "https://www.recete.com/a"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	start := time.Now()
	if err := l.Wait(ctx, "https://www.recete.com/b"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if waited := time.Since(start); waited < 30*time.Millisecond {
		t.Fatalf("expected second request to be delayed, waited %v", waited)
	}

	// A different host has its own bucket.
	start = time.Now()
	if err := l.Wait(ctx, "https://cdn.recete.com/x"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if waited := time.Since(start); waited > 30*time.Millisecond {
		t.Fatalf("expected other host to be immediate, waited %v", waited)
	}
}

func TestLimiterDisabled(t *testing.T) {
	t.Parallel()

	l := New(Config{})
	start := time.Now()
	for i := 0; i < 50; i++ {
		if err := l.Wait(context.Background(), "https://www.recete.com/"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if time.Since(start) > 100*time.Millisecond {
		t.Fatal("expected unlimited limiter not to block")
	}
}

func TestLimiterWaitHonoursContext(t *testing.T) {
	t.Parallel()

	l := New(Config{RPS: 0.1, Burst: 1})
	if err := l.Wait(context.Background(), "https://www.recete.com/"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := l.Wait(ctx, "https://www.recete.com/")
	if err == nil {
		t.Fatal("expected error when the next token is beyond the deadline")
	}
	if errors.Is(err, context.Canceled) {
		t.Fatalf("unexpected cancellation error: %v", err)
	}
}
