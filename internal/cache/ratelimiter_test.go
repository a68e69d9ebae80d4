package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestLimiter(t *testing.T) (*HostLimiter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewHostLimiter(rdb), mr
}

func TestAllow_FirstRequestAllowed(t *testing.T) {
	t.Parallel()
	rl, mr := newTestLimiter(t)

	allowed, err := rl.Allow(context.Background(), "shop.com", 1000, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !allowed {
		t.Error("first request should be allowed")
	}
	if !mr.Exists("linkmark:fetch:shop.com") {
		t.Error("expected window key linkmark:fetch:shop.com")
	}
}

func TestAllow_SecondRequestBlocked(t *testing.T) {
	t.Parallel()
	rl, _ := newTestLimiter(t)

	allowed, err := rl.Allow(context.Background(), "shop.com", 60000, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !allowed {
		t.Fatal("first request should be allowed")
	}

	allowed, err = rl.Allow(context.Background(), "shop.com", 60000, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if allowed {
		t.Error("second request should be blocked within window")
	}

	allowed, err = rl.Allow(context.Background(), "other.com", 60000, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !allowed {
		t.Error("a different host has its own window")
	}
}

func TestAllow_WindowExpiry(t *testing.T) {
	t.Parallel()
	rl, _ := newTestLimiter(t)

	allowed, err := rl.Allow(context.Background(), "shop.com", 100, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !allowed {
		t.Fatal("first request should be allowed")
	}

	time.Sleep(150 * time.Millisecond)

	allowed, err = rl.Allow(context.Background(), "shop.com", 100, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !allowed {
		t.Error("request after window expiry should be allowed")
	}
}

func TestWaitForAllow_ContextCancellation(t *testing.T) {
	t.Parallel()
	rl, _ := newTestLimiter(t)

	if _, err := rl.Allow(context.Background(), "shop.com", 60000, 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := rl.WaitForAllow(ctx, "shop.com", 60000)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestWaitForAllow_AllowedImmediately(t *testing.T) {
	t.Parallel()
	rl, _ := newTestLimiter(t)

	if err := rl.WaitForAllow(context.Background(), "shop.com", 1000); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
}

func TestWaitForAllow_ZeroDelaySkipsRedis(t *testing.T) {
	t.Parallel()
	rl, mr := newTestLimiter(t)
	mr.Close()

	if err := rl.WaitForAllow(context.Background(), "shop.com", 0); err != nil {
		t.Fatalf("expected nil for zero delay, got %v", err)
	}
}
