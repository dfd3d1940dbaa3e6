package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
)

func TestRedisLimiterSurfacesBackendErrors(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = client.Close() })

	limiter, err := NewRedisLimiter(client, Policy{Name: "create", Limit: 10, Window: time.Minute})
	if err != nil {
		t.Fatalf("unexpected constructor error: %v", err)
	}

	if _, err := limiter.Allow(context.Background(), "10.0.0.1"); err == nil {
		t.Fatalf("expected error from unreachable redis")
	}
}

func TestRedisLimiterKeysByPolicyAndClient(t *testing.T) {
	limiter := &RedisLimiter{policy: Policy{Name: "read", Limit: 1, Window: time.Minute}}
	if got := limiter.redisKey("192.0.2.7"); got != "pastebin:ratelimit:read:192.0.2.7" {
		t.Fatalf("unexpected redis key %q", got)
	}
}

func TestNewRedisLimiterValidatesArguments(t *testing.T) {
	if _, err := NewRedisLimiter(nil, Policy{Name: "x", Limit: 1, Window: time.Second}); err == nil {
		t.Fatalf("expected error for nil client")
	}
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})
	t.Cleanup(func() { _ = client.Close() })
	if _, err := NewRedisLimiter(client, Policy{Name: "x"}); err == nil {
		t.Fatalf("expected error for invalid policy")
	}
}

func newMiniredisLimiter(t *testing.T, policy Policy) (*RedisLimiter, *miniredis.Miniredis, *redis.Client) {
	t.Helper()

	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	limiter, err := NewRedisLimiter(client, policy)
	if err != nil {
		t.Fatalf("unexpected constructor error: %v", err)
	}
	return limiter, server, client
}

func TestRedisLimiterDeniesPastLimitUntilWindowResets(t *testing.T) {
	limiter, server, _ := newMiniredisLimiter(t, Policy{Name: "create", Limit: 2, Window: time.Minute})
	ctx := context.Background()

	for expectedRemaining := 1; expectedRemaining >= 0; expectedRemaining-- {
		decision, err := limiter.Allow(ctx, "198.51.100.4")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !decision.Allowed || decision.Remaining != expectedRemaining || decision.Limit != 2 {
			t.Fatalf("expected allowed with %d remaining, got %+v", expectedRemaining, decision)
		}
	}

	denied, err := limiter.Allow(ctx, "198.51.100.4")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if denied.Allowed || denied.Remaining != 0 {
		t.Fatalf("expected denial at the limit, got %+v", denied)
	}
	if denied.RetryAfter != time.Minute {
		t.Fatalf("expected retry after the full window, got %s", denied.RetryAfter)
	}

	other, err := limiter.Allow(ctx, "198.51.100.5")
	if err != nil || !other.Allowed {
		t.Fatalf("expected another client to keep its own window, got %+v (%v)", other, err)
	}

	server.FastForward(time.Minute)

	reset, err := limiter.Allow(ctx, "198.51.100.4")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reset.Allowed || reset.Remaining != 1 {
		t.Fatalf("expected a fresh window after expiry, got %+v", reset)
	}
}

func TestRedisLimiterRestoresMissingExpiry(t *testing.T) {
	limiter, server, client := newMiniredisLimiter(t, Policy{Name: "read", Limit: 5, Window: 30 * time.Second})
	ctx := context.Background()

	key := limiter.redisKey("203.0.113.9")
	if err := client.Set(ctx, key, 7, 0).Err(); err != nil {
		t.Fatalf("failed to seed counter: %v", err)
	}

	decision, err := limiter.Allow(ctx, "203.0.113.9")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if decision.Allowed || decision.RetryAfter != 30*time.Second {
		t.Fatalf("expected denial with the window as retry, got %+v", decision)
	}
	if ttl := server.TTL(key); ttl != 30*time.Second {
		t.Fatalf("expected expiry to be restored, got %s", ttl)
	}

	server.FastForward(30 * time.Second)
	if server.Exists(key) {
		t.Fatalf("expected repaired counter to expire")
	}
}
