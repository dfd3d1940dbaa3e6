package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const redisKeyPrefix = "pastebin:ratelimit"

// RedisLimiter counts requests in fixed windows shared by every API instance.
type RedisLimiter struct {
	client redis.Cmdable
	policy Policy
}

// NewRedisLimiter constructs a limiter backed by the provided client.
func NewRedisLimiter(client redis.Cmdable, policy Policy) (*RedisLimiter, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client must be provided")
	}
	if err := policy.validate(); err != nil {
		return nil, err
	}
	return &RedisLimiter{client: client, policy: policy}, nil
}

// Allow increments the window counter for key and compares it to the limit.
func (l *RedisLimiter) Allow(ctx context.Context, key string) (Decision, error) {
	redisKey := l.redisKey(key)

	count, err := l.client.Incr(ctx, redisKey).Result()
	if err != nil {
		return Decision{}, fmt.Errorf("increment %s: %w", redisKey, err)
	}
	if count == 1 {
		if err := l.client.Expire(ctx, redisKey, l.policy.Window).Err(); err != nil {
			return Decision{}, fmt.Errorf("expire %s: %w", redisKey, err)
		}
	}

	ttl, err := l.client.TTL(ctx, redisKey).Result()
	if err != nil {
		return Decision{}, fmt.Errorf("ttl %s: %w", redisKey, err)
	}
	if ttl < 0 {
		// A counter without expiry would block the key forever.
		if err := l.client.Expire(ctx, redisKey, l.policy.Window).Err(); err != nil {
			return Decision{}, fmt.Errorf("expire %s: %w", redisKey, err)
		}
		ttl = l.policy.Window
	}

	limit := int64(l.policy.Limit)
	if count > limit {
		return Decision{
			Allowed:    false,
			Limit:      l.policy.Limit,
			Remaining:  0,
			RetryAfter: ttl,
		}, nil
	}
	return Decision{
		Allowed:   true,
		Limit:     l.policy.Limit,
		Remaining: int(limit - count),
	}, nil
}

func (l *RedisLimiter) redisKey(key string) string {
	return fmt.Sprintf("%s:%s:%s", redisKeyPrefix, l.policy.Name, key)
}

// NewRedisClient opens a client and verifies connectivity.
func NewRedisClient(ctx context.Context, address, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:        address,
		Password:    password,
		DB:          db,
		DialTimeout: 2 * time.Second,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis at %s: %w", address, err)
	}
	return client, nil
}
