package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Limiter throttles outbound deliveries so the provider's rate cap is never
// hit by a large blast. Counters live in redis so multiple workers share one
// budget.
type Limiter struct {
	client *redis.Client
	limit  int64
	window time.Duration
}

type CheckResult struct {
	Allowed   bool  `json:"allowed"`
	Remaining int64 `json:"remaining"`
	ResetAt   int64 `json:"reset_at"`
	Limit     int64 `json:"limit"`
}

func NewLimiter(redisURL string, limit int64, window time.Duration) (*Limiter, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &Limiter{client: client, limit: limit, window: window}, nil
}

// Check increments the window counter and reports whether this send may go.
func (l *Limiter) Check(ctx context.Context, action string) (*CheckResult, error) {
	key := fmt.Sprintf("rate:%s", action)

	pipe := l.client.Pipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, l.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("failed to increment counter: %w", err)
	}
	count := incr.Val()

	ttl, err := l.client.TTL(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get TTL: %w", err)
	}

	remaining := l.limit - count
	if remaining < 0 {
		remaining = 0
	}

	return &CheckResult{
		Allowed:   count <= l.limit,
		Remaining: remaining,
		ResetAt:   time.Now().Add(ttl).Unix(),
		Limit:     l.limit,
	}, nil
}

func (l *Limiter) Close() error {
	return l.client.Close()
}
