// Package ratelimit implements a fixed-window request limiter on Redis.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Limiter counts hits per subject in fixed windows. Counters expire with their window,
// so instances behind a load balancer share one budget.
type Limiter struct {
	client *redis.Client
	limit  int64
	window time.Duration
	prefix string
	now    func() time.Time
}

// Decision is the outcome of a single Allow call.
type Decision struct {
	Allowed   bool
	Remaining int64
	ResetAt   time.Time
}

// New returns a limiter permitting limit hits per window. limit <= 0 disables limiting.
func New(client *redis.Client, limit int, window time.Duration) *Limiter {
	if window <= 0 {
		window = time.Minute
	}
	return &Limiter{client: client, limit: int64(limit), window: window, prefix: "ratelimit", now: time.Now}
}

func (l *Limiter) key(subject string, start time.Time) string {
	return fmt.Sprintf("%s:%s:%d", l.prefix, subject, start.Unix())
}

// Allow records a hit for subject. On Redis errors the hit is allowed and the error returned.
func (l *Limiter) Allow(ctx context.Context, subject string) (Decision, error) {
	now := l.now()
	start := now.Truncate(l.window)
	reset := start.Add(l.window)
	if l.limit <= 0 {
		return Decision{Allowed: true, Remaining: -1, ResetAt: reset}, nil
	}

	key := l.key(subject, start)
	count, err := l.client.Incr(ctx, key).Result()
	if err != nil {
		return Decision{Allowed: true, ResetAt: reset}, fmt.Errorf("rate limit incr: %w", err)
	}
	if count == 1 {
		if err := l.client.Expire(ctx, key, l.window).Err(); err != nil {
			return Decision{Allowed: true, ResetAt: reset}, fmt.Errorf("rate limit expire: %w", err)
		}
	}
	remaining := l.limit - count
	if remaining < 0 {
		remaining = 0
	}
	return Decision{Allowed: count <= l.limit, Remaining: remaining, ResetAt: reset}, nil
}

// Ping checks connectivity.
func (l *Limiter) Ping(ctx context.Context) error {
	return l.client.Ping(ctx).Err()
}
