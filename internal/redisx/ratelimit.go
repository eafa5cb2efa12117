package redisx

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

type Counter interface {
	Incr(ctx context.Context, key string) *redis.IntCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
}

type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// Limiter is a fixed-window counter per scope and client.
type Limiter struct {
	counter Counter
	scope   string
	window  time.Duration
	max     int
	now     func() time.Time
}

func NewLimiter(counter Counter, scope string, window time.Duration, max int) *Limiter {
	return &Limiter{counter: counter, scope: scope, window: window, max: max, now: time.Now}
}

func (l *Limiter) Allow(ctx context.Context, client string) (Decision, error) {
	now := l.now()
	key := RateLimitKey(l.scope, client, l.window, now)
	reset := now.Truncate(l.window).Add(l.window)

	n, err := l.counter.Incr(ctx, key).Result()
	if err != nil {
		return Decision{Allowed: true, Limit: l.max, Remaining: l.max, ResetAt: reset}, err
	}
	if n == 1 {
		if err := l.counter.Expire(ctx, key, l.window).Err(); err != nil {
			return Decision{Allowed: true, Limit: l.max, Remaining: l.max - 1, ResetAt: reset}, err
		}
	}

	remaining := l.max - int(n)
	if remaining < 0 {
		remaining = 0
	}
	return Decision{Allowed: int(n) <= l.max, Limit: l.max, Remaining: remaining, ResetAt: reset}, nil
}
