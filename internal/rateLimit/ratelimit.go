package rateLimit

import (
	"context"
	"time"

	redisadapter "github.com/celeparty/ticketops/internal/adapters/redis"
)

// RateLimiter is a fixed-window counter on redis, used to keep a
// misbehaving scanner from hammering the verification endpoint.
type RateLimiter struct {
	redis *redisadapter.Locks
}

func NewRateLimiter(redis *redisadapter.Locks) *RateLimiter {
	return &RateLimiter{redis: redis}
}

func (rl *RateLimiter) Allow(ctx context.Context, key string, rate int, period time.Duration) bool {
	fullKey := "rl:" + key

	pipe := rl.redis.Client().Pipeline()
	incr := pipe.Incr(ctx, fullKey)
	pipe.ExpireNX(ctx, fullKey, period)

	if _, err := pipe.Exec(ctx); err != nil {
		// Fail open: losing redis must not take verification down.
		return true
	}

	return incr.Val() <= int64(rate)
}
