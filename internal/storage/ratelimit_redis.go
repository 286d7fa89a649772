package storage

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

var _ RateLimiter = (*RedisRateLimiter)(nil)

const rateLimitKeyPrefix = "ratelimit:"

type RedisRateLimiter struct {
	client     *redis.Client
	rateLimit  int
	rateWindow time.Duration
}

func NewRedisRateLimiter(client *redis.Client, rateLimit int) *RedisRateLimiter {
	return &RedisRateLimiter{
		client:     client,
		rateLimit:  rateLimit,
		rateWindow: time.Second,
	}
}

func (r *RedisRateLimiter) Allow(ctx context.Context, key string) (RateLimitResult, error) {
	return slidingWindow{
		window: r.rateWindow,
		limit:  r.rateLimit,
		now:    time.Now(),
	}.run(ctx, r.client, rateLimitKeyPrefix+key)
}
