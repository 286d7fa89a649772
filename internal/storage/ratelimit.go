package storage

import (
	"context"
	_ "embed"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

//go:embed ratelimit.lua
var rateLimitLua string

var rateLimitScript = redis.NewScript(rateLimitLua)

// slidingWindow is one evaluation of ratelimit.lua.
type slidingWindow struct {
	window time.Duration
	limit  int
	now    time.Time
}

func (w slidingWindow) run(ctx context.Context, client *redis.Client, key string) (RateLimitResult, error) {
	reply, err := rateLimitScript.Run(ctx, client, []string{key},
		w.window.Milliseconds(),
		w.limit,
		w.now.UnixMilli(),
		uuid.NewString(),
	).Int64Slice()
	if err != nil {
		return RateLimitResult{}, fmt.Errorf("failed to run rate limit script: %w", err)
	}
	if len(reply) != 2 {
		return RateLimitResult{}, fmt.Errorf("unexpected rate limit reply: %v", reply)
	}
	return RateLimitResult{
		Allowed:    reply[0] == 1,
		RetryAfter: time.Duration(reply[1]) * time.Millisecond,
	}, nil
}
