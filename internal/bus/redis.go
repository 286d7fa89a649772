package bus

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	xredis "github.com/garrettladley/payrelay/internal/redis"
)

var _ Publisher = (*RedisStreams)(nil)

type RedisStreamsConfig struct {
	// Prefix is prepended to the topic to form the stream key.
	Prefix string
	// MaxLen approximately caps each stream. Zero leaves streams unbounded.
	MaxLen int64
}

// RedisStreams appends each message to a stream named after its topic.
// The entry id returned by XADD is the acknowledgment.
type RedisStreams struct {
	client *redis.Client
	cfg    RedisStreamsConfig
	owned  bool
}

func NewRedisStreams(client *redis.Client, cfg RedisStreamsConfig) *RedisStreams {
	return &RedisStreams{client: client, cfg: cfg}
}

func DialRedisStreams(ctx context.Context, url string, cfg RedisStreamsConfig) (*RedisStreams, error) {
	client, err := xredis.New(ctx, xredis.Config{URL: url})
	if err != nil {
		return nil, err
	}
	r := NewRedisStreams(client, cfg)
	r.owned = true
	return r, nil
}

func (r *RedisStreams) stream(topic string) string {
	return r.cfg.Prefix + topic
}

func (r *RedisStreams) Publish(ctx context.Context, topic string, msg Message) error {
	values := map[string]any{
		"id":   msg.Key,
		"body": msg.Body,
	}
	for k, v := range msg.Headers {
		values["header:"+k] = v
	}

	args := &redis.XAddArgs{
		Stream: r.stream(topic),
		Values: values,
	}
	if r.cfg.MaxLen > 0 {
		args.MaxLen = r.cfg.MaxLen
		args.Approx = true
	}

	id, err := r.client.XAdd(ctx, args).Result()
	if err != nil {
		return publishError(DriverRedis, topic, err)
	}
	if id == "" {
		return publishError(DriverRedis, topic, fmt.Errorf("empty stream entry id"))
	}
	return nil
}

func (r *RedisStreams) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisStreams) Close() error {
	if !r.owned {
		return nil
	}
	return r.client.Close()
}
