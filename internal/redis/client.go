package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultClientName  = "payrelay"
	defaultPingTimeout = 5 * time.Second
)

var ErrNoURL = errors.New("redis URL is required")

// Config is shared by the redis ledger, the redis rate limiter and the
// redis streams bus.
type Config struct {
	URL string `env:"URL"`
	// ClientName shows up in CLIENT LIST so relay connections can be told
	// apart from other tenants of a shared redis.
	ClientName  string        `env:"CLIENT_NAME" envDefault:"payrelay"`
	PingTimeout time.Duration `env:"PING_TIMEOUT" envDefault:"5s"`
}

// New parses the URL, names the connection and pings once. Settings carried in
// the URL win over ClientName.
func New(ctx context.Context, cfg Config) (*redis.Client, error) {
	if cfg.URL == "" {
		return nil, ErrNoURL
	}

	opt, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	if opt.ClientName == "" {
		opt.ClientName = cfg.ClientName
	}
	if opt.ClientName == "" {
		opt.ClientName = defaultClientName
	}

	timeout := cfg.PingTimeout
	if timeout <= 0 {
		timeout = defaultPingTimeout
	}

	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis at %s: %w", opt.Addr, err)
	}
	return client, nil
}
