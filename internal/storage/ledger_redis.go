package storage

import (
	"context"
	_ "embed"
	"fmt"
	"strings"
	"sync"
	"time"

	go_json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var _ RelayLedger = (*RedisLedger)(nil)

const (
	relayRecordKeyPrefix = "relay:record:"
	relayLockKeyPrefix   = "relay:lock:"

	defaultLockLease     = 30 * time.Second
	defaultLockRetryWait = 25 * time.Millisecond
)

//go:embed unlock.lua
var unlockLua string

var unlockScript = redis.NewScript(unlockLua)

type RedisLedgerConfig struct {
	Client *redis.Client
	// Retention is the record TTL. Redis expiry replaces the sweeper.
	Retention time.Duration
	// LockLease bounds how long a crashed holder can block a provider event.
	LockLease time.Duration
}

// RedisLedger shares relay state across instances.
// Records are written with SET NX and locks are token-guarded leases.
type RedisLedger struct {
	client    *redis.Client
	retention time.Duration
	lease     time.Duration
	retryWait time.Duration
}

func NewRedisLedger(cfg RedisLedgerConfig) *RedisLedger {
	lease := cfg.LockLease
	if lease <= 0 {
		lease = defaultLockLease
	}
	return &RedisLedger{
		client:    cfg.Client,
		retention: cfg.Retention,
		lease:     lease,
		retryWait: defaultLockRetryWait,
	}
}

func (r *RedisLedger) recordKey(id string) string { return relayRecordKeyPrefix + id }
func (r *RedisLedger) lockKey(id string) string   { return relayLockKeyPrefix + id }

func (r *RedisLedger) HasBeenRelayed(ctx context.Context, providerEventID string) (bool, error) {
	id := strings.TrimSpace(providerEventID)
	if id == "" {
		return false, ErrEmptyID
	}

	n, err := r.client.Exists(ctx, r.recordKey(id)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check relay record: %w", err)
	}
	return n > 0, nil
}

func (r *RedisLedger) RecordRelayed(ctx context.Context, rec RelayRecord) (RecordResult, error) {
	rec.ProviderEventID = strings.TrimSpace(rec.ProviderEventID)
	if rec.ProviderEventID == "" {
		return 0, ErrEmptyID
	}

	data, err := go_json.Marshal(rec)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal relay record: %w", err)
	}

	ok, err := r.client.SetNX(ctx, r.recordKey(rec.ProviderEventID), data, r.retention).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to set relay record: %w", err)
	}
	if !ok {
		return RecordAlreadyExists, nil
	}
	return RecordCreated, nil
}

func (r *RedisLedger) Lock(ctx context.Context, providerEventID string) (func(), error) {
	id := strings.TrimSpace(providerEventID)
	if id == "" {
		return nil, ErrEmptyID
	}

	key := r.lockKey(id)
	token := uuid.NewString()

	ticker := time.NewTicker(r.retryWait)
	defer ticker.Stop()

	for {
		ok, err := r.client.SetNX(ctx, key, token, r.lease).Result()
		if err != nil {
			if ctx.Err() != nil {
				return nil, lockTimeout(ctx.Err())
			}
			return nil, fmt.Errorf("failed to acquire relay lock: %w", err)
		}
		if ok {
			break
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			return nil, lockTimeout(ctx.Err())
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			// the caller's context may already be done; release on a fresh one
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = unlockScript.Run(ctx, r.client, []string{key}, token).Err()
		})
	}, nil
}

// Purge is a no-op: records expire with their TTL.
func (r *RedisLedger) Purge(_ context.Context, _ time.Time) (int64, error) {
	return 0, nil
}

func (r *RedisLedger) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisLedger) Close() error {
	return r.client.Close()
}
