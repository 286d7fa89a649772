package storage

import (
	"context"
	"errors"
	"time"
)

var (
	ErrLockTimeout = errors.New("timed out waiting for relay lock")
	ErrEmptyID     = errors.New("provider event id is required")
)

type RateLimitResult struct {
	Allowed    bool
	RetryAfter time.Duration
}

type RateLimiter interface {
	Allow(ctx context.Context, key string) (RateLimitResult, error)
}

// RelayRecord marks a provider event as published to the bus.
type RelayRecord struct {
	ProviderEventID string    `json:"provider_event_id"`
	Topic           string    `json:"topic"`
	RelayedAt       time.Time `json:"relayed_at"`
}

type RecordResult int

const (
	RecordCreated RecordResult = iota
	// RecordAlreadyExists means another delivery recorded the event first.
	RecordAlreadyExists
)

func (r RecordResult) String() string {
	switch r {
	case RecordCreated:
		return "created"
	case RecordAlreadyExists:
		return "already_exists"
	default:
		return "unknown"
	}
}

// RelayLedger tracks which provider events have been relayed.
// It is the only owner of RelayRecords.
type RelayLedger interface {
	HasBeenRelayed(ctx context.Context, providerEventID string) (bool, error)

	// RecordRelayed inserts rec if no record exists for its ProviderEventID.
	// A losing writer gets RecordAlreadyExists and a nil error.
	RecordRelayed(ctx context.Context, rec RelayRecord) (RecordResult, error)

	// Lock serializes deliveries of a single provider event. It blocks until the
	// lock is held or ctx is done, in which case the error wraps ErrLockTimeout.
	// The returned unlock func is safe to call more than once.
	Lock(ctx context.Context, providerEventID string) (unlock func(), err error)

	// Purge removes records relayed before the given time and reports how many were removed.
	Purge(ctx context.Context, before time.Time) (int64, error)

	Ping(ctx context.Context) error

	Close() error
}

func lockTimeout(err error) error {
	return errors.Join(ErrLockTimeout, err)
}
