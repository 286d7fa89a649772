package storage

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var _ RelayLedger = (*PostgresLedger)(nil)

// PostgresLedger shares relay state across instances.
//
// Lock takes a session advisory lock on a pooled connection and keeps that
// connection for the lifetime of the lock. HasBeenRelayed and RecordRelayed for
// a locked event run on the held connection, so a holder never needs a second
// connection from the pool. Waiters inside one process queue on a local key
// lock; waiters across instances poll pg_try_advisory_lock and give their
// connection back between attempts.
type PostgresLedger struct {
	pool      *pgxpool.Pool
	locks     *keyLock
	retryWait time.Duration

	mu   sync.Mutex
	held map[string]*heldConn
}

type heldConn struct {
	mu   sync.Mutex
	conn *pgxpool.Conn
}

type pgQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func NewPostgresLedger(pool *pgxpool.Pool) *PostgresLedger {
	return &PostgresLedger{
		pool:      pool,
		locks:     newKeyLock(),
		retryWait: defaultLockRetryWait,
		held:      make(map[string]*heldConn),
	}
}

// withQuerier runs fn on the connection holding id's lock, or on the pool when
// id is not locked by this ledger.
func (l *PostgresLedger) withQuerier(id string, fn func(q pgQuerier) error) error {
	l.mu.Lock()
	h := l.held[id]
	l.mu.Unlock()

	if h == nil {
		return fn(l.pool)
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return fn(h.conn)
}

func (l *PostgresLedger) HasBeenRelayed(ctx context.Context, providerEventID string) (bool, error) {
	id := strings.TrimSpace(providerEventID)
	if id == "" {
		return false, ErrEmptyID
	}

	var exists bool
	err := l.withQuerier(id, func(q pgQuerier) error {
		return q.QueryRow(ctx,
			"SELECT EXISTS (SELECT 1 FROM relay_records WHERE provider_event_id = $1)", id,
		).Scan(&exists)
	})
	if err != nil {
		return false, fmt.Errorf("query relay record: %w", err)
	}
	return exists, nil
}

func (l *PostgresLedger) RecordRelayed(ctx context.Context, rec RelayRecord) (RecordResult, error) {
	id := strings.TrimSpace(rec.ProviderEventID)
	if id == "" {
		return 0, ErrEmptyID
	}

	var tag pgconn.CommandTag
	err := l.withQuerier(id, func(q pgQuerier) error {
		var err error
		tag, err = q.Exec(ctx,
			`INSERT INTO relay_records (provider_event_id, topic, relayed_at)
			VALUES ($1, $2, $3)
			ON CONFLICT (provider_event_id) DO NOTHING`,
			id, rec.Topic, rec.RelayedAt,
		)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("insert relay record: %w", err)
	}

	// zero rows when ON CONFLICT DO NOTHING triggers
	if tag.RowsAffected() == 0 {
		return RecordAlreadyExists, nil
	}
	return RecordCreated, nil
}

func (l *PostgresLedger) Lock(ctx context.Context, providerEventID string) (func(), error) {
	id := strings.TrimSpace(providerEventID)
	if id == "" {
		return nil, ErrEmptyID
	}

	releaseLocal, err := l.locks.Lock(ctx, id)
	if err != nil {
		return nil, err
	}

	conn, err := l.acquireAdvisory(ctx, id)
	if err != nil {
		releaseLocal()
		return nil, err
	}

	h := &heldConn{conn: conn}
	l.mu.Lock()
	l.held[id] = h
	l.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.held, id)
			l.mu.Unlock()

			h.mu.Lock()
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			if _, err := conn.Exec(ctx, "SELECT pg_advisory_unlock(hashtextextended($1, 0))", id); err != nil {
				// closing the session drops every advisory lock it holds
				_ = conn.Conn().Close(ctx)
			}
			cancel()
			conn.Release()
			h.mu.Unlock()

			releaseLocal()
		})
	}, nil
}

// acquireAdvisory returns a connection holding the advisory lock for id.
func (l *PostgresLedger) acquireAdvisory(ctx context.Context, id string) (*pgxpool.Conn, error) {
	ticker := time.NewTicker(l.retryWait)
	defer ticker.Stop()

	for {
		conn, err := l.pool.Acquire(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil, lockTimeout(ctx.Err())
			}
			return nil, fmt.Errorf("acquire connection: %w", err)
		}

		var locked bool
		err = conn.QueryRow(ctx, "SELECT pg_try_advisory_lock(hashtextextended($1, 0))", id).Scan(&locked)
		if err != nil {
			conn.Release()
			if ctx.Err() != nil {
				return nil, lockTimeout(ctx.Err())
			}
			return nil, fmt.Errorf("advisory lock: %w", err)
		}
		if locked {
			return conn, nil
		}

		// held by another instance; do not sit on a pooled connection while waiting
		conn.Release()

		select {
		case <-ticker.C:
		case <-ctx.Done():
			return nil, lockTimeout(ctx.Err())
		}
	}
}

func (l *PostgresLedger) Purge(ctx context.Context, before time.Time) (int64, error) {
	tag, err := l.pool.Exec(ctx, "DELETE FROM relay_records WHERE relayed_at < $1", before)
	if err != nil {
		return 0, fmt.Errorf("purge relay records: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (l *PostgresLedger) Ping(ctx context.Context) error {
	return l.pool.Ping(ctx)
}

func (l *PostgresLedger) Close() error {
	l.pool.Close()
	return nil
}
