package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/garrettladley/payrelay/internal/migrations"
)

var _ RelayLedger = (*SQLiteLedger)(nil)

// SQLiteLedger persists relay records in a local SQLite file.
// Locks are process-local, so it is only valid for single-instance deployments.
type SQLiteLedger struct {
	db    *sql.DB
	locks *keyLock
}

// OpenSQLiteLedger opens (or creates) the database at path and applies migrations.
// Use ":memory:" for an ephemeral ledger.
func OpenSQLiteLedger(ctx context.Context, path string) (*SQLiteLedger, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// a single connection keeps ":memory:" databases shared and serializes writers
	db.SetMaxOpenConns(1)

	if err := migrations.Apply(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}

	return NewSQLiteLedger(db), nil
}

func NewSQLiteLedger(db *sql.DB) *SQLiteLedger {
	return &SQLiteLedger{db: db, locks: newKeyLock()}
}

func (l *SQLiteLedger) HasBeenRelayed(ctx context.Context, providerEventID string) (bool, error) {
	id := strings.TrimSpace(providerEventID)
	if id == "" {
		return false, ErrEmptyID
	}

	var one int
	err := l.db.QueryRowContext(ctx,
		"SELECT 1 FROM relay_records WHERE provider_event_id = ?", id,
	).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query relay record: %w", err)
	}
	return true, nil
}

func (l *SQLiteLedger) RecordRelayed(ctx context.Context, rec RelayRecord) (RecordResult, error) {
	id := strings.TrimSpace(rec.ProviderEventID)
	if id == "" {
		return 0, ErrEmptyID
	}

	res, err := l.db.ExecContext(ctx,
		"INSERT OR IGNORE INTO relay_records (provider_event_id, topic, relayed_at_ms) VALUES (?, ?, ?)",
		id, rec.Topic, rec.RelayedAt.UnixMilli(),
	)
	if err != nil {
		return 0, fmt.Errorf("insert relay record: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return RecordAlreadyExists, nil
	}
	return RecordCreated, nil
}

func (l *SQLiteLedger) Lock(ctx context.Context, providerEventID string) (func(), error) {
	id := strings.TrimSpace(providerEventID)
	if id == "" {
		return nil, ErrEmptyID
	}
	return l.locks.Lock(ctx, id)
}

func (l *SQLiteLedger) Purge(ctx context.Context, before time.Time) (int64, error) {
	res, err := l.db.ExecContext(ctx,
		"DELETE FROM relay_records WHERE relayed_at_ms < ?", before.UnixMilli(),
	)
	if err != nil {
		return 0, fmt.Errorf("purge relay records: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}

func (l *SQLiteLedger) Ping(ctx context.Context) error {
	return l.db.PingContext(ctx)
}

func (l *SQLiteLedger) Close() error {
	return l.db.Close()
}
