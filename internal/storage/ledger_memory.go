package storage

import (
	"context"
	"strings"
	"sync"
	"time"
)

var _ RelayLedger = (*MemoryLedger)(nil)

// MemoryLedger keeps relay records in process memory.
// Only valid for single-instance deployments.
type MemoryLedger struct {
	mu      sync.RWMutex
	records map[string]RelayRecord
	locks   *keyLock
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{
		records: make(map[string]RelayRecord),
		locks:   newKeyLock(),
	}
}

func (m *MemoryLedger) HasBeenRelayed(_ context.Context, providerEventID string) (bool, error) {
	id := strings.TrimSpace(providerEventID)
	if id == "" {
		return false, ErrEmptyID
	}

	m.mu.RLock()
	_, ok := m.records[id]
	m.mu.RUnlock()
	return ok, nil
}

func (m *MemoryLedger) RecordRelayed(_ context.Context, rec RelayRecord) (RecordResult, error) {
	rec.ProviderEventID = strings.TrimSpace(rec.ProviderEventID)
	if rec.ProviderEventID == "" {
		return 0, ErrEmptyID
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.records[rec.ProviderEventID]; exists {
		return RecordAlreadyExists, nil
	}
	m.records[rec.ProviderEventID] = rec
	return RecordCreated, nil
}

func (m *MemoryLedger) Lock(ctx context.Context, providerEventID string) (func(), error) {
	id := strings.TrimSpace(providerEventID)
	if id == "" {
		return nil, ErrEmptyID
	}
	return m.locks.Lock(ctx, id)
}

func (m *MemoryLedger) Purge(_ context.Context, before time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var purged int64
	for id, rec := range m.records {
		if rec.RelayedAt.Before(before) {
			delete(m.records, id)
			purged++
		}
	}
	return purged, nil
}

func (m *MemoryLedger) Ping(_ context.Context) error {
	return nil
}

func (m *MemoryLedger) Close() error {
	return nil
}
