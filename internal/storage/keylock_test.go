package storage

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestKeyLockSerializesSameKey(t *testing.T) {
	t.Parallel()

	k := newKeyLock()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		active  int
		maxSeen int
	)
	for range 32 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := k.Lock(t.Context(), "key")
			if err != nil {
				t.Errorf("Lock() error = %v", err)
				return
			}
			mu.Lock()
			active++
			maxSeen = max(maxSeen, active)
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			active--
			mu.Unlock()
			unlock()
		}()
	}
	wg.Wait()

	if maxSeen != 1 {
		t.Errorf("max concurrent holders = %d, want 1", maxSeen)
	}
	if n := k.len(); n != 0 {
		t.Errorf("entries after release = %d, want 0", n)
	}
}

func TestKeyLockCancelledWaiterReleasesEntry(t *testing.T) {
	t.Parallel()

	k := newKeyLock()
	unlock, err := k.Lock(t.Context(), "key")
	if err != nil {
		t.Fatalf("Lock() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(t.Context(), 20*time.Millisecond)
	defer cancel()
	_, err = k.Lock(ctx, "key")
	if !errors.Is(err, ErrLockTimeout) {
		t.Fatalf("Lock() error = %v, want %v", err, ErrLockTimeout)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Lock() error = %v, want it to wrap %v", err, context.DeadlineExceeded)
	}

	unlock()
	if n := k.len(); n != 0 {
		t.Errorf("entries after release = %d, want 0", n)
	}
}
