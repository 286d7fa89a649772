package storage

import (
	"context"
	"time"

	"github.com/garrettladley/payrelay/internal/xslog"
)

// Sweeper garbage-collects relay records older than the retention window.
// It runs on its own goroutine and never blocks the relay path.
type Sweeper struct {
	ledger    RelayLedger
	retention time.Duration
	interval  time.Duration
	now       func() time.Time
}

func NewSweeper(ledger RelayLedger, retention, interval time.Duration) *Sweeper {
	return &Sweeper{
		ledger:    ledger,
		retention: retention,
		interval:  interval,
		now:       time.Now,
	}
}

// SweepOnce purges records relayed before now minus retention.
func (s *Sweeper) SweepOnce(ctx context.Context) (int64, error) {
	return s.ledger.Purge(ctx, s.now().Add(-s.retention))
}

// Run sweeps every interval until ctx is done. Purge errors are logged and retried next tick.
func (s *Sweeper) Run(ctx context.Context) error {
	logger := xslog.FromContext(ctx)

	if s.interval <= 0 || s.retention <= 0 {
		logger.InfoContext(ctx, "ledger sweeper disabled")
		<-ctx.Done()
		return nil
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			before := s.now().Add(-s.retention)
			n, err := s.ledger.Purge(ctx, before)
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				logger.ErrorContext(ctx, "failed to purge relay records", xslog.Error(err))
				continue
			}
			if n > 0 {
				logger.InfoContext(ctx, "purged relay records", xslog.Count(n), xslog.Before(before))
			}
		}
	}
}
