package softdelete

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/devsanjithm/accountd/internal/common/clock"
	commonerrors "github.com/devsanjithm/accountd/internal/common/errors"
	"github.com/devsanjithm/accountd/internal/common/logger"
	"github.com/devsanjithm/accountd/internal/observability/metrics"
)

var ErrSweepInProgress = errors.New("purge sweep already in progress")

type SweepResult struct {
	RowsDeleted     int64
	EntriesConsumed int64
	Groups          int
}

type Sweeper interface {
	Sweep(ctx context.Context, cutoff time.Time) (SweepResult, error)
}

// Purger runs retention sweeps. At most one sweep is in flight at a time;
// concurrent triggers, scheduled or manual, are rejected rather than queued.
type Purger struct {
	sweeper   Sweeper
	clock     clock.Clock
	retention time.Duration
	log       *logger.Logger
	mu        sync.Mutex
}

func NewPurger(sweeper Sweeper, retention time.Duration, clk clock.Clock, log *logger.Logger) *Purger {
	return &Purger{
		sweeper:   sweeper,
		clock:     clk,
		retention: retention,
		log:       log,
	}
}

// Run sweeps every row soft-deleted at least the retention period ago. The
// cutoff is open-ended downward, so entries missed by a skipped tick are
// still reclaimed by the next one. A failed sweep leaves its entries in
// place for the next attempt; nothing is retried within the same run.
func (p *Purger) Run(ctx context.Context) (SweepResult, error) {
	if !p.mu.TryLock() {
		return SweepResult{}, ErrSweepInProgress
	}
	defer p.mu.Unlock()

	cutoff := p.clock.Now().Add(-p.retention)
	start := time.Now()

	res, err := p.sweeper.Sweep(ctx, cutoff)
	metrics.PurgeSweepDurationSeconds.Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.PurgeSweepsTotal.WithLabelValues("error").Inc()
		p.log.WithFields(ctx, logger.Fields{
			"cutoff": cutoff,
			"action": "purge_sweep_failed",
		}).Errorf("purge sweep failed: %v", err)
		if errors.Is(err, ErrUnknownEntity) {
			return SweepResult{}, commonerrors.ErrUnknownEntityType.WithCause(err)
		}
		return SweepResult{}, commonerrors.ErrPurgeUnavailable.WithCause(err)
	}

	metrics.PurgeSweepsTotal.WithLabelValues("success").Inc()
	metrics.PurgedRowsTotal.Add(float64(res.RowsDeleted))

	if res.RowsDeleted > 0 || res.EntriesConsumed > 0 {
		p.log.WithFields(ctx, logger.Fields{
			"rows_deleted":     res.RowsDeleted,
			"entries_consumed": res.EntriesConsumed,
			"groups":           res.Groups,
			"action":           "purge_sweep_done",
		}).Info("purge sweep done")
	}

	return res, nil
}
