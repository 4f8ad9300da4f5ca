package auth

import (
	"context"
	"time"

	"github.com/devsanjithm/accountd/internal/common/clock"
	"github.com/devsanjithm/accountd/internal/common/logger"
	"github.com/devsanjithm/accountd/internal/observability/metrics"
)

type ExpiredDeleter interface {
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// StartReaper periodically deletes expired token rows. Without it,
// expired-but-unconsumed refresh, reset and verification rows would
// accumulate forever.
func StartReaper(ctx context.Context, repo ExpiredDeleter, clk clock.Clock, interval time.Duration, log *logger.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deleted, err := repo.DeleteExpired(ctx, clk.Now())
			if err != nil {
				log.Errorf("token reaper failed: %v", err)
				continue
			}
			if deleted > 0 {
				metrics.TokensReaped.Add(float64(deleted))
				log.Infof("token reaper: deleted %d expired tokens", deleted)
			}
		}
	}
}
