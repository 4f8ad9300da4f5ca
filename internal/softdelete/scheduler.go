package softdelete

import (
	"context"
	"errors"
	"time"

	"github.com/devsanjithm/accountd/internal/common/logger"
)

// StartScheduler triggers a purge sweep every interval until ctx is
// cancelled. A tick that finds a sweep already running is dropped.
func StartScheduler(ctx context.Context, purger *Purger, interval time.Duration, log *logger.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			res, err := purger.Run(ctx)
			if err != nil {
				if errors.Is(err, ErrSweepInProgress) {
					log.Debug("scheduled purge skipped: sweep already running")
					continue
				}
				log.Errorf("scheduled purge failed: %v", err)
				continue
			}
			if res.RowsDeleted > 0 {
				log.Infof("scheduled purge reclaimed %d rows across %d entity types", res.RowsDeleted, res.Groups)
			}
		}
	}
}
