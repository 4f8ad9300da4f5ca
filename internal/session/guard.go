package session

import (
	"context"

	"github.com/devsanjithm/accountd/internal/common/logger"
	"github.com/devsanjithm/accountd/internal/common/resilience"
	"github.com/devsanjithm/accountd/internal/observability/metrics"
)

// GuardedCache wraps a Cache behind a circuit breaker with a bounded call
// timeout. A slow or failing backing store degrades lookups to a miss
// instead of stalling the request path.
type GuardedCache struct {
	inner   Cache
	breaker *resilience.CircuitBreaker
	log     *logger.Logger
}

func NewGuardedCache(inner Cache, breaker *resilience.CircuitBreaker, log *logger.Logger) *GuardedCache {
	return &GuardedCache{inner: inner, breaker: breaker, log: log}
}

func (g *GuardedCache) Set(ctx context.Context, subjectID string, d Descriptor) error {
	err := g.breaker.Call(ctx, func(ctx context.Context) error {
		return g.inner.Set(ctx, subjectID, d)
	})
	if err != nil {
		g.log.WithFields(ctx, logger.Fields{
			"subject_id": subjectID,
			"action":     "session_set_failed",
		}).Warnf("session cache set failed: %v", err)
	}
	return err
}

func (g *GuardedCache) Get(ctx context.Context, subjectID string) (Descriptor, bool, error) {
	var d Descriptor
	var found bool

	err := g.breaker.CallWithFallback(ctx, func(ctx context.Context) error {
		var err error
		d, found, err = g.inner.Get(ctx, subjectID)
		return err
	}, func() error {
		// degraded lookup counts as a miss
		d = Descriptor{}
		found = false
		return nil
	})
	if err != nil {
		return Descriptor{}, false, err
	}

	if found {
		metrics.SessionCacheHits.Inc()
	} else {
		metrics.SessionCacheMisses.Inc()
	}
	return d, found, nil
}

func (g *GuardedCache) Delete(ctx context.Context, subjectID string) error {
	err := g.breaker.Call(ctx, func(ctx context.Context) error {
		return g.inner.Delete(ctx, subjectID)
	})
	if err != nil {
		g.log.WithFields(ctx, logger.Fields{
			"subject_id": subjectID,
			"action":     "session_delete_failed",
		}).Warnf("session cache delete failed: %v", err)
	}
	return err
}
