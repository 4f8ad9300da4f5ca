package session

import (
	"context"
	"sync"
	"time"

	"github.com/devsanjithm/accountd/internal/common/clock"
	"github.com/devsanjithm/accountd/internal/common/constants"
	"github.com/devsanjithm/accountd/internal/common/logger"
)

type memoryEntry struct {
	descriptor Descriptor
	expiresAt  time.Time
}

// MemoryCache is the in-process Cache implementation. Eviction is handled
// here, by TTL; a ttl of zero keeps entries until they are deleted.
type MemoryCache struct {
	entries sync.Map
	ttl     time.Duration
	clock   clock.Clock
	log     *logger.Logger
	cancel  context.CancelFunc
}

func NewMemoryCache(ctx context.Context, ttl time.Duration, clk clock.Clock, log *logger.Logger) *MemoryCache {
	cacheCtx, cancel := context.WithCancel(ctx)
	c := &MemoryCache{
		ttl:    ttl,
		clock:  clk,
		log:    log,
		cancel: cancel,
	}

	if ttl > 0 {
		go c.cleanup(cacheCtx)
	}

	return c
}

func (c *MemoryCache) Set(_ context.Context, subjectID string, d Descriptor) error {
	entry := &memoryEntry{descriptor: d}
	if c.ttl > 0 {
		entry.expiresAt = c.clock.Now().Add(c.ttl)
	}
	c.entries.Store(subjectID, entry)
	return nil
}

func (c *MemoryCache) Get(_ context.Context, subjectID string) (Descriptor, bool, error) {
	v, ok := c.entries.Load(subjectID)
	if !ok {
		return Descriptor{}, false, nil
	}

	entry := v.(*memoryEntry)
	if !entry.expiresAt.IsZero() && !c.clock.Now().Before(entry.expiresAt) {
		c.entries.Delete(subjectID)
		return Descriptor{}, false, nil
	}

	return entry.descriptor, true, nil
}

func (c *MemoryCache) Delete(_ context.Context, subjectID string) error {
	c.entries.Delete(subjectID)
	return nil
}

func (c *MemoryCache) cleanup(ctx context.Context) {
	ticker := time.NewTicker(constants.SessionCacheCleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			now := c.clock.Now()
			removed := 0
			c.entries.Range(func(key, value interface{}) bool {
				entry := value.(*memoryEntry)
				if !entry.expiresAt.IsZero() && now.After(entry.expiresAt) {
					c.entries.Delete(key)
					removed++
				}
				return true
			})
			if removed > 0 {
				c.log.Debugf("session cache evicted %d expired entries", removed)
			}
		}
	}
}

func (c *MemoryCache) Close() {
	c.cancel()
}
