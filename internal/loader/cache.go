package loader

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/muzzz404/dld-dubai/internal/logger"
	"github.com/muzzz404/dld-dubai/pkg/dataset"
)

// DefaultTTL is the default memoization window for loaded datasets.
// Source exports change at most daily, so a day-long window is safe.
const DefaultTTL = 24 * time.Hour

// Cache memoizes load results keyed by load parameters, with time-based
// invalidation. Safe for concurrent use: loaded datasets are immutable
// and may be shared read-only across callers.
type Cache struct {
	ttl time.Duration

	mu      sync.RWMutex
	entries map[string]cacheEntry

	// now is replaceable in tests.
	now func() time.Time
}

type cacheEntry struct {
	ds       *dataset.Dataset
	report   *IngestReport
	loadedAt time.Time
}

// NewCache creates a cache with the given TTL (0 = DefaultTTL).
func NewCache(ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{
		ttl:     ttl,
		entries: make(map[string]cacheEntry),
		now:     time.Now,
	}
}

// Load returns the memoized dataset for src, re-ingesting when the entry
// is absent or older than the TTL.
func (c *Cache) Load(ctx context.Context, src Source) (*dataset.Dataset, *IngestReport, error) {
	key := cacheKey(src)

	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if ok && c.now().Sub(entry.loadedAt) < c.ttl {
		logger.Debug("cache hit", "dataset", src.Name, "loaded_at", entry.loadedAt)
		return entry.ds, entry.report, nil
	}

	ds, report, err := Load(ctx, src)
	if err != nil {
		return nil, nil, err
	}

	c.mu.Lock()
	c.entries[key] = cacheEntry{ds: ds, report: report, loadedAt: c.now()}
	c.mu.Unlock()

	return ds, report, nil
}

// Invalidate removes the entry for src, forcing the next Load to re-ingest.
func (c *Cache) Invalidate(src Source) {
	c.mu.Lock()
	delete(c.entries, cacheKey(src))
	c.mu.Unlock()
}

// cacheKey builds the memoization key from the load parameters.
func cacheKey(src Source) string {
	return fmt.Sprintf("%s|%s|%t", src.Name, src.Path, src.DayFirst)
}
