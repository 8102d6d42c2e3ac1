package chartsvc

import (
	"sync"
	"time"

	"github.com/signalsfoundry/bodygraph-engine/model"
)

const (
	defaultChartCacheTTL  = 10 * time.Minute
	defaultChartCacheSize = 1024
)

// CacheStatsRecorder receives cache statistics after every lookup or store.
type CacheStatsRecorder interface {
	SetCacheStats(hitRatio float64, entries int)
}

// instantKey identifies an instant without the int64 nanosecond range limit
// of UnixNano, which only spans the years 1678 to 2262.
type instantKey struct {
	sec  int64
	nsec int32
}

func keyOf(t time.Time) instantKey {
	return instantKey{sec: t.Unix(), nsec: int32(t.Nanosecond())}
}

type chartEntry struct {
	chart   *model.ChartResult
	updated time.Time
}

// ChartCache keeps recent charts keyed by activation instant. A chart is a
// pure function of its instant for a fixed engine, so entries never need
// invalidation other than expiry; Invalidate exists for config reloads.
type ChartCache struct {
	mu       sync.Mutex
	charts   map[instantKey]chartEntry
	ttl      time.Duration
	size     int
	hits     int64
	misses   int64
	evicted  int64
	recorder CacheStatsRecorder
	now      func() time.Time
}

// NewChartCache creates a cache with the provided TTL and entry limit; zero
// values use defaults.
func NewChartCache(ttl time.Duration, size int) *ChartCache {
	if ttl <= 0 {
		ttl = defaultChartCacheTTL
	}
	if size <= 0 {
		size = defaultChartCacheSize
	}
	return &ChartCache{
		charts: make(map[instantKey]chartEntry),
		ttl:    ttl,
		size:   size,
		now:    time.Now,
	}
}

// SetStatsRecorder attaches a recorder for hit ratio and size.
func (c *ChartCache) SetStatsRecorder(r CacheStatsRecorder) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.recorder = r
	c.mu.Unlock()
}

// TTL returns the entry lifetime.
func (c *ChartCache) TTL() time.Duration {
	if c == nil {
		return 0
	}
	return c.ttl
}

// Get returns the cached chart for instant, if fresh.
func (c *ChartCache) Get(instant time.Time) (*model.ChartResult, bool) {
	if c == nil || instant.IsZero() {
		return nil, false
	}
	key := keyOf(instant)

	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.charts[key]
	if ok && c.now().Sub(entry.updated) > c.ttl {
		delete(c.charts, key)
		ok = false
	}
	if ok {
		c.hits++
	} else {
		c.misses++
	}
	c.publishLocked()
	if !ok {
		return nil, false
	}
	return entry.chart, true
}

// Put stores chart under instant, evicting the oldest entry when full.
func (c *ChartCache) Put(instant time.Time, chart *model.ChartResult) {
	if c == nil || instant.IsZero() || chart == nil {
		return
	}
	key := keyOf(instant)

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.charts[key]; !exists && len(c.charts) >= c.size {
		c.evictOldestLocked()
	}
	c.charts[key] = chartEntry{chart: chart, updated: c.now()}
	c.publishLocked()
}

// Invalidate drops every entry.
func (c *ChartCache) Invalidate() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.evicted += int64(len(c.charts))
	c.charts = make(map[instantKey]chartEntry)
	c.publishLocked()
	c.mu.Unlock()
}

// Len returns the number of stored entries, fresh or not.
func (c *ChartCache) Len() int {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.charts)
}

// Stats returns cumulative hit, miss, and eviction counts.
func (c *ChartCache) Stats() (hits, misses, evicted int64) {
	if c == nil {
		return 0, 0, 0
	}
	c.mu.Lock()
	hits, misses, evicted = c.hits, c.misses, c.evicted
	c.mu.Unlock()
	return
}

// HitRatio returns hits / (hits + misses), or 0 before the first lookup.
func (c *ChartCache) HitRatio() float64 {
	hits, misses, _ := c.Stats()
	if hits+misses == 0 {
		return 0
	}
	return float64(hits) / float64(hits+misses)
}

func (c *ChartCache) evictOldestLocked() {
	var (
		oldestKey instantKey
		oldest    time.Time
		found     bool
	)
	for k, e := range c.charts {
		if !found || e.updated.Before(oldest) {
			oldestKey, oldest, found = k, e.updated, true
		}
	}
	if found {
		delete(c.charts, oldestKey)
		c.evicted++
	}
}

func (c *ChartCache) publishLocked() {
	if c.recorder == nil {
		return
	}
	ratio := 0.0
	if total := c.hits + c.misses; total > 0 {
		ratio = float64(c.hits) / float64(total)
	}
	c.recorder.SetCacheStats(ratio, len(c.charts))
}
