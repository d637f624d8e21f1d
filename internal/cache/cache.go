// Package cache holds the latest collection snapshot per collector.
package cache

import (
	"sort"
	"sync"
	"time"

	"github.com/hanmaru-ops/nhncloud-exporter/internal/metrics"
)

// Entry is the latest snapshot for one collector together with staleness
// bookkeeping. Entries are read-only for callers; the samples slice is
// shared with the cache.
type Entry struct {
	Result      metrics.Result
	UpdatedAt   time.Time // when the entry was last written
	LastSuccess time.Time // when the samples were last refreshed
	Stale       bool      // computed at read time against the TTL
}

// Cache is a thread-safe latest-value store keyed by collector name. Each
// key has a single writer (that collector's scheduler loop) and any number
// of concurrent readers. Entries are replaced whole and never evicted: a
// collector that stops reporting keeps serving its last snapshot, marked
// stale once the TTL has elapsed.
type Cache struct {
	mu        sync.RWMutex
	data      map[string]Entry
	ttl       time.Duration
	keepStale bool
	now       func() time.Time // injectable for deterministic tests
}

// New creates a Cache. ttl is the freshness horizon; keepStale carries the
// previous samples through failed cycles.
func New(ttl time.Duration, keepStale bool) *Cache {
	return &Cache{
		data:      make(map[string]Entry),
		ttl:       ttl,
		keepStale: keepStale,
		now:       time.Now,
	}
}

// Put replaces the snapshot for res.Collector. A failed cycle keeps the
// previous samples and their success time when keep-stale is on, so the
// exposition degrades to stale data instead of dropping the families.
// Callers must not modify res.Samples after calling Put.
func (c *Cache) Put(res metrics.Result) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	entry := Entry{Result: res, UpdatedAt: now, LastSuccess: now}

	if res.Status == metrics.StatusFailed {
		prev, ok := c.data[res.Collector]
		if c.keepStale && ok && len(prev.Result.Samples) > 0 {
			entry.Result.Samples = prev.Result.Samples
			entry.LastSuccess = prev.LastSuccess
		} else {
			// No samples survive the failure; zero LastSuccess marks the
			// entry stale from the first read.
			entry.LastSuccess = time.Time{}
		}
	}

	c.data[res.Collector] = entry
}

// Get returns the entry for the collector with Stale computed at read time.
func (c *Cache) Get(collector string) (Entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.data[collector]
	if !ok {
		return Entry{}, false
	}
	return c.withStale(e), true
}

// List returns all entries ordered by collector name, Stale computed at
// read time.
func (c *Cache) List() []Entry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Entry, 0, len(c.data))
	for _, e := range c.data {
		out = append(out, c.withStale(e))
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Result.Collector < out[j].Result.Collector
	})
	return out
}

// Count returns the number of collectors with a cached snapshot.
func (c *Cache) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.data)
}

func (c *Cache) withStale(e Entry) Entry {
	e.Stale = e.LastSuccess.IsZero() || c.now().Sub(e.LastSuccess) > c.ttl
	return e
}
