package data

import (
	"time"

	"github.com/This-HW/hantu-quant-sub002/pkg/types"
)

type cacheKey struct {
	symbol string
	day    string
}

// memoryCache is a per-run lookup memo. It also remembers misses so a
// missing (symbol, date) is only asked of the underlying source once.
type memoryCache struct {
	entries map[cacheKey]cacheEntry
}

type cacheEntry struct {
	point types.PricePoint
	found bool
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: make(map[cacheKey]cacheEntry)}
}

func (c *memoryCache) Get(symbol string, date time.Time) (types.PricePoint, bool, bool) {
	e, ok := c.entries[cacheKey{symbol, date.Format("2006-01-02")}]
	return e.point, e.found, ok
}

func (c *memoryCache) Set(symbol string, date time.Time, point types.PricePoint, found bool) {
	c.entries[cacheKey{symbol, date.Format("2006-01-02")}] = cacheEntry{point: point, found: found}
}

func (c *memoryCache) Size() int {
	return len(c.entries)
}

// CachedSource wraps a PriceSource so the same symbol+date is queried once
// per run. The daily loop hits the same lookups repeatedly; memoizing them
// keeps the O(n) loop off the collaborator's I/O path.
//
// One CachedSource belongs to one run, so no locking is needed.
type CachedSource struct {
	source PriceSource
	cache  PriceCache
}

// NewCachedSource wraps source with an in-memory memo.
func NewCachedSource(source PriceSource) *CachedSource {
	return &CachedSource{source: source, cache: newMemoryCache()}
}

// GetPrice returns the memoized price for (symbol, date), consulting the
// underlying source on first access.
func (s *CachedSource) GetPrice(symbol string, date time.Time) (types.PricePoint, bool) {
	if point, found, ok := s.cache.Get(symbol, date); ok {
		return point, found
	}
	point, found := s.source.GetPrice(symbol, date)
	s.cache.Set(symbol, date, point, found)
	return point, found
}

// CacheSize returns the number of memoized lookups.
func (s *CachedSource) CacheSize() int {
	return s.cache.Size()
}
