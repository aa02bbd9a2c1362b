package memcache

import (
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

const (
	defaultQueryCacheSize = 1000
	defaultQueryCacheTTL  = 2 * time.Minute
)

type queryEntry[V any] struct {
	value V
	at    time.Time
}

// QueryCache is a small TTL-bounded LRU for repeated identical search
// queries within a short window (the same query re-issued by a retrying
// client, or by a UI that polls).
type QueryCache[V any] struct {
	cache *lru.Cache[string, queryEntry[V]]
	ttl   time.Duration
}

// NewQueryCache builds a QueryCache with the given capacity; size <= 0
// falls back to the default.
func NewQueryCache[V any](size int) *QueryCache[V] {
	if size <= 0 {
		size = defaultQueryCacheSize
	}
	c, _ := lru.New[string, queryEntry[V]](size)
	return &QueryCache[V]{cache: c, ttl: defaultQueryCacheTTL}
}

// Get returns the cached value for key if present and not expired.
func (c *QueryCache[V]) Get(key string) (V, bool) {
	entry, ok := c.cache.Get(key)
	if !ok || currentTime().Sub(entry.at) > c.ttl {
		var zero V
		return zero, false
	}
	return entry.value, true
}

// Set stores value under key, stamped with the current time.
func (c *QueryCache[V]) Set(key string, value V) {
	c.cache.Add(key, queryEntry[V]{value: value, at: currentTime()})
}

// Purge clears the cache entirely.
func (c *QueryCache[V]) Purge() {
	c.cache.Purge()
}
