// Package memcache holds the service's in-process caches: the
// always-surface constitutional-memory cache and a general query-result
// LRU, both layered over singleflight-guarded loads so concurrent callers
// never stampede the catalog.
package memcache

import (
	"context"
	"os"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/devalexanderdaza/memoryd/internal/store"
)

const (
	// constitutionalTTL is how long a loaded constitutional set stays valid
	// before being considered stale, independent of the mtime check.
	constitutionalTTL = 5 * time.Minute

	// tokenBudget is the approximate token ceiling for the constitutional
	// set returned to a caller (spec: ~2000 tokens / ~20 memories).
	tokenBudget = 2000
	memoryBudget = 20

	// charsPerToken approximates token count from character count when no
	// tokenizer is wired (the constitutional cache never depends on an
	// embedding provider being configured).
	charsPerToken = 4
)

// Loader fetches the full constitutional memory set from the catalog.
type Loader func(ctx context.Context) ([]*store.Memory, error)

// ConstitutionalCache holds the always-surface memory set with a 5-minute
// TTL, invalidated early if the backing database file's mtime advances
// (covers external mutation by batch scripts, per the concurrency model).
type ConstitutionalCache struct {
	loader  Loader
	dbPath  string
	group   singleflight.Group

	mu        sync.RWMutex
	memories  []*store.Memory
	loadedAt  time.Time
	loadedMtime time.Time
}

// NewConstitutionalCache builds a cache that reloads via loader, tracking
// dbPath's mtime for early invalidation. dbPath may be empty (e.g. for an
// in-memory catalog), in which case only the TTL gates reloads.
func NewConstitutionalCache(loader Loader, dbPath string) *ConstitutionalCache {
	return &ConstitutionalCache{loader: loader, dbPath: dbPath}
}

// Get returns the current constitutional memory set, reloading through a
// singleflight-guarded call when the TTL has expired or the database file
// has been modified since the last load.
func (c *ConstitutionalCache) Get(ctx context.Context) ([]*store.Memory, error) {
	if !c.stale() {
		c.mu.RLock()
		defer c.mu.RUnlock()
		return c.memories, nil
	}

	v, err, _ := c.group.Do("load", func() (interface{}, error) {
		memories, loadErr := c.loader(ctx)
		if loadErr != nil {
			return nil, loadErr
		}

		c.mu.Lock()
		c.memories = memories
		c.loadedAt = currentTime()
		if mt, statErr := c.dbMtime(); statErr == nil {
			c.loadedMtime = mt
		}
		c.mu.Unlock()

		return memories, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]*store.Memory), nil
}

// Invalidate forces the next Get to reload.
func (c *ConstitutionalCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.loadedAt = time.Time{}
}

func (c *ConstitutionalCache) stale() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.loadedAt.IsZero() {
		return true
	}
	if currentTime().Sub(c.loadedAt) > constitutionalTTL {
		return true
	}
	if mt, err := c.dbMtime(); err == nil && mt.After(c.loadedMtime) {
		return true
	}
	return false
}

func (c *ConstitutionalCache) dbMtime() (time.Time, error) {
	if c.dbPath == "" {
		return time.Time{}, os.ErrNotExist
	}
	info, err := os.Stat(c.dbPath)
	if err != nil {
		return time.Time{}, err
	}
	return info.ModTime(), nil
}

// currentTime is a seam over time.Now so tests can avoid relying on wall
// clock drift between assertions.
var currentTime = time.Now

// Budgeted truncates a constitutional memory set to the approximate token
// and count budget, marking truncated=true only when content is actually
// dropped. A single memory that alone exceeds the budget is still included
// whole and flagged, never dropped, per the always-surface guarantee.
func Budgeted(memories []*store.Memory) (result []*store.Memory, truncated bool) {
	var usedTokens int
	for i, m := range memories {
		estTokens := len(m.Content) / charsPerToken
		if i > 0 && (usedTokens+estTokens > tokenBudget || len(result) >= memoryBudget) {
			return result, true
		}
		result = append(result, m)
		usedTokens += estTokens
	}
	return result, false
}
