// Package jobctx implements the per-generation-run scratchpad threaded
// through every pipeline task: a volatile cache and an at-most-once claim
// set (spec.md §4.3).
package jobctx

import (
	"sync"

	"github.com/dgraph-io/ristretto/v2"
)

// Context is the job context shared by every task of one generation run.
type Context struct {
	cache  *ristretto.Cache[string, any]
	claims sync.Map
}

// New builds a Context with a bounded, concurrent-safe cache backing
// store. ristretto is chosen over a bare map because the cache must be
// usable concurrently by every worker goroutine without external locking
// (spec.md §4.3's "thread-safe" requirement; §5's "shared resources").
func New() (*Context, error) {
	cache, err := ristretto.NewCache(&ristretto.Config[string, any]{
		NumCounters: 1e5,
		MaxCost:     1 << 26, // 64MiB of cached render/lookup results
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	return &Context{cache: cache}, nil
}

// Close releases the underlying cache's background goroutines.
func (c *Context) Close() {
	c.cache.Close()
}

// Get returns the cached value for key, if any.
func (c *Context) Get(key string) (any, bool) {
	return c.cache.Get(key)
}

// Set stores value under key with a cost of 1 (callers needing
// size-weighted eviction should use SetWithCost).
func (c *Context) Set(key string, value any) {
	c.cache.Set(key, value, 1)
}

// SetWithCost stores value under key with an explicit eviction cost.
func (c *Context) SetWithCost(key string, value any, cost int64) {
	c.cache.Set(key, value, cost)
}

// Claim atomically claims jobID, returning true the first time it is
// called for a given id and false on every subsequent call — the
// at-most-once guarantee spec.md §4.3 requires for work visible from
// multiple code paths (e.g. a shared asset copied by two tasks).
func (c *Context) Claim(jobID string) bool {
	_, loaded := c.claims.LoadOrStore(jobID, struct{}{})
	return !loaded
}
