package analysis

import (
	"sync"
	"time"
)

// cacheEntry holds a cached assessment.
type cacheEntry struct {
	assessment Assessment
	expiresAt  time.Time
}

func (e *cacheEntry) expired() bool {
	return time.Now().After(e.expiresAt)
}

// resultCache is a thread-safe in-memory cache of oracle-backed assessments
// keyed by the raw URL. Entries expire after a fixed TTL.
type resultCache struct {
	mu      sync.RWMutex
	entries map[string]*cacheEntry
	ttl     time.Duration
}

func newResultCache(ttl time.Duration) *resultCache {
	return &resultCache{
		entries: make(map[string]*cacheEntry),
		ttl:     ttl,
	}
}

// get looks up a cached assessment by raw URL.
func (c *resultCache) get(key string) (Assessment, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[key]
	if !ok || e.expired() {
		return Assessment{}, false
	}
	return e.assessment, true
}

// set stores a copy of a in the cache.
func (c *resultCache) set(key string, a Assessment) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = &cacheEntry{
		assessment: a,
		expiresAt:  time.Now().Add(c.ttl),
	}
}

// invalidate removes a specific entry from the cache.
func (c *resultCache) invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// evict removes all expired entries.
func (c *resultCache) evict() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for k, e := range c.entries {
		if e.expired() {
			delete(c.entries, k)
			n++
		}
	}
	return n
}

// len returns the number of cached entries (including expired).
func (c *resultCache) len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
