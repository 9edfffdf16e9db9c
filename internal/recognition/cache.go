package recognition

import "sync"

// Cache memoizes fingerprint lookups for the lifetime of one run.
// Entries are write-once and never evicted.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]Result
}

// NewCache creates an empty cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[string]Result)}
}

// Get returns the cached result for fp.
func (c *Cache) Get(fp Fingerprint) (Result, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	r, ok := c.entries[fp.Encoded]
	return r, ok
}

// Put stores r for fp unless an entry already exists. It reports whether r was stored.
func (c *Cache) Put(fp Fingerprint, r Result) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[fp.Encoded]; ok {
		return false
	}
	c.entries[fp.Encoded] = r
	return true
}

// Len returns the number of cached fingerprints.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
