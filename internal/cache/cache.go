// Package cache is a small in-memory TTL cache. One instance lives on the
// per-invocation session; nothing is shared across processes.
package cache

import (
	"regexp"
	"sync"
	"time"
)

// DefaultTTL is used when Get is called with a zero TTL.
const DefaultTTL = 5 * time.Second

// timeNow is a package-level variable for testability.
var timeNow = time.Now

type entry struct {
	value any
	at    time.Time
}

// Cache maps string keys to values stamped with their insertion time.
// Expiry is decided by the reader, so different callers can use
// different freshness windows for the same key.
type Cache struct {
	mu      sync.Mutex
	entries map[string]entry
}

// New returns an empty cache.
func New() *Cache {
	return &Cache{entries: make(map[string]entry)}
}

// Get returns the cached value if it is younger than ttl.
func (c *Cache) Get(key string, ttl time.Duration) (any, bool) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if timeNow().Sub(e.at) > ttl {
		delete(c.entries, key)
		return nil, false
	}
	return e.value, true
}

// Set stores value under key.
func (c *Cache) Set(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry{value: value, at: timeNow()}
}

// Invalidate removes a single key.
func (c *Cache) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// InvalidateMatching removes every key matched by re.
func (c *Cache) InvalidateMatching(re *regexp.Regexp) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k := range c.entries {
		if re.MatchString(k) {
			delete(c.entries, k)
		}
	}
}

// Clear drops all entries.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]entry)
}

// Len returns the number of stored entries, expired or not.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
