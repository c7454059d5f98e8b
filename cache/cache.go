// Package cache provides a small in-memory TTL cache keyed by domain,
// used to serve repeated scans without re-querying DNS.
package cache

import (
	"sync"
	"time"
)

type entry struct {
	data    []byte
	expires time.Time
}

// Cache maps domains to encoded scan snapshots. Entries expire after a
// fixed TTL and the entry count is bounded; when full, the entry
// closest to expiry is evicted. Safe for concurrent use.
type Cache struct {
	mu      sync.Mutex
	entries map[string]entry
	ttl     time.Duration
	max     int

	now func() time.Time
}

// New creates a cache. A non-positive ttl defaults to 15 minutes and a
// non-positive max to 1024 entries.
func New(ttl time.Duration, max int) *Cache {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	if max <= 0 {
		max = 1024
	}
	return &Cache{
		entries: make(map[string]entry),
		ttl:     ttl,
		max:     max,
		now:     time.Now,
	}
}

// Get returns the cached snapshot for domain. Expired entries are
// removed on access. Callers must not modify the returned slice.
func (c *Cache) Get(domain string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[domain]
	if !ok {
		return nil, false
	}
	if c.now().After(e.expires) {
		delete(c.entries, domain)
		return nil, false
	}
	return e.data, true
}

// Set stores a snapshot for domain, replacing any existing entry.
func (c *Cache) Set(domain string, data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[domain]; !exists && len(c.entries) >= c.max {
		c.evictLocked()
	}
	c.entries[domain] = entry{data: data, expires: c.now().Add(c.ttl)}
}

// Len reports the current entry count, including not-yet-collected
// expired entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// evictLocked drops expired entries, or failing that the entry closest
// to expiry. Caller holds mu.
func (c *Cache) evictLocked() {
	now := c.now()
	dropped := false
	for domain, e := range c.entries {
		if now.After(e.expires) {
			delete(c.entries, domain)
			dropped = true
		}
	}
	if dropped {
		return
	}

	var oldest string
	var oldestExpiry time.Time
	for domain, e := range c.entries {
		if oldest == "" || e.expires.Before(oldestExpiry) {
			oldest = domain
			oldestExpiry = e.expires
		}
	}
	if oldest != "" {
		delete(c.entries, oldest)
	}
}
