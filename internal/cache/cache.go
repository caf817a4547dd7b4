// Package cache provides concurrent-safe in-process TTL caches for
// pipeline results and LLM responses.
package cache

import (
	"sync"
	"time"
)

// entry is a single cached value with its expiration time.
type entry struct {
	value     interface{}
	expiresAt time.Time
}

// TTLCache is a thread-safe map with per-entry time-to-live expiration.
// Expired entries are treated as misses on read and reclaimed by Flush,
// which the maintenance job runs periodically.
type TTLCache struct {
	mu         sync.RWMutex
	items      map[string]entry
	defaultTTL time.Duration
}

// New creates a TTLCache whose Set uses defaultTTL for every entry.
func New(defaultTTL time.Duration) *TTLCache {
	return &TTLCache{
		items:      make(map[string]entry),
		defaultTTL: defaultTTL,
	}
}

// Set stores a value under key with the cache's default TTL.
func (c *TTLCache) Set(key string, value interface{}) {
	c.SetWithTTL(key, value, c.defaultTTL)
}

// SetWithTTL stores a value under key with an explicit TTL.
func (c *TTLCache) SetWithTTL(key string, value interface{}, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items[key] = entry{
		value:     value,
		expiresAt: time.Now().Add(ttl),
	}
}

// Get returns the value for key if present and not expired.
func (c *TTLCache) Get(key string) (interface{}, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.items[key]
	if !ok {
		return nil, false
	}
	if time.Now().After(e.expiresAt) {
		return nil, false
	}

	return e.value, true
}

// Delete removes a single entry.
func (c *TTLCache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, key)
}

// Clear removes all entries, expired or not.
func (c *TTLCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[string]entry)
}

// Flush removes expired entries and returns how many were removed.
func (c *TTLCache) Flush() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	removed := 0
	for key, e := range c.items {
		if now.After(e.expiresAt) {
			delete(c.items, key)
			removed++
		}
	}

	return removed
}

// Len returns the number of entries including any not yet flushed.
func (c *TTLCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}
