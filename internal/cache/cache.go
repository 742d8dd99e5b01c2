package cache

import (
	"sync"
	"time"
)

// Cache is the interface for our in-memory cache.
type Cache interface {
	Get(key string) (interface{}, bool)
	Set(key string, value interface{})
	Delete(key string)
	// Age reports how long ago a live key was stored.
	Age(key string) (time.Duration, bool)
}

type entry struct {
	value    interface{}
	storedAt time.Time
}

// InMemoryCache is a thread-safe in-memory cache. Entries older than the TTL
// are treated as missing; a zero TTL keeps entries for the process lifetime.
type InMemoryCache struct {
	mu    sync.RWMutex
	items map[string]entry
	ttl   time.Duration
	now   func() time.Time
}

// NewInMemoryCache creates a new instance of InMemoryCache.
func NewInMemoryCache(ttl time.Duration) *InMemoryCache {
	return &InMemoryCache{
		items: make(map[string]entry),
		ttl:   ttl,
		now:   time.Now,
	}
}

// Get retrieves a value from the cache.
func (c *InMemoryCache) Get(key string) (interface{}, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	item, found := c.items[key]
	if !found || c.expired(item) {
		return nil, false
	}
	return item.value, true
}

// Set adds a value to the cache, overwriting an existing one if present.
func (c *InMemoryCache) Set(key string, value interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = entry{value: value, storedAt: c.now()}
}

// Delete removes a key. Missing keys are ignored.
func (c *InMemoryCache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, key)
}

// Age reports how long ago key was stored.
func (c *InMemoryCache) Age(key string) (time.Duration, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	item, found := c.items[key]
	if !found || c.expired(item) {
		return 0, false
	}
	return c.now().Sub(item.storedAt), true
}

func (c *InMemoryCache) expired(e entry) bool {
	return c.ttl > 0 && c.now().Sub(e.storedAt) >= c.ttl
}
