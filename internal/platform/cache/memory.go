package cache

import (
	"container/list"
	"context"
	"sync"
	"time"
)

// cacheItem represents an item in the cache
type cacheItem struct {
	key        string
	value      interface{}
	expiration time.Time
}

// MemoryCache implements a bounded in-memory cache with TTL support.
// Eviction is by insertion order: when the cache is full, the
// oldest-inserted entry is dropped to make room. Reads never promote
// entries, so this is FIFO rather than LRU. The cache always starts
// empty; nothing is persisted across restarts.
type MemoryCache struct {
	maxSize int
	items   map[string]*list.Element
	order   *list.List // front = newest inserted, back = oldest
	mu      sync.RWMutex
	stopCh  chan struct{}
}

// NewMemoryCache creates a new in-memory cache holding at most maxSize
// live entries.
func NewMemoryCache(maxSize int) *MemoryCache {
	if maxSize <= 0 {
		maxSize = 100 // default max size
	}

	c := &MemoryCache{
		maxSize: maxSize,
		items:   make(map[string]*list.Element),
		order:   list.New(),
		stopCh:  make(chan struct{}),
	}

	// Start cleanup goroutine
	go c.cleanup()

	return c
}

// Get retrieves a value from cache. Expired entries are removed and
// reported as ErrNotFound.
func (c *MemoryCache) Get(ctx context.Context, key string) (interface{}, error) {
	c.mu.RLock()
	element, exists := c.items[key]
	var (
		value      interface{}
		expiration time.Time
	)
	if exists {
		// Copy while still holding the lock: Set mutates the item in
		// place on overwrite.
		item := element.Value.(*cacheItem)
		value = item.value
		expiration = item.expiration
	}
	c.mu.RUnlock()

	if !exists {
		return nil, ErrNotFound
	}

	if time.Now().After(expiration) {
		c.mu.Lock()
		// Re-check under the write lock: a concurrent Set may have
		// refreshed the entry since the copy above.
		if el, ok := c.items[key]; ok && time.Now().After(el.Value.(*cacheItem).expiration) {
			c.remove(key)
		}
		c.mu.Unlock()
		return nil, ErrNotFound
	}

	return value, nil
}

// Set stores a value with TTL. Overwriting an existing key keeps its
// insertion position.
func (c *MemoryCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	expiration := time.Now().Add(ttl)

	if element, exists := c.items[key]; exists {
		item := element.Value.(*cacheItem)
		item.value = value
		item.expiration = expiration
		return nil
	}

	item := &cacheItem{
		key:        key,
		value:      value,
		expiration: expiration,
	}

	element := c.order.PushFront(item)
	c.items[key] = element

	if c.order.Len() > c.maxSize {
		c.evictOldest()
	}

	return nil
}

// Delete removes a key from cache
func (c *MemoryCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.remove(key)
	return nil
}

// Close stops the cleanup goroutine.
func (c *MemoryCache) Close() error {
	close(c.stopCh)
	return nil
}

// remove removes an item (caller must hold lock)
func (c *MemoryCache) remove(key string) {
	if element, exists := c.items[key]; exists {
		c.order.Remove(element)
		delete(c.items, key)
	}
}

// evictOldest removes the oldest-inserted item (caller must hold lock)
func (c *MemoryCache) evictOldest() {
	element := c.order.Back()
	if element != nil {
		item := element.Value.(*cacheItem)
		c.remove(item.key)
	}
}

// cleanup periodically removes expired items
func (c *MemoryCache) cleanup() {
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.cleanupExpired()
		case <-c.stopCh:
			return
		}
	}
}

// cleanupExpired removes all expired items
func (c *MemoryCache) cleanupExpired() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	toRemove := make([]string, 0)

	for key, element := range c.items {
		item := element.Value.(*cacheItem)
		if now.After(item.expiration) {
			toRemove = append(toRemove, key)
		}
	}

	for _, key := range toRemove {
		c.remove(key)
	}
}

// Stats returns cache statistics
func (c *MemoryCache) Stats() (size int, maxSize int) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items), c.maxSize
}
