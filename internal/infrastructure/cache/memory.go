package cache

import (
	"context"
	"sync"
	"time"

	"github.com/platewise/resolver/internal/domain"
)

// cacheItem represents a single cached search result with expiration
type cacheItem struct {
	result     *domain.SearchResult
	expiration time.Time
}

// MemoryCache is a thread-safe short-TTL cache for backend search results.
// Expired entries are dropped lazily on read; when the map grows past
// maxEntries the entries closest to expiry are evicted on write.
type MemoryCache struct {
	data       map[string]cacheItem
	mutex      sync.RWMutex
	ttl        time.Duration
	maxEntries int
}

// NewMemoryCache creates a cache with the given TTL and size bound.
func NewMemoryCache(ttl time.Duration, maxEntries int) *MemoryCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if maxEntries <= 0 {
		maxEntries = 512
	}
	return &MemoryCache{
		data:       make(map[string]cacheItem),
		ttl:        ttl,
		maxEntries: maxEntries,
	}
}

// Get retrieves a cached search result.
func (c *MemoryCache) Get(ctx context.Context, key string) (*domain.SearchResult, error) {
	c.mutex.RLock()
	item, exists := c.data[key]
	c.mutex.RUnlock()

	if !exists {
		return nil, domain.ErrCacheMiss
	}
	if time.Now().After(item.expiration) {
		c.mutex.Lock()
		delete(c.data, key)
		c.mutex.Unlock()
		return nil, domain.ErrCacheMiss
	}
	return item.result, nil
}

// Set stores a search result under the normalized query key.
func (c *MemoryCache) Set(ctx context.Context, key string, result *domain.SearchResult) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if len(c.data) >= c.maxEntries {
		c.evictLocked()
	}

	c.data[key] = cacheItem{
		result:     result,
		expiration: time.Now().Add(c.ttl),
	}
	return nil
}

// evictLocked drops expired entries first, then the entry closest to expiry
// until the map is back under the bound. Caller must hold mutex.
func (c *MemoryCache) evictLocked() {
	now := time.Now()
	for key, item := range c.data {
		if now.After(item.expiration) {
			delete(c.data, key)
		}
	}

	for len(c.data) >= c.maxEntries {
		var oldestKey string
		var oldest time.Time
		for key, item := range c.data {
			if oldestKey == "" || item.expiration.Before(oldest) {
				oldestKey = key
				oldest = item.expiration
			}
		}
		delete(c.data, oldestKey)
	}
}

// Size returns the current number of items in the cache (for debugging/monitoring)
func (c *MemoryCache) Size() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return len(c.data)
}

// Clear removes all items from the cache
func (c *MemoryCache) Clear() {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.data = make(map[string]cacheItem)
}
