package metadata

import (
	"sync"
	"time"

	"lanefeed/models"
)

// Cache is a TTL-bounded in-memory cache of content metadata, keyed by
// (mediaType, id). Expiry is lazy: an expired entry is reported as a miss at
// read time but is not proactively purged. Sessions are short-lived, so the
// cache is unbounded by size.
type Cache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	now     func() time.Time
	entries map[models.Key]cacheEntry
}

type cacheEntry struct {
	item     models.ContentItem
	storedAt time.Time
}

// DefaultCacheTTL bounds how long a fetched metadata record is served without
// a re-fetch.
const DefaultCacheTTL = 30 * time.Minute

func NewCache(ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Cache{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[models.Key]cacheEntry),
	}
}

// Get returns the cached item for key. A hit requires the entry to be younger
// than the TTL.
func (c *Cache) Get(key models.Key) (models.ContentItem, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[key]
	if !ok {
		return models.ContentItem{}, false
	}
	if c.now().Sub(entry.storedAt) >= c.ttl {
		return models.ContentItem{}, false
	}
	return entry.item, true
}

// Put stores the item, overwriting any previous entry for the key.
func (c *Cache) Put(key models.Key, item models.ContentItem) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cacheEntry{item: item, storedAt: c.now()}
}

// setClock replaces the cache's time source for tests.
func (c *Cache) setClock(now func() time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}
