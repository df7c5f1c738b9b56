package openlibrary

import "time"

// CacheStats reports the lookup cache state for diagnostics.
type CacheStats struct {
	Size     int           `json:"size"`
	Capacity int           `json:"capacity"`
	TTL      time.Duration `json:"ttl"`
}

type cacheEntry struct {
	data       BookData
	insertedAt time.Time
}

// bookCache is a bounded map with lazy TTL expiry. When full, the
// oldest-inserted entry that has not been refreshed is evicted first.
// Not safe for concurrent use; the lookup client is single-threaded.
type bookCache struct {
	entries  map[string]cacheEntry
	order    []string
	capacity int
	ttl      time.Duration
	now      func() time.Time
}

func newBookCache(capacity int, ttl time.Duration) *bookCache {
	return &bookCache{
		entries:  make(map[string]cacheEntry),
		capacity: capacity,
		ttl:      ttl,
		now:      time.Now,
	}
}

func (c *bookCache) Get(key string) (BookData, bool) {
	entry, ok := c.entries[key]
	if !ok {
		return BookData{}, false
	}
	if c.now().Sub(entry.insertedAt) >= c.ttl {
		c.delete(key)
		return BookData{}, false
	}
	return entry.data, true
}

func (c *bookCache) Set(key string, data BookData) {
	if _, ok := c.entries[key]; ok {
		// Refresh: move to the back of the insertion order.
		c.removeFromOrder(key)
	} else if len(c.entries) >= c.capacity {
		c.delete(c.order[0])
	}
	c.entries[key] = cacheEntry{data: data, insertedAt: c.now()}
	c.order = append(c.order, key)
}

func (c *bookCache) Clear() {
	c.entries = make(map[string]cacheEntry)
	c.order = nil
}

func (c *bookCache) Len() int {
	return len(c.entries)
}

func (c *bookCache) delete(key string) {
	delete(c.entries, key)
	c.removeFromOrder(key)
}

func (c *bookCache) removeFromOrder(key string) {
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			return
		}
	}
}
