package assets

import (
	"sync"
)

// Cache keeps raw file contents so a motion released and loaded again, or
// loaded in a second form, is not read from its source twice.
// Entries are evicted oldest first once the byte budget is exceeded.
type Cache struct {
	mu       sync.Mutex
	data     map[string][]byte
	order    []string
	size     int
	maxBytes int

	// Stats
	hits   int
	misses int
}

// NewCache creates a cache holding up to maxBytes of file data.
// A budget of zero or less disables caching.
func NewCache(maxBytes int) *Cache {
	return &Cache{
		data:     make(map[string][]byte),
		maxBytes: maxBytes,
	}
}

// Get retrieves an item from cache.
func (c *Cache) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, ok := c.data[key]
	if ok {
		c.hits++
	} else {
		c.misses++
	}
	return data, ok
}

// Set stores an item, evicting older entries to stay within budget.
func (c *Cache) Set(key string, data []byte) {
	if len(data) > c.maxBytes {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if old, ok := c.data[key]; ok {
		c.size -= len(old)
	} else {
		c.order = append(c.order, key)
	}
	c.data[key] = data
	c.size += len(data)

	for c.size > c.maxBytes && len(c.order) > 0 {
		oldest := c.order[0]
		c.order = c.order[1:]
		c.size -= len(c.data[oldest])
		delete(c.data, oldest)
	}
}

// Clear clears the cache.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = make(map[string][]byte)
	c.order = nil
	c.size = 0
	c.hits = 0
	c.misses = 0
}

// Len returns the number of cached files and their total size.
func (c *Cache) Len() (files, bytes int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.data), c.size
}

// Stats returns cache statistics.
func (c *Cache) Stats() (hits, misses int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}
