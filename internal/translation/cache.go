package translation

import (
	"container/list"
	"sync"
)

// DefaultCacheSize is the instant translation cache capacity
const DefaultCacheSize = 1000

type cacheKey struct {
	source string
	target string
	text   string
}

type cacheEntry struct {
	key   cacheKey
	value string
}

// Cache is a bounded FIFO map of (source, target, text) to translation.
// Reads do not refresh an entry; the oldest insert is evicted first.
type Cache struct {
	mu       sync.Mutex
	capacity int
	order    *list.List
	items    map[cacheKey]*list.Element
}

func NewCache(capacity int) *Cache {
	if capacity <= 0 {
		capacity = DefaultCacheSize
	}
	return &Cache{
		capacity: capacity,
		order:    list.New(),
		items:    make(map[cacheKey]*list.Element, capacity),
	}
}

func (c *Cache) Get(source, target, text string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.items[cacheKey{source, target, text}]
	if !ok {
		return "", false
	}
	return el.Value.(*cacheEntry).value, true
}

func (c *Cache) Put(source, target, text, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := cacheKey{source, target, text}
	if el, ok := c.items[key]; ok {
		el.Value.(*cacheEntry).value = value
		return
	}
	for c.order.Len() >= c.capacity {
		oldest := c.order.Front()
		c.order.Remove(oldest)
		delete(c.items, oldest.Value.(*cacheEntry).key)
	}
	c.items[key] = c.order.PushBack(&cacheEntry{key: key, value: value})
}

func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}
