package cache

import (
	"container/list"
	"sync"
	"time"
)

// Cache is a small bounded in-memory cache with TTL expiry and
// least-recently-used eviction once capacity is reached. It replaces the
// unbounded request-dedup map the frontend used to carry.
type Cache struct {
	mu       sync.Mutex
	capacity int
	ttl      time.Duration
	entries  map[string]*list.Element
	order    *list.List // front = most recently used
}

type entry struct {
	key       string
	value     interface{}
	expiresAt time.Time
}

// New creates a cache. capacity must be > 0; ttl <= 0 disables expiry.
func New(capacity int, ttl time.Duration) *Cache {
	if capacity <= 0 {
		capacity = 128
	}
	return &Cache{
		capacity: capacity,
		ttl:      ttl,
		entries:  make(map[string]*list.Element, capacity),
		order:    list.New(),
	}
}

// Get returns the cached value, or nil/false on miss or expiry.
func (c *Cache) Get(key string) (interface{}, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[key]
	if !ok {
		return nil, false
	}

	ent := el.Value.(*entry)
	if c.ttl > 0 && time.Now().After(ent.expiresAt) {
		c.removeElement(el)
		return nil, false
	}

	c.order.MoveToFront(el)
	return ent.value, true
}

// Set stores a value, evicting expired entries first and then the least
// recently used entry when the cache is full.
func (c *Cache) Set(key string, value interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()

	if el, ok := c.entries[key]; ok {
		ent := el.Value.(*entry)
		ent.value = value
		ent.expiresAt = now.Add(c.ttl)
		c.order.MoveToFront(el)
		return
	}

	if c.order.Len() >= c.capacity {
		c.evictLocked(now)
	}

	el := c.order.PushFront(&entry{
		key:       key,
		value:     value,
		expiresAt: now.Add(c.ttl),
	})
	c.entries[key] = el
}

// Delete removes a single key.
func (c *Cache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[key]; ok {
		c.removeElement(el)
	}
}

// Purge drops everything.
func (c *Cache) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*list.Element, c.capacity)
	c.order.Init()
}

// Len reports the number of live entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// evictLocked frees at least one slot: expired entries go first, otherwise
// the LRU entry at the back of the list.
func (c *Cache) evictLocked(now time.Time) {
	if c.ttl > 0 {
		evicted := false
		for el := c.order.Back(); el != nil; {
			prev := el.Prev()
			if now.After(el.Value.(*entry).expiresAt) {
				c.removeElement(el)
				evicted = true
			}
			el = prev
		}
		if evicted {
			return
		}
	}

	if el := c.order.Back(); el != nil {
		c.removeElement(el)
	}
}

func (c *Cache) removeElement(el *list.Element) {
	c.order.Remove(el)
	delete(c.entries, el.Value.(*entry).key)
}
