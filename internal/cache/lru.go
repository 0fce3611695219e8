package cache

import (
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/simplelru"
)

// LRUCache bounds a simplelru list by size and drops entries not touched
// within ttl. Every hit pushes the deadline out again.
type LRUCache[T any] struct {
	mu  sync.Mutex
	lru *simplelru.LRU[string, *entry[T]]
	ttl time.Duration
	now func() time.Time
}

type entry[T any] struct {
	data      T
	expiresAt time.Time
}

func NewLRUCache[T any](maxSize int, ttl time.Duration) *LRUCache[T] {
	// NewLRU only fails for a non-positive size.
	l, _ := simplelru.NewLRU[string, *entry[T]](max(maxSize, 1), nil)
	return &LRUCache[T]{lru: l, ttl: ttl, now: time.Now}
}

func (c *LRUCache[T]) Get(key string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.live(key); ok {
		return e.data, true
	}
	var zero T
	return zero, false
}

// GetOrCreate returns the live value for key, storing create() when there
// is none. Lookup and insert share one critical section.
func (c *LRUCache[T]) GetOrCreate(key string, create func() T) T {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.live(key); ok {
		return e.data
	}
	v := create()
	c.lru.Add(key, &entry[T]{data: v, expiresAt: c.now().Add(c.ttl)})
	return v
}

func (c *LRUCache[T]) Set(key string, data T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Add(key, &entry[T]{data: data, expiresAt: c.now().Add(c.ttl)})
}

func (c *LRUCache[T]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Remove(key)
}

// live looks key up, dropping it if expired and extending it otherwise.
// Callers hold mu.
func (c *LRUCache[T]) live(key string) (*entry[T], bool) {
	e, ok := c.lru.Get(key)
	if !ok {
		return nil, false
	}
	now := c.now()
	if now.After(e.expiresAt) {
		c.lru.Remove(key)
		return nil, false
	}
	e.expiresAt = now.Add(c.ttl)
	return e, true
}

// CleanExpired removes expired entries without touching the recency order
// of the rest.
func (c *LRUCache[T]) CleanExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	removed := 0
	for _, key := range c.lru.Keys() {
		if e, ok := c.lru.Peek(key); ok && now.After(e.expiresAt) {
			c.lru.Remove(key)
			removed++
		}
	}
	return removed
}

func (c *LRUCache[T]) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}
