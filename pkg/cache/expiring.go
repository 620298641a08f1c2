package cache

import (
	"container/list"
	"math"
	"sync"
	"time"
)

type entry[K comparable, V any] struct {
	key      K
	value    V
	lastUsed time.Time
}

// Expiring is a thread-safe cache bounded by size and by a sliding expiration.
// Entries untouched for longer than the sliding window are evicted lazily. When an
// insert hits the size limit, expired entries are removed first and then the least
// recently used fraction configured by the compaction percentage.
type Expiring[K comparable, V any] struct {
	sizeLimit  int
	compaction float64
	sliding    time.Duration
	now        func() time.Time

	items    map[K]*list.Element
	eviction *list.List
	mu       sync.Mutex
	onEvict  func(key K, value V) // Callback for cleanup when items are evicted
}

// NewExpiring creates an Expiring cache.
// Without options it is unbounded and entries never expire.
func NewExpiring[K comparable, V any](opts ...Option) *Expiring[K, V] {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Expiring[K, V]{
		sizeLimit:  o.sizeLimit,
		compaction: o.compactionPercentage,
		sliding:    o.slidingExpiration,
		now:        o.now,
		items:      make(map[K]*list.Element),
		eviction:   list.New(),
	}
}

// SetEvictCallback sets a callback invoked for every removed entry, whatever the cause.
func (c *Expiring[K, V]) SetEvictCallback(fn func(key K, value V)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onEvict = fn
}

// Get returns a live entry and refreshes its sliding expiration.
func (c *Expiring[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.lookup(key, c.now()); ok {
		return e.value, true
	}

	var zero V
	return zero, false
}

// Set adds or replaces an entry.
func (c *Expiring[K, V]) Set(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if e, ok := c.lookup(key, now); ok {
		e.value = value
		return
	}
	c.insert(key, value, now)
}

// GetOrAdd returns the live value for key, or stores value when there is none.
// loaded reports whether the value was already present. The check and the insert are atomic.
func (c *Expiring[K, V]) GetOrAdd(key K, value V) (actual V, loaded bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if e, ok := c.lookup(key, now); ok {
		return e.value, true
	}
	c.insert(key, value, now)
	return value, false
}

// Remove removes an entry.
// Returns the removed value and true if it existed, zero value and false otherwise.
func (c *Expiring[K, V]) Remove(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		c.removeElement(elem)
		return elem.Value.(*entry[K, V]).value, true
	}

	var zero V
	return zero, false
}

// Len returns the number of stored entries, including expired ones not yet evicted.
func (c *Expiring[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.eviction.Len()
}

// Compact removes expired entries and then the least recently used fraction of the rest.
func (c *Expiring[K, V]) Compact() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.compact(c.now())
}

// Clear removes all entries.
// If an evict callback is set, it's called for each item.
func (c *Expiring[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.onEvict != nil {
		for _, elem := range c.items {
			e := elem.Value.(*entry[K, V])
			c.onEvict(e.key, e.value)
		}
	}

	c.items = make(map[K]*list.Element)
	c.eviction.Init()
}

// Must be called with lock held.
func (c *Expiring[K, V]) lookup(key K, now time.Time) (*entry[K, V], bool) {
	elem, ok := c.items[key]
	if !ok {
		return nil, false
	}
	e := elem.Value.(*entry[K, V])
	if c.expired(e, now) {
		c.removeElement(elem)
		return nil, false
	}
	e.lastUsed = now
	c.eviction.MoveToFront(elem)
	return e, true
}

// Must be called with lock held.
func (c *Expiring[K, V]) insert(key K, value V, now time.Time) {
	if c.sizeLimit > 0 && c.eviction.Len() >= c.sizeLimit {
		c.compact(now)
	}
	elem := c.eviction.PushFront(&entry[K, V]{key: key, value: value, lastUsed: now})
	c.items[key] = elem
}

// Must be called with lock held.
func (c *Expiring[K, V]) compact(now time.Time) {
	if c.sliding > 0 {
		for elem := c.eviction.Back(); elem != nil; {
			prev := elem.Prev()
			if c.expired(elem.Value.(*entry[K, V]), now) {
				c.removeElement(elem)
			}
			elem = prev
		}
	}

	if c.sizeLimit <= 0 || c.eviction.Len() < c.sizeLimit {
		return
	}

	n := int(math.Ceil(float64(c.eviction.Len()) * c.compaction))
	n = max(n, 1)
	for i := 0; i < n; i++ {
		elem := c.eviction.Back()
		if elem == nil {
			return
		}
		c.removeElement(elem)
	}
}

func (c *Expiring[K, V]) expired(e *entry[K, V], now time.Time) bool {
	return c.sliding > 0 && now.Sub(e.lastUsed) > c.sliding
}

// Must be called with lock held.
func (c *Expiring[K, V]) removeElement(elem *list.Element) {
	c.eviction.Remove(elem)
	e := elem.Value.(*entry[K, V])
	delete(c.items, e.key)

	if c.onEvict != nil {
		c.onEvict(e.key, e.value)
	}
}
