package client

import (
	"cmp"
	"slices"
	"sync"
	"time"
)

// Cache holds entities by id with last-write-wins on their timestamp.
// Deletions leave a tombstone so a late, older upsert cannot resurrect the
// entity. Applying the same value twice leaves the cache unchanged.
type Cache[K cmp.Ordered, V any] struct {
	mu    sync.RWMutex
	items map[K]V
	tombs map[K]time.Time
	key   func(V) K
	stamp func(V) time.Time
}

func NewCache[K cmp.Ordered, V any](key func(V) K, stamp func(V) time.Time) *Cache[K, V] {
	return &Cache[K, V]{
		items: make(map[K]V),
		tombs: make(map[K]time.Time),
		key:   key,
		stamp: stamp,
	}
}

// Upsert stores v unless the cache already holds a newer version or a newer
// tombstone. It reports whether v was applied.
func (c *Cache[K, V]) Upsert(v V) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	k, at := c.key(v), c.stamp(v)
	if tomb, ok := c.tombs[k]; ok && !at.After(tomb) {
		return false
	}
	if cur, ok := c.items[k]; ok && at.Before(c.stamp(cur)) {
		return false
	}
	c.items[k] = v
	return true
}

// Delete removes k unless the held version is newer than at.
func (c *Cache[K, V]) Delete(k K, at time.Time) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if tomb, ok := c.tombs[k]; !ok || at.After(tomb) {
		c.tombs[k] = at
	}
	cur, ok := c.items[k]
	if !ok || c.stamp(cur).After(at) {
		return false
	}
	delete(c.items, k)
	return true
}

func (c *Cache[K, V]) Get(k K) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.items[k]
	return v, ok
}

// Buried reports whether v is older than a tombstone for its id.
func (c *Cache[K, V]) Buried(v V) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	tomb, ok := c.tombs[c.key(v)]
	return ok && !c.stamp(v).After(tomb)
}

// List returns the entities ordered by id.
func (c *Cache[K, V]) List() []V {
	c.mu.RLock()
	defer c.mu.RUnlock()
	keys := make([]K, 0, len(c.items))
	for k := range c.items {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	out := make([]V, 0, len(keys))
	for _, k := range keys {
		out = append(out, c.items[k])
	}
	return out
}

func (c *Cache[K, V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

func (c *Cache[K, V]) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[K]V)
	c.tombs = make(map[K]time.Time)
}
