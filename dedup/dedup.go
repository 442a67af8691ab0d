// Package dedup provides a bounded FIFO set of already-processed chat
// message ids. It is a memory bound, not a delivery guarantee: an id can in
// principle reappear after eviction.
package dedup

// Cache answers membership in O(1) and evicts oldest entries past its bound.
type Cache struct {
	cap   int
	set   map[string]struct{}
	order []string
}

// New returns a cache bounded to capacity entries (minimum 1).
func New(capacity int) *Cache {
	if capacity < 1 {
		capacity = 1
	}
	return &Cache{
		cap: capacity,
		set: make(map[string]struct{}, capacity),
	}
}

// Seen reports whether id has been marked and not yet evicted.
func (c *Cache) Seen(id string) bool {
	_, ok := c.set[id]
	return ok
}

// Mark records id, evicting the oldest entries if the bound is exceeded.
// Marking never fails; re-marking a present id is a no-op.
func (c *Cache) Mark(id string) {
	if _, ok := c.set[id]; ok {
		return
	}
	c.set[id] = struct{}{}
	c.order = append(c.order, id)
	for len(c.set) > c.cap {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.set, oldest)
	}
}

// Len returns the current number of retained ids.
func (c *Cache) Len() int { return len(c.set) }
