package dexdb

import (
	"slices"
	"sync"
)

// listCache is a guarded full-collection cache with an explicit populated
// flag, so an empty-but-loaded collection is distinguishable from a cold one.
type listCache[T any] struct {
	mu        sync.Mutex
	populated bool
	items     []T
}

// get returns a copy of the cached collection and whether it was populated.
func (c *listCache[T]) get() ([]T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.populated {
		return nil, false
	}
	return slices.Clone(c.items), true
}

// set replaces the cached collection and marks it populated.
func (c *listCache[T]) set(items []T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = slices.Clone(items)
	c.populated = true
}

// invalidate drops the cached collection. Mutations call this before the
// corresponding write is scheduled, never after, so the cache never holds
// pre-write data once the mutation has been accepted.
func (c *listCache[T]) invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = nil
	c.populated = false
}
