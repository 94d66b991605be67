// Package cell provides named, tracked units of mutable state: the leaves of
// the reactive graph that caches and properties depend on.
package cell

import (
	"context"
	"sync"

	"github.com/on-the-ground/react_ive_go/reactive"
	"github.com/on-the-ground/react_ive_go/reactive/watch"
)

// Cell is one unit of tracked storage. Reading it through Get inside a
// tracked computation makes the computation depend on it; writing it
// invalidates every cache that took that dependency.
type Cell[V any] struct {
	name string
	tag  *reactive.Tag

	mu  sync.Mutex
	val V
}

// New returns a cell holding initial. The name only identifies the cell in
// events and logs; it carries no uniqueness requirement.
func New[V any](name string, initial V) *Cell[V] {
	return &Cell[V]{
		name: name,
		tag:  reactive.NewTag(),
		val:  initial,
	}
}

func (c *Cell[V]) Name() string {
	return c.name
}

// Get returns the value and consumes the cell's tag into the tracking frame
// of ctx, if one is open.
func (c *Cell[V]) Get(ctx context.Context) V {
	reactive.Consume(ctx, c.tag)
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.val
}

// Peek returns the value without consuming anything. A computation that
// peeks does not recompute when the cell changes.
func (c *Cell[V]) Peek() V {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.val
}

// Set stores v, dirties the tag, and emits a dirtied event.
// Every write counts as a change, even when v equals the stored value.
func (c *Cell[V]) Set(ctx context.Context, v V) {
	c.mu.Lock()
	c.val = v
	c.mu.Unlock()

	rev := c.tag.Dirty()
	watch.Emit(ctx, watch.Event{Key: c.name, Op: watch.OpDirtied, Revision: rev})
}

// Update applies fn to the current value and stores the result.
// The read does not consume the tag: updating a cell inside a tracked
// computation must not make the computation depend on it.
func (c *Cell[V]) Update(ctx context.Context, fn func(V) V) {
	c.mu.Lock()
	c.val = fn(c.val)
	c.mu.Unlock()

	rev := c.tag.Dirty()
	watch.Emit(ctx, watch.Event{Key: c.name, Op: watch.OpDirtied, Revision: rev})
}

// CompareAndSwap stores new only if the cell still holds old, and dirties the
// tag only on an actual swap. Swapping a value for itself succeeds without
// dirtying anything.
func CompareAndSwap[V comparable](ctx context.Context, c *Cell[V], old, new V) bool {
	if old == new {
		return true
	}

	c.mu.Lock()
	if c.val != old {
		c.mu.Unlock()
		return false
	}
	c.val = new
	c.mu.Unlock()

	rev := c.tag.Dirty()
	watch.Emit(ctx, watch.Event{Key: c.name, Op: watch.OpDirtied, Revision: rev})
	return true
}
