package reactive

import "context"

// NewCache wraps a computation without running it.
// The computation must take no inputs besides ctx; everything it depends on
// has to be read through tracked storage so the cache can observe it.
func NewCache[V any](fn func(context.Context) V) *Cache[V] {
	return &Cache[V]{fn: fn}
}

// IMPORTANT:
// A Cache is **intentionally NOT thread-safe**.
//
// It is designed with the assumption that each cache will be resolved
// only within a **single goroutine** of evaluation at a time.
//
// ➤ We deliberately avoided synchronization on the resolution path
//
//	to keep resolution lightweight; the clock and tag stamps are atomic,
//	so other goroutines may observe revisions safely.
//
// ➤ Resolving the same cache from multiple goroutines concurrently
//
//	will lead to **undefined behavior**, including data races and torn
//	dependency sets.
//
// If you require shared resolution, serialize it outside this scope.
type Cache[V any] struct {
	fn        func(context.Context) V
	value     V
	deps      []*Tag
	snapshot  Revision
	evaluated bool
}

// Value resolves the cache.
//
// On first resolution, and whenever a consumed tag moved past the snapshot,
// the computation runs under a fresh tracking frame and the tags it consumes
// become the new dependency set. Otherwise the retained value is returned
// without re-running anything. Either way the dependency set is re-consumed
// into the caller's frame, so an enclosing cache invalidates with this one.
//
// A panic inside the computation propagates to the caller and is never
// retained: the cache keeps whatever state it had before, so the next
// resolution runs the computation again.
func (c *Cache[V]) Value(ctx context.Context) V {
	if !c.fresh() {
		frm := newFrame()
		c.value = c.fn(context.WithValue(ctx, trackingFrameKey, frm))
		c.deps = frm.tags
		c.snapshot = maxRevision(c.deps)
		c.evaluated = true
	}
	for _, t := range c.deps {
		Consume(ctx, t)
	}
	return c.value
}

// Const reports whether the cache computed without consuming any tag.
// A constant cache never recomputes: its first value is its final value.
func (c *Cache[V]) Const() bool {
	return c.evaluated && len(c.deps) == 0
}

func (c *Cache[V]) fresh() bool {
	if !c.evaluated {
		return false
	}
	for _, t := range c.deps {
		if t.Revision() > c.snapshot {
			return false
		}
	}
	return true
}
