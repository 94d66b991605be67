// Package reactive provides a minimal and idiomatic invalidation engine for Go.
//
// React-ive Go introduces revision tracking to separate WHAT a value depends on
// from WHEN it must be recomputed. Reads record dependencies, writes advance a
// global revision clock, and caches re-run their computation only when one of
// the revisions they observed has moved.
//
// # What is a Tag?
//
// A Tag is the validity token of one unit of tracked storage. It remembers the
// revision at which that storage last changed:
//   - reading the storage consumes its tag into the surrounding tracking frame,
//   - writing the storage dirties its tag with a fresh revision,
//   - a cache is valid while every tag it consumed is at or below the revision
//     snapshot taken when it last computed.
//
// # Why revision tracking?
//
// Go doesn’t support computed properties or observers, but it does offer
// closures, generics, and context. React-ive Go leverages these idioms to make
// invalidation explicit and scope-bound: dependencies are discovered by
// running the computation, never declared by hand.
//
// Benefits include:
//   - Lazy evaluation (nothing runs until someone asks)
//   - Minimal recomputation (only when an observed revision moved)
//   - Transparent nesting (a cache consumed inside another propagates its tags)
//   - No registration or subscription lifecycle to leak
//
// # How does it work?
//
// Computations run under a tracking frame carried by the context. Every
// Consume inside the frame records a tag; the recorded set and its maximum
// revision become the cache's validity snapshot. Resolution re-consumes the
// set into the caller's frame, so outer caches invalidate with inner ones.
//
// This package exports:
//   - Tag, NewTag, Consume: the validity tokens
//   - Cache, NewCache: lazy dependency-tracked computations
//   - Clock, Untracked: clock introspection and escape hatch
//
// Higher layers live in subpackages: cell (tracked values), memo (per-instance
// memoized properties), watch (invalidation event stream).
//
// Example:
//
//	price := cell.New("price", 100)
//	total := reactive.NewCache(func(ctx context.Context) int {
//	    return price.Get(ctx) * 2
//	})
//
//	total.Value(ctx) // computes: 200
//	total.Value(ctx) // cached
//	price.Set(ctx, 150)
//	total.Value(ctx) // recomputes: 300
package reactive
