package reactive

import "sync/atomic"

// Revision is a point on the global monotonic clock.
// Revision zero is the constant revision: storage that never changes.
type Revision uint64

var revClock atomic.Uint64

// Clock returns the current revision of the global clock.
func Clock() Revision {
	return Revision(revClock.Load())
}

// nextRevision advances the clock and returns the new revision.
func nextRevision() Revision {
	return Revision(revClock.Add(1))
}

func maxRevision(tags []*Tag) Revision {
	var max Revision
	for _, t := range tags {
		if rev := t.Revision(); rev > max {
			max = rev
		}
	}
	return max
}
