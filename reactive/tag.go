package reactive

import (
	"context"
	"sync/atomic"
)

// Tag is the validity token of one unit of tracked storage.
// It carries the revision at which the storage was last dirtied.
// Tags are comparable by pointer identity: one storage location, one tag.
type Tag struct {
	rev atomic.Uint64
}

// NewTag returns a tag stamped with the current clock revision.
func NewTag() *Tag {
	t := &Tag{}
	t.rev.Store(uint64(Clock()))
	return t
}

// Revision returns the revision at which the tag was last dirtied.
func (t *Tag) Revision() Revision {
	return Revision(t.rev.Load())
}

// Dirty advances the global clock and stamps the tag with the new revision.
// Every cache that consumed the tag becomes stale as of this call.
func (t *Tag) Dirty() Revision {
	rev := nextRevision()
	t.rev.Store(uint64(rev))
	return rev
}

// Consume records the tag into the tracking frame of ctx, if one is open.
// Outside of a tracked computation this is a no-op.
func Consume(ctx context.Context, t *Tag) {
	if frm := frameOf(ctx); frm != nil {
		frm.record(t)
	}
}
