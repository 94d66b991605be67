package reactive

import "context"

type contextKey string

const trackingFrameKey contextKey = "react_ive_go_tracking_frame_key"

// frame collects the tags consumed during one tracked computation.
// A frame belongs to exactly one evaluation on one goroutine.
type frame struct {
	tags []*Tag
	seen map[*Tag]struct{}
}

func newFrame() *frame {
	return &frame{seen: make(map[*Tag]struct{})}
}

func (f *frame) record(t *Tag) {
	if _, ok := f.seen[t]; ok {
		return
	}
	f.seen[t] = struct{}{}
	f.tags = append(f.tags, t)
}

func frameOf(ctx context.Context) *frame {
	f, _ := ctx.Value(trackingFrameKey).(*frame)
	return f
}

// Untracked returns a context whose reads consume nothing.
// It shadows any open tracking frame, so a computation can peek at tracked
// storage without taking a dependency on it.
func Untracked(ctx context.Context) context.Context {
	return context.WithValue(ctx, trackingFrameKey, (*frame)(nil))
}
