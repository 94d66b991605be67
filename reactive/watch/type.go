package watch

import (
	"context"
	"time"

	"github.com/on-the-ground/react_ive_go/reactive"
	"github.com/rickb777/date/v2/timespan"
)

// Op names one kind of reactive happening.
type Op string

const (
	// OpDirtied is emitted when tracked storage is written.
	OpDirtied Op = "dirtied"

	// OpInstalled is emitted when a property binds its first cache to an instance.
	OpInstalled Op = "installed"

	// OpRecomputed is emitted when a property's computation actually re-runs.
	OpRecomputed Op = "recomputed"
)

// Event is one observation of the reactive graph: which key did what, at
// which revision, and roughly when. Events are instrumentation, not state:
// consumers must tolerate drops.
type Event struct {
	Key      string
	Op       Op
	Revision reactive.Revision
	TimeSpan
}

// PartitionKey routes all events of one key to the same worker.
func (e Event) PartitionKey() string {
	return e.Key
}

// Handler consumes events inside a watch scope.
type Handler func(context.Context, Event)

type TimeSpan = timespan.TimeSpan

func NewTimeSpan(from, to time.Time) TimeSpan {
	return timespan.BetweenTimes(from, to)
}

const epsilon = time.Millisecond

func Now() TimeSpan {
	now := time.Now()
	return timespan.BetweenTimes(now.Add(-1*epsilon), now.Add(epsilon))
}

// Config sizes a watch scope.
type Config struct {
	BufferSize  int // default: 1
	NumWorkers  int // default: 1
	OrderWindow int // default: 0 (deliver in arrival order)
}

// NewConfig normalizes nonsensical sizes instead of failing on them.
// An OrderWindow above zero buffers that many events per scope and delivers
// them sorted by revision, serialized through a single goroutine.
func NewConfig(bufferSize, numWorkers, orderWindow int) Config {
	if bufferSize <= 0 {
		bufferSize = 1
	}
	if numWorkers <= 0 {
		numWorkers = 1
	}
	if orderWindow < 0 {
		orderWindow = 0
	}
	return Config{
		BufferSize:  bufferSize,
		NumWorkers:  numWorkers,
		OrderWindow: orderWindow,
	}
}
