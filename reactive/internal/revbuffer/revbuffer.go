package revbuffer

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
)

type CompareFunc[T any] func(a, b T) int

// Buffer holds up to window elements in compare order and evicts the
// smallest into its sink once the window overflows. It trades latency for
// order: elements that arrive within the same window come out sorted.
type Buffer[T any] struct {
	mu      sync.Mutex
	data    []T
	window  int
	compare CompareFunc[T]

	sink   chan T
	closed atomic.Bool
}

func New[T any](window int, cmp CompareFunc[T]) *Buffer[T] {
	if window <= 0 {
		window = 1
	}
	return &Buffer[T]{
		data:    make([]T, 0, window),
		window:  window,
		compare: cmp,
		sink:    make(chan T, window*2),
	}
}

// Insert places val into the window, evicting the smallest element to the
// sink when the window is full. Returns false once the buffer is closed or
// the context is done before the eviction could be delivered.
func (b *Buffer[T]) Insert(ctx context.Context, val T) bool {
	if b.closed.Load() {
		return false
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed.Load() {
		return false
	}

	idx := sort.Search(len(b.data), func(i int) bool {
		return b.compare(val, b.data[i]) < 0
	})
	b.data = append(b.data, val)
	copy(b.data[idx+1:], b.data[idx:])
	b.data[idx] = val

	if len(b.data) > b.window {
		evicted := b.data[0]
		b.data = b.data[1:]
		select {
		case <-ctx.Done():
			return false
		case b.sink <- evicted:
		}
	}

	return true
}

func (b *Buffer[T]) Source() <-chan T {
	return b.sink
}

// Close drains the remaining window into the sink, in order, then closes it.
// Safe to call more than once.
func (b *Buffer[T]) Close(ctx context.Context) {
	if !b.closed.CompareAndSwap(false, true) {
		return
	}

	b.mu.Lock()
	rest := b.data
	b.data = nil
	b.mu.Unlock()

	done := make(chan struct{})
	go func() {
		defer close(done)
		defer close(b.sink)
		for _, v := range rest {
			select {
			case <-ctx.Done():
				return
			case b.sink <- v:
			}
		}
	}()

	select {
	case <-done:
	case <-ctx.Done():
	}
}
