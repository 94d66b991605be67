package dispatch

import (
	"context"
	"log"
	"sync"

	"github.com/google/uuid"
)

// Partitionable is anything that can name the partition it belongs to.
// Payloads with the same partition key are handled by the same worker,
// which preserves their relative order.
type Partitionable interface {
	PartitionKey() string
}

func NewScope[T Partitionable](
	ctx context.Context,
	bufferSize, numWorkers int,
	handleFn func(context.Context, T),
	teardown func(),
) *Scope[T] {
	ctx, cancelFn := context.WithCancel(ctx)
	var wg sync.WaitGroup
	chs := make([]chan T, numWorkers)
	for i := 0; i < numWorkers; i++ {
		ch := make(chan T, bufferSize)
		wg.Add(1)
		go func(ch chan T) {
			defer wg.Done()
			defer close(ch)
			for {
				select {
				case payload := <-ch:
					safeHandle(ctx, handleFn, payload)
				case <-ctx.Done():
					// deliver what was already accepted before leaving
					for {
						select {
						case payload := <-ch:
							safeHandle(ctx, handleFn, payload)
						default:
							return
						}
					}
				}
			}
		}(ch)
		chs[i] = ch
	}

	return &Scope[T]{
		ScopeId: uuid.New().String(),
		chs:     chs,
		closeFn: func() {
			cancelFn()
			wg.Wait()
			teardown()
		},
		closed: false,
	}
}

// safeHandle keeps one panicking payload from killing the whole worker.
func safeHandle[T Partitionable](ctx context.Context, handleFn func(context.Context, T), payload T) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf(
				"panic while handling payload: %+v",
				map[string]interface{}{
					"panic":   r,
					"payload": payload,
				},
			)
		}
	}()
	handleFn(ctx, payload)
}

// IMPORTANT:
// A Scope is **intentionally NOT thread-safe** on its lifecycle.
//
// It is designed with the assumption that each scope will be opened and
// closed by a **single goroutine**, the one that owns the enclosing context.
//
// ➤ Dispatch may be called from anywhere: it only selects on channels.
//
// ➤ Close must stay with the owner; calling it concurrently with itself
//
//	will lead to **undefined behavior**.
//
// If you require shared lifecycle control, synchronize it outside this scope.
type Scope[T Partitionable] struct {
	ScopeId string
	chs     []chan T
	closeFn func()
	closed  bool
}

// Dispatch routes the payload to the worker owning its partition.
// It drops the payload when the scope is shutting down or the partition's
// buffer is full: delivery is best effort by design of the callers.
func (s *Scope[T]) Dispatch(ctx context.Context, payload T) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf(
				"panic while sending to closed channel: %+v",
				map[string]interface{}{
					"scopeId": s.ScopeId,
					"payload": payload,
				},
			)
		}
	}()

	select {
	case <-ctx.Done():
	case s.chs[indexByHash(payload.PartitionKey(), len(s.chs))] <- payload:
	default:
	}
}

func (s *Scope[T]) Close() {
	if !s.closed {
		s.closeFn()
		s.closed = true
		log.Printf("dispatch scope closed: %s", s.ScopeId)
	}
}
