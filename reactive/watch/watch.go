// Package watch streams the invalidation flow of the reactive graph to
// scope-bound handlers: every dirty, install, and recompute becomes an Event.
// Emission is fire-and-forget; a scope that cannot keep up loses events
// rather than slowing the graph down.
package watch

import (
	"context"

	"github.com/on-the-ground/react_ive_go/reactive/internal/dispatch"
	"github.com/on-the-ground/react_ive_go/reactive/internal/revbuffer"
	"github.com/on-the-ground/react_ive_go/shared/helper"
	"go.uber.org/zap"
)

type contextKey string

const handlerContextKey contextKey = "react_ive_go_watch_handler_key"

// WithHandler registers a partitioned fire-and-forget event handler in the context.
//
// Hash-based dispatching ensures that events with the same Key are handled by
// the same goroutine, preserving per-key order. The teardown function should
// be called when the handler is no longer needed; the context it returns
// should be used for further operations.
//
// Usage:
//
//	ctx, endOfWatch := watch.WithHandler(ctx, watch.NewConfig(8, 2, 0), handleFn)
//	defer endOfWatch()
func WithHandler(
	ctx context.Context,
	config Config,
	handleFn Handler,
	teardown ...func(),
) (context.Context, func() context.Context) {
	logger, _ := zap.NewProduction()
	td := normalizeTeardown(teardown)

	deliver := func(ctx context.Context, ev Event) {
		handleFn(ctx, ev)
	}
	if config.OrderWindow > 0 {
		buf := revbuffer.New(config.OrderWindow, compareByRevision)
		go func() {
			for ev := range buf.Source() {
				handleFn(ctx, ev)
			}
		}()
		deliver = func(ctx context.Context, ev Event) {
			buf.Insert(ctx, ev)
		}
		innerTd := td
		td = func() {
			buf.Close(context.Background())
			innerTd()
		}
	}

	scope := dispatch.NewScope(ctx, config.BufferSize, config.NumWorkers, deliver, td)
	ctxWith := context.WithValue(ctx, handlerContextKey, scope)
	logger.Sugar().Debugf("created watch handler: scopeId: %v", scope.ScopeId)

	return ctxWith, func() context.Context {
		scope.Close()
		logger.Sugar().Debugf("closed watch handler: scopeId: %v", scope.ScopeId)
		return ctx
	}
}

// Emit sends the event to the watch handler registered in the context.
//
// The event is stamped with the emission time span. Without a registered
// handler, or with a saturated partition, the event is dropped: emitters
// never block on observers.
func Emit(ctx context.Context, ev Event) {
	scope, ok := helper.GetTypedValueOf2[*dispatch.Scope[Event]](func() (any, bool) {
		raw := ctx.Value(handlerContextKey)
		return raw, raw != nil
	})
	if !ok {
		return
	}
	ev.TimeSpan = Now()
	scope.Dispatch(ctx, ev)
}

// WithZapHandler registers a watch handler that structured-logs every event.
// Writes are worth noticing, so dirtied events log at info level; install and
// recompute traffic stays at debug.
func WithZapHandler(
	ctx context.Context,
	config Config,
	logger *zap.Logger,
) (context.Context, func() context.Context) {
	return WithHandler(
		ctx,
		config,
		func(ctx context.Context, ev Event) {
			fields := []zap.Field{
				zap.String("key", ev.Key),
				zap.Uint64("revision", uint64(ev.Revision)),
				zap.Time("observed", ev.Start()),
			}

			switch ev.Op {
			case OpDirtied:
				logger.Info("storage dirtied", fields...)
			case OpInstalled:
				logger.Debug("property cache installed", fields...)
			case OpRecomputed:
				logger.Debug("property recomputed", fields...)
			default:
				logger.Info("reactive event", fields...)
			}
		},
		func() {
			if err := logger.Sync(); err != nil {
				logger.Warn("failed to sync logger", zap.Error(err))
			}
		},
	)
}

func compareByRevision(a, b Event) int {
	switch {
	case a.Revision < b.Revision:
		return -1
	case a.Revision > b.Revision:
		return 1
	default:
		return 0
	}
}

// normalizeTeardown flattens optional teardown functions into a single callable.
//
// Accepts either 0 or 1 teardown functions. Panics if more than one is passed.
func normalizeTeardown(teardown []func()) func() {
	switch len(teardown) {
	case 1:
		return teardown[0]
	case 0:
		return func() {}
	default:
		panic("normalizeTeardown: only one or zero teardown functions allowed")
	}
}
