// Package memo provides per-instance memoized properties: declare a getter
// once, read it many times, recompute only when a tracked dependency moved.
//
// A Property is declared per type, not per instance. Each instance lazily
// receives its own cache on first read, so two instances of the same type
// never share a value or an invalidation. The association from instance to
// cache is non-owning: a memoized property never keeps its instance alive,
// and caches die with their instances.
//
// Declarations are validated eagerly and fail with ErrNotAGetter,
// ErrUnsupportedArguments, or ErrInvalidUsage. Reads never fail: a panic in
// the getter is the getter's own, propagated once per actual invocation.
package memo

import (
	"context"
	"fmt"
	"reflect"
	"sync"
	"weak"

	"github.com/google/uuid"
	"github.com/on-the-ground/react_ive_go/reactive"
	"github.com/on-the-ground/react_ive_go/reactive/internal/weaktable"
	"github.com/on-the-ground/react_ive_go/reactive/watch"
	"go.uber.org/zap"
)

// ErrNotAGetter rejects declarations whose function cannot be read as a
// computed property: it yields no value, or more than one.
var ErrNotAGetter = fmt.Errorf("memoized properties require a getter")

// ErrUnsupportedArguments rejects getter-shaped declarations that try to
// parameterize the memoization with extra inputs.
var ErrUnsupportedArguments = fmt.Errorf("memoized getters cannot take arguments")

// ErrInvalidUsage rejects declarations that are not usable at all: nil or
// non-function values, wrong receiver or result types, unnamed or duplicate
// declarations.
var ErrInvalidUsage = fmt.Errorf("invalid memoized property declaration")

// Getter computes one property of one instance. It must be read-only: its
// result has to follow from the instance and the tracked storage it reads.
type Getter[T any, V any] func(context.Context, *T) V

// Property is a declared memoized property of T instances.
//
// One declaration serves any number of instances: each instance gets at most
// one cache, created on its first read, tracked without being kept alive.
type Property[T any, V any] struct {
	propertyId string
	name       string
	get        Getter[T, V]
	caches     *weaktable.Table[T, *reactive.Cache[V]]
}

type declarationKey struct {
	owner reflect.Type
	name  string
}

// declarations holds every (owner type, name) pair ever declared.
// Redeclaring a pair is a declaration error, never a silent replacement.
var declarations sync.Map

// Register declares a memoized property named name for instances of T.
//
// The declaration is validated synchronously: an unnamed property, a nil
// getter, or a redeclared (type, name) pair fails with ErrInvalidUsage and
// installs nothing.
func Register[T any, V any](name string, get Getter[T, V]) (*Property[T, V], error) {
	owner := reflect.TypeOf((*T)(nil)).Elem()
	if name == "" {
		return nil, fmt.Errorf("%w: unnamed property declared on %v", ErrInvalidUsage, owner)
	}
	if get == nil {
		return nil, fmt.Errorf("%w: property %q declared with a nil getter", ErrInvalidUsage, name)
	}

	propertyId := uuid.New().String()
	if _, loaded := declarations.LoadOrStore(declarationKey{owner: owner, name: name}, propertyId); loaded {
		return nil, fmt.Errorf("%w: property %q already declared on %v", ErrInvalidUsage, name, owner)
	}

	logger, _ := zap.NewProduction()
	logger.Sugar().Debugf("declared property: propertyId: %v, owner: %v, name: %v", propertyId, owner, name)

	return &Property[T, V]{
		propertyId: propertyId,
		name:       name,
		get:        get,
		caches:     weaktable.New[T, *reactive.Cache[V]](),
	}, nil
}

// MustRegister is the panic-on-failure variant of Register.
// Use for package-level declarations, where a bad declaration should not
// survive program start.
func MustRegister[T any, V any](name string, get Getter[T, V]) *Property[T, V] {
	p, err := Register(name, get)
	if err != nil {
		panic(err)
	}
	return p
}

// Get reads the property on instance.
//
// The first read binds a cache to the instance and runs the getter; further
// reads return the retained value until a dependency consumed by the getter
// is dirtied. Reading inside a tracked computation consumes the getter's
// dependencies, so enclosing caches invalidate with this property.
//
// The bound cache holds the instance weakly. Get panics on a nil instance.
// Resolution assumes a single evaluating goroutine per instance; see
// reactive.Cache.
func (p *Property[T, V]) Get(ctx context.Context, instance *T) V {
	if instance == nil {
		panic(fmt.Errorf("property %q read on nil instance", p.name))
	}

	cache, created := p.caches.GetOrCreate(instance, func() *reactive.Cache[V] {
		// the computation must capture the instance weakly: a strong capture
		// would pin the table key and make the entry immortal
		ref := weak.Make(instance)
		return reactive.NewCache(func(ctx context.Context) V {
			inst := ref.Value()
			if inst == nil {
				// resolution only happens inside Get, whose caller holds the
				// instance strongly
				panic(fmt.Errorf("property %q resolved against a reclaimed instance", p.name))
			}
			v := p.get(ctx, inst)
			watch.Emit(ctx, watch.Event{Key: p.name, Op: watch.OpRecomputed, Revision: reactive.Clock()})
			return v
		})
	})
	if created {
		watch.Emit(ctx, watch.Event{Key: p.name, Op: watch.OpInstalled, Revision: reactive.Clock()})
	}

	return cache.Value(ctx)
}

func (p *Property[T, V]) Name() string {
	return p.name
}

// Tracked reports how many instances currently hold a cache for this
// property. Reclaimed instances leave the count once their cleanups run.
func (p *Property[T, V]) Tracked() int {
	return p.caches.Len()
}
