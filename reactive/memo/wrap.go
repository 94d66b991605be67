package memo

import (
	"context"
	"fmt"
	"reflect"
	"strings"
)

var ctxType = reflect.TypeOf((*context.Context)(nil)).Elem()

// Wrap declares a property from an arbitrary function value.
//
// It accepts the shapes a getter can legitimately take:
//
//	func(context.Context, *T) V
//	func(*T) V
//	Getter[T, V]
//
// and rejects everything else at declaration time: a function without
// exactly one result is ErrNotAGetter, a getter with parameters beyond the
// context and receiver is ErrUnsupportedArguments, and a value that is not a
// usable function at all is ErrInvalidUsage.
func Wrap[T any, V any](name string, fn any) (*Property[T, V], error) {
	get, err := getterOf[T, V](name, fn)
	if err != nil {
		return nil, err
	}
	return Register(name, get)
}

// MustWrap is the panic-on-failure variant of Wrap.
func MustWrap[T any, V any](name string, fn any) *Property[T, V] {
	p, err := Wrap[T, V](name, fn)
	if err != nil {
		panic(err)
	}
	return p
}

func getterOf[T any, V any](name string, fn any) (Getter[T, V], error) {
	switch g := fn.(type) {
	case Getter[T, V]:
		if g == nil {
			return nil, nilGetterError(name)
		}
		return g, nil
	case func(context.Context, *T) V:
		if g == nil {
			return nil, nilGetterError(name)
		}
		return g, nil
	case func(*T) V:
		if g == nil {
			return nil, nilGetterError(name)
		}
		return func(_ context.Context, t *T) V { return g(t) }, nil
	case nil:
		return nil, nilGetterError(name)
	}

	fv := reflect.ValueOf(fn)
	ft := fv.Type()
	if ft.Kind() != reflect.Func {
		return nil, fmt.Errorf("%w: property %q declared on a %v value, not a getter function", ErrInvalidUsage, name, ft)
	}
	if fv.IsNil() {
		return nil, nilGetterError(name)
	}

	switch ft.NumOut() {
	case 1:
	case 0:
		return nil, fmt.Errorf("%w: %q yields no value", ErrNotAGetter, name)
	default:
		return nil, fmt.Errorf("%w: %q yields %d values, want one", ErrNotAGetter, name, ft.NumOut())
	}

	ins := make([]reflect.Type, ft.NumIn())
	for i := range ins {
		ins[i] = ft.In(i)
	}
	wantsCtx := len(ins) > 0 && ins[0] == ctxType
	rest := ins
	if wantsCtx {
		rest = ins[1:]
	}

	recvType := reflect.TypeOf((*T)(nil))
	if len(rest) == 0 || rest[0] != recvType {
		got := "nothing"
		if len(rest) > 0 {
			got = rest[0].String()
		}
		return nil, fmt.Errorf("%w: %q wants receiver %v, got %v", ErrInvalidUsage, name, recvType, got)
	}
	if extras := rest[1:]; len(extras) > 0 {
		names := make([]string, len(extras))
		for i, e := range extras {
			names[i] = e.String()
		}
		return nil, fmt.Errorf("%w: %q takes extra parameters: %s", ErrUnsupportedArguments, name, strings.Join(names, ", "))
	}

	valType := reflect.TypeOf((*V)(nil)).Elem()
	if out := ft.Out(0); out != valType {
		return nil, fmt.Errorf("%w: %q yields %v, want %v", ErrInvalidUsage, name, out, valType)
	}

	return func(ctx context.Context, t *T) V {
		args := make([]reflect.Value, 0, 2)
		if wantsCtx {
			args = append(args, reflect.ValueOf(ctx))
		}
		args = append(args, reflect.ValueOf(t))
		return fv.Call(args)[0].Interface().(V)
	}, nil
}

func nilGetterError(name string) error {
	return fmt.Errorf("%w: property %q declared with a nil getter", ErrInvalidUsage, name)
}
