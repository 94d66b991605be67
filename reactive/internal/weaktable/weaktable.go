// Package weaktable associates values with live instances without keeping
// the instances alive.
package weaktable

import (
	"runtime"
	"sync"
	"weak"
)

// Table maps instance identity to a value. Keys are held weakly: an entry
// never keeps its instance reachable, and once the instance is reclaimed the
// entry is removed by a runtime cleanup.
//
// Stored values must not strongly reference their keys. A value that holds
// its own key pins the instance forever and the cleanup never runs.
type Table[K any, V any] struct {
	mu      sync.Mutex
	entries map[weak.Pointer[K]]V
}

func New[K any, V any]() *Table[K, V] {
	return &Table[K, V]{
		entries: make(map[weak.Pointer[K]]V),
	}
}

// GetOrCreate returns the value bound to key, creating it with create when
// the key has none. Lookup and insertion happen under one lock, so for any
// key exactly one create call ever wins.
func (t *Table[K, V]) GetOrCreate(key *K, create func() V) (val V, created bool) {
	wp := weak.Make(key)

	t.mu.Lock()
	defer t.mu.Unlock()

	if v, ok := t.entries[wp]; ok {
		return v, false
	}

	val = create()
	t.entries[wp] = val
	runtime.AddCleanup(key, func(wp weak.Pointer[K]) {
		t.remove(wp)
	}, wp)
	return val, true
}

func (t *Table[K, V]) remove(wp weak.Pointer[K]) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.entries, wp)
}

// Len reports the number of entries whose instances are still live or whose
// cleanups have not run yet.
func (t *Table[K, V]) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}
