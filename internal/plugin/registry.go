package plugin

import (
	"errors"
	"fmt"
)

var ErrDuplicatePlugin = errors.New("duplicate plugin name")

// Entry is a named plugin.
type Entry[T any] struct {
	Name   string
	Plugin T
}

// Registry is an ordered, read-only set of named plugins. It is safe for
// concurrent lookups once built.
type Registry[T any] struct {
	entries []Entry[T]
	index   map[string]int
}

// NewRegistry builds a registry keeping the given order. Registering the same
// name twice is rejected.
func NewRegistry[T any](entries ...Entry[T]) (*Registry[T], error) {
	r := &Registry[T]{
		entries: make([]Entry[T], 0, len(entries)),
		index:   make(map[string]int, len(entries)),
	}

	for _, e := range entries {
		if e.Name == "" {
			return nil, fmt.Errorf("plugin name must not be empty")
		}
		if _, ok := r.index[e.Name]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicatePlugin, e.Name)
		}
		r.index[e.Name] = len(r.entries)
		r.entries = append(r.entries, e)
	}

	return r, nil
}

// Lookup returns the plugin registered under name.
func (r *Registry[T]) Lookup(name string) (T, bool) {
	i, ok := r.index[name]
	if !ok {
		var zero T
		return zero, false
	}
	return r.entries[i].Plugin, true
}

// Entries returns the plugins in registration order.
func (r *Registry[T]) Entries() []Entry[T] {
	out := make([]Entry[T], len(r.entries))
	copy(out, r.entries)
	return out
}

func (r *Registry[T]) Len() int {
	return len(r.entries)
}

// Discoverer supplies the default plugin set when a manager is not given an
// explicit one.
type Discoverer interface {
	Clients() []Entry[Client]
	Trackers() []Entry[Tracker]
}
