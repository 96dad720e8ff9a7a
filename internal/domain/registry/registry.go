// Package registry provides a direct-access map: values live in an
// insertion-ordered slice and keys resolve to slice indices, so hot paths can
// hold on to an index and skip the hash lookup.
package registry

import (
	"errors"
	"fmt"
)

// ErrDuplicateKey is returned by Add when the key is already mapped.
var ErrDuplicateKey = errors.New("duplicate key")

// Map stores values by index, each under a string key.
type Map[E any] struct {
	items []E
	keys  map[string]int
	order []string
}

// New creates an empty Map.
func New[E any]() *Map[E] {
	return &Map[E]{
		keys: make(map[string]int),
	}
}

// Add appends v under key and returns its index.
func (m *Map[E]) Add(key string, v E) (int, error) {
	if _, ok := m.keys[key]; ok {
		return -1, fmt.Errorf("%w: %q", ErrDuplicateKey, key)
	}
	index := len(m.items)
	m.items = append(m.items, v)
	m.keys[key] = index
	m.order = append(m.order, key)
	return index, nil
}

// Get returns the value mapped to key.
func (m *Map[E]) Get(key string) (E, bool) {
	index, ok := m.keys[key]
	if !ok || index >= len(m.items) {
		var zero E
		return zero, false
	}
	return m.items[index], true
}

// At returns the value at index. It panics if index is out of range.
func (m *Map[E]) At(index int) E {
	return m.items[index]
}

// IndexOf returns the index mapped to key, or -1.
func (m *Map[E]) IndexOf(key string) int {
	if index, ok := m.keys[key]; ok {
		return index
	}
	return -1
}

// Len returns the number of stored values.
func (m *Map[E]) Len() int {
	return len(m.items)
}

// Keys returns the keys in insertion order.
func (m *Map[E]) Keys() []string {
	out := make([]string, len(m.order))
	copy(out, m.order)
	return out
}
