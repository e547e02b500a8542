package machine

import (
	"sort"
)

// Store maps addresses to abstract values. It is an immutable value:
// Extend returns a fresh store, joining the new value with whatever the
// address already held, so the mapping at any address only ever grows.
type Store[A Keyed, V Value[V]] struct {
	entries map[string]storeEntry[A, V]
}

type storeEntry[A Keyed, V Value[V]] struct {
	addr A
	val  V
}

// StoreEntry is one (address, value) pair, as handed over by the semantics
// for the initial store.
type StoreEntry[A Keyed, V Value[V]] struct {
	Addr A
	Val  V
}

// NewStore builds a store from an initial binding list.
func NewStore[A Keyed, V Value[V]](entries []StoreEntry[A, V]) Store[A, V] {
	s := Store[A, V]{entries: map[string]storeEntry[A, V]{}}
	for _, e := range entries {
		s = s.Extend(e.Addr, e.Val)
	}
	return s
}

// Lookup returns the value at addr. The second result is false when the
// address is unmapped, which stands for the lattice bottom.
func (s Store[A, V]) Lookup(addr A) (V, bool) {
	e, ok := s.entries[addr.Key()]
	if !ok {
		var zero V
		return zero, false
	}
	return e.val, true
}

// Extend returns a store mapping addr to the join of val and the current
// value at addr.
func (s Store[A, V]) Extend(addr A, val V) Store[A, V] {
	key := addr.Key()
	next := make(map[string]storeEntry[A, V], len(s.entries)+1)
	for k, e := range s.entries {
		next[k] = e
	}
	if old, ok := s.entries[key]; ok {
		val = old.val.Join(val)
	}
	next[key] = storeEntry[A, V]{addr: addr, val: val}
	return Store[A, V]{entries: next}
}

// Subsumes reports whether every binding in other is subsumed by the
// corresponding binding in s.
func (s Store[A, V]) Subsumes(other Store[A, V]) bool {
	for k, e := range other.entries {
		mine, ok := s.entries[k]
		if !ok || !mine.val.Subsumes(e.val) {
			return false
		}
	}
	return true
}

// Equal reports mutual subsumption.
func (s Store[A, V]) Equal(other Store[A, V]) bool {
	if len(s.entries) != len(other.entries) {
		return false
	}
	return s.Subsumes(other) && other.Subsumes(s)
}

// Len returns the number of mapped addresses.
func (s Store[A, V]) Len() int {
	return len(s.entries)
}

// Each calls fn for every binding, in key order.
func (s Store[A, V]) Each(fn func(addr A, val V)) {
	keys := make([]string, 0, len(s.entries))
	for k := range s.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		e := s.entries[k]
		fn(e.addr, e.val)
	}
}
