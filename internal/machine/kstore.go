package machine

import (
	"fmt"
	"sort"
)

// KontAddr is a continuation address: either the Halt sentinel or a Normal
// address tagged with the expression awaiting a return value and the
// timestamp at which it was allocated.
type KontAddr[E Keyed, T Keyed] struct {
	Expr E
	Time T
	halt bool
}

// NormalKontAddr allocates the address for a continuation pushed while
// evaluating expr at time t.
func NormalKontAddr[E Keyed, T Keyed](expr E, t T) KontAddr[E, T] {
	return KontAddr[E, T]{Expr: expr, Time: t}
}

// HaltAddr is the root continuation address.
func HaltAddr[E Keyed, T Keyed]() KontAddr[E, T] {
	return KontAddr[E, T]{halt: true}
}

func (k KontAddr[E, T]) IsHalt() bool {
	return k.halt
}

func (k KontAddr[E, T]) Key() string {
	if k.halt {
		return "halt"
	}
	return k.Expr.Key() + "@" + k.Time.Key()
}

func (k KontAddr[E, T]) Equal(other KontAddr[E, T]) bool {
	return k.Key() == other.Key()
}

func (k KontAddr[E, T]) String() string {
	if k.halt {
		return "halt"
	}
	return k.Key()
}

// Kont pairs a continuation frame with the address of the continuation to
// resume once the frame returns.
type Kont[E Keyed, T Keyed, F Keyed] struct {
	Frame F
	Next  KontAddr[E, T]
}

func (k Kont[E, T, F]) Key() string {
	return k.Frame.Key() + "/" + k.Next.Key()
}

// KStore is the continuation store: a mapping from continuation address to
// a set of konts, augmented with per-address reference counts and a reverse
// edge index so that unreachable addresses can be reclaimed as the
// exploration proceeds.
//
// The counts track AAM-level reachability among continuation addresses in
// the current state, not host memory: refs(k) is the number of roots
// pinning k plus the number of konts stored elsewhere whose next address is
// k. When a count reaches zero the entry is removed and the decrement
// cascades through its parents. A Normal address is keyed by expression and
// time only, so when the time domain gives a recursive call the same
// timestamp, a kont can name its own address (directly or through other
// addresses) as its parent. The counts along such a cycle stay positive and
// its entries are not reclaimed.
//
// The store is an immutable value; every operation returns a new store and
// shares unmodified entries with the receiver.
type KStore[E Keyed, T Keyed, F Keyed] struct {
	entries map[string]*kentry[E, T, F]
	collect bool
}

type kentry[E Keyed, T Keyed, F Keyed] struct {
	addr  KontAddr[E, T]
	konts map[string]Kont[E, T, F]
	refs  int
	in    map[string]KontAddr[E, T] // addresses holding a kont whose next address is addr
}

func (e *kentry[E, T, F]) clone() *kentry[E, T, F] {
	konts := make(map[string]Kont[E, T, F], len(e.konts))
	for k, v := range e.konts {
		konts[k] = v
	}
	in := make(map[string]KontAddr[E, T], len(e.in))
	for k, v := range e.in {
		in[k] = v
	}
	return &kentry[E, T, F]{addr: e.addr, konts: konts, refs: e.refs, in: in}
}

// NewKStore returns an empty continuation store with reclamation enabled.
func NewKStore[E Keyed, T Keyed, F Keyed]() KStore[E, T, F] {
	return KStore[E, T, F]{entries: map[string]*kentry[E, T, F]{}, collect: true}
}

// NewUncollectedKStore returns an empty continuation store that never
// reclaims entries. Reference operations are no-ops; the store only grows.
// The exploration result must agree with the collecting store, which the
// test suite checks.
func NewUncollectedKStore[E Keyed, T Keyed, F Keyed]() KStore[E, T, F] {
	return KStore[E, T, F]{entries: map[string]*kentry[E, T, F]{}}
}

// Collecting reports whether the store reclaims unreferenced entries.
func (ks KStore[E, T, F]) Collecting() bool {
	return ks.collect
}

func (ks KStore[E, T, F]) shallowCopy() KStore[E, T, F] {
	entries := make(map[string]*kentry[E, T, F], len(ks.entries))
	for k, v := range ks.entries {
		entries[k] = v
	}
	return KStore[E, T, F]{entries: entries, collect: ks.collect}
}

// ensure returns a cloned copy of the entry at key in next, cloning it
// from the receiver on first touch. It returns nil when key is absent from
// next.
func (ks KStore[E, T, F]) ensure(next KStore[E, T, F], key string) *kentry[E, T, F] {
	if e, ok := next.entries[key]; ok {
		if shared, was := ks.entries[key]; !was || shared != e {
			return e // already cloned during this operation
		}
		c := e.clone()
		next.entries[key] = c
		return c
	}
	return nil
}

// Extend adds kont to the set stored at k. If the kont is already present
// the receiver is returned unchanged. Otherwise the parent named by the
// kont gains a reference and a reverse edge from k. Extending with a
// parent that is not in the store is an invariant violation.
func (ks KStore[E, T, F]) Extend(k KontAddr[E, T], kont Kont[E, T, F]) (KStore[E, T, F], error) {
	key := k.Key()
	if e, ok := ks.entries[key]; ok {
		if _, dup := e.konts[kont.Key()]; dup {
			return ks, nil
		}
	}
	parentKey := kont.Next.Key()
	if _, ok := ks.entries[parentKey]; !ok {
		return ks, fmt.Errorf("kstore: extend at %s names absent parent %s", key, parentKey)
	}

	next := ks.shallowCopy()
	e := ks.ensure(next, key)
	if e == nil {
		e = &kentry[E, T, F]{
			addr:  k,
			konts: map[string]Kont[E, T, F]{},
			in:    map[string]KontAddr[E, T]{},
		}
		next.entries[key] = e
	}
	e.konts[kont.Key()] = kont

	p := ks.ensure(next, parentKey)
	p.refs++
	p.in[key] = k
	return next, nil
}

// Lookup returns the konts stored at k, in key order. An absent address
// yields an empty set.
func (ks KStore[E, T, F]) Lookup(k KontAddr[E, T]) []Kont[E, T, F] {
	e, ok := ks.entries[k.Key()]
	if !ok {
		return nil
	}
	keys := make([]string, 0, len(e.konts))
	for key := range e.konts {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	konts := make([]Kont[E, T, F], 0, len(keys))
	for _, key := range keys {
		konts = append(konts, e.konts[key])
	}
	return konts
}

// Contains reports whether k is present in the store.
func (ks KStore[E, T, F]) Contains(k KontAddr[E, T]) bool {
	_, ok := ks.entries[k.Key()]
	return ok
}

// Refs returns the reference count of k, zero when absent.
func (ks KStore[E, T, F]) Refs(k KontAddr[E, T]) int {
	e, ok := ks.entries[k.Key()]
	if !ok {
		return 0
	}
	return e.refs
}

// InEdges returns the addresses holding a kont whose next address is k.
func (ks KStore[E, T, F]) InEdges(k KontAddr[E, T]) []KontAddr[E, T] {
	e, ok := ks.entries[k.Key()]
	if !ok {
		return nil
	}
	keys := make([]string, 0, len(e.in))
	for key := range e.in {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	edges := make([]KontAddr[E, T], 0, len(keys))
	for _, key := range keys {
		edges = append(edges, e.in[key])
	}
	return edges
}

// AddRef roots k: an absent address is inserted with a single reference,
// a present one gains a reference. On a non-collecting store an absent
// address is still inserted so the root stays observable, but counts are
// not maintained.
func (ks KStore[E, T, F]) AddRef(k KontAddr[E, T]) KStore[E, T, F] {
	key := k.Key()
	if _, ok := ks.entries[key]; ok && !ks.collect {
		return ks
	}
	next := ks.shallowCopy()
	if e := ks.ensure(next, key); e != nil {
		e.refs++
		return next
	}
	next.entries[key] = &kentry[E, T, F]{
		addr:  k,
		konts: map[string]Kont[E, T, F]{},
		refs:  1,
		in:    map[string]KontAddr[E, T]{},
	}
	return next
}

// DecRef releases one reference to k. When the count reaches zero the
// entry is removed and each kont it held releases its parent in turn,
// cascading until every remaining count is positive. Decrementing an
// absent address, or one whose count is already zero, is an invariant
// violation.
func (ks KStore[E, T, F]) DecRef(k KontAddr[E, T]) (KStore[E, T, F], error) {
	if !ks.collect {
		return ks, nil
	}
	if _, ok := ks.entries[k.Key()]; !ok {
		return ks, fmt.Errorf("kstore: decref of absent address %s", k.Key())
	}

	next := ks.shallowCopy()
	pending := []string{k.Key()}
	for len(pending) > 0 {
		key := pending[0]
		pending = pending[1:]

		e := ks.ensure(next, key)
		if e == nil {
			return ks, fmt.Errorf("kstore: decref of absent address %s", key)
		}
		if e.refs <= 0 {
			return ks, fmt.Errorf("kstore: reference count of %s dropped below zero", key)
		}
		e.refs--
		if e.refs > 0 {
			continue
		}

		// The entry is dead: release each kont's parent and drop the
		// reverse edges pointing at the parents.
		delete(next.entries, key)
		released := map[string]int{}
		for _, kont := range e.konts {
			released[kont.Next.Key()]++
		}
		parents := make([]string, 0, len(released))
		for pk := range released {
			parents = append(parents, pk)
		}
		sort.Strings(parents)
		for _, pk := range parents {
			p := ks.ensure(next, pk)
			if p == nil {
				return ks, fmt.Errorf("kstore: dead address %s names absent parent %s", key, pk)
			}
			delete(p.in, key)
			for i := 0; i < released[pk]; i++ {
				if p.refs <= 0 {
					return ks, fmt.Errorf("kstore: reference count of %s dropped below zero", pk)
				}
				p.refs--
				if p.refs == 0 {
					// Re-enter through the pending queue so the entry is
					// dismantled exactly once.
					p.refs = 1
					pending = append(pending, pk)
				}
			}
		}
	}
	return next, nil
}

// Subsumes reports whether every kont set in other is a subset of the
// corresponding set in ks.
func (ks KStore[E, T, F]) Subsumes(other KStore[E, T, F]) bool {
	for key, oe := range other.entries {
		e, ok := ks.entries[key]
		if !ok {
			return false
		}
		for kk := range oe.konts {
			if _, ok := e.konts[kk]; !ok {
				return false
			}
		}
	}
	return true
}

// Equal reports whether both stores map the same addresses to the same
// kont sets. Reference counts are derived from the kont sets plus the
// current root, so they are not compared.
func (ks KStore[E, T, F]) Equal(other KStore[E, T, F]) bool {
	if len(ks.entries) != len(other.entries) {
		return false
	}
	for key, e := range ks.entries {
		oe, ok := other.entries[key]
		if !ok || len(e.konts) != len(oe.konts) {
			return false
		}
		for kk := range e.konts {
			if _, ok := oe.konts[kk]; !ok {
				return false
			}
		}
	}
	return true
}

// Len returns the number of addresses in the store.
func (ks KStore[E, T, F]) Len() int {
	return len(ks.entries)
}

// Addrs returns every address in the store, in key order.
func (ks KStore[E, T, F]) Addrs() []KontAddr[E, T] {
	keys := make([]string, 0, len(ks.entries))
	for k := range ks.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	addrs := make([]KontAddr[E, T], 0, len(keys))
	for _, k := range keys {
		addrs = append(addrs, ks.entries[k].addr)
	}
	return addrs
}
