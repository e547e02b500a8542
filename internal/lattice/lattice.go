// Package lattice provides the default abstract value domain: a product of
// small set domains for numbers, booleans, strings, symbols, the empty
// list, the unspecified value, closures, pairs and primitives. Numbers
// widen to an abstract top once a set outgrows the configured cardinality,
// which is what bounds the domain for programs doing unbounded arithmetic.
//
// The domain is generic over the address type so the machine's sharing of
// pair cells through the value store carries over unchanged.
package lattice

import (
	"fmt"
	"sort"
	"strings"

	"sable/internal/ast"
	"sable/internal/machine"
)

// Closure is a lambda paired with its definition environment.
type Closure[A machine.Keyed] struct {
	Lam *ast.Lam
	Env *machine.Env[A]
}

func (c Closure[A]) Key() string {
	return c.Lam.Key() + "|" + c.Env.Key()
}

// Pair holds the store addresses of a cons cell.
type Pair[A machine.Keyed] struct {
	Car A
	Cdr A
}

func (p Pair[A]) Key() string {
	return p.Car.Key() + "." + p.Cdr.Key()
}

// Lattice carries the domain configuration and injects concrete values.
type Lattice[A machine.Keyed] struct {
	// IntBound is the widening cardinality for number sets: a set that
	// would exceed it collapses to the abstract integer. Zero widens
	// immediately, so every number is abstract.
	IntBound int
}

func New[A machine.Keyed](intBound int) *Lattice[A] {
	return &Lattice[A]{IntBound: intBound}
}

// Value is one element of the domain. The zero Value is bottom.
type Value[A machine.Keyed] struct {
	bound  int
	intTop bool
	ints   []int64 // sorted, deduplicated
	hasF   bool
	hasT   bool
	strs   []string // sorted, deduplicated
	syms   []string // sorted, deduplicated
	null   bool
	unspec bool
	clos   []Closure[A] // sorted by key
	pairs  []Pair[A]    // sorted by key
	prims  []string     // sorted
}

func (l *Lattice[A]) Bottom() Value[A] {
	return Value[A]{bound: l.IntBound}
}

func (l *Lattice[A]) Number(n int64) Value[A] {
	v := l.Bottom()
	if l.IntBound < 1 {
		v.intTop = true
		return v
	}
	v.ints = []int64{n}
	return v
}

// AnyNumber is the abstract integer: every number at once.
func (l *Lattice[A]) AnyNumber() Value[A] {
	v := l.Bottom()
	v.intTop = true
	return v
}

func (l *Lattice[A]) Bool(b bool) Value[A] {
	v := l.Bottom()
	v.hasT = b
	v.hasF = !b
	return v
}

// AnyBool is both booleans at once.
func (l *Lattice[A]) AnyBool() Value[A] {
	v := l.Bottom()
	v.hasT = true
	v.hasF = true
	return v
}

func (l *Lattice[A]) String(s string) Value[A] {
	v := l.Bottom()
	v.strs = []string{s}
	return v
}

func (l *Lattice[A]) Symbol(s string) Value[A] {
	v := l.Bottom()
	v.syms = []string{s}
	return v
}

func (l *Lattice[A]) Null() Value[A] {
	v := l.Bottom()
	v.null = true
	return v
}

func (l *Lattice[A]) Unspecified() Value[A] {
	v := l.Bottom()
	v.unspec = true
	return v
}

func (l *Lattice[A]) Close(lam *ast.Lam, env *machine.Env[A]) Value[A] {
	v := l.Bottom()
	v.clos = []Closure[A]{{Lam: lam, Env: env}}
	return v
}

func (l *Lattice[A]) Prim(name string) Value[A] {
	v := l.Bottom()
	v.prims = []string{name}
	return v
}

func (l *Lattice[A]) Cons(car, cdr A) Value[A] {
	v := l.Bottom()
	v.pairs = []Pair[A]{{Car: car, Cdr: cdr}}
	return v
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func mergeInt64s(a, b []int64) []int64 {
	out := make([]int64, 0, len(a)+len(b))
	out = append(out, a...)
	for _, n := range b {
		i := sort.Search(len(out), func(i int) bool { return out[i] >= n })
		if i < len(out) && out[i] == n {
			continue
		}
		out = append(out, 0)
		copy(out[i+1:], out[i:])
		out[i] = n
	}
	return out
}

func mergeStrings(a, b []string) []string {
	out := make([]string, 0, len(a)+len(b))
	out = append(out, a...)
	for _, s := range b {
		i := sort.SearchStrings(out, s)
		if i < len(out) && out[i] == s {
			continue
		}
		out = append(out, "")
		copy(out[i+1:], out[i:])
		out[i] = s
	}
	return out
}

func mergeKeyed[K machine.Keyed](a, b []K) []K {
	out := make([]K, 0, len(a)+len(b))
	out = append(out, a...)
	for _, k := range b {
		key := k.Key()
		i := sort.Search(len(out), func(i int) bool { return out[i].Key() >= key })
		if i < len(out) && out[i].Key() == key {
			continue
		}
		var zero K
		out = append(out, zero)
		copy(out[i+1:], out[i:])
		out[i] = k
	}
	return out
}

// Join is the least upper bound.
func (v Value[A]) Join(other Value[A]) Value[A] {
	out := Value[A]{bound: maxInt(v.bound, other.bound)}
	out.intTop = v.intTop || other.intTop
	if !out.intTop {
		out.ints = mergeInt64s(v.ints, other.ints)
		if len(out.ints) > out.bound {
			out.intTop = true
			out.ints = nil
		}
	}
	out.hasT = v.hasT || other.hasT
	out.hasF = v.hasF || other.hasF
	out.strs = mergeStrings(v.strs, other.strs)
	out.syms = mergeStrings(v.syms, other.syms)
	out.null = v.null || other.null
	out.unspec = v.unspec || other.unspec
	out.clos = mergeKeyed(v.clos, other.clos)
	out.pairs = mergeKeyed(v.pairs, other.pairs)
	out.prims = mergeStrings(v.prims, other.prims)
	return out
}

func subsetInt64s(sub, sup []int64) bool {
	for _, n := range sub {
		i := sort.Search(len(sup), func(i int) bool { return sup[i] >= n })
		if i >= len(sup) || sup[i] != n {
			return false
		}
	}
	return true
}

func subsetStrings(sub, sup []string) bool {
	for _, s := range sub {
		i := sort.SearchStrings(sup, s)
		if i >= len(sup) || sup[i] != s {
			return false
		}
	}
	return true
}

func subsetKeyed[K machine.Keyed](sub, sup []K) bool {
	for _, k := range sub {
		key := k.Key()
		i := sort.Search(len(sup), func(i int) bool { return sup[i].Key() >= key })
		if i >= len(sup) || sup[i].Key() != key {
			return false
		}
	}
	return true
}

// Subsumes reports v ⊒ other.
func (v Value[A]) Subsumes(other Value[A]) bool {
	if other.intTop && !v.intTop {
		return false
	}
	if !v.intTop && !subsetInt64s(other.ints, v.ints) {
		return false
	}
	if (other.hasT && !v.hasT) || (other.hasF && !v.hasF) {
		return false
	}
	if (other.null && !v.null) || (other.unspec && !v.unspec) {
		return false
	}
	return subsetStrings(other.strs, v.strs) &&
		subsetStrings(other.syms, v.syms) &&
		subsetKeyed(other.clos, v.clos) &&
		subsetKeyed(other.pairs, v.pairs) &&
		subsetStrings(other.prims, v.prims)
}

func (v Value[A]) Equal(other Value[A]) bool {
	return v.Subsumes(other) && other.Subsumes(v)
}

func (v Value[A]) IsBottom() bool {
	return !v.intTop && len(v.ints) == 0 && !v.hasT && !v.hasF &&
		len(v.strs) == 0 && len(v.syms) == 0 && !v.null && !v.unspec &&
		len(v.clos) == 0 && len(v.pairs) == 0 && len(v.prims) == 0
}

// MayBeTrue reports whether the value has an inhabitant other than #f.
func (v Value[A]) MayBeTrue() bool {
	return v.intTop || len(v.ints) > 0 || v.hasT ||
		len(v.strs) > 0 || len(v.syms) > 0 || v.null || v.unspec ||
		len(v.clos) > 0 || len(v.pairs) > 0 || len(v.prims) > 0
}

// MayBeFalse reports whether #f is an inhabitant.
func (v Value[A]) MayBeFalse() bool {
	return v.hasF
}

// Numbers returns the concrete number set and whether the component is the
// abstract integer instead.
func (v Value[A]) Numbers() ([]int64, bool) {
	return v.ints, v.intTop
}

func (v Value[A]) HasNumber() bool {
	return v.intTop || len(v.ints) > 0
}

func (v Value[A]) HasTrue() bool  { return v.hasT }
func (v Value[A]) HasFalse() bool { return v.hasF }
func (v Value[A]) HasBool() bool  { return v.hasT || v.hasF }

func (v Value[A]) Strings() []string { return v.strs }
func (v Value[A]) Symbols() []string { return v.syms }
func (v Value[A]) HasNull() bool     { return v.null }
func (v Value[A]) HasUnspec() bool   { return v.unspec }

func (v Value[A]) Closures() []Closure[A] { return v.clos }
func (v Value[A]) Pairs() []Pair[A]       { return v.pairs }
func (v Value[A]) Prims() []string        { return v.prims }

func (v Value[A]) HasPair() bool { return len(v.pairs) > 0 }

func (v Value[A]) HasProcedure() bool {
	return len(v.clos) > 0 || len(v.prims) > 0
}

// HasNonNumber reports an inhabitant outside the number component.
func (v Value[A]) HasNonNumber() bool {
	return v.hasT || v.hasF || len(v.strs) > 0 || len(v.syms) > 0 ||
		v.null || v.unspec || len(v.clos) > 0 || len(v.pairs) > 0 || len(v.prims) > 0
}

// HasNonPair reports an inhabitant outside the pair component.
func (v Value[A]) HasNonPair() bool {
	return v.intTop || len(v.ints) > 0 || v.hasT || v.hasF ||
		len(v.strs) > 0 || len(v.syms) > 0 || v.null || v.unspec ||
		len(v.clos) > 0 || len(v.prims) > 0
}

// HasNonNull reports an inhabitant other than the empty list.
func (v Value[A]) HasNonNull() bool {
	return v.intTop || len(v.ints) > 0 || v.hasT || v.hasF ||
		len(v.strs) > 0 || len(v.syms) > 0 || v.unspec ||
		len(v.clos) > 0 || len(v.pairs) > 0 || len(v.prims) > 0
}

// HasNonBool reports an inhabitant outside the boolean component.
func (v Value[A]) HasNonBool() bool {
	return v.intTop || len(v.ints) > 0 || len(v.strs) > 0 || len(v.syms) > 0 ||
		v.null || v.unspec || len(v.clos) > 0 || len(v.pairs) > 0 || len(v.prims) > 0
}

// HasNonSymbol reports an inhabitant outside the symbol component.
func (v Value[A]) HasNonSymbol() bool {
	return v.intTop || len(v.ints) > 0 || v.hasT || v.hasF || len(v.strs) > 0 ||
		v.null || v.unspec || len(v.clos) > 0 || len(v.pairs) > 0 || len(v.prims) > 0
}

// HasNonString reports an inhabitant outside the string component.
func (v Value[A]) HasNonString() bool {
	return v.intTop || len(v.ints) > 0 || v.hasT || v.hasF || len(v.syms) > 0 ||
		v.null || v.unspec || len(v.clos) > 0 || len(v.pairs) > 0 || len(v.prims) > 0
}

// HasNonProcedure reports an inhabitant that cannot be applied.
func (v Value[A]) HasNonProcedure() bool {
	return v.intTop || len(v.ints) > 0 || v.hasT || v.hasF ||
		len(v.strs) > 0 || len(v.syms) > 0 || v.null || v.unspec || len(v.pairs) > 0
}

// Key is the canonical identity of the value, used when values end up
// inside continuation frames.
func (v Value[A]) Key() string {
	var sb strings.Builder
	if v.intTop {
		sb.WriteString("i:top;")
	} else if len(v.ints) > 0 {
		sb.WriteString("i:")
		for _, n := range v.ints {
			fmt.Fprintf(&sb, "%d,", n)
		}
		sb.WriteByte(';')
	}
	if v.hasT {
		sb.WriteString("t;")
	}
	if v.hasF {
		sb.WriteString("f;")
	}
	for _, s := range v.strs {
		fmt.Fprintf(&sb, "s:%q;", s)
	}
	for _, s := range v.syms {
		fmt.Fprintf(&sb, "y:%s;", s)
	}
	if v.null {
		sb.WriteString("nil;")
	}
	if v.unspec {
		sb.WriteString("unspec;")
	}
	for _, c := range v.clos {
		fmt.Fprintf(&sb, "c:%s;", c.Key())
	}
	for _, p := range v.pairs {
		fmt.Fprintf(&sb, "p:%s;", p.Key())
	}
	for _, p := range v.prims {
		fmt.Fprintf(&sb, "#%s;", p)
	}
	return sb.String()
}

// String renders the value for reports and graph labels.
func (v Value[A]) String() string {
	var parts []string
	if v.intTop {
		parts = append(parts, "number")
	} else {
		for _, n := range v.ints {
			parts = append(parts, fmt.Sprintf("%d", n))
		}
	}
	if v.hasT {
		parts = append(parts, "#t")
	}
	if v.hasF {
		parts = append(parts, "#f")
	}
	for _, s := range v.strs {
		parts = append(parts, fmt.Sprintf("%q", s))
	}
	for _, s := range v.syms {
		parts = append(parts, "'"+s)
	}
	if v.null {
		parts = append(parts, "()")
	}
	if v.unspec {
		parts = append(parts, "#<unspecified>")
	}
	for range v.clos {
		parts = append(parts, "#<procedure>")
	}
	for range v.pairs {
		parts = append(parts, "#<pair>")
	}
	for _, p := range v.prims {
		parts = append(parts, "#<prim:"+p+">")
	}
	if len(parts) == 0 {
		return "#<bottom>"
	}
	if len(parts) == 1 {
		return parts[0]
	}
	return "{" + strings.Join(parts, " ") + "}"
}
