// Package machine implements the abstract CESK machine at the core of the
// analyzer: environments, the value store, the reference-counted
// continuation store, machine states and the action integrator that builds
// successor states. The package is polymorphic over the expression, value,
// address, time and frame domains; the concrete Scheme instantiation lives
// in internal/semantics.
package machine

import "fmt"

// Keyed is the identity constraint shared by expressions, addresses and
// frames: Key returns a string that is stable for the lifetime of a run and
// equal exactly for equal entities. All machine-level maps and sets key on
// it, which keeps the core independent of how the domains are represented.
type Keyed interface {
	Key() string
}

// Value constrains the abstract value domain to a join-semilattice.
// Subsumes is the lattice order: v.Subsumes(w) holds when v carries at
// least as much information as w.
type Value[V any] interface {
	Join(other V) V
	Subsumes(other V) bool
}

// Time constrains the abstract timestamp domain. Tick advances the clock on
// an ordinary transition; TickCall advances it through a function call,
// which is where context-sensitive policies record the call site.
type Time[T, E any] interface {
	Keyed
	Tick() T
	TickCall(callSite E) T
}

// Failure is the payload of an Error control: a coded, positioned fault
// surfaced by the semantics. It is a plain comparable value so error states
// can be deduplicated.
type Failure struct {
	Code    string
	Message string
	File    string
	Line    int
	Column  int
}

func (f Failure) String() string {
	return fmt.Sprintf("%s:%d:%d: [%s] %s", f.File, f.Line, f.Column, f.Code, f.Message)
}
