package machine

import (
	"sort"
	"strings"
)

// Env maps identifiers to addresses. It is an immutable value: Extend
// returns a fresh environment and the receiver is never modified, so
// environments can be shared freely between states and closures.
//
// Bindings are kept sorted by name and the identity key is computed once at
// construction, making equality a string comparison.
type Env[A Keyed] struct {
	names []string
	addrs []A
	key   string
}

// EmptyEnv returns the environment with no bindings.
func EmptyEnv[A Keyed]() *Env[A] {
	return &Env[A]{}
}

// NewEnv builds an environment from a binding list. Later entries shadow
// earlier ones with the same name.
func NewEnv[A Keyed](entries []EnvEntry[A]) *Env[A] {
	env := EmptyEnv[A]()
	for _, e := range entries {
		env = env.Extend(e.Name, e.Addr)
	}
	return env
}

// EnvEntry is one (identifier, address) pair, as handed over by the
// semantics for the initial environment.
type EnvEntry[A Keyed] struct {
	Name string
	Addr A
}

// Lookup resolves an identifier to its address.
func (e *Env[A]) Lookup(name string) (A, bool) {
	i := sort.SearchStrings(e.names, name)
	if i < len(e.names) && e.names[i] == name {
		return e.addrs[i], true
	}
	var zero A
	return zero, false
}

// Extend returns a new environment with name bound to addr, shadowing any
// previous binding for name.
func (e *Env[A]) Extend(name string, addr A) *Env[A] {
	i := sort.SearchStrings(e.names, name)
	replace := i < len(e.names) && e.names[i] == name

	names := make([]string, 0, len(e.names)+1)
	addrs := make([]A, 0, len(e.addrs)+1)
	names = append(names, e.names[:i]...)
	addrs = append(addrs, e.addrs[:i]...)
	names = append(names, name)
	addrs = append(addrs, addr)
	if replace {
		names = append(names, e.names[i+1:]...)
		addrs = append(addrs, e.addrs[i+1:]...)
	} else {
		names = append(names, e.names[i:]...)
		addrs = append(addrs, e.addrs[i:]...)
	}

	env := &Env[A]{names: names, addrs: addrs}
	env.key = env.computeKey()
	return env
}

// Key returns the identity key of the environment.
func (e *Env[A]) Key() string {
	return e.key
}

func (e *Env[A]) computeKey() string {
	var sb strings.Builder
	for i, name := range e.names {
		if i > 0 {
			sb.WriteByte(';')
		}
		sb.WriteString(name)
		sb.WriteByte('=')
		sb.WriteString(e.addrs[i].Key())
	}
	return sb.String()
}

// Equal reports whether two environments bind the same names to the same
// addresses.
func (e *Env[A]) Equal(other *Env[A]) bool {
	return e.key == other.key
}

// Len returns the number of bindings.
func (e *Env[A]) Len() int {
	return len(e.names)
}
