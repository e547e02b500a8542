package machine

// State is the machine configuration: control, value store, continuation
// store, current continuation address and timestamp. States are immutable
// once constructed.
type State[E Keyed, V Value[V], A Keyed, T Time[T, E], F Keyed] struct {
	Control Control[E, V, A]
	Store   Store[A, V]
	KStore  KStore[E, T, F]
	Kont    KontAddr[E, T]
	Time    T
}

// Inject builds the initial state for a program: the program under
// evaluation in the semantics' initial environment and store, rooted at
// Halt. The continuation store starts with Halt holding one reference.
func Inject[E Keyed, V Value[V], A Keyed, T Time[T, E], F Keyed](
	program E,
	sem Semantics[E, V, A, T, F],
	t0 T,
	collect bool,
) State[E, V, A, T, F] {
	ks := NewKStore[E, T, F]()
	if !collect {
		ks = NewUncollectedKStore[E, T, F]()
	}
	halt := HaltAddr[E, T]()
	return State[E, V, A, T, F]{
		Control: ControlEval[E, V, A]{Expr: program, Env: NewEnv(sem.InitialEnv())},
		Store:   NewStore(sem.InitialStore()),
		KStore:  ks.AddRef(halt),
		Kont:    halt,
		Time:    t0,
	}
}

// Halted reports whether the state is terminal: a value returned to Halt,
// or a fault.
func (s State[E, V, A, T, F]) Halted() bool {
	switch s.Control.(type) {
	case ControlValue[E, V, A]:
		return s.Kont.IsHalt()
	case ControlError[E, V, A]:
		return true
	}
	return false
}

// Key is a coarse bucketing identity: states with different keys are never
// equal, states with the same key are compared with Equal.
func (s State[E, V, A, T, F]) Key() string {
	return s.Kont.Key() + "#" + s.Time.Key() + "#" + controlKey(s.Control)
}

// Equal is structural equality over all five components.
func (s State[E, V, A, T, F]) Equal(other State[E, V, A, T, F]) bool {
	return s.Kont.Equal(other.Kont) &&
		s.Time.Key() == other.Time.Key() &&
		controlEqual(s.Control, other.Control) &&
		s.Store.Equal(other.Store) &&
		s.KStore.Equal(other.KStore)
}

// Subsumes reports component-wise subsumption: same continuation address
// and time, and control, store and continuation store each carrying at
// least as much information as other's.
func (s State[E, V, A, T, F]) Subsumes(other State[E, V, A, T, F]) bool {
	return s.Kont.Equal(other.Kont) &&
		s.Time.Key() == other.Time.Key() &&
		controlSubsumes(s.Control, other.Control) &&
		s.Store.Subsumes(other.Store) &&
		s.KStore.Subsumes(other.KStore)
}
