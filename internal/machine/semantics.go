package machine

// Semantics is the interface the machine consumes: a definition of the
// language being analyzed. StepEval relates an evaluation point to its
// actions, StepKont relates a returned value and a pending frame to its
// actions. Both receive the current store and timestamp; neither ever sees
// the continuation store, which the integrator manages on its own.
type Semantics[E Keyed, V Value[V], A Keyed, T Time[T, E], F Keyed] interface {
	InitialEnv() []EnvEntry[A]
	InitialStore() []StoreEntry[A, V]
	StepEval(expr E, env *Env[A], store Store[A, V], t T) []Action[E, V, A, F]
	StepKont(value V, frame F, store Store[A, V], t T) []Action[E, V, A, F]
}
