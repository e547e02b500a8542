package machine

import "fmt"

// Step computes the successor states of s. Eval states step through the
// semantics' StepEval; value states resume every kont stored at the
// current continuation address through StepKont; error states and values
// returned to Halt are terminal and have no successors.
//
// Invariant violations in the continuation store abort the step with an
// error; they indicate a broken semantics, never a property of the
// analyzed program.
func Step[E Keyed, V Value[V], A Keyed, T Time[T, E], F Keyed](
	s State[E, V, A, T, F],
	sem Semantics[E, V, A, T, F],
) ([]State[E, V, A, T, F], error) {
	switch c := s.Control.(type) {
	case ControlEval[E, V, A]:
		actions := sem.StepEval(c.Expr, c.Env, s.Store, s.Time)
		return integrate(s, actions, s.Kont)

	case ControlValue[E, V, A]:
		if s.Kont.IsHalt() {
			return nil, nil
		}
		if !s.KStore.Contains(s.Kont) {
			return nil, fmt.Errorf("machine: continuation address %s missing from kstore", s.Kont.Key())
		}
		var succs []State[E, V, A, T, F]
		for _, kont := range s.KStore.Lookup(s.Kont) {
			actions := sem.StepKont(c.Value, kont.Frame, s.Store, s.Time)
			states, err := integrate(s, actions, kont.Next)
			if err != nil {
				return nil, err
			}
			succs = append(succs, states...)
		}
		return succs, nil

	case ControlError[E, V, A]:
		return nil, nil
	}
	return nil, fmt.Errorf("machine: unknown control %T", s.Control)
}

// integrate translates actions into successor states. top is the
// continuation address the successor resumes at before any push: the
// predecessor's own root for eval steps, the popped kont's parent for kont
// steps. Whenever the successor's root differs from the predecessor's, the
// new root gains a reference before the old one releases its own, so no
// count ever touches zero mid-transition.
func integrate[E Keyed, V Value[V], A Keyed, T Time[T, E], F Keyed](
	s State[E, V, A, T, F],
	actions []Action[E, V, A, F],
	top KontAddr[E, T],
) ([]State[E, V, A, T, F], error) {
	succs := make([]State[E, V, A, T, F], 0, len(actions))
	for _, action := range actions {
		var succ State[E, V, A, T, F]
		root := top
		ks := s.KStore

		switch a := action.(type) {
		case ActionReachedValue[E, V, A, F]:
			succ.Control = ControlValue[E, V, A]{Value: a.Value}
			succ.Store = a.Store
			succ.Time = s.Time.Tick()

		case ActionEval[E, V, A, F]:
			succ.Control = ControlEval[E, V, A]{Expr: a.Expr, Env: a.Env}
			succ.Store = a.Store
			succ.Time = s.Time.Tick()

		case ActionStepIn[E, V, A, F]:
			succ.Control = ControlEval[E, V, A]{Expr: a.Body, Env: a.Env}
			succ.Store = a.Store
			succ.Time = s.Time.TickCall(a.CallSite)

		case ActionError[E, V, A, F]:
			succ.Control = ControlError[E, V, A]{Err: a.Err}
			succ.Store = s.Store
			succ.Time = s.Time.Tick()

		case ActionPush[E, V, A, F]:
			root = NormalKontAddr(a.Expr, s.Time)
			var err error
			ks, err = ks.Extend(root, Kont[E, T, F]{Frame: a.Frame, Next: top})
			if err != nil {
				return nil, err
			}
			succ.Control = ControlEval[E, V, A]{Expr: a.Expr, Env: a.Env}
			succ.Store = a.Store
			succ.Time = s.Time.Tick()

		default:
			return nil, fmt.Errorf("machine: unknown action %T", action)
		}

		if !root.Equal(s.Kont) {
			ks = ks.AddRef(root)
			var err error
			ks, err = ks.DecRef(s.Kont)
			if err != nil {
				return nil, err
			}
		}
		succ.KStore = ks
		succ.Kont = root
		succs = append(succs, succ)
	}
	return succs, nil
}
