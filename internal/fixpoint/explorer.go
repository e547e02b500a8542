// Package fixpoint drives the abstract machine to a least fixed point: a
// worklist exploration of the reachable state space with a visited set,
// optional subsumption pruning, an optional transition graph and a
// wall-clock timeout.
package fixpoint

import (
	"fmt"
	"time"

	"sable/internal/graph"
	"sable/internal/machine"
)

// Order selects the worklist discipline. The fixpoint is confluent, so the
// halted set and visited count do not depend on it; the test suite checks
// exactly that.
type Order int

const (
	LIFO Order = iota
	FIFO
)

// Options configures one exploration.
type Options struct {
	// Timeout bounds wall-clock time; zero means unbounded. The flag is
	// checked at the top of every iteration, so a timed-out result is
	// still well-formed, just partial.
	Timeout time.Duration

	// Graph enables collection of the transition graph.
	Graph bool

	// Subsumption prunes states that some already-visited state subsumes.
	Subsumption bool

	Order Order
}

// Result is the outcome of an exploration.
type Result[E machine.Keyed, V machine.Value[V], A machine.Keyed, T machine.Time[T, E], F machine.Keyed] struct {
	Halted   []machine.State[E, V, A, T, F]
	Visited  int
	Elapsed  time.Duration
	TimedOut bool
	Graph    *graph.Graph
}

// entry interns one distinct state, so worklist membership, the visited
// set and graph node identity all agree on which states are the same.
type entry[E machine.Keyed, V machine.Value[V], A machine.Keyed, T machine.Time[T, E], F machine.Keyed] struct {
	state   machine.State[E, V, A, T, F]
	node    int
	visited bool
}

type explorer[E machine.Keyed, V machine.Value[V], A machine.Keyed, T machine.Time[T, E], F machine.Keyed] struct {
	sem     machine.Semantics[E, V, A, T, F]
	opts    Options
	buckets map[string][]*entry[E, V, A, T, F]
	graph   *graph.Graph
}

// Explore runs the worklist loop from the initial state until the worklist
// drains or the timeout fires. An error is only returned on an invariant
// violation inside the machine.
func Explore[E machine.Keyed, V machine.Value[V], A machine.Keyed, T machine.Time[T, E], F machine.Keyed](
	initial machine.State[E, V, A, T, F],
	sem machine.Semantics[E, V, A, T, F],
	opts Options,
) (Result[E, V, A, T, F], error) {
	x := &explorer[E, V, A, T, F]{
		sem:     sem,
		opts:    opts,
		buckets: map[string][]*entry[E, V, A, T, F]{},
	}
	if opts.Graph {
		x.graph = graph.New()
	}

	var res Result[E, V, A, T, F]
	start := time.Now()
	worklist := []*entry[E, V, A, T, F]{x.intern(initial)}

	for len(worklist) > 0 {
		if opts.Timeout > 0 && time.Since(start) >= opts.Timeout {
			res.TimedOut = true
			break
		}

		var e *entry[E, V, A, T, F]
		if opts.Order == FIFO {
			e = worklist[0]
			worklist = worklist[1:]
		} else {
			e = worklist[len(worklist)-1]
			worklist = worklist[:len(worklist)-1]
		}

		if e.visited {
			continue
		}
		if opts.Subsumption && x.subsumed(e) {
			continue
		}

		e.visited = true
		res.Visited++

		if e.state.Halted() {
			res.Halted = append(res.Halted, e.state)
			if x.graph != nil {
				x.graph.SetKind(e.node, haltedKind(e.state))
			}
			continue
		}

		succs, err := machine.Step(e.state, x.sem)
		if err != nil {
			return res, fmt.Errorf("fixpoint: %w", err)
		}
		for _, succ := range succs {
			se := x.intern(succ)
			if x.graph != nil {
				x.graph.AddEdge(e.node, se.node)
			}
			if !se.visited {
				worklist = append(worklist, se)
			}
		}
	}

	res.Elapsed = time.Since(start)
	res.Graph = x.graph
	return res, nil
}

// intern returns the canonical entry for a state, creating it (and its
// graph node) on first sight.
func (x *explorer[E, V, A, T, F]) intern(s machine.State[E, V, A, T, F]) *entry[E, V, A, T, F] {
	key := s.Key()
	for _, e := range x.buckets[key] {
		if e.state.Equal(s) {
			return e
		}
	}
	e := &entry[E, V, A, T, F]{state: s, node: -1}
	if x.graph != nil {
		e.node = x.graph.AddNode(stateLabel(s), stateKind(s))
	}
	x.buckets[key] = append(x.buckets[key], e)
	return e
}

// subsumed reports whether some visited state in the same bucket subsumes
// s. Buckets are keyed by continuation address, time and control shape, so
// only states that can subsume s are scanned.
func (x *explorer[E, V, A, T, F]) subsumed(e *entry[E, V, A, T, F]) bool {
	for _, other := range x.buckets[e.state.Key()] {
		if other != e && other.visited && other.state.Subsumes(e.state) {
			return true
		}
	}
	return false
}

func stateKind[E machine.Keyed, V machine.Value[V], A machine.Keyed, T machine.Time[T, E], F machine.Keyed](
	s machine.State[E, V, A, T, F],
) graph.Kind {
	switch s.Control.(type) {
	case machine.ControlEval[E, V, A]:
		return graph.KindEval
	case machine.ControlError[E, V, A]:
		return graph.KindError
	}
	return graph.KindKont
}

func haltedKind[E machine.Keyed, V machine.Value[V], A machine.Keyed, T machine.Time[T, E], F machine.Keyed](
	s machine.State[E, V, A, T, F],
) graph.Kind {
	if _, ok := s.Control.(machine.ControlError[E, V, A]); ok {
		return graph.KindError
	}
	return graph.KindHaltedKont
}

func stateLabel[E machine.Keyed, V machine.Value[V], A machine.Keyed, T machine.Time[T, E], F machine.Keyed](
	s machine.State[E, V, A, T, F],
) string {
	switch c := s.Control.(type) {
	case machine.ControlEval[E, V, A]:
		return fmt.Sprintf("ev %v", c.Expr)
	case machine.ControlValue[E, V, A]:
		return fmt.Sprintf("ko %v", c.Value)
	case machine.ControlError[E, V, A]:
		return fmt.Sprintf("error %s", c.Err.Code)
	}
	return "?"
}
