package fixpoint

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sable/internal/machine"
)

// Small concrete domains for driving the explorer without the full
// language semantics.

type xExpr string

func (e xExpr) Key() string { return string(e) }

type xTime string

func (t xTime) Key() string            { return string(t) }
func (t xTime) Tick() xTime            { return t }
func (t xTime) TickCall(e xExpr) xTime { return xTime(string(t) + "/" + string(e)) }

type xFrame string

func (f xFrame) Key() string { return string(f) }

type xAddr string

func (a xAddr) Key() string { return string(a) }

type xVal struct {
	elems map[string]bool
}

func xval(elems ...string) xVal {
	m := make(map[string]bool, len(elems))
	for _, e := range elems {
		m[e] = true
	}
	return xVal{elems: m}
}

func (v xVal) Join(other xVal) xVal {
	m := make(map[string]bool, len(v.elems)+len(other.elems))
	for e := range v.elems {
		m[e] = true
	}
	for e := range other.elems {
		m[e] = true
	}
	return xVal{elems: m}
}

func (v xVal) Subsumes(other xVal) bool {
	for e := range other.elems {
		if !v.elems[e] {
			return false
		}
	}
	return true
}

type xAction = machine.Action[xExpr, xVal, xAddr, xFrame]
type xState = machine.State[xExpr, xVal, xAddr, xTime, xFrame]

// xSem replays canned actions keyed by expression.
type xSem struct {
	evals map[string][]xAction
}

func (s *xSem) InitialEnv() []machine.EnvEntry[xAddr]           { return nil }
func (s *xSem) InitialStore() []machine.StoreEntry[xAddr, xVal] { return nil }

func (s *xSem) StepEval(e xExpr, env *machine.Env[xAddr], sto machine.Store[xAddr, xVal], t xTime) []xAction {
	return s.evals[string(e)]
}

func (s *xSem) StepKont(v xVal, f xFrame, sto machine.Store[xAddr, xVal], t xTime) []xAction {
	return nil
}

func emptyEnv() *machine.Env[xAddr] {
	return machine.EmptyEnv[xAddr]()
}

func emptyStore() machine.Store[xAddr, xVal] {
	return machine.NewStore[xAddr, xVal](nil)
}

func evalTo(e string) xAction {
	return machine.ActionEval[xExpr, xVal, xAddr, xFrame]{Expr: xExpr(e), Env: emptyEnv(), Store: emptyStore()}
}

func reach(elems ...string) xAction {
	return machine.ActionReachedValue[xExpr, xVal, xAddr, xFrame]{Value: xval(elems...), Store: emptyStore()}
}

func inject(sem *xSem, program string) xState {
	return machine.Inject[xExpr, xVal, xAddr, xTime, xFrame](xExpr(program), sem, xTime("t0"), true)
}

// chainSem is s0 -> s1 -> s2 -> value.
func chainSem() *xSem {
	return &xSem{evals: map[string][]xAction{
		"s0": {evalTo("s1")},
		"s1": {evalTo("s2")},
		"s2": {reach("done")},
	}}
}

// diamondSem branches at s0 and rejoins at j.
func diamondSem() *xSem {
	return &xSem{evals: map[string][]xAction{
		"s0": {evalTo("l"), evalTo("r")},
		"l":  {evalTo("j")},
		"r":  {evalTo("j")},
		"j":  {reach("joined")},
	}}
}

func TestExploreChain(t *testing.T) {
	sem := chainSem()
	res, err := Explore(inject(sem, "s0"), sem, Options{})
	require.NoError(t, err)

	assert.False(t, res.TimedOut)
	require.Len(t, res.Halted, 1)
	assert.True(t, res.Halted[0].Halted())
	assert.Equal(t, 4, res.Visited)
}

func TestExploreDiamond(t *testing.T) {
	sem := diamondSem()
	res, err := Explore(inject(sem, "s0"), sem, Options{})
	require.NoError(t, err)

	// s0, l, r, j, and the halted value state.
	assert.Equal(t, 5, res.Visited)
	assert.Len(t, res.Halted, 1)
}

func TestExploreTerminatesOnCycle(t *testing.T) {
	sem := &xSem{evals: map[string][]xAction{
		"spin": {evalTo("spin")},
	}}
	res, err := Explore(inject(sem, "spin"), sem, Options{})
	require.NoError(t, err)

	assert.Empty(t, res.Halted)
	assert.Equal(t, 1, res.Visited)
	assert.False(t, res.TimedOut)
}

func TestExploreConfluence(t *testing.T) {
	sem := diamondSem()

	lifo, err := Explore(inject(sem, "s0"), sem, Options{Order: LIFO})
	require.NoError(t, err)
	fifo, err := Explore(inject(sem, "s0"), sem, Options{Order: FIFO})
	require.NoError(t, err)

	assert.Equal(t, lifo.Visited, fifo.Visited)
	require.Len(t, fifo.Halted, len(lifo.Halted))
	for i := range lifo.Halted {
		found := false
		for j := range fifo.Halted {
			if lifo.Halted[i].Equal(fifo.Halted[j]) {
				found = true
			}
		}
		assert.True(t, found, "halted state %d missing under FIFO", i)
	}
}

func TestExploreTimeout(t *testing.T) {
	sem := chainSem()
	res, err := Explore(inject(sem, "s0"), sem, Options{Timeout: time.Nanosecond})
	require.NoError(t, err)

	assert.True(t, res.TimedOut)
	assert.LessOrEqual(t, res.Visited, 4)
}

func TestExploreGraph(t *testing.T) {
	sem := diamondSem()
	res, err := Explore(inject(sem, "s0"), sem, Options{Graph: true})
	require.NoError(t, err)

	require.NotNil(t, res.Graph)
	assert.Equal(t, 5, res.Graph.NumNodes())
	// s0->l, s0->r, l->j, r->j, j->halted value.
	assert.Equal(t, 5, res.Graph.NumEdges())
}

func TestExploreGraphDeduplicatesEdges(t *testing.T) {
	sem := &xSem{evals: map[string][]xAction{
		"s0": {evalTo("x"), evalTo("x")},
		"x":  {reach("v")},
	}}
	res, err := Explore(inject(sem, "s0"), sem, Options{Graph: true})
	require.NoError(t, err)

	// The duplicate successor collapses to one node and one edge.
	assert.Equal(t, 3, res.Graph.NumNodes())
	assert.Equal(t, 2, res.Graph.NumEdges())
}

func TestExploreSubsumptionAgreesWithoutIt(t *testing.T) {
	sem := diamondSem()

	plain, err := Explore(inject(sem, "s0"), sem, Options{})
	require.NoError(t, err)
	pruned, err := Explore(inject(sem, "s0"), sem, Options{Subsumption: true})
	require.NoError(t, err)

	require.Len(t, pruned.Halted, len(plain.Halted))
	for i := range plain.Halted {
		found := false
		for j := range pruned.Halted {
			if plain.Halted[i].Equal(pruned.Halted[j]) {
				found = true
			}
		}
		assert.True(t, found)
	}
}
