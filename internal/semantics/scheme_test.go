package semantics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sable/grammar"
	"sable/internal/ast"
	"sable/internal/errors"
	"sable/internal/machine"
)

func compile(t *testing.T, src string) ast.Expr {
	t.Helper()
	prog, err := grammar.ParseString("test.scm", src)
	require.NoError(t, err)
	expr, err := ast.CompileProgram(prog)
	require.NoError(t, err)
	return expr
}

func emptyEnv() *Env {
	return machine.EmptyEnv[Addr]()
}

func emptyStore() Store {
	return machine.NewStore[Addr, Val](nil)
}

func TestStepEvalLiteral(t *testing.T) {
	s := New(1, 4)
	actions := s.StepEval(compile(t, "42"), emptyEnv(), emptyStore(), s.InitialTime())

	require.Len(t, actions, 1)
	rv, ok := actions[0].(machine.ActionReachedValue[ast.Expr, Val, Addr, Frame])
	require.True(t, ok)
	nums, top := rv.Value.Numbers()
	assert.False(t, top)
	assert.Equal(t, []int64{42}, nums)
}

func TestStepEvalUnboundVariable(t *testing.T) {
	s := New(1, 4)
	actions := s.StepEval(compile(t, "x"), emptyEnv(), emptyStore(), s.InitialTime())

	require.Len(t, actions, 1)
	ea, ok := actions[0].(machine.ActionError[ast.Expr, Val, Addr, Frame])
	require.True(t, ok)
	assert.Equal(t, errors.ErrorUnboundVariable, ea.Err.Code)
	assert.Equal(t, 1, ea.Err.Line)
}

func TestStepEvalLambdaClosesOverEnv(t *testing.T) {
	s := New(1, 4)
	env := emptyEnv().Extend("y", VarAddr("y", s.InitialTime()))
	actions := s.StepEval(compile(t, "(lambda (x) x)"), env, emptyStore(), s.InitialTime())

	require.Len(t, actions, 1)
	rv := actions[0].(machine.ActionReachedValue[ast.Expr, Val, Addr, Frame])
	clos := rv.Value.Closures()
	require.Len(t, clos, 1)
	assert.Equal(t, []string{"x"}, clos[0].Lam.Params)
	assert.True(t, clos[0].Env.Equal(env))
}

func TestStepEvalIfPushesFrame(t *testing.T) {
	s := New(1, 4)
	actions := s.StepEval(compile(t, "(if #t 1 2)"), emptyEnv(), emptyStore(), s.InitialTime())

	require.Len(t, actions, 1)
	push, ok := actions[0].(machine.ActionPush[ast.Expr, Val, Addr, Frame])
	require.True(t, ok)
	_, ok = push.Frame.(FrameIf)
	assert.True(t, ok)
}

func TestStepKontIfBothBranches(t *testing.T) {
	s := New(1, 4)
	ifExpr := compile(t, "(if c 1 2)").(*ast.If)
	frame := FrameIf{Cons: ifExpr.Cons, Alt: ifExpr.Alt, Env: emptyEnv()}

	actions := s.StepKont(s.lat.AnyBool(), frame, emptyStore(), s.InitialTime())
	assert.Len(t, actions, 2)

	actions = s.StepKont(s.lat.Bool(true), frame, emptyStore(), s.InitialTime())
	require.Len(t, actions, 1)
	ev := actions[0].(machine.ActionEval[ast.Expr, Val, Addr, Frame])
	assert.Equal(t, ifExpr.Cons.Key(), ev.Expr.Key())

	actions = s.StepKont(s.lat.Bool(false), frame, emptyStore(), s.InitialTime())
	require.Len(t, actions, 1)
	ev = actions[0].(machine.ActionEval[ast.Expr, Val, Addr, Frame])
	assert.Equal(t, ifExpr.Alt.Key(), ev.Expr.Key())
}

func TestApplyClosureBindsParams(t *testing.T) {
	s := New(1, 4)
	lam := compile(t, "(lambda (x) x)").(*ast.Lam)
	callSite := compile(t, "(f 1)").(*ast.App)

	fn := s.lat.Close(lam, emptyEnv())
	actions := s.applyProc(fn, []Val{s.lat.Number(7)}, emptyStore(), s.InitialTime(), callSite)

	require.Len(t, actions, 1)
	in, ok := actions[0].(machine.ActionStepIn[ast.Expr, Val, Addr, Frame])
	require.True(t, ok)
	assert.Equal(t, lam.Body.Key(), in.Body.Key())

	addr, ok := in.Env.Lookup("x")
	require.True(t, ok)
	bound, ok := in.Store.Lookup(addr)
	require.True(t, ok)
	nums, _ := bound.Numbers()
	assert.Equal(t, []int64{7}, nums)
}

func TestApplyArityMismatch(t *testing.T) {
	s := New(1, 4)
	lam := compile(t, "(lambda (x y) x)").(*ast.Lam)
	callSite := compile(t, "(f 1)").(*ast.App)

	fn := s.lat.Close(lam, emptyEnv())
	actions := s.applyProc(fn, []Val{s.lat.Number(1)}, emptyStore(), s.InitialTime(), callSite)

	require.Len(t, actions, 1)
	ea := actions[0].(machine.ActionError[ast.Expr, Val, Addr, Frame])
	assert.Equal(t, errors.ErrorArityMismatch, ea.Err.Code)
}

func TestApplyNonProcedure(t *testing.T) {
	s := New(1, 4)
	callSite := compile(t, "(f 1)").(*ast.App)

	actions := s.applyProc(s.lat.Number(3), []Val{s.lat.Number(1)}, emptyStore(), s.InitialTime(), callSite)

	require.Len(t, actions, 1)
	ea := actions[0].(machine.ActionError[ast.Expr, Val, Addr, Frame])
	assert.Equal(t, errors.ErrorNotAProcedure, ea.Err.Code)
}

func TestPrimAddition(t *testing.T) {
	s := New(1, 4)
	callSite := compile(t, "(+ 1 2)").(*ast.App)

	actions := s.applyProc(s.lat.Prim("+"), []Val{s.lat.Number(1), s.lat.Number(2)}, emptyStore(), s.InitialTime(), callSite)

	require.Len(t, actions, 1)
	rv := actions[0].(machine.ActionReachedValue[ast.Expr, Val, Addr, Frame])
	nums, _ := rv.Value.Numbers()
	assert.Equal(t, []int64{3}, nums)
}

func TestPrimAdditionWidens(t *testing.T) {
	s := New(1, 4)
	callSite := compile(t, "(+ n 2)").(*ast.App)

	actions := s.applyProc(s.lat.Prim("+"), []Val{s.lat.AnyNumber(), s.lat.Number(2)}, emptyStore(), s.InitialTime(), callSite)

	require.Len(t, actions, 1)
	rv := actions[0].(machine.ActionReachedValue[ast.Expr, Val, Addr, Frame])
	_, top := rv.Value.Numbers()
	assert.True(t, top)
}

func TestPrimDivisionByZero(t *testing.T) {
	s := New(1, 4)
	callSite := compile(t, "(/ 1 0)").(*ast.App)

	actions := s.applyProc(s.lat.Prim("/"), []Val{s.lat.Number(1), s.lat.Number(0)}, emptyStore(), s.InitialTime(), callSite)

	require.Len(t, actions, 1)
	ea, ok := actions[0].(machine.ActionError[ast.Expr, Val, Addr, Frame])
	require.True(t, ok)
	assert.Equal(t, errors.ErrorDivisionByZero, ea.Err.Code)
}

func TestPrimDivisionMayFailMayReturn(t *testing.T) {
	s := New(1, 4)
	callSite := compile(t, "(/ 6 d)").(*ast.App)

	divisor := s.lat.Number(0).Join(s.lat.Number(2))
	actions := s.applyProc(s.lat.Prim("/"), []Val{s.lat.Number(6), divisor}, emptyStore(), s.InitialTime(), callSite)

	// Both outcomes are reachable: the fault and the quotient.
	require.Len(t, actions, 2)
	var sawError, sawValue bool
	for _, a := range actions {
		switch a := a.(type) {
		case machine.ActionError[ast.Expr, Val, Addr, Frame]:
			sawError = true
			assert.Equal(t, errors.ErrorDivisionByZero, a.Err.Code)
		case machine.ActionReachedValue[ast.Expr, Val, Addr, Frame]:
			sawValue = true
			nums, _ := a.Value.Numbers()
			assert.Equal(t, []int64{3}, nums)
		}
	}
	assert.True(t, sawError)
	assert.True(t, sawValue)
}

func TestPrimCarOfNull(t *testing.T) {
	s := New(1, 4)
	callSite := compile(t, "(car x)").(*ast.App)

	actions := s.applyProc(s.lat.Prim("car"), []Val{s.lat.Null()}, emptyStore(), s.InitialTime(), callSite)

	require.Len(t, actions, 1)
	ea := actions[0].(machine.ActionError[ast.Expr, Val, Addr, Frame])
	assert.Equal(t, errors.ErrorNotAPair, ea.Err.Code)
}

func TestPrimConsCarRoundtrip(t *testing.T) {
	s := New(1, 4)
	consSite := compile(t, "(cons 1 2)").(*ast.App)
	carSite := compile(t, "(car p)").(*ast.App)
	t0 := s.InitialTime()

	actions := s.applyProc(s.lat.Prim("cons"), []Val{s.lat.Number(1), s.lat.Number(2)}, emptyStore(), t0, consSite)
	require.Len(t, actions, 1)
	rv := actions[0].(machine.ActionReachedValue[ast.Expr, Val, Addr, Frame])
	require.True(t, rv.Value.HasPair())

	actions = s.applyProc(s.lat.Prim("car"), []Val{rv.Value}, rv.Store, t0, carSite)
	require.Len(t, actions, 1)
	car := actions[0].(machine.ActionReachedValue[ast.Expr, Val, Addr, Frame])
	nums, _ := car.Value.Numbers()
	assert.Equal(t, []int64{1}, nums)
}

func TestTimeTickCallBounded(t *testing.T) {
	call1 := compile(t, "(f 1)")
	call2 := compile(t, "(g 2)")

	t1 := InitialTime(1)
	ticked := t1.TickCall(call1)
	assert.NotEqual(t, t1.Key(), ticked.Key())

	again := ticked.TickCall(call2)
	assert.Equal(t, again.Key(), again.TickCall(call2).Key(), "k=1 keeps only the last call site")

	// k=0 is context-insensitive: the clock never moves.
	t0 := InitialTime(0)
	assert.Equal(t, t0.Key(), t0.TickCall(call1).Key())
}

func TestInitialBindingsCoverPrims(t *testing.T) {
	s := New(1, 4)
	env := machine.NewEnv(s.InitialEnv())
	sto := machine.NewStore(s.InitialStore())

	for _, name := range []string{"+", "car", "cons", "null?"} {
		addr, ok := env.Lookup(name)
		require.True(t, ok, "prim %s must be bound", name)
		v, ok := sto.Lookup(addr)
		require.True(t, ok)
		assert.Contains(t, v.Prims(), name)
	}
}
