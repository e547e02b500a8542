package analysis

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sable/grammar"
	"sable/internal/ast"
	"sable/internal/errors"
	"sable/internal/fixpoint"
	"sable/internal/machine"
	"sable/internal/semantics"
)

func analyze(t *testing.T, src string, tweak func(*Analyzer)) *Report {
	t.Helper()
	a := NewAnalyzer()
	if tweak != nil {
		tweak(a)
	}
	report, err := a.AnalyzeSource("test.scm", src)
	require.NoError(t, err)
	return report
}

func haltAddr() machine.KontAddr[ast.Expr, semantics.Time] {
	return machine.HaltAddr[ast.Expr, semantics.Time]()
}

func TestIdentityApplication(t *testing.T) {
	report := analyze(t, `((lambda (x) x) 42)`, nil)

	assert.Empty(t, report.Errors)
	require.Len(t, report.FinalValues, 1)
	nums, top := report.FinalValue.Numbers()
	assert.False(t, top)
	assert.Equal(t, []int64{42}, nums)
	assert.Greater(t, report.States, 1)

	// Halt survives with exactly one reference at the fixed point.
	for _, st := range report.Halted {
		assert.True(t, st.KStore.Contains(haltAddr()))
		assert.Equal(t, 1, st.KStore.Refs(haltAddr()))
	}
}

func TestLetBinding(t *testing.T) {
	report := analyze(t, `(let ((y 1)) y)`, nil)

	assert.Empty(t, report.Errors)
	nums, top := report.FinalValue.Numbers()
	assert.False(t, top)
	assert.Equal(t, []int64{1}, nums)

	// Every pushed continuation has been reclaimed on the way out.
	require.NotEmpty(t, report.Halted)
	for _, st := range report.Halted {
		assert.Equal(t, 1, st.KStore.Len(), "only Halt should remain")
	}
}

func TestConditionalBothBranches(t *testing.T) {
	// With the number domain widened immediately, the comparison result is
	// both booleans and both branches are reachable.
	report := analyze(t, `(let ((x 5)) (if (< x 0) 1 2))`, func(a *Analyzer) {
		a.IntBound = 0
	})

	assert.Empty(t, report.Errors)
	_, top := report.FinalValue.Numbers()
	assert.True(t, top, "the joined result summarizes both branches")
	assert.GreaterOrEqual(t, report.States, 2)
}

func TestFactorialReachesFixpoint(t *testing.T) {
	report := analyze(t, `
		(letrec ((fact (lambda (n)
		                 (if (= n 0)
		                     1
		                     (* n (fact (- n 1)))))))
		  (fact 5))`, nil)

	// The bounded number lattice forces both branches; the exploration
	// must terminate with at least one terminal state.
	assert.NotEmpty(t, report.Halted)
	assert.True(t, report.FinalValue.HasNumber())
	assert.False(t, report.TimedOut)
}

func TestCarOfEmptyListIsAnError(t *testing.T) {
	report := analyze(t, `(car '())`, nil)

	assert.Empty(t, report.FinalValues, "no non-error halting value")
	require.Len(t, report.Errors, 1)
	assert.Equal(t, errors.ErrorNotAPair, report.Errors[0].Code)
	assert.Equal(t, 1, report.Errors[0].Position.Line)
}

func TestTailLoopKeepsKontStoreSmall(t *testing.T) {
	report := analyze(t, `
		(letrec ((loop (lambda (n)
		                 (if (= n 0)
		                     42
		                     (loop (- n 1))))))
		  (loop 10))`, nil)

	assert.NotEmpty(t, report.Halted)
	// Reclamation keeps the continuation store bounded by the loop shape,
	// not by the iteration count.
	for _, st := range report.Halted {
		assert.LessOrEqual(t, st.KStore.Len(), 6)
	}
}

func TestUnboundVariableReported(t *testing.T) {
	report := analyze(t, `(+ x 1)`, nil)

	require.Len(t, report.Errors, 1)
	assert.Equal(t, errors.ErrorUnboundVariable, report.Errors[0].Code)
	assert.Contains(t, report.Errors[0].Message, "x")
	assert.NotEmpty(t, report.Errors[0].HelpText)
}

func TestDefineDesugarsToLetrec(t *testing.T) {
	report := analyze(t, `
		(define (double n) (* n 2))
		(double 4)`, nil)

	assert.Empty(t, report.Errors)
	nums, top := report.FinalValue.Numbers()
	assert.False(t, top)
	assert.Equal(t, []int64{8}, nums)
}

func TestQuotedListBuildsPairs(t *testing.T) {
	report := analyze(t, `(car '(1 2))`, nil)

	assert.Empty(t, report.Errors)
	nums, _ := report.FinalValue.Numbers()
	assert.Equal(t, []int64{1}, nums)
}

func TestSetBang(t *testing.T) {
	report := analyze(t, `(let ((x 1)) (begin (set! x 2) x))`, nil)

	assert.Empty(t, report.Errors)
	// The store only grows, so x holds the join of both assignments.
	assert.True(t, report.FinalValue.HasNumber())
}

func TestCollectingAgreesWithBaseline(t *testing.T) {
	src := `
		(letrec ((loop (lambda (n)
		                 (if (= n 0)
		                     'done
		                     (loop (- n 1))))))
		  (loop 3))`

	collected := analyze(t, src, nil)
	baseline := analyze(t, src, func(a *Analyzer) { a.CollectKonts = false })

	assert.True(t, collected.FinalValue.Equal(baseline.FinalValue),
		"reclamation must not change the halted values")
	assert.Equal(t, len(collected.Errors), len(baseline.Errors))
}

func TestWorklistOrderConfluence(t *testing.T) {
	src := `(let ((x 5)) (if (< x 0) (+ x 1) (- x 1)))`

	lifo := analyze(t, src, func(a *Analyzer) {
		a.IntBound = 0
		a.Subsumption = false
		a.Order = fixpoint.LIFO
	})
	fifo := analyze(t, src, func(a *Analyzer) {
		a.IntBound = 0
		a.Subsumption = false
		a.Order = fixpoint.FIFO
	})

	assert.True(t, lifo.FinalValue.Equal(fifo.FinalValue))
	assert.Equal(t, lifo.States, fifo.States)
}

func TestSubsumptionToggleAgrees(t *testing.T) {
	src := `
		(letrec ((count (lambda (n)
		                  (if (= n 0) 0 (count (- n 1))))))
		  (count 4))`

	with := analyze(t, src, func(a *Analyzer) { a.Subsumption = true })
	without := analyze(t, src, func(a *Analyzer) { a.Subsumption = false })

	assert.True(t, with.FinalValue.Equal(without.FinalValue))
	assert.Equal(t, len(with.Errors), len(without.Errors))
}

func TestTimeoutReturnsPartialResult(t *testing.T) {
	report := analyze(t, `
		(letrec ((fact (lambda (n)
		                 (if (= n 0) 1 (* n (fact (- n 1)))))))
		  (fact 20))`, func(a *Analyzer) {
		a.Timeout = time.Nanosecond
	})

	assert.True(t, report.TimedOut)
}

func TestGraphCollection(t *testing.T) {
	report := analyze(t, `((lambda (x) x) 1)`, func(a *Analyzer) {
		a.Graph = true
	})

	require.NotNil(t, report.Graph)
	assert.Greater(t, report.Graph.NumNodes(), 1)
	assert.Greater(t, report.Graph.NumEdges(), 0)
	assert.GreaterOrEqual(t, report.Graph.NumNodes(), report.States,
		"every visited state appears in the graph")
}

func TestParseErrorSurfacesAsError(t *testing.T) {
	a := NewAnalyzer()
	_, err := a.AnalyzeSource("test.scm", `(let ((x 1)`)
	assert.Error(t, err)
}

func TestCompileErrorSurfacesAsError(t *testing.T) {
	a := NewAnalyzer()
	_, err := a.AnalyzeSource("test.scm", `(lambda (1) x)`)
	require.Error(t, err)
	_, ok := err.(*ast.CompileError)
	assert.True(t, ok)
}

func TestStoreGrowsMonotonically(t *testing.T) {
	// Each visited state's store must subsume its predecessor's along
	// every edge; the halted stores therefore subsume the initial one.
	report := analyze(t, `(let ((x 1)) (+ x 1))`, nil)

	sem := semantics.New(1, 1)
	initial := sem.Inject(mustCompile(t, `(let ((x 1)) (+ x 1))`), true)
	for _, st := range report.Halted {
		assert.True(t, st.Store.Subsumes(initial.Store))
	}
}

func mustCompile(t *testing.T, src string) ast.Expr {
	t.Helper()
	prog, err := grammar.ParseString("test.scm", src)
	require.NoError(t, err)
	expr, err := ast.CompileProgram(prog)
	require.NoError(t, err)
	return expr
}
