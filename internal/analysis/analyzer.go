// Package analysis orchestrates a run: parse the surface syntax, compile
// it to core expressions, inject the initial machine state, explore to the
// fixed point and project the result into a report for the CLI, REPL and
// LSP surfaces.
package analysis

import (
	"sort"
	"time"

	"sable/grammar"
	"sable/internal/ast"
	"sable/internal/errors"
	"sable/internal/fixpoint"
	"sable/internal/graph"
	"sable/internal/machine"
	"sable/internal/semantics"
)

// Analyzer carries the knobs of one analysis configuration.
type Analyzer struct {
	// K is the context-sensitivity depth of the k-CFA timestamps.
	K int
	// IntBound is the widening cardinality of the number domain.
	IntBound int
	// Timeout bounds exploration wall-clock time; zero means unbounded.
	Timeout time.Duration
	// Graph enables transition graph collection.
	Graph bool
	// Subsumption prunes states already covered by a visited state.
	Subsumption bool
	// Order is the worklist discipline.
	Order fixpoint.Order
	// CollectKonts enables continuation store reclamation; disabling it
	// is only useful to cross-check results against the baseline store.
	CollectKonts bool
}

func NewAnalyzer() *Analyzer {
	return &Analyzer{
		K:            1,
		IntBound:     1,
		Subsumption:  true,
		CollectKonts: true,
	}
}

// Report is the projected outcome of one analysis.
type Report struct {
	// FinalValue joins every value the program may halt with.
	FinalValue semantics.Val
	// FinalValues lists the distinct halted values.
	FinalValues []semantics.Val
	// Errors lists the distinct reachable faults, ordered by position.
	Errors []errors.AnalysisError
	// Halted holds the terminal states, for callers that need more than
	// the projection.
	Halted []semantics.State

	States   int
	Elapsed  time.Duration
	TimedOut bool
	Graph    *graph.Graph
}

// AnalyzeSource parses, compiles and analyzes source text. Parse and
// compile errors are returned as the error; reachable abstract faults land
// in the report.
func (a *Analyzer) AnalyzeSource(path, source string) (*Report, error) {
	prog, err := grammar.ParseString(path, source)
	if err != nil {
		return nil, err
	}
	expr, err := ast.CompileProgram(prog)
	if err != nil {
		return nil, err
	}
	return a.AnalyzeExpr(expr)
}

// AnalyzeExpr analyzes an already compiled program.
func (a *Analyzer) AnalyzeExpr(program ast.Expr) (*Report, error) {
	sem := semantics.New(a.K, a.IntBound)
	initial := sem.Inject(program, a.CollectKonts)

	res, err := fixpoint.Explore(initial, sem, fixpoint.Options{
		Timeout:     a.Timeout,
		Graph:       a.Graph,
		Subsumption: a.Subsumption,
		Order:       a.Order,
	})
	if err != nil {
		return nil, err
	}

	report := &Report{
		FinalValue: sem.Lattice().Bottom(),
		Halted:     res.Halted,
		States:     res.Visited,
		Elapsed:    res.Elapsed,
		TimedOut:   res.TimedOut,
		Graph:      res.Graph,
	}

	seen := map[machine.Failure]bool{}
	var fails []machine.Failure
	for _, st := range res.Halted {
		switch c := st.Control.(type) {
		case machine.ControlValue[ast.Expr, semantics.Val, semantics.Addr]:
			report.FinalValues = append(report.FinalValues, c.Value)
			report.FinalValue = report.FinalValue.Join(c.Value)
		case machine.ControlError[ast.Expr, semantics.Val, semantics.Addr]:
			if !seen[c.Err] {
				seen[c.Err] = true
				fails = append(fails, c.Err)
			}
		}
	}

	sort.Slice(fails, func(i, j int) bool {
		if fails[i].Line != fails[j].Line {
			return fails[i].Line < fails[j].Line
		}
		if fails[i].Column != fails[j].Column {
			return fails[i].Column < fails[j].Column
		}
		if fails[i].Code != fails[j].Code {
			return fails[i].Code < fails[j].Code
		}
		return fails[i].Message < fails[j].Message
	})
	for _, f := range fails {
		report.Errors = append(report.Errors, toAnalysisError(f))
	}
	return report, nil
}

// toAnalysisError lifts a machine fault into a structured error, attaching
// the canonical notes and help text for its code.
func toAnalysisError(f machine.Failure) errors.AnalysisError {
	pos := ast.Position{Filename: f.File, Line: f.Line, Column: f.Column}
	b := errors.New(f.Code, f.Message, pos)
	switch f.Code {
	case errors.ErrorUnboundVariable:
		b.WithHelp("every variable must be introduced by lambda, let, letrec or define")
	case errors.ErrorUninitializedVariable:
		b.WithNote("letrec bindings are only usable once their defining expression has been evaluated")
	case errors.ErrorNotAProcedure:
		b.WithHelp("only closures and primitives can appear in operator position")
	case errors.ErrorDivisionByZero:
		b.WithNote("the abstract denominator includes zero")
	}
	return b.Build()
}
