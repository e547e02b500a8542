// Package semantics defines the analyzed language: a small Scheme given as
// a step relation over the abstract machine's actions. The machine itself
// never inspects expressions or values; everything language-specific lives
// here.
package semantics

import (
	"fmt"

	"sable/internal/ast"
	"sable/internal/errors"
	"sable/internal/lattice"
	"sable/internal/machine"
)

// Action, Store and Kont aliases at our domain instantiation.
type Action = machine.Action[ast.Expr, Val, Addr, Frame]
type Store = machine.Store[Addr, Val]
type State = machine.State[ast.Expr, Val, Addr, Time, Frame]

// Scheme is the semantics, configured with the context-sensitivity depth k
// and the number-widening cardinality of the value lattice.
type Scheme struct {
	k     int
	lat   *lattice.Lattice[Addr]
	prims map[string]*prim
}

func New(k, intBound int) *Scheme {
	s := &Scheme{
		k:   k,
		lat: lattice.New[Addr](intBound),
	}
	s.prims = primTable()
	return s
}

// Lattice exposes the configured value lattice, mainly so reports can
// join final values.
func (s *Scheme) Lattice() *lattice.Lattice[Addr] {
	return s.lat
}

func (s *Scheme) InitialTime() Time {
	return InitialTime(s.k)
}

// Inject builds the initial machine state for a program.
func (s *Scheme) Inject(program ast.Expr, collect bool) State {
	return machine.Inject[ast.Expr, Val, Addr, Time, Frame](program, s, s.InitialTime(), collect)
}

func (s *Scheme) InitialEnv() []machine.EnvEntry[Addr] {
	entries := make([]machine.EnvEntry[Addr], 0, len(s.prims))
	for name := range s.prims {
		entries = append(entries, machine.EnvEntry[Addr]{Name: name, Addr: PrimAddr(name)})
	}
	return entries
}

func (s *Scheme) InitialStore() []machine.StoreEntry[Addr, Val] {
	entries := make([]machine.StoreEntry[Addr, Val], 0, len(s.prims))
	for name := range s.prims {
		entries = append(entries, machine.StoreEntry[Addr, Val]{Addr: PrimAddr(name), Val: s.lat.Prim(name)})
	}
	return entries
}

func failure(code, message string, pos ast.Position) machine.Failure {
	return machine.Failure{
		Code:    code,
		Message: message,
		File:    pos.Filename,
		Line:    pos.Line,
		Column:  pos.Column,
	}
}

func reached(v Val, sto Store) Action {
	return machine.ActionReachedValue[ast.Expr, Val, Addr, Frame]{Value: v, Store: sto}
}

func evalAction(e ast.Expr, env *Env, sto Store) Action {
	return machine.ActionEval[ast.Expr, Val, Addr, Frame]{Expr: e, Env: env, Store: sto}
}

func pushAction(f Frame, e ast.Expr, env *Env, sto Store) Action {
	return machine.ActionPush[ast.Expr, Val, Addr, Frame]{Frame: f, Expr: e, Env: env, Store: sto}
}

func errAction(f machine.Failure) Action {
	return machine.ActionError[ast.Expr, Val, Addr, Frame]{Err: f}
}

// StepEval relates an evaluation point to its actions.
func (s *Scheme) StepEval(expr ast.Expr, env *Env, sto Store, t Time) []Action {
	switch e := expr.(type) {
	case *ast.Var:
		addr, ok := env.Lookup(e.Name)
		if !ok {
			return []Action{errAction(failure(errors.ErrorUnboundVariable,
				"unbound variable '"+e.Name+"'", e.Pos()))}
		}
		v, ok := sto.Lookup(addr)
		if !ok {
			return []Action{errAction(failure(errors.ErrorUninitializedVariable,
				"variable '"+e.Name+"' may be read before it is initialized", e.Pos()))}
		}
		return []Action{reached(v, sto)}

	case *ast.Lit:
		return []Action{reached(s.literal(e), sto)}

	case *ast.Lam:
		return []Action{reached(s.lat.Close(e, env), sto)}

	case *ast.If:
		return []Action{pushAction(FrameIf{Cons: e.Cons, Alt: e.Alt, Env: env}, e.Cond, env, sto)}

	case *ast.App:
		return []Action{pushAction(FrameOperator{CallSite: e, Env: env}, e.Fn, env, sto)}

	case *ast.Let:
		if len(e.Bindings) == 0 {
			return []Action{evalAction(e.Body, env, sto)}
		}
		first := e.Bindings[0]
		frame := FrameLet{Name: first.Name, Rest: e.Bindings[1:], Body: e.Body, Env: env}
		return []Action{pushAction(frame, first.Expr, env, sto)}

	case *ast.Letrec:
		if len(e.Bindings) == 0 {
			return []Action{evalAction(e.Body, env, sto)}
		}
		// Pre-extend the environment with every binding so the defining
		// expressions can refer to each other; the store stays untouched
		// until each value arrives.
		env2 := env
		addrs := make([]Addr, len(e.Bindings))
		for i, b := range e.Bindings {
			addrs[i] = VarAddr(b.Name, t)
			env2 = env2.Extend(b.Name, addrs[i])
		}
		frame := FrameLetrec{Addr: addrs[0], Addrs: addrs[1:], Rest: e.Bindings[1:], Body: e.Body, Env: env2}
		return []Action{pushAction(frame, e.Bindings[0].Expr, env2, sto)}

	case *ast.Begin:
		if len(e.Exprs) == 1 {
			return []Action{evalAction(e.Exprs[0], env, sto)}
		}
		return []Action{pushAction(FrameBegin{Rest: e.Exprs[1:], Env: env}, e.Exprs[0], env, sto)}

	case *ast.Set:
		addr, ok := env.Lookup(e.Name)
		if !ok {
			return []Action{errAction(failure(errors.ErrorUnboundVariable,
				"unbound variable '"+e.Name+"'", e.Pos()))}
		}
		return []Action{pushAction(FrameSet{Addr: addr}, e.Expr, env, sto)}
	}
	return nil
}

// StepKont relates a returned value and a pending frame to its actions.
func (s *Scheme) StepKont(v Val, frame Frame, sto Store, t Time) []Action {
	switch f := frame.(type) {
	case FrameIf:
		var actions []Action
		if v.MayBeTrue() {
			actions = append(actions, evalAction(f.Cons, f.Env, sto))
		}
		if v.MayBeFalse() {
			actions = append(actions, evalAction(f.Alt, f.Env, sto))
		}
		return actions

	case FrameOperator:
		if len(f.CallSite.Args) == 0 {
			return s.applyProc(v, nil, sto, t, f.CallSite)
		}
		frame := FrameOperands{CallSite: f.CallSite, Fn: v, Rest: f.CallSite.Args[1:], Env: f.Env}
		return []Action{pushAction(frame, f.CallSite.Args[0], f.Env, sto)}

	case FrameOperands:
		done := append(append([]Val{}, f.Done...), v)
		if len(f.Rest) > 0 {
			frame := FrameOperands{CallSite: f.CallSite, Fn: f.Fn, Done: done, Rest: f.Rest[1:], Env: f.Env}
			return []Action{pushAction(frame, f.Rest[0], f.Env, sto)}
		}
		return s.applyProc(f.Fn, done, sto, t, f.CallSite)

	case FrameLet:
		addr := VarAddr(f.Name, t)
		sto2 := sto.Extend(addr, v)
		bound := append(append([]BoundVar{}, f.Bound...), BoundVar{Name: f.Name, Addr: addr})
		if len(f.Rest) == 0 {
			env2 := f.Env
			for _, b := range bound {
				env2 = env2.Extend(b.Name, b.Addr)
			}
			return []Action{evalAction(f.Body, env2, sto2)}
		}
		next := f.Rest[0]
		frame := FrameLet{Name: next.Name, Bound: bound, Rest: f.Rest[1:], Body: f.Body, Env: f.Env}
		return []Action{pushAction(frame, next.Expr, f.Env, sto2)}

	case FrameLetrec:
		sto2 := sto.Extend(f.Addr, v)
		if len(f.Rest) == 0 {
			return []Action{evalAction(f.Body, f.Env, sto2)}
		}
		frame := FrameLetrec{Addr: f.Addrs[0], Addrs: f.Addrs[1:], Rest: f.Rest[1:], Body: f.Body, Env: f.Env}
		return []Action{pushAction(frame, f.Rest[0].Expr, f.Env, sto2)}

	case FrameBegin:
		if len(f.Rest) == 1 {
			return []Action{evalAction(f.Rest[0], f.Env, sto)}
		}
		return []Action{pushAction(FrameBegin{Rest: f.Rest[1:], Env: f.Env}, f.Rest[0], f.Env, sto)}

	case FrameSet:
		sto2 := sto.Extend(f.Addr, v)
		return []Action{reached(s.lat.Unspecified(), sto2)}
	}
	return nil
}

func (s *Scheme) literal(e *ast.Lit) Val {
	switch e.Kind {
	case ast.LitNumber:
		return s.lat.Number(e.Num)
	case ast.LitBool:
		return s.lat.Bool(e.Bool)
	case ast.LitString:
		return s.lat.String(e.Str)
	case ast.LitSymbol:
		return s.lat.Symbol(e.Str)
	case ast.LitNil:
		return s.lat.Null()
	}
	return s.lat.Unspecified()
}

// applyProc applies an operator value: one StepIn per closure, one result
// per primitive, and an error action for any non-applicable component.
func (s *Scheme) applyProc(fn Val, args []Val, sto Store, t Time, callSite *ast.App) []Action {
	var actions []Action

	for _, clo := range fn.Closures() {
		if len(clo.Lam.Params) != len(args) {
			actions = append(actions, errAction(failure(errors.ErrorArityMismatch,
				arityMessage(len(clo.Lam.Params), len(args)), callSite.Pos())))
			continue
		}
		env := clo.Env
		sto2 := sto
		for i, param := range clo.Lam.Params {
			addr := VarAddr(param, t)
			env = env.Extend(param, addr)
			sto2 = sto2.Extend(addr, args[i])
		}
		actions = append(actions, machine.ActionStepIn[ast.Expr, Val, Addr, Frame]{
			CallSite: callSite,
			Closure:  s.lat.Close(clo.Lam, clo.Env),
			Body:     clo.Lam.Body,
			Env:      env,
			Store:    sto2,
			Args:     args,
		})
	}

	for _, name := range fn.Prims() {
		p := s.prims[name]
		if p.arity >= 0 && len(args) != p.arity {
			actions = append(actions, errAction(failure(errors.ErrorArityMismatch,
				arityMessage(p.arity, len(args)), callSite.Pos())))
			continue
		}
		res, sto2, fails := p.apply(s, args, sto, t, callSite)
		for _, f := range fails {
			actions = append(actions, errAction(f))
		}
		if !res.IsBottom() {
			actions = append(actions, reached(res, sto2))
		}
	}

	if fn.HasNonProcedure() {
		actions = append(actions, errAction(failure(errors.ErrorNotAProcedure,
			"cannot apply "+fn.String(), callSite.Pos())))
	}

	return actions
}

func arityMessage(want, got int) string {
	return fmt.Sprintf("procedure expects %d arguments, got %d", want, got)
}
