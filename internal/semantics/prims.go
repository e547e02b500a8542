package semantics

import (
	"sable/internal/ast"
	"sable/internal/errors"
	"sable/internal/machine"
)

// prim is a primitive procedure. Application returns the result value, the
// possibly extended store, and the faults the application may raise; a
// primitive whose abstract arguments admit both a result and a fault
// reports both.
type prim struct {
	name  string
	arity int // -1 means variadic
	apply func(s *Scheme, args []Val, sto Store, t Time, callSite *ast.App) (Val, Store, []machine.Failure)
}

func primTable() map[string]*prim {
	table := map[string]*prim{}
	add := func(p *prim) { table[p.name] = p }

	add(&prim{name: "+", arity: -1, apply: func(s *Scheme, args []Val, sto Store, t Time, cs *ast.App) (Val, Store, []machine.Failure) {
		v, fails := s.foldArith("+", s.lat.Number(0), args, cs.Pos(), func(a, b int64) int64 { return a + b })
		return v, sto, fails
	}})
	add(&prim{name: "*", arity: -1, apply: func(s *Scheme, args []Val, sto Store, t Time, cs *ast.App) (Val, Store, []machine.Failure) {
		v, fails := s.foldArith("*", s.lat.Number(1), args, cs.Pos(), func(a, b int64) int64 { return a * b })
		return v, sto, fails
	}})
	add(&prim{name: "-", arity: -1, apply: func(s *Scheme, args []Val, sto Store, t Time, cs *ast.App) (Val, Store, []machine.Failure) {
		if len(args) == 0 {
			return s.lat.Bottom(), sto, []machine.Failure{failure(errors.ErrorArityMismatch,
				"procedure expects at least 1 argument, got 0", cs.Pos())}
		}
		if len(args) == 1 {
			v, fails := s.numBinop("-", s.lat.Number(0), args[0], cs.Pos(), func(a, b int64) int64 { return a - b })
			return v, sto, fails
		}
		v, fails := s.foldArith("-", args[0], args[1:], cs.Pos(), func(a, b int64) int64 { return a - b })
		return v, sto, fails
	}})
	add(&prim{name: "/", arity: 2, apply: func(s *Scheme, args []Val, sto Store, t Time, cs *ast.App) (Val, Store, []machine.Failure) {
		v, fails := s.divLike("/", args[0], args[1], cs.Pos(), func(a, b int64) int64 { return a / b })
		return v, sto, fails
	}})
	add(&prim{name: "quotient", arity: 2, apply: func(s *Scheme, args []Val, sto Store, t Time, cs *ast.App) (Val, Store, []machine.Failure) {
		v, fails := s.divLike("quotient", args[0], args[1], cs.Pos(), func(a, b int64) int64 { return a / b })
		return v, sto, fails
	}})
	add(&prim{name: "modulo", arity: 2, apply: func(s *Scheme, args []Val, sto Store, t Time, cs *ast.App) (Val, Store, []machine.Failure) {
		v, fails := s.divLike("modulo", args[0], args[1], cs.Pos(), func(a, b int64) int64 { return a % b })
		return v, sto, fails
	}})

	add(&prim{name: "<", arity: 2, apply: cmpPrim("<", func(a, b int64) bool { return a < b })})
	add(&prim{name: "<=", arity: 2, apply: cmpPrim("<=", func(a, b int64) bool { return a <= b })})
	add(&prim{name: ">", arity: 2, apply: cmpPrim(">", func(a, b int64) bool { return a > b })})
	add(&prim{name: ">=", arity: 2, apply: cmpPrim(">=", func(a, b int64) bool { return a >= b })})
	add(&prim{name: "=", arity: 2, apply: cmpPrim("=", func(a, b int64) bool { return a == b })})

	add(&prim{name: "cons", arity: 2, apply: func(s *Scheme, args []Val, sto Store, t Time, cs *ast.App) (Val, Store, []machine.Failure) {
		car := CarAddr(cs, t)
		cdr := CdrAddr(cs, t)
		sto = sto.Extend(car, args[0])
		sto = sto.Extend(cdr, args[1])
		return s.lat.Cons(car, cdr), sto, nil
	}})
	add(&prim{name: "car", arity: 1, apply: func(s *Scheme, args []Val, sto Store, t Time, cs *ast.App) (Val, Store, []machine.Failure) {
		return s.pairAccess("car", args[0], sto, cs.Pos(), true)
	}})
	add(&prim{name: "cdr", arity: 1, apply: func(s *Scheme, args []Val, sto Store, t Time, cs *ast.App) (Val, Store, []machine.Failure) {
		return s.pairAccess("cdr", args[0], sto, cs.Pos(), false)
	}})

	add(&prim{name: "null?", arity: 1, apply: predicate(func(v Val) (bool, bool) {
		return v.HasNull(), v.HasNonNull()
	})})
	add(&prim{name: "pair?", arity: 1, apply: predicate(func(v Val) (bool, bool) {
		return v.HasPair(), v.HasNonPair()
	})})
	add(&prim{name: "number?", arity: 1, apply: predicate(func(v Val) (bool, bool) {
		return v.HasNumber(), v.HasNonNumber()
	})})
	add(&prim{name: "boolean?", arity: 1, apply: predicate(func(v Val) (bool, bool) {
		return v.HasBool(), v.HasNonBool()
	})})
	add(&prim{name: "symbol?", arity: 1, apply: predicate(func(v Val) (bool, bool) {
		return len(v.Symbols()) > 0, v.HasNonSymbol()
	})})
	add(&prim{name: "string?", arity: 1, apply: predicate(func(v Val) (bool, bool) {
		return len(v.Strings()) > 0, v.HasNonString()
	})})
	add(&prim{name: "procedure?", arity: 1, apply: predicate(func(v Val) (bool, bool) {
		return v.HasProcedure(), v.HasNonProcedure()
	})})

	add(&prim{name: "zero?", arity: 1, apply: func(s *Scheme, args []Val, sto Store, t Time, cs *ast.App) (Val, Store, []machine.Failure) {
		v := args[0]
		var fails []machine.Failure
		if v.HasNonNumber() {
			fails = append(fails, failure(errors.ErrorTypeMismatch,
				"zero? expects a number, got "+v.String(), cs.Pos()))
		}
		res := s.lat.Bottom()
		nums, top := v.Numbers()
		if top {
			res = res.Join(s.lat.AnyBool())
		}
		for _, n := range nums {
			res = res.Join(s.lat.Bool(n == 0))
		}
		return res, sto, fails
	}})

	add(&prim{name: "not", arity: 1, apply: func(s *Scheme, args []Val, sto Store, t Time, cs *ast.App) (Val, Store, []machine.Failure) {
		res := s.lat.Bottom()
		if args[0].MayBeFalse() {
			res = res.Join(s.lat.Bool(true))
		}
		if args[0].MayBeTrue() {
			res = res.Join(s.lat.Bool(false))
		}
		return res, sto, nil
	}})

	add(&prim{name: "eq?", arity: 2, apply: func(s *Scheme, args []Val, sto Store, t Time, cs *ast.App) (Val, Store, []machine.Failure) {
		// Identity on abstract values is not decidable in general, so the
		// result is both booleans whenever both sides are inhabited.
		if args[0].IsBottom() || args[1].IsBottom() {
			return s.lat.Bottom(), sto, nil
		}
		return s.lat.AnyBool(), sto, nil
	}})

	return table
}

// foldArith folds op over the arguments starting from acc.
func (s *Scheme) foldArith(name string, acc Val, args []Val, pos ast.Position, op func(a, b int64) int64) (Val, []machine.Failure) {
	var fails []machine.Failure
	for _, arg := range args {
		var fs []machine.Failure
		acc, fs = s.numBinop(name, acc, arg, pos, op)
		fails = append(fails, fs...)
	}
	return acc, fails
}

// numBinop combines two abstract numbers pointwise, widening to the
// abstract integer when either side is already abstract. Non-number
// inhabitants raise a type fault without suppressing the numeric result.
func (s *Scheme) numBinop(name string, a, b Val, pos ast.Position, op func(x, y int64) int64) (Val, []machine.Failure) {
	var fails []machine.Failure
	if a.HasNonNumber() {
		fails = append(fails, failure(errors.ErrorTypeMismatch,
			name+" expects a number, got "+a.String(), pos))
	}
	if b.HasNonNumber() {
		fails = append(fails, failure(errors.ErrorTypeMismatch,
			name+" expects a number, got "+b.String(), pos))
	}
	as, atop := a.Numbers()
	bs, btop := b.Numbers()
	if !a.HasNumber() || !b.HasNumber() {
		return s.lat.Bottom(), fails
	}
	if atop || btop {
		return s.lat.AnyNumber(), fails
	}
	res := s.lat.Bottom()
	for _, x := range as {
		for _, y := range bs {
			res = res.Join(s.lat.Number(op(x, y)))
		}
	}
	return res, fails
}

// divLike is numBinop with a zero check on the divisor.
func (s *Scheme) divLike(name string, a, b Val, pos ast.Position, op func(x, y int64) int64) (Val, []machine.Failure) {
	var fails []machine.Failure
	if a.HasNonNumber() {
		fails = append(fails, failure(errors.ErrorTypeMismatch,
			name+" expects a number, got "+a.String(), pos))
	}
	if b.HasNonNumber() {
		fails = append(fails, failure(errors.ErrorTypeMismatch,
			name+" expects a number, got "+b.String(), pos))
	}
	as, atop := a.Numbers()
	bs, btop := b.Numbers()
	if !a.HasNumber() || !b.HasNumber() {
		return s.lat.Bottom(), fails
	}
	if btop {
		fails = append(fails, failure(errors.ErrorDivisionByZero,
			"division by a value that may be zero", pos))
		return s.lat.AnyNumber(), fails
	}
	res := s.lat.Bottom()
	for _, y := range bs {
		if y == 0 {
			fails = append(fails, failure(errors.ErrorDivisionByZero,
				"division by a value that may be zero", pos))
			continue
		}
		if atop {
			res = res.Join(s.lat.AnyNumber())
			continue
		}
		for _, x := range as {
			res = res.Join(s.lat.Number(op(x, y)))
		}
	}
	return res, fails
}

// pairAccess implements car and cdr: the join over the relevant cell of
// every pair inhabitant, with a fault for every non-pair inhabitant.
func (s *Scheme) pairAccess(name string, v Val, sto Store, pos ast.Position, car bool) (Val, Store, []machine.Failure) {
	var fails []machine.Failure
	if v.HasNonPair() {
		fails = append(fails, failure(errors.ErrorNotAPair,
			name+" expects a pair, got "+v.String(), pos))
	}
	res := s.lat.Bottom()
	for _, p := range v.Pairs() {
		addr := p.Cdr
		if car {
			addr = p.Car
		}
		if cell, ok := sto.Lookup(addr); ok {
			res = res.Join(cell)
		}
	}
	return res, sto, fails
}

// cmpPrim builds a numeric comparison primitive.
func cmpPrim(name string, op func(a, b int64) bool) func(*Scheme, []Val, Store, Time, *ast.App) (Val, Store, []machine.Failure) {
	return func(s *Scheme, args []Val, sto Store, t Time, cs *ast.App) (Val, Store, []machine.Failure) {
		a, b := args[0], args[1]
		var fails []machine.Failure
		if a.HasNonNumber() {
			fails = append(fails, failure(errors.ErrorTypeMismatch,
				name+" expects a number, got "+a.String(), cs.Pos()))
		}
		if b.HasNonNumber() {
			fails = append(fails, failure(errors.ErrorTypeMismatch,
				name+" expects a number, got "+b.String(), cs.Pos()))
		}
		as, atop := a.Numbers()
		bs, btop := b.Numbers()
		if !a.HasNumber() || !b.HasNumber() {
			return s.lat.Bottom(), sto, fails
		}
		if atop || btop {
			return s.lat.AnyBool(), sto, fails
		}
		res := s.lat.Bottom()
		for _, x := range as {
			for _, y := range bs {
				res = res.Join(s.lat.Bool(op(x, y)))
			}
		}
		return res, sto, fails
	}
}

// predicate builds a one-argument type predicate from a pair of
// may-be-yes / may-be-no tests.
func predicate(test func(v Val) (yes, no bool)) func(*Scheme, []Val, Store, Time, *ast.App) (Val, Store, []machine.Failure) {
	return func(s *Scheme, args []Val, sto Store, t Time, cs *ast.App) (Val, Store, []machine.Failure) {
		yes, no := test(args[0])
		res := s.lat.Bottom()
		if yes {
			res = res.Join(s.lat.Bool(true))
		}
		if no {
			res = res.Join(s.lat.Bool(false))
		}
		return res, sto, nil
	}
}
