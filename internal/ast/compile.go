package ast

import (
	"fmt"
	"strconv"
	"strings"

	"sable/grammar"

	"github.com/alecthomas/participle/v2/lexer"
)

// CompileError reports a malformed special form with its source position.
type CompileError struct {
	Position Position
	Message  string
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("%s: %s", e.Position, e.Message)
}

// compiler turns reader datums into core expressions, assigning each node a
// fresh id so expression keys are unique within one program.
type compiler struct {
	nextID int
}

// CompileProgram compiles a parsed program into a single core expression.
// Top-level defines become a letrec around the remaining expressions.
func CompileProgram(prog *grammar.Program) (Expr, error) {
	c := &compiler{}
	if len(prog.Datums) == 0 {
		return nil, &CompileError{Message: "empty program"}
	}
	return c.compileBody(prog.Datums, position(prog.Datums[0].Pos))
}

func position(pos lexer.Position) Position {
	return Position{Filename: pos.Filename, Line: pos.Line, Column: pos.Column}
}

func (c *compiler) id() int {
	c.nextID++
	return c.nextID
}

func (c *compiler) compile(d *grammar.Datum) (Expr, error) {
	pos := position(d.Pos)
	switch {
	case d.Quoted != nil:
		return c.compileQuoted(d.Quoted, pos)
	case d.Number != nil:
		n, err := strconv.ParseInt(*d.Number, 10, 64)
		if err != nil {
			return nil, &CompileError{Position: pos, Message: "number out of range"}
		}
		return &Lit{Kind: LitNumber, Num: n, P: pos, id: c.id()}, nil
	case d.Bool != nil:
		return &Lit{Kind: LitBool, Bool: *d.Bool == "#t", P: pos, id: c.id()}, nil
	case d.Str != nil:
		return &Lit{Kind: LitString, Str: unquoteString(*d.Str), P: pos, id: c.id()}, nil
	case d.Symbol != nil:
		return &Var{Name: *d.Symbol, P: pos, id: c.id()}, nil
	case d.List != nil:
		return c.compileList(d.List, pos)
	}
	return nil, &CompileError{Position: pos, Message: "unrecognized datum"}
}

func (c *compiler) compileList(l *grammar.List, pos Position) (Expr, error) {
	if len(l.Items) == 0 {
		return &Lit{Kind: LitNil, P: pos, id: c.id()}, nil
	}

	if head := l.Items[0].Symbol; head != nil {
		switch *head {
		case "lambda":
			return c.compileLambda(l, pos)
		case "if":
			return c.compileIf(l, pos)
		case "let":
			return c.compileLet(l, pos, false)
		case "letrec":
			return c.compileLet(l, pos, true)
		case "begin":
			if len(l.Items) < 2 {
				return nil, &CompileError{Position: pos, Message: "begin needs at least one expression"}
			}
			return c.compileBody(l.Items[1:], pos)
		case "set!":
			return c.compileSet(l, pos)
		case "quote":
			if len(l.Items) != 2 {
				return nil, &CompileError{Position: pos, Message: "quote takes exactly one datum"}
			}
			return c.compileQuoted(l.Items[1], pos)
		case "define":
			return nil, &CompileError{Position: pos, Message: "define is only allowed at the start of a body"}
		}
	}

	fn, err := c.compile(l.Items[0])
	if err != nil {
		return nil, err
	}
	args := make([]Expr, 0, len(l.Items)-1)
	for _, item := range l.Items[1:] {
		arg, err := c.compile(item)
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
	}
	return &App{Fn: fn, Args: args, P: pos, id: c.id()}, nil
}

func (c *compiler) compileLambda(l *grammar.List, pos Position) (Expr, error) {
	if len(l.Items) < 3 {
		return nil, &CompileError{Position: pos, Message: "lambda needs a parameter list and a body"}
	}
	if l.Items[1].List == nil {
		return nil, &CompileError{Position: pos, Message: "lambda parameters must be a list of symbols"}
	}
	params := make([]string, 0, len(l.Items[1].List.Items))
	for _, p := range l.Items[1].List.Items {
		if p.Symbol == nil {
			return nil, &CompileError{Position: position(p.Pos), Message: "lambda parameters must be symbols"}
		}
		params = append(params, *p.Symbol)
	}
	body, err := c.compileBody(l.Items[2:], pos)
	if err != nil {
		return nil, err
	}
	return &Lam{Params: params, Body: body, P: pos, id: c.id()}, nil
}

func (c *compiler) compileIf(l *grammar.List, pos Position) (Expr, error) {
	if len(l.Items) != 3 && len(l.Items) != 4 {
		return nil, &CompileError{Position: pos, Message: "if takes a condition and one or two branches"}
	}
	cond, err := c.compile(l.Items[1])
	if err != nil {
		return nil, err
	}
	cons, err := c.compile(l.Items[2])
	if err != nil {
		return nil, err
	}
	var alt Expr
	if len(l.Items) == 4 {
		alt, err = c.compile(l.Items[3])
		if err != nil {
			return nil, err
		}
	} else {
		alt = &Lit{Kind: LitUnspec, P: pos, id: c.id()}
	}
	return &If{Cond: cond, Cons: cons, Alt: alt, P: pos, id: c.id()}, nil
}

func (c *compiler) compileLet(l *grammar.List, pos Position, rec bool) (Expr, error) {
	name := "let"
	if rec {
		name = "letrec"
	}
	if len(l.Items) < 3 || l.Items[1].List == nil {
		return nil, &CompileError{Position: pos, Message: name + " needs a binding list and a body"}
	}
	bindings := make([]Binding, 0, len(l.Items[1].List.Items))
	for _, b := range l.Items[1].List.Items {
		if b.List == nil || len(b.List.Items) != 2 || b.List.Items[0].Symbol == nil {
			return nil, &CompileError{Position: position(b.Pos), Message: name + " bindings must have the shape (name expr)"}
		}
		expr, err := c.compile(b.List.Items[1])
		if err != nil {
			return nil, err
		}
		bindings = append(bindings, Binding{Name: *b.List.Items[0].Symbol, Expr: expr})
	}
	body, err := c.compileBody(l.Items[2:], pos)
	if err != nil {
		return nil, err
	}
	if rec {
		return &Letrec{Bindings: bindings, Body: body, P: pos, id: c.id()}, nil
	}
	return &Let{Bindings: bindings, Body: body, P: pos, id: c.id()}, nil
}

func (c *compiler) compileSet(l *grammar.List, pos Position) (Expr, error) {
	if len(l.Items) != 3 || l.Items[1].Symbol == nil {
		return nil, &CompileError{Position: pos, Message: "set! takes a symbol and an expression"}
	}
	expr, err := c.compile(l.Items[2])
	if err != nil {
		return nil, err
	}
	return &Set{Name: *l.Items[1].Symbol, Expr: expr, P: pos, id: c.id()}, nil
}

// compileBody compiles a datum sequence, turning leading defines into a
// letrec over the rest. A body with a single expression compiles to that
// expression directly, without a begin wrapper.
func (c *compiler) compileBody(items []*grammar.Datum, pos Position) (Expr, error) {
	var defs []Binding
	rest := items
	for len(rest) > 0 && isDefine(rest[0]) {
		b, err := c.compileDefine(rest[0].List)
		if err != nil {
			return nil, err
		}
		defs = append(defs, b)
		rest = rest[1:]
	}
	if len(rest) == 0 {
		return nil, &CompileError{Position: pos, Message: "body must end with an expression"}
	}

	exprs := make([]Expr, 0, len(rest))
	for _, item := range rest {
		if isDefine(item) {
			return nil, &CompileError{Position: position(item.Pos), Message: "define is only allowed at the start of a body"}
		}
		e, err := c.compile(item)
		if err != nil {
			return nil, err
		}
		exprs = append(exprs, e)
	}

	var body Expr
	if len(exprs) == 1 {
		body = exprs[0]
	} else {
		body = &Begin{Exprs: exprs, P: pos, id: c.id()}
	}
	if len(defs) > 0 {
		return &Letrec{Bindings: defs, Body: body, P: pos, id: c.id()}, nil
	}
	return body, nil
}

func isDefine(d *grammar.Datum) bool {
	return d.List != nil && len(d.List.Items) > 0 &&
		d.List.Items[0].Symbol != nil && *d.List.Items[0].Symbol == "define"
}

// compileDefine handles both (define x e) and the (define (f a b) body...)
// procedure shorthand.
func (c *compiler) compileDefine(l *grammar.List) (Binding, error) {
	pos := position(l.Pos)
	if len(l.Items) < 3 {
		return Binding{}, &CompileError{Position: pos, Message: "define needs a name and a value"}
	}
	target := l.Items[1]
	if target.Symbol != nil {
		if len(l.Items) != 3 {
			return Binding{}, &CompileError{Position: pos, Message: "define takes exactly one value expression"}
		}
		expr, err := c.compile(l.Items[2])
		if err != nil {
			return Binding{}, err
		}
		return Binding{Name: *target.Symbol, Expr: expr}, nil
	}
	if target.List == nil || len(target.List.Items) == 0 || target.List.Items[0].Symbol == nil {
		return Binding{}, &CompileError{Position: pos, Message: "define target must be a symbol or (name params...)"}
	}
	name := *target.List.Items[0].Symbol
	params := make([]string, 0, len(target.List.Items)-1)
	for _, p := range target.List.Items[1:] {
		if p.Symbol == nil {
			return Binding{}, &CompileError{Position: position(p.Pos), Message: "procedure parameters must be symbols"}
		}
		params = append(params, *p.Symbol)
	}
	body, err := c.compileBody(l.Items[2:], pos)
	if err != nil {
		return Binding{}, err
	}
	return Binding{Name: name, Expr: &Lam{Params: params, Body: body, P: pos, id: c.id()}}, nil
}

// compileQuoted compiles a quoted datum. Atoms become literals; proper
// lists desugar into nested cons applications so the machine allocates the
// cells through the ordinary primitive path.
func (c *compiler) compileQuoted(d *grammar.Datum, pos Position) (Expr, error) {
	switch {
	case d.Symbol != nil:
		return &Lit{Kind: LitSymbol, Str: *d.Symbol, P: pos, id: c.id()}, nil
	case d.Number != nil:
		n, err := strconv.ParseInt(*d.Number, 10, 64)
		if err != nil {
			return nil, &CompileError{Position: pos, Message: "number out of range"}
		}
		return &Lit{Kind: LitNumber, Num: n, P: pos, id: c.id()}, nil
	case d.Bool != nil:
		return &Lit{Kind: LitBool, Bool: *d.Bool == "#t", P: pos, id: c.id()}, nil
	case d.Str != nil:
		return &Lit{Kind: LitString, Str: unquoteString(*d.Str), P: pos, id: c.id()}, nil
	case d.List != nil:
		if len(d.List.Items) == 0 {
			return &Lit{Kind: LitNil, P: pos, id: c.id()}, nil
		}
		tail, err := c.compileQuoted(&grammar.Datum{Pos: d.Pos, List: &grammar.List{Pos: d.List.Pos}}, pos)
		if err != nil {
			return nil, err
		}
		for i := len(d.List.Items) - 1; i >= 0; i-- {
			head, err := c.compileQuoted(d.List.Items[i], pos)
			if err != nil {
				return nil, err
			}
			tail = &App{
				Fn:   &Var{Name: "cons", P: pos, id: c.id()},
				Args: []Expr{head, tail},
				P:    pos,
				id:   c.id(),
			}
		}
		return tail, nil
	case d.Quoted != nil:
		return nil, &CompileError{Position: pos, Message: "nested quote is not supported"}
	}
	return nil, &CompileError{Position: pos, Message: "unrecognized quoted datum"}
}

func unquoteString(s string) string {
	s = s[1 : len(s)-1]
	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) {
			i++
			switch s[i] {
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			default:
				sb.WriteByte(s[i])
			}
			continue
		}
		sb.WriteByte(s[i])
	}
	return sb.String()
}
