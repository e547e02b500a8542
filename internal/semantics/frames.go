package semantics

import (
	"fmt"
	"strings"

	"sable/internal/ast"
	"sable/internal/lattice"
	"sable/internal/machine"
)

// Val is the abstract value domain instantiated at our address type.
type Val = lattice.Value[Addr]

// Env is the machine environment instantiated at our address type.
type Env = machine.Env[Addr]

// Frame is a continuation frame: the work pending after the expression
// currently under evaluation returns a value.
type Frame interface {
	Key() string
	frame()
}

// FrameIf awaits the condition of an if.
type FrameIf struct {
	Cons ast.Expr
	Alt  ast.Expr
	Env  *Env
}

// FrameOperator awaits the operator of an application.
type FrameOperator struct {
	CallSite *ast.App
	Env      *Env
}

// FrameOperands awaits one operand of an application; Done holds the
// operand values collected so far and Rest the operand expressions still
// to evaluate.
type FrameOperands struct {
	CallSite *ast.App
	Fn       Val
	Done     []Val
	Rest     []ast.Expr
	Env      *Env
}

// BoundVar is a let binding already evaluated and allocated.
type BoundVar struct {
	Name string
	Addr Addr
}

// FrameLet awaits the value of the binding named Name; earlier bindings
// are in Bound, later ones in Rest. All binding expressions evaluate in
// Env, the body in Env extended with every bound variable.
type FrameLet struct {
	Name  string
	Bound []BoundVar
	Rest  []ast.Binding
	Body  ast.Expr
	Env   *Env
}

// FrameLetrec awaits the value of the binding stored at Addr; Addrs holds
// the pre-allocated addresses for Rest. Env already contains every
// letrec-bound variable.
type FrameLetrec struct {
	Addr  Addr
	Addrs []Addr
	Rest  []ast.Binding
	Body  ast.Expr
	Env   *Env
}

// FrameBegin discards the value and continues with the next expression.
type FrameBegin struct {
	Rest []ast.Expr
	Env  *Env
}

// FrameSet awaits the value to write to Addr.
type FrameSet struct {
	Addr Addr
}

func (FrameIf) frame()       {}
func (FrameOperator) frame() {}
func (FrameOperands) frame() {}
func (FrameLet) frame()      {}
func (FrameLetrec) frame()   {}
func (FrameBegin) frame()    {}
func (FrameSet) frame()      {}

func (f FrameIf) Key() string {
	return "if:" + f.Cons.Key() + ":" + f.Alt.Key() + "|" + f.Env.Key()
}

func (f FrameOperator) Key() string {
	return "rator:" + f.CallSite.Key() + "|" + f.Env.Key()
}

func (f FrameOperands) Key() string {
	var sb strings.Builder
	sb.WriteString("rand:")
	sb.WriteString(f.CallSite.Key())
	sb.WriteString("|")
	sb.WriteString(f.Fn.Key())
	for _, v := range f.Done {
		sb.WriteString("|")
		sb.WriteString(v.Key())
	}
	fmt.Fprintf(&sb, "|%d|", len(f.Rest))
	sb.WriteString(f.Env.Key())
	return sb.String()
}

func (f FrameLet) Key() string {
	var sb strings.Builder
	sb.WriteString("let:")
	sb.WriteString(f.Name)
	for _, b := range f.Bound {
		sb.WriteString("|")
		sb.WriteString(b.Name)
		sb.WriteString("=")
		sb.WriteString(b.Addr.Key())
	}
	fmt.Fprintf(&sb, "|%d|", len(f.Rest))
	sb.WriteString(f.Body.Key())
	sb.WriteString("|")
	sb.WriteString(f.Env.Key())
	return sb.String()
}

func (f FrameLetrec) Key() string {
	var sb strings.Builder
	sb.WriteString("letrec:")
	sb.WriteString(f.Addr.Key())
	fmt.Fprintf(&sb, "|%d|", len(f.Rest))
	sb.WriteString(f.Body.Key())
	sb.WriteString("|")
	sb.WriteString(f.Env.Key())
	return sb.String()
}

func (f FrameBegin) Key() string {
	var sb strings.Builder
	sb.WriteString("begin:")
	for _, e := range f.Rest {
		sb.WriteString(e.Key())
		sb.WriteString("|")
	}
	sb.WriteString(f.Env.Key())
	return sb.String()
}

func (f FrameSet) Key() string {
	return "set:" + f.Addr.Key()
}
