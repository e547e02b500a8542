package semantics

import (
	"sable/internal/ast"
)

type addrKind int

const (
	addrVar addrKind = iota
	addrCar
	addrCdr
	addrPrim
)

// Addr is a heap address: a variable binding, one half of a cons cell, or
// a primitive slot in the initial store. Variable and cell addresses carry
// the allocation timestamp, which is what makes the address space finite
// and context-sensitive at once.
type Addr struct {
	kind addrKind
	name string
	time Time
}

func VarAddr(name string, t Time) Addr {
	return Addr{kind: addrVar, name: name, time: t}
}

func CarAddr(site ast.Expr, t Time) Addr {
	return Addr{kind: addrCar, name: site.Key(), time: t}
}

func CdrAddr(site ast.Expr, t Time) Addr {
	return Addr{kind: addrCdr, name: site.Key(), time: t}
}

func PrimAddr(name string) Addr {
	return Addr{kind: addrPrim, name: name}
}

func (a Addr) Key() string {
	switch a.kind {
	case addrVar:
		return "v:" + a.name + "@" + a.time.Key()
	case addrCar:
		return "car:" + a.name + "@" + a.time.Key()
	case addrCdr:
		return "cdr:" + a.name + "@" + a.time.Key()
	case addrPrim:
		return "prim:" + a.name
	}
	return "?"
}

func (a Addr) String() string {
	return a.Key()
}
