package semantics

import (
	"fmt"
	"strings"

	"sable/internal/ast"
)

// Time is a k-CFA timestamp: the last k call sites, most recent first.
// Only calls advance the clock; the plain tick is the identity, which is
// what keeps the time domain finite for any finite program.
type Time struct {
	k     int
	calls string // call-site keys joined by ','
}

func InitialTime(k int) Time {
	return Time{k: k}
}

func (t Time) Key() string {
	return fmt.Sprintf("%d|%s", t.k, t.calls)
}

func (t Time) Tick() Time {
	return t
}

func (t Time) TickCall(callSite ast.Expr) Time {
	if t.k <= 0 {
		return t
	}
	parts := []string{callSite.Key()}
	if t.calls != "" {
		parts = append(parts, strings.Split(t.calls, ",")...)
	}
	if len(parts) > t.k {
		parts = parts[:t.k]
	}
	return Time{k: t.k, calls: strings.Join(parts, ",")}
}

func (t Time) String() string {
	if t.calls == "" {
		return "t0"
	}
	return t.calls
}
