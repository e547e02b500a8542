package lattice

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type tAddr string

func (a tAddr) Key() string { return string(a) }

func TestBottom(t *testing.T) {
	l := New[tAddr](1)
	assert.True(t, l.Bottom().IsBottom())
	assert.False(t, l.Bottom().MayBeTrue())
	assert.False(t, l.Bottom().MayBeFalse())
}

func TestJoinNumbersWidens(t *testing.T) {
	l := New[tAddr](2)

	v := l.Number(1).Join(l.Number(2))
	nums, top := v.Numbers()
	assert.False(t, top)
	assert.Equal(t, []int64{1, 2}, nums)

	wide := v.Join(l.Number(3))
	_, top = wide.Numbers()
	assert.True(t, top, "three numbers at bound 2 must widen")
	assert.True(t, wide.Subsumes(v))
}

func TestZeroBoundWidensImmediately(t *testing.T) {
	l := New[tAddr](0)
	_, top := l.Number(7).Numbers()
	assert.True(t, top)
}

func TestJoinIsUpperBound(t *testing.T) {
	l := New[tAddr](4)
	a := l.Number(1).Join(l.Bool(true))
	b := l.String("s").Join(l.Null())

	j := a.Join(b)
	assert.True(t, j.Subsumes(a))
	assert.True(t, j.Subsumes(b))
	assert.False(t, a.Subsumes(j))
}

func TestSubsumptionOrder(t *testing.T) {
	l := New[tAddr](4)
	small := l.Number(1)
	mid := small.Join(l.Number(2))
	big := mid.Join(l.Bool(false))

	// Reflexive.
	assert.True(t, small.Subsumes(small))
	// Transitive.
	assert.True(t, mid.Subsumes(small))
	assert.True(t, big.Subsumes(mid))
	assert.True(t, big.Subsumes(small))
	// Not symmetric.
	assert.False(t, small.Subsumes(mid))

	assert.True(t, mid.Equal(mid))
	assert.False(t, mid.Equal(big))
}

func TestTruthiness(t *testing.T) {
	l := New[tAddr](1)

	assert.True(t, l.Number(0).MayBeTrue(), "0 is true in Scheme")
	assert.False(t, l.Number(0).MayBeFalse())

	f := l.Bool(false)
	assert.True(t, f.MayBeFalse())
	assert.False(t, f.MayBeTrue())

	both := l.AnyBool()
	assert.True(t, both.MayBeTrue())
	assert.True(t, both.MayBeFalse())

	assert.True(t, l.Null().MayBeTrue())
	assert.True(t, l.Unspecified().MayBeTrue())
}

func TestComponentPredicates(t *testing.T) {
	l := New[tAddr](1)

	p := l.Cons(tAddr("car"), tAddr("cdr"))
	assert.True(t, p.HasPair())
	assert.False(t, p.HasNonPair())

	mixed := p.Join(l.Number(1))
	assert.True(t, mixed.HasPair())
	assert.True(t, mixed.HasNonPair())
	assert.True(t, mixed.HasNonNull())

	prim := l.Prim("car")
	assert.True(t, prim.HasProcedure())
	assert.False(t, prim.HasNonProcedure())
	assert.True(t, l.Symbol("x").HasNonProcedure())
}

func TestKeyIsCanonical(t *testing.T) {
	l := New[tAddr](4)

	a := l.Number(1).Join(l.Number(2)).Join(l.Bool(true))
	b := l.Bool(true).Join(l.Number(2)).Join(l.Number(1))
	assert.Equal(t, a.Key(), b.Key())

	c := a.Join(l.Number(3))
	assert.NotEqual(t, a.Key(), c.Key())
}

func TestStringRendering(t *testing.T) {
	l := New[tAddr](2)

	assert.Equal(t, "42", l.Number(42).String())
	assert.Equal(t, "#t", l.Bool(true).String())
	assert.Equal(t, "number", l.AnyNumber().String())
	assert.Equal(t, "#<bottom>", l.Bottom().String())
	assert.Contains(t, l.Number(1).Join(l.Number(2)).String(), "{")
}
