package builtins

import (
	"testing"
	"time"

	"github.com/ksd-co/rule-engine-postgres/fact"
	"github.com/ksd-co/rule-engine-postgres/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock(t time.Time) Clock {
	return func() time.Time { return t }
}

func TestCallRejectsUnknownFunction(t *testing.T) {
	r := New()
	_, err := r.Call("does-not-exist", nil)
	require.Error(t, err)
	var boundaryErr *types.Error
	require.ErrorAs(t, err, &boundaryErr)
	assert.Equal(t, types.CodeUnknownFunction, boundaryErr.Code)
}

func TestCallRejectsBadArity(t *testing.T) {
	r := New()
	_, err := r.Call("upper", nil)
	require.Error(t, err)
	var boundaryErr *types.Error
	require.ErrorAs(t, err, &boundaryErr)
	assert.Equal(t, types.CodeArity, boundaryErr.Code)
}

func TestStringFuncs(t *testing.T) {
	r := New()

	v, err := r.Call("length", []fact.Value{fact.String("héllo")})
	require.NoError(t, err)
	assert.Equal(t, fact.Int64(5), v)

	v, err = r.Call("upper", []fact.Value{fact.String("abc")})
	require.NoError(t, err)
	assert.Equal(t, fact.String("ABC"), v)

	v, err = r.Call("substring", []fact.Value{fact.String("hello"), fact.Int64(1), fact.Int64(3)})
	require.NoError(t, err)
	assert.Equal(t, fact.String("el"), v)

	v, err = r.Call("contains", []fact.Value{fact.String("hello"), fact.String("ell")})
	require.NoError(t, err)
	assert.Equal(t, fact.Bool(true), v)

	v, err = r.Call("valid-email", []fact.Value{fact.String("a@b.com")})
	require.NoError(t, err)
	assert.Equal(t, fact.Bool(true), v)

	v, err = r.Call("valid-email", []fact.Value{fact.String("not-an-email")})
	require.NoError(t, err)
	assert.Equal(t, fact.Bool(false), v)
}

func TestMathFuncsPreserveIntWhenExact(t *testing.T) {
	r := New()

	v, err := r.Call("abs", []fact.Value{fact.Int64(-4)})
	require.NoError(t, err)
	assert.Equal(t, fact.Int64(4), v)

	v, err = r.Call("sqrt", []fact.Value{fact.Int64(16)})
	require.NoError(t, err)
	assert.Equal(t, fact.Float64(4), v)

	v, err = r.Call("round", []fact.Value{fact.Float64(2.5)})
	require.NoError(t, err)
	assert.Equal(t, fact.Float64(3), v)

	v, err = r.Call("max", []fact.Value{fact.Int64(3), fact.Int64(7)})
	require.NoError(t, err)
	assert.Equal(t, fact.Int64(7), v)
}

func TestDateTimeFuncsUseInjectedClock(t *testing.T) {
	pinned := time.Date(2026, 7, 31, 10, 30, 0, 0, time.UTC)
	r := NewWithClock(fixedClock(pinned))

	v, err := r.Call("today", nil)
	require.NoError(t, err)
	today, ok := v.(fact.DateTime)
	require.True(t, ok)
	assert.Equal(t, time.Date(2026, 7, 31, 0, 0, 0, 0, time.UTC), today.Time())

	v, err = r.Call("now", nil)
	require.NoError(t, err)
	assert.Equal(t, fact.DateTime(pinned), v)

	past := fact.DateTime(pinned.AddDate(0, 0, -10))
	v, err = r.Call("days-since", []fact.Value{past})
	require.NoError(t, err)
	assert.Equal(t, fact.Float64(10), v)

	v, err = r.Call("add-days", []fact.Value{fact.DateTime(pinned), fact.Int64(5)})
	require.NoError(t, err)
	added, ok := v.(fact.DateTime)
	require.True(t, ok)
	assert.Equal(t, pinned.AddDate(0, 0, 5), added.Time())

	v, err = r.Call("format", []fact.Value{fact.DateTime(pinned), fact.String("YYYY-MM-DD")})
	require.NoError(t, err)
	assert.Equal(t, fact.String("2026-07-31"), v)
}

func TestJSONFuncs(t *testing.T) {
	r := New()

	v, err := r.Call("parse", []fact.Value{fact.String(`{"a":1,"b":"x"}`)})
	require.NoError(t, err)
	obj, ok := v.(*fact.Object)
	require.True(t, ok)
	a, _ := obj.Get("a")
	assert.Equal(t, fact.Int64(1), a)

	v, err = r.Call("get-by-dotted-path", []fact.Value{fact.String(`{"a":{"b":42}}`), fact.String("a.b")})
	require.NoError(t, err)
	assert.Equal(t, fact.Int64(42), v)

	v, err = r.Call("set-by-dotted-path", []fact.Value{fact.String(`{"a":{"b":1}}`), fact.String("a.b"), fact.Int64(99)})
	require.NoError(t, err)
	text, ok := v.(fact.String)
	require.True(t, ok)

	roundTrip, err := r.Call("get-by-dotted-path", []fact.Value{text, fact.String("a.b")})
	require.NoError(t, err)
	assert.Equal(t, fact.Int64(99), roundTrip)

	v, err = r.Call("stringify", []fact.Value{fact.Int64(7)})
	require.NoError(t, err)
	assert.Equal(t, fact.String("7"), v)
}
