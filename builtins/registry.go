// Package builtins implements the fixed, immutable registry of pure, total
// functions callable from rule conditions/actions (spec §4.C): string,
// math, date/time, JSON, and expr-lang groups, plus whatever custom
// functions a caller registers via Config.Udf (RegisterUdf). Functions are
// values-in/value-out; none of them read facts directly — the kernel
// materializes each call's result into the expression tree before
// continuing evaluation (spec §4.D).
package builtins

import (
	"fmt"
	"time"

	"github.com/ksd-co/rule-engine-postgres/fact"
	"github.com/ksd-co/rule-engine-postgres/types"
)

// Func is one built-in's implementation, fully resolved inputs in, one
// Value or error out.
type Func func(args []fact.Value) (fact.Value, error)

// Signature declares a built-in's arity for dispatch-time validation; Go's
// own type system handles argument *type* checking inside each Func, which
// returns TypeMismatch for a bad argument kind.
type Signature struct {
	Name    string
	MinArgs int
	MaxArgs int // -1 means unbounded
}

type entry struct {
	sig  Signature
	impl Func
}

// Registry is the immutable built-in function table. It is built once at
// startup by New() and never mutated afterward (spec §4.C: "immutable after
// startup").
type Registry struct {
	entries map[string]entry
}

// New builds the registry containing every spec §4.C built-in, using the
// real wall clock for today/now.
func New() *Registry {
	return NewWithClock(time.Now)
}

// NewWithClock is New with an injectable clock, so tests can pin
// today/now/days-since to a fixed instant instead of real time.
func NewWithClock(clock Clock) *Registry {
	r := &Registry{entries: make(map[string]entry)}
	registerStringFuncs(r)
	registerMathFuncs(r)
	registerDateTimeFuncs(r, clock)
	registerJSONFuncs(r)
	registerExprFuncs(r)
	return r
}

func (r *Registry) register(sig Signature, impl Func) {
	r.entries[sig.Name] = entry{sig: sig, impl: impl}
}

// Call dispatches name(args...) against the registry, returning
// UnknownFunction for an unregistered name and Arity for a bad argument
// count (spec §4.D).
func (r *Registry) Call(name string, args []fact.Value) (fact.Value, error) {
	e, ok := r.entries[name]
	if !ok {
		return fact.Null{}, types.NewError(types.CodeUnknownFunction, fmt.Sprintf("unknown function %q", name), map[string]interface{}{"function": name})
	}
	if len(args) < e.sig.MinArgs || (e.sig.MaxArgs >= 0 && len(args) > e.sig.MaxArgs) {
		return fact.Null{}, types.NewError(types.CodeArity, fmt.Sprintf("function %q called with %d args", name, len(args)), map[string]interface{}{
			"function": name, "got": len(args), "min": e.sig.MinArgs, "max": e.sig.MaxArgs,
		})
	}
	return e.impl(args)
}

// Has reports whether name is a registered built-in.
func (r *Registry) Has(name string) bool {
	_, ok := r.entries[name]
	return ok
}

func typeMismatch(fn string, got fact.Value, want string) error {
	return types.NewError(types.CodeTypeMismatch, fmt.Sprintf("%s: expected %s, got %s", fn, want, got.Kind()), map[string]interface{}{
		"function": fn, "want": want, "got": string(got.Kind()),
	})
}

func asString(fn string, v fact.Value) (string, error) {
	s, ok := v.(fact.String)
	if !ok {
		return "", typeMismatch(fn, v, "String")
	}
	return string(s), nil
}

func asNumber(fn string, v fact.Value) (float64, bool, error) {
	switch t := v.(type) {
	case fact.Int64:
		return float64(t), true, nil
	case fact.Float64:
		return float64(t), false, nil
	default:
		return 0, false, typeMismatch(fn, v, "Int64 or Float64")
	}
}
