package builtins

import (
	"math"

	"github.com/ksd-co/rule-engine-postgres/fact"
)

func registerMathFuncs(r *Registry) {
	r.register(Signature{"min", 2, 2}, func(args []fact.Value) (fact.Value, error) {
		return numericBinary("min", args, math.Min)
	})
	r.register(Signature{"max", 2, 2}, func(args []fact.Value) (fact.Value, error) {
		return numericBinary("max", args, math.Max)
	})
	r.register(Signature{"abs", 1, 1}, func(args []fact.Value) (fact.Value, error) {
		return numericUnary("abs", args[0], math.Abs)
	})
	r.register(Signature{"round", 1, 1}, func(args []fact.Value) (fact.Value, error) {
		return numericUnary("round", args[0], roundHalfAwayFromZero)
	})
	r.register(Signature{"floor", 1, 1}, func(args []fact.Value) (fact.Value, error) {
		return numericUnary("floor", args[0], math.Floor)
	})
	r.register(Signature{"ceil", 1, 1}, func(args []fact.Value) (fact.Value, error) {
		return numericUnary("ceil", args[0], math.Ceil)
	})
	r.register(Signature{"sqrt", 1, 1}, func(args []fact.Value) (fact.Value, error) {
		return numericUnary("sqrt", args[0], math.Sqrt)
	})
}

func roundHalfAwayFromZero(f float64) float64 {
	if f >= 0 {
		return math.Floor(f + 0.5)
	}
	return math.Ceil(f - 0.5)
}

// numericUnary preserves Int64-ness when the input was already an integer
// and the function maps integers to integers (abs, round, floor, ceil);
// functions that are inherently fractional (sqrt) always yield Float64.
func numericUnary(fn string, v fact.Value, op func(float64) float64) (fact.Value, error) {
	n, wasInt, err := asNumber(fn, v)
	if err != nil {
		return fact.Null{}, err
	}
	result := op(n)
	if wasInt && result == math.Trunc(result) && (fn == "abs" || fn == "round" || fn == "floor" || fn == "ceil") {
		return fact.Int64(int64(result)), nil
	}
	return fact.Float64(result), nil
}

func numericBinary(fn string, args []fact.Value, op func(a, b float64) float64) (fact.Value, error) {
	a, aInt, err := asNumber(fn, args[0])
	if err != nil {
		return fact.Null{}, err
	}
	b, bInt, err := asNumber(fn, args[1])
	if err != nil {
		return fact.Null{}, err
	}
	result := op(a, b)
	if aInt && bInt && result == math.Trunc(result) {
		return fact.Int64(int64(result)), nil
	}
	return fact.Float64(result), nil
}
