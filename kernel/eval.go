package kernel

import (
	"fmt"

	"github.com/ksd-co/rule-engine-postgres/builtins"
	"github.com/ksd-co/rule-engine-postgres/dsl"
	"github.com/ksd-co/rule-engine-postgres/fact"
	"github.com/ksd-co/rule-engine-postgres/types"
)

// evalCtx bundles the read-only collaborators an expression evaluation needs.
type evalCtx struct {
	facts    *fact.Facts
	registry *builtins.Registry
}

// evalExpr evaluates e against f's current facts, resolving Path nodes with
// Facts.Get (a missing path yields Null, per spec §4.B) and Call nodes
// against the built-in registry, materializing each call's result into the
// tree before any comparison consumes it (spec §4.D).
func evalExpr(e dsl.Expr, ctx evalCtx) (fact.Value, error) {
	switch e.Kind {
	case dsl.ExprLiteral:
		return evalLiteral(e), nil

	case dsl.ExprPath:
		return ctx.facts.Get(e.Path)

	case dsl.ExprUnary:
		return evalUnary(e, ctx)

	case dsl.ExprBinary:
		return evalBinary(e, ctx)

	case dsl.ExprLogical:
		return evalLogical(e, ctx)

	case dsl.ExprCall:
		args := make([]fact.Value, len(e.Args))
		for i, a := range e.Args {
			v, err := evalExpr(a, ctx)
			if err != nil {
				return fact.Null{}, err
			}
			args[i] = v
		}
		return ctx.registry.Call(e.Func, args)

	default:
		return fact.Null{}, types.NewError(types.CodeInputMalformed, fmt.Sprintf("unknown expression kind %q", e.Kind), nil)
	}
}

func evalLiteral(e dsl.Expr) fact.Value {
	switch e.LitKind {
	case dsl.LitNull:
		return fact.Null{}
	case dsl.LitBool:
		return fact.Bool(e.Bool)
	case dsl.LitInt64:
		return fact.Int64(e.Int64)
	case dsl.LitFloat:
		return fact.Float64(e.Float64)
	case dsl.LitString:
		return fact.String(e.Str)
	default:
		return fact.Null{}
	}
}

func evalUnary(e dsl.Expr, ctx evalCtx) (fact.Value, error) {
	v, err := evalExpr(*e.Operand, ctx)
	if err != nil {
		return fact.Null{}, err
	}
	switch e.Op {
	case "!":
		b, ok := v.(fact.Bool)
		if !ok {
			return fact.Null{}, typeMismatchExpr("!", v, "Bool")
		}
		return fact.Bool(!bool(b)), nil
	case "-":
		switch n := v.(type) {
		case fact.Int64:
			return fact.Int64(-int64(n)), nil
		case fact.Float64:
			return fact.Float64(-float64(n)), nil
		default:
			return fact.Null{}, typeMismatchExpr("-", v, "Int64 or Float64")
		}
	default:
		return fact.Null{}, types.NewError(types.CodeInputMalformed, fmt.Sprintf("unknown unary operator %q", e.Op), nil)
	}
}

func evalLogical(e dsl.Expr, ctx evalCtx) (fact.Value, error) {
	left, err := evalExpr(*e.Left, ctx)
	if err != nil {
		return fact.Null{}, err
	}
	lb, ok := left.(fact.Bool)
	if !ok {
		return fact.Null{}, typeMismatchExpr(e.Op, left, "Bool")
	}
	// Short-circuit: "&&" stops on a false left operand, "||" on a true one.
	if e.Op == "&&" && !bool(lb) {
		return fact.Bool(false), nil
	}
	if e.Op == "||" && bool(lb) {
		return fact.Bool(true), nil
	}
	right, err := evalExpr(*e.Right, ctx)
	if err != nil {
		return fact.Null{}, err
	}
	rb, ok := right.(fact.Bool)
	if !ok {
		return fact.Null{}, typeMismatchExpr(e.Op, right, "Bool")
	}
	switch e.Op {
	case "&&":
		return fact.Bool(bool(lb) && bool(rb)), nil
	case "||":
		return fact.Bool(bool(lb) || bool(rb)), nil
	default:
		return fact.Null{}, types.NewError(types.CodeInputMalformed, fmt.Sprintf("unknown logical operator %q", e.Op), nil)
	}
}

func evalBinary(e dsl.Expr, ctx evalCtx) (fact.Value, error) {
	left, err := evalExpr(*e.Left, ctx)
	if err != nil {
		return fact.Null{}, err
	}
	right, err := evalExpr(*e.Right, ctx)
	if err != nil {
		return fact.Null{}, err
	}

	switch e.Op {
	case "==":
		return fact.Bool(fact.Equal(left, right)), nil
	case "!=":
		return fact.Bool(!fact.Equal(left, right)), nil
	case "<", "<=", ">", ">=":
		return compareOrdered(e.Op, left, right)
	case "+", "-", "*", "/", "%":
		return arithmetic(e.Op, left, right)
	default:
		return fact.Null{}, types.NewError(types.CodeInputMalformed, fmt.Sprintf("unknown binary operator %q", e.Op), nil)
	}
}

func compareOrdered(op string, left, right fact.Value) (fact.Value, error) {
	// String ordering compares lexicographically; everything else compares
	// as IEEE-754 numbers with integer promotion (spec §3).
	ls, lIsStr := left.(fact.String)
	rs, rIsStr := right.(fact.String)
	if lIsStr && rIsStr {
		switch op {
		case "<":
			return fact.Bool(ls < rs), nil
		case "<=":
			return fact.Bool(ls <= rs), nil
		case ">":
			return fact.Bool(ls > rs), nil
		case ">=":
			return fact.Bool(ls >= rs), nil
		}
	}

	ln, lOk := numericOf(left)
	rn, rOk := numericOf(right)
	if !lOk {
		return fact.Null{}, typeMismatchExpr(op, left, "Int64, Float64, or String")
	}
	if !rOk {
		return fact.Null{}, typeMismatchExpr(op, right, "Int64, Float64, or String")
	}
	switch op {
	case "<":
		return fact.Bool(ln < rn), nil
	case "<=":
		return fact.Bool(ln <= rn), nil
	case ">":
		return fact.Bool(ln > rn), nil
	case ">=":
		return fact.Bool(ln >= rn), nil
	default:
		return fact.Null{}, types.NewError(types.CodeInputMalformed, fmt.Sprintf("unknown comparison operator %q", op), nil)
	}
}

func arithmetic(op string, left, right fact.Value) (fact.Value, error) {
	ln, lInt, lOk := numericWithKind(left)
	rn, rInt, rOk := numericWithKind(right)
	if !lOk {
		return fact.Null{}, typeMismatchExpr(op, left, "Int64 or Float64")
	}
	if !rOk {
		return fact.Null{}, typeMismatchExpr(op, right, "Int64 or Float64")
	}

	var result float64
	switch op {
	case "+":
		result = ln + rn
	case "-":
		result = ln - rn
	case "*":
		result = ln * rn
	case "/":
		if rn == 0 {
			return fact.Null{}, types.NewError(types.CodeTypeMismatch, "division by zero", nil)
		}
		result = ln / rn
	case "%":
		if rn == 0 {
			return fact.Null{}, types.NewError(types.CodeTypeMismatch, "modulo by zero", nil)
		}
		return fact.Int64(int64(ln) % int64(rn)), nil
	}

	if lInt && rInt && op != "/" {
		return fact.Int64(int64(result)), nil
	}
	return fact.Float64(result), nil
}

func numericOf(v fact.Value) (float64, bool) {
	n, _, ok := numericWithKind(v)
	return n, ok
}

func numericWithKind(v fact.Value) (value float64, wasInt bool, ok bool) {
	switch t := v.(type) {
	case fact.Int64:
		return float64(t), true, true
	case fact.Float64:
		return float64(t), false, true
	default:
		return 0, false, false
	}
}

func typeMismatchExpr(op string, got fact.Value, want string) error {
	return types.NewError(types.CodeTypeMismatch, fmt.Sprintf("operator %q: expected %s, got %s", op, want, got.Kind()), map[string]interface{}{
		"operator": op, "want": want, "got": string(got.Kind()),
	})
}
