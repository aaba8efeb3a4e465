package builtins

import (
	"github.com/expr-lang/expr"
	"github.com/ksd-co/rule-engine-postgres/fact"
)

// registerExprFuncs wires an "eval-expr" built-in (spec §4.C extension)
// backed by expr-lang, the same expression compiler the rest of the pack
// uses for dynamic predicate/transform scripts. A rule can compute a value
// from a small expression string without a dedicated built-in for every
// shape of arithmetic or string logic a caller might want — compiled fresh
// per call since the registry has no slot to cache a per-expression
// program, unlike the kernel's own compiled-rule cache.
func registerExprFuncs(r *Registry) {
	r.register(Signature{"eval-expr", 2, 2}, func(args []fact.Value) (fact.Value, error) {
		source, err := asString("eval-expr", args[0])
		if err != nil {
			return fact.Null{}, err
		}
		env, ok := args[1].(*fact.Object)
		if !ok {
			return fact.Null{}, typeMismatch("eval-expr", args[1], "Object")
		}

		vars := make(map[string]interface{}, env.Len())
		for _, k := range env.Keys() {
			v, _ := env.Get(k)
			vars[k] = factToGo(v)
		}

		program, compileErr := expr.Compile(source, expr.Env(vars), expr.AllowUndefinedVariables())
		if compileErr != nil {
			return fact.Null{}, typeMismatch("eval-expr", args[0], "valid expr-lang expression")
		}
		out, runErr := expr.Run(program, vars)
		if runErr != nil {
			return fact.Null{}, typeMismatch("eval-expr", args[0], "expression evaluable against the given vars")
		}
		return goValueToFact(out), nil
	})
}
