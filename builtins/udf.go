package builtins

import (
	"fmt"

	"github.com/dop251/goja"
	"github.com/ksd-co/rule-engine-postgres/fact"
	"github.com/ksd-co/rule-engine-postgres/types"
)

// RegisterUdf wires one of a Config's custom functions into the registry,
// alongside the fixed built-in groups (spec §4.C allows callers to extend the
// library at startup). A Go closure is adapted directly; a types.UdfScript is
// compiled once with goja and re-run against a fresh VM per call, so scripted
// UDFs can't leak state across invocations the way a shared goja.Runtime
// would.
func (r *Registry) RegisterUdf(name string, value interface{}) error {
	switch v := value.(type) {
	case Func:
		r.register(Signature{Name: name, MinArgs: 0, MaxArgs: -1}, v)
		return nil
	case func([]fact.Value) (fact.Value, error):
		r.register(Signature{Name: name, MinArgs: 0, MaxArgs: -1}, Func(v))
		return nil
	case types.UdfScript:
		program, err := goja.Compile(name, v.Source, true)
		if err != nil {
			return types.NewError(types.CodeInputMalformed, fmt.Sprintf("udf %q: %v", name, err), nil)
		}
		r.register(Signature{Name: name, MinArgs: 0, MaxArgs: -1}, gojaFunc(name, program))
		return nil
	default:
		return types.NewError(types.CodeInputMalformed, fmt.Sprintf("udf %q: unsupported registration value %T", name, value), nil)
	}
}

// RegisterUdfs wires every entry of cfg into the registry, keyed by name. A
// malformed script fails closed rather than silently dropping the UDF.
func (r *Registry) RegisterUdfs(udf map[string]interface{}) error {
	for name, value := range udf {
		if err := r.RegisterUdf(name, value); err != nil {
			return err
		}
	}
	return nil
}

func gojaFunc(name string, program *goja.Program) Func {
	return func(args []fact.Value) (fact.Value, error) {
		vm := goja.New()
		if _, err := vm.RunProgram(program); err != nil {
			return fact.Null{}, types.NewError(types.CodeUnknownFunction, fmt.Sprintf("udf %q: %v", name, err), nil)
		}
		callable, ok := goja.AssertFunction(vm.Get(name))
		if !ok {
			return fact.Null{}, types.NewError(types.CodeUnknownFunction, fmt.Sprintf("udf %q: script does not define function %q", name, name), nil)
		}
		jsArgs := make([]goja.Value, len(args))
		for i, a := range args {
			jsArgs[i] = vm.ToValue(factToGo(a))
		}
		result, err := callable(goja.Undefined(), jsArgs...)
		if err != nil {
			return fact.Null{}, types.NewError(types.CodeTypeMismatch, fmt.Sprintf("udf %q: %v", name, err), nil)
		}
		return goValueToFact(result.Export()), nil
	}
}

// factToGo converts a fact.Value into the native Go value goja expects on
// its side of the call boundary, mirroring goValueToFact's inverse mapping.
func factToGo(v fact.Value) interface{} {
	switch t := v.(type) {
	case fact.Null:
		return nil
	case fact.Bool:
		return bool(t)
	case fact.Int64:
		return int64(t)
	case fact.Float64:
		return float64(t)
	case fact.String:
		return string(t)
	case fact.DateTime:
		return t.Time()
	case fact.Array:
		out := make([]interface{}, len(t))
		for i, e := range t {
			out[i] = factToGo(e)
		}
		return out
	case *fact.Object:
		out := make(map[string]interface{}, t.Len())
		for _, k := range t.Keys() {
			e, _ := t.Get(k)
			out[k] = factToGo(e)
		}
		return out
	default:
		return nil
	}
}
