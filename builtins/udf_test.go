package builtins

import (
	"testing"

	"github.com/ksd-co/rule-engine-postgres/fact"
	"github.com/ksd-co/rule-engine-postgres/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterUdfGoFunc(t *testing.T) {
	r := New()
	require.NoError(t, r.RegisterUdf("double", Func(func(args []fact.Value) (fact.Value, error) {
		n := args[0].(fact.Int64)
		return fact.Int64(n * 2), nil
	})))

	out, err := r.Call("double", []fact.Value{fact.Int64(21)})
	require.NoError(t, err)
	assert.Equal(t, fact.Int64(42), out)
}

func TestRegisterUdfGojaScript(t *testing.T) {
	r := New()
	require.NoError(t, r.RegisterUdf("greet", types.UdfScript{
		Source: `function greet(name) { return "hello " + name; }`,
	}))

	out, err := r.Call("greet", []fact.Value{fact.String("world")})
	require.NoError(t, err)
	assert.Equal(t, fact.String("hello world"), out)
}

func TestRegisterUdfGojaScriptMissingFunctionFails(t *testing.T) {
	r := New()
	require.NoError(t, r.RegisterUdf("greet", types.UdfScript{Source: `var x = 1;`}))

	_, err := r.Call("greet", []fact.Value{fact.String("world")})
	require.Error(t, err)
	be, ok := err.(*types.Error)
	require.True(t, ok)
	assert.Equal(t, types.CodeUnknownFunction, be.Code)
}

func TestRegisterUdfRejectsMalformedScript(t *testing.T) {
	r := New()
	err := r.RegisterUdf("broken", types.UdfScript{Source: `function broken( {{{`})
	require.Error(t, err)
}

func TestRegisterUdfsAppliesEveryEntry(t *testing.T) {
	r := New()
	err := r.RegisterUdfs(map[string]interface{}{
		"triple": Func(func(args []fact.Value) (fact.Value, error) {
			return fact.Int64(args[0].(fact.Int64) * 3), nil
		}),
	})
	require.NoError(t, err)
	assert.True(t, r.Has("triple"))
}
