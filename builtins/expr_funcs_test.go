package builtins

import (
	"testing"

	"github.com/ksd-co/rule-engine-postgres/fact"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvalExprComputesAgainstVars(t *testing.T) {
	r := New()
	vars := fact.NewObject()
	vars.Set("total", fact.Int64(150))

	out, err := r.Call("eval-expr", []fact.Value{fact.String("total * 2"), vars})
	require.NoError(t, err)
	assert.Equal(t, fact.Int64(300), out)
}

func TestEvalExprRejectsNonObjectEnv(t *testing.T) {
	r := New()
	_, err := r.Call("eval-expr", []fact.Value{fact.String("1+1"), fact.String("nope")})
	require.Error(t, err)
}

func TestEvalExprRejectsUnparseableExpression(t *testing.T) {
	r := New()
	vars := fact.NewObject()
	_, err := r.Call("eval-expr", []fact.Value{fact.String("(("), vars})
	require.Error(t, err)
}
