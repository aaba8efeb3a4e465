package api

import (
	"context"
	"testing"

	"github.com/ksd-co/rule-engine-postgres/cache"
	"github.com/ksd-co/rule-engine-postgres/types"
	"github.com/stretchr/testify/require"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	return &Engine{
		Cache:  cache.New(10),
		Config: types.NewConfig(),
	}
}

func TestEvaluateSimpleDiscount(t *testing.T) {
	e := newTestEngine(t)
	out, err := e.Evaluate(
		`{"Order":{"total":1500}}`,
		`rule "discount" when Order.total > 1000 then assign Order.discount = Order.total * 0.1;`,
	)
	require.Nil(t, err)
	require.Contains(t, out, `"discount":150`)
}

func TestEvaluateRejectsEmptyFacts(t *testing.T) {
	e := newTestEngine(t)
	_, err := e.Evaluate("", `rule "x" when true then assign X.y = 1;`)
	require.NotNil(t, err)
	require.Equal(t, types.CodeInputEmpty, err.Code)
}

func TestEvaluateRejectsOversizedInput(t *testing.T) {
	e := newTestEngine(t)
	huge := make([]byte, maxInputBytes+1)
	for i := range huge {
		huge[i] = 'a'
	}
	_, err := e.Evaluate(string(huge), `rule "x" when true then assign X.y = 1;`)
	require.NotNil(t, err)
	require.Equal(t, types.CodeInputTooLarge, err.Code)
}

func TestEvaluateRejectsParseFailure(t *testing.T) {
	e := newTestEngine(t)
	_, err := e.Evaluate(`{"X":{}}`, `not a valid rule at all ###`)
	require.NotNil(t, err)
	require.Equal(t, types.CodeParseFailure, err.Code)
}

func TestNewEngineWiresConfigUdfIntoRegistry(t *testing.T) {
	cfg := types.NewConfig()
	cfg.RegisterUdf("triple", types.UdfScript{Source: `function triple(n) { return n * 3; }`})
	e := NewEngine(cache.New(10), nil, nil, cfg)

	require.Nil(t, e.udfErr)
	out, err := e.Evaluate(`{"Order":{"total":7}}`,
		`rule "r" when true then assign Order.tripled = triple(Order.total);`)
	require.Nil(t, err)
	require.Contains(t, out, `"tripled":21`)
}

func TestNewEngineSurfacesMalformedUdfScriptOnEvaluate(t *testing.T) {
	cfg := types.NewConfig()
	cfg.RegisterUdf("broken", types.UdfScript{Source: `function broken( {{{`})
	e := NewEngine(cache.New(10), nil, nil, cfg)

	require.NotNil(t, e.udfErr)
	_, err := e.Evaluate(`{"X":{}}`, `rule "r" when true then assign X.y = 1;`)
	require.NotNil(t, err)
	require.Equal(t, types.CodeInputMalformed, err.Code)
}

func TestEvaluateTracedReturnsSessionIDWithoutRecorder(t *testing.T) {
	e := newTestEngine(t)
	e.Recorder = nil // exercising the nil-recorder path is itself the point here

	out, sessionID, err := e.EvaluateTraced(context.Background(), `{"Order":{"total":1500}}`,
		`rule "discount" when Order.total > 1000 then assign Order.discount = Order.total * 0.1;`)
	require.Nil(t, err)
	require.NotEmpty(t, sessionID)
	require.Contains(t, out, `"discount":150`)
}
