package dslref

import (
	"testing"

	"github.com/ksd-co/rule-engine-postgres/dsl"
	"github.com/ksd-co/rule-engine-postgres/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSimpleRule(t *testing.T) {
	src := `
rule "HighValueOrder" salience 10
when Order.total > 100 && Order.status == "open"
then
	assign Order.flag = true;
	log "flagged high value order";
`
	prog, err := Parse(src)
	require.NoError(t, err)
	require.Len(t, prog.Rules, 1)

	r := prog.Rules[0]
	assert.Equal(t, "HighValueOrder", r.Name)
	assert.Equal(t, 10, r.Salience)
	assert.Equal(t, dsl.ExprLogical, r.Condition.Kind)
	require.Len(t, r.Actions, 2)
	assert.Equal(t, dsl.ActionAssign, r.Actions[0].Kind)
	assert.Equal(t, dsl.ActionLog, r.Actions[1].Kind)
}

func TestParseMultipleRulesAndRetractCall(t *testing.T) {
	src := `
rule "A"
when true
then
	retract "B";
	call notify("hi", 1);

rule "B"
when false
then
	log "never";
`
	prog, err := Parse(src)
	require.NoError(t, err)
	require.Len(t, prog.Rules, 2)
	assert.Equal(t, dsl.ActionRetract, prog.Rules[0].Actions[0].Kind)
	assert.Equal(t, dsl.ActionCall, prog.Rules[0].Actions[1].Kind)
	assert.Equal(t, "notify", prog.Rules[0].Actions[1].Func)
}

func TestParseRejectsMalformedInput(t *testing.T) {
	_, err := Parse(`rule "A" when then log "x";`)
	assert.Error(t, err)
}

func TestReferenceWrapsErrorsAsParseFailure(t *testing.T) {
	_, err := Reference.Parse(`not a rule`)
	require.Error(t, err)
	var boundaryErr *types.Error
	require.ErrorAs(t, err, &boundaryErr)
	assert.Equal(t, types.CodeParseFailure, boundaryErr.Code)
}
