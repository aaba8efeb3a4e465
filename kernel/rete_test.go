package kernel

import (
	"testing"

	"github.com/ksd-co/rule-engine-postgres/dsl"
	"github.com/stretchr/testify/assert"
)

func TestCollectPathEntitiesWalksAllExprKinds(t *testing.T) {
	left := dsl.Expr{Kind: dsl.ExprPath, Path: "Order.total"}
	right := dsl.Expr{Kind: dsl.ExprLiteral, LitKind: dsl.LitInt64, Int64: 1000}
	cmp := dsl.Expr{Kind: dsl.ExprBinary, Op: ">", Left: &left, Right: &right}

	callArg := dsl.Expr{Kind: dsl.ExprPath, Path: "Customer.email"}
	call := dsl.Expr{Kind: dsl.ExprCall, Func: "valid-email", Args: []dsl.Expr{callArg}}

	cond := dsl.Expr{Kind: dsl.ExprLogical, Op: "&&", Left: &cmp, Right: &call}

	out := make(map[string]bool)
	collectPathEntities(cond, out)

	assert.True(t, out["Order"])
	assert.True(t, out["Customer"])
	assert.Len(t, out, 2)
}

func TestBuildReteNetworkIndexesRulesByEntity(t *testing.T) {
	rules := []CompiledRule{
		{Name: "a", Condition: dsl.Expr{Kind: dsl.ExprPath, Path: "Order.total"}},
		{Name: "b", Condition: dsl.Expr{Kind: dsl.ExprPath, Path: "Customer.valid"}},
		{Name: "c", Condition: dsl.Expr{Kind: dsl.ExprPath, Path: "Order.discount"}},
	}
	net := buildReteNetwork(rules)

	assert.ElementsMatch(t, []int{0, 2}, net.alphaIndex["Order"])
	assert.ElementsMatch(t, []int{1}, net.alphaIndex["Customer"])

	already := make(map[int]bool)
	candidates := net.candidateRules("Order", already)
	assert.ElementsMatch(t, []int{0, 2}, candidates)
}

func TestEntityOf(t *testing.T) {
	assert.Equal(t, "Order", entityOf("Order.total"))
	assert.Equal(t, "Order", entityOf("Order"))
}
