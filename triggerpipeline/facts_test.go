package triggerpipeline

import (
	"testing"

	"github.com/ksd-co/rule-engine-postgres/fact"
	"github.com/stretchr/testify/assert"
)

func TestBuildFactsAppliesMapping(t *testing.T) {
	mapping := FactMapping{
		"Order": {"total": "order_total", "status": "order_status"},
	}
	row := RowImage{"order_total": int64(1500), "order_status": "open", "ignored_column": "x"}

	facts := BuildFacts(mapping, row)

	total, err := facts.Get("Order.total")
	assert.NoError(t, err)
	assert.Equal(t, fact.Int64(1500), total)

	status, err := facts.Get("Order.status")
	assert.NoError(t, err)
	assert.Equal(t, fact.String("open"), status)
}

func TestBuildFactsSkipsMissingColumns(t *testing.T) {
	mapping := FactMapping{"Order": {"total": "order_total"}}
	facts := BuildFacts(mapping, RowImage{})

	v, err := facts.Get("Order.total")
	assert.NoError(t, err)
	assert.Equal(t, fact.Null{}, v)
}

func TestReverseWriteBackOnlyTouchesMappedColumns(t *testing.T) {
	mapping := FactMapping{"Order": {"discount": "order_discount"}}
	facts := fact.New()
	facts.Entity("Order").Set("discount", fact.Float64(150))
	facts.Entity("Order").Set("unmapped_field", fact.Bool(true))

	cols := ReverseWriteBack(mapping, facts)

	assert.Equal(t, float64(150), cols["order_discount"])
	assert.Len(t, cols, 1, "a fact field absent from the mapping must never produce a column write")
}

func TestReverseWriteBackSkipsNullFacts(t *testing.T) {
	mapping := FactMapping{"Order": {"discount": "order_discount"}}
	facts := fact.New()

	cols := ReverseWriteBack(mapping, facts)
	assert.Empty(t, cols)
}
