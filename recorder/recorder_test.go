package recorder

import (
	"context"
	"testing"
	"time"

	"github.com/ksd-co/rule-engine-postgres/fact"
	"github.com/ksd-co/rule-engine-postgres/kernel"
	"github.com/ksd-co/rule-engine-postgres/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleSession(id string) *kernel.Session {
	f := fact.New()
	f.Entity("Order").Set("total", fact.Int64(1500))
	return &kernel.Session{
		ID:        id,
		StartedAt: time.Now().Add(-time.Minute),
		Status:    kernel.StatusCompleted,
		FinalFacts: f,
		Steps: []kernel.Event{
			{Kind: kernel.EventRuleMatched, At: time.Now(), RuleName: "r1"},
			{
				Kind: kernel.EventFactAssigned, At: time.Now(),
				Path: "Order.discount", Before: fact.Null{}, After: fact.Float64(150),
			},
			{Kind: kernel.EventRuleFired, At: time.Now(), RuleName: "r1"},
		},
	}
}

func TestRecordAndGetInMemory(t *testing.T) {
	r := New(nil)
	session := sampleSession("sess-1")

	require.NoError(t, r.Record(context.Background(), "discount-program", session))

	got, err := r.Get(context.Background(), "sess-1")
	require.NoError(t, err)
	assert.Equal(t, kernel.StatusCompleted, got.Status)
	assert.Len(t, got.Steps, 3)
}

func TestDescribeComputesDerivedFields(t *testing.T) {
	session := sampleSession("sess-2")
	summary := Describe(session)

	assert.Equal(t, 1, summary.Matched)
	assert.Equal(t, 1, summary.Fired)
	assert.Equal(t, kernel.StatusCompleted, summary.Status)
}

func TestDeleteAndClearAll(t *testing.T) {
	r := New(nil)
	require.NoError(t, r.Record(context.Background(), "p", sampleSession("a")))
	require.NoError(t, r.Record(context.Background(), "p", sampleSession("b")))

	require.NoError(t, r.Delete(context.Background(), "a"))
	_, err := r.Get(context.Background(), "a")
	assert.Error(t, err)

	require.NoError(t, r.ClearAll(context.Background()))
	_, err = r.Get(context.Background(), "b")
	assert.Error(t, err)
}

func TestPurgeOlderThanRemovesStaleSessions(t *testing.T) {
	r := New(nil)
	old := sampleSession("old")
	old.StartedAt = time.Now().Add(-48 * time.Hour)
	fresh := sampleSession("fresh")
	fresh.StartedAt = time.Now()

	require.NoError(t, r.Record(context.Background(), "p", old))
	require.NoError(t, r.Record(context.Background(), "p", fresh))

	removed, err := r.PurgeOlderThan(context.Background(), 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	_, err = r.Get(context.Background(), "old")
	assert.Error(t, err)
	_, err = r.Get(context.Background(), "fresh")
	assert.NoError(t, err)
}

func TestEventCodecRoundTripsFactAssignedValues(t *testing.T) {
	steps := []kernel.Event{
		{Kind: kernel.EventFactAssigned, At: time.Now(), Path: "Order.discount", Before: fact.Null{}, After: fact.Float64(150)},
		{Kind: kernel.EventError, At: time.Now(), RuleName: "bad", ErrorCode: types.CodeTypeMismatch, ErrorMessage: "division by zero", ActionIndex: 1},
	}

	raw, err := encodeEvents(steps)
	require.NoError(t, err)

	decoded, err := decodeEvents(raw)
	require.NoError(t, err)
	require.Len(t, decoded, 2)

	assert.Equal(t, fact.Float64(150), decoded[0].After)
	assert.Equal(t, types.CodeTypeMismatch, decoded[1].ErrorCode)
	assert.Equal(t, 1, decoded[1].ActionIndex)
}
