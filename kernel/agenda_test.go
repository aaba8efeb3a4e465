package kernel

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAgendaPopsHighestSalienceThenLowestInsertion(t *testing.T) {
	a := newAgenda()
	a.Push(AgendaItem{RuleIndex: 0, Salience: 1, InsertionIndex: 0}, "r0")
	a.Push(AgendaItem{RuleIndex: 1, Salience: 10, InsertionIndex: 1}, "r1")
	a.Push(AgendaItem{RuleIndex: 2, Salience: 10, InsertionIndex: 2}, "r2")

	first, ok := a.PopHighest()
	assert.True(t, ok)
	assert.Equal(t, 1, first.RuleIndex, "equal top salience breaks ties by lower insertion index")

	second, ok := a.PopHighest()
	assert.True(t, ok)
	assert.Equal(t, 2, second.RuleIndex)

	third, ok := a.PopHighest()
	assert.True(t, ok)
	assert.Equal(t, 0, third.RuleIndex)

	_, ok = a.PopHighest()
	assert.False(t, ok)
}

func TestAgendaPushIgnoresRetractedRule(t *testing.T) {
	a := newAgenda()
	resolve := func(name string) (int, bool) {
		if name == "r0" {
			return 0, true
		}
		return 0, false
	}
	a.Retract("r0", resolve)
	a.Push(AgendaItem{RuleIndex: 0, Salience: 0, InsertionIndex: 0}, "r0")
	assert.Equal(t, 0, a.Len())
}

func TestAgendaRetractDropsAlreadyQueuedEntry(t *testing.T) {
	a := newAgenda()
	a.Push(AgendaItem{RuleIndex: 0, Salience: 0, InsertionIndex: 0}, "r0")
	assert.Equal(t, 1, a.Len())

	resolve := func(name string) (int, bool) { return 0, true }
	a.Retract("r0", resolve)
	assert.Equal(t, 0, a.Len())
}

func TestAgendaPushDeduplicatesSameRuleIndex(t *testing.T) {
	a := newAgenda()
	a.Push(AgendaItem{RuleIndex: 0, Salience: 0, InsertionIndex: 0}, "r0")
	a.Push(AgendaItem{RuleIndex: 0, Salience: 0, InsertionIndex: 0}, "r0")
	assert.Equal(t, 1, a.Len())
}

func TestAgendaDeactivateDropsQueuedEntryWithoutRetracting(t *testing.T) {
	a := newAgenda()
	a.Push(AgendaItem{RuleIndex: 0, Salience: 1, InsertionIndex: 0}, "r0")
	a.Push(AgendaItem{RuleIndex: 1, Salience: 10, InsertionIndex: 1}, "r1")

	a.Deactivate(1)
	assert.Equal(t, 1, a.Len())

	item, ok := a.PopHighest()
	assert.True(t, ok)
	assert.Equal(t, 0, item.RuleIndex)

	// r1 was only deactivated, not retracted, so it can still be re-queued.
	a.Push(AgendaItem{RuleIndex: 1, Salience: 10, InsertionIndex: 2}, "r1")
	assert.Equal(t, 1, a.Len())
}

func TestAgendaDeactivateOnAbsentRuleIsNoop(t *testing.T) {
	a := newAgenda()
	a.Push(AgendaItem{RuleIndex: 0, Salience: 0, InsertionIndex: 0}, "r0")
	a.Deactivate(5)
	assert.Equal(t, 1, a.Len())
}
