package kernel

// AgendaItem is one scheduled firing: a rule index into the program's Rules
// slice plus the ordering keys conflict resolution sorts on (spec §3 Agenda
// Item).
type AgendaItem struct {
	RuleIndex      int
	Salience       int
	InsertionIndex int
}

// Agenda holds every currently-scheduled firing, selecting the
// highest-priority item first: salience descending, then insertion index
// ascending (spec §4.D step 4a, invariant 4).
//
// Retract(name) is session-scoped (spec §9 OQ1 — documented decision in
// DESIGN.md): once a rule name has been retracted, retracted[name] is set
// and stays set for the rest of the session, so both items already queued
// and any produced by a later re-scan/propagation are suppressed.
type Agenda struct {
	items     []AgendaItem
	retracted map[string]bool
	inAgenda  map[int]bool // RuleIndex -> already scheduled, avoids duplicate entries

	// matched tracks, per RuleIndex, whether the rule's condition was true
	// on the previous scan. A rule is only offered to the agenda on the
	// false→true transition (or its first-ever true), not on every scan it
	// stays true — otherwise a rule whose own firing leaves its condition
	// unchanged would be re-offered forever even though nothing new
	// happened. A later false→true edge (caused by some other rule's
	// mutation) still produces a fresh activation.
	matched map[int]bool
}

func newAgenda() *Agenda {
	return &Agenda{
		retracted: make(map[string]bool),
		inAgenda:  make(map[int]bool),
		matched:   make(map[int]bool),
	}
}

// WasMatched reports whether ruleIndex was matched on the previous scan.
func (a *Agenda) WasMatched(ruleIndex int) bool {
	return a.matched[ruleIndex]
}

// SetMatched records ruleIndex's match state for the next scan's edge check.
func (a *Agenda) SetMatched(ruleIndex int, matched bool) {
	a.matched[ruleIndex] = matched
}

// Push schedules item unless its rule has been retracted or is already
// queued.
func (a *Agenda) Push(item AgendaItem, ruleName string) {
	if a.retracted[ruleName] || a.inAgenda[item.RuleIndex] {
		return
	}
	a.items = append(a.items, item)
	a.inAgenda[item.RuleIndex] = true
}

// PopHighest removes and returns the highest-priority item, or false if the
// agenda is empty.
func (a *Agenda) PopHighest() (AgendaItem, bool) {
	if len(a.items) == 0 {
		return AgendaItem{}, false
	}
	best := 0
	for i := 1; i < len(a.items); i++ {
		if higherPriority(a.items[i], a.items[best]) {
			best = i
		}
	}
	item := a.items[best]
	a.items = append(a.items[:best], a.items[best+1:]...)
	delete(a.inAgenda, item.RuleIndex)
	return item, true
}

func higherPriority(a, b AgendaItem) bool {
	if a.Salience != b.Salience {
		return a.Salience > b.Salience
	}
	return a.InsertionIndex < b.InsertionIndex
}

// Retract marks ruleName retracted for the rest of the session and drops any
// of its entries already queued.
func (a *Agenda) Retract(ruleName string, ruleIndexOf func(name string) (int, bool)) {
	a.retracted[ruleName] = true
	if idx, ok := ruleIndexOf(ruleName); ok {
		for i := 0; i < len(a.items); i++ {
			if a.items[i].RuleIndex == idx {
				a.items = append(a.items[:i], a.items[i+1:]...)
				delete(a.inAgenda, idx)
				i--
			}
		}
	}
}

// Deactivate removes ruleIndex's pending activation, if any, without marking
// the rule retracted — used on a true→false condition transition (spec
// invariant 4: only a rule whose condition still holds at fire time may
// fire). A rule deactivated this way is still eligible for a later
// false→true edge to re-queue it.
func (a *Agenda) Deactivate(ruleIndex int) {
	for i := 0; i < len(a.items); i++ {
		if a.items[i].RuleIndex == ruleIndex {
			a.items = append(a.items[:i], a.items[i+1:]...)
			delete(a.inAgenda, ruleIndex)
			return
		}
	}
}

func (a *Agenda) IsRetracted(ruleName string) bool {
	return a.retracted[ruleName]
}

func (a *Agenda) Len() int {
	return len(a.items)
}
