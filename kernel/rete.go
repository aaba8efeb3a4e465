package kernel

import (
	"github.com/ksd-co/rule-engine-postgres/dsl"
)

// reteNetwork is an arena-indexed alpha/beta network (spec §9 Design Notes:
// "arena allocation with integer node indices rather than shared-ownership
// pointers"). alphaIndex maps an entity name to the rule indices whose
// condition reads that entity at all — the network's only job is avoiding a
// full rescan of every rule after every fact mutation; re-testing a
// candidate rule's condition still goes through the ordinary evaluator.
type reteNetwork struct {
	// dependsOn[i] is the set of entity names rule i's condition reads.
	// Since built-ins never read facts directly (spec §4.C), every fact
	// dependency of a condition is reachable by walking its Path nodes.
	dependsOn []map[string]bool

	// alphaIndex maps entity name -> rule indices that depend on it, the
	// "alpha node" side of the network: a FactAssigned under that entity is
	// the only thing that can flip one of these rules' match state.
	alphaIndex map[string][]int
}

func buildReteNetwork(rules []CompiledRule) *reteNetwork {
	net := &reteNetwork{
		dependsOn:  make([]map[string]bool, len(rules)),
		alphaIndex: make(map[string][]int),
	}
	for i, r := range rules {
		deps := make(map[string]bool)
		collectPathEntities(r.Condition, deps)
		net.dependsOn[i] = deps
		for entity := range deps {
			net.alphaIndex[entity] = append(net.alphaIndex[entity], i)
		}
	}
	return net
}

func collectPathEntities(e dsl.Expr, out map[string]bool) {
	switch e.Kind {
	case dsl.ExprPath:
		out[entityOf(e.Path)] = true
	case dsl.ExprUnary:
		collectPathEntities(*e.Operand, out)
	case dsl.ExprBinary, dsl.ExprLogical:
		collectPathEntities(*e.Left, out)
		collectPathEntities(*e.Right, out)
	case dsl.ExprCall:
		for _, a := range e.Args {
			collectPathEntities(a, out)
		}
	}
}

func entityOf(path string) string {
	for i, r := range path {
		if r == '.' {
			return path[:i]
		}
	}
	return path
}

// candidateRules returns the rule indices that might newly match because
// entity's facts just changed, deduplicated against already.
func (net *reteNetwork) candidateRules(entity string, already map[int]bool) []int {
	var out []int
	for _, idx := range net.alphaIndex[entity] {
		if !already[idx] {
			out = append(out, idx)
			already[idx] = true
		}
	}
	return out
}

// evaluateRete is the incremental-propagation back-end (spec §4.D: "shared
// alpha/beta nodes, incremental working memory"). It seeds the agenda from
// every rule once, then after each firing only re-tests rules whose
// dependency set intersects the entities that firing actually changed,
// instead of rescanning the whole rule set like the linear back-end.
func evaluateRete(program *CompiledProgram, ctx evalCtx, opts Options, session *Session) Status {
	net := program.reteFor()
	indexOf := ruleIndexByName(program)
	agenda := newAgenda()

	testAndSchedule := func(i int) {
		rule := program.Rules[i]
		if agenda.IsRetracted(rule.Name) {
			return
		}
		matched, err := conditionMatches(rule, ctx)
		if err != nil {
			session.record(Event{Kind: EventError, RuleName: rule.Name, ErrorMessage: err.Error(), ErrorCode: errorCode(err)})
			return
		}
		if matched && !agenda.WasMatched(i) {
			agenda.Push(AgendaItem{RuleIndex: i, Salience: rule.Salience, InsertionIndex: i}, rule.Name)
			session.record(Event{Kind: EventRuleMatched, RuleName: rule.Name})
		} else if !matched && agenda.WasMatched(i) {
			agenda.Deactivate(i)
		}
		agenda.SetMatched(i, matched)
	}

	for i := range program.Rules {
		testAndSchedule(i)
	}

	iterations := 0
	for agenda.Len() > 0 {
		if iterations >= opts.MaxIterations {
			return StatusNontermination
		}
		if opts.timeoutCheck != nil && opts.timeoutCheck() {
			return StatusTimeout
		}
		iterations++

		item, ok := agenda.PopHighest()
		if !ok {
			break
		}
		rule := program.Rules[item.RuleIndex]
		if agenda.IsRetracted(rule.Name) {
			continue
		}

		before := len(session.Steps)
		_, err := applyActions(rule, ctx, agenda, indexOf, session, opts.Logger, opts.Aspects)
		if err != nil && opts.Strict {
			return StatusFailed
		}

		changedEntities := make(map[string]bool)
		for _, e := range session.Steps[before:] {
			if e.Kind == EventFactAssigned {
				changedEntities[entityOf(e.Path)] = true
			}
		}

		already := make(map[int]bool)
		for entity := range changedEntities {
			for _, idx := range net.candidateRules(entity, already) {
				testAndSchedule(idx)
			}
		}
	}

	return StatusCompleted
}
