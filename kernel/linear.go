package kernel

import (
	"github.com/ksd-co/rule-engine-postgres/builtins"
	"github.com/ksd-co/rule-engine-postgres/dsl"
	"github.com/ksd-co/rule-engine-postgres/fact"
	"github.com/ksd-co/rule-engine-postgres/types"
)

// evaluateLinear is the "parse, agenda, one-shot salience-ordered firing"
// back-end (spec §4.D): after every firing it re-scans the whole rule set
// once, rather than propagating incremental deltas the way RETE does.
// Preferred for small, one-shot programs (spec §4.D back-end rationale).
func evaluateLinear(program *CompiledProgram, ctx evalCtx, opts Options, session *Session) Status {
	indexOf := ruleIndexByName(program)
	agenda := newAgenda()

	scan := func() {
		for i, rule := range program.Rules {
			if agenda.IsRetracted(rule.Name) {
				continue
			}
			matched, err := conditionMatches(rule, ctx)
			if err != nil {
				session.record(Event{Kind: EventError, RuleName: rule.Name, ErrorMessage: err.Error(), ErrorCode: errorCode(err)})
				continue
			}
			if matched && !agenda.WasMatched(i) {
				agenda.Push(AgendaItem{RuleIndex: i, Salience: rule.Salience, InsertionIndex: i}, rule.Name)
				session.record(Event{Kind: EventRuleMatched, RuleName: rule.Name})
			} else if !matched && agenda.WasMatched(i) {
				agenda.Deactivate(i)
			}
			agenda.SetMatched(i, matched)
		}
	}

	scan()

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

		_, err := applyActions(rule, ctx, agenda, indexOf, session, opts.Logger, opts.Aspects)
		if err != nil && opts.Strict {
			return StatusFailed
		}

		scan()
	}

	return StatusCompleted
}

// EvalPredicate evaluates a standalone boolean expression against facts,
// outside of any rule program — the trigger pipeline's whenPredicate (spec
// §4.G step 2) is the only caller, since it guards dispatch before a rule
// program is even looked up.
func EvalPredicate(expr dsl.Expr, facts *fact.Facts, registry *builtins.Registry) (bool, error) {
	if registry == nil {
		registry = builtins.New()
	}
	v, err := evalExpr(expr, evalCtx{facts: facts, registry: registry})
	if err != nil {
		return false, err
	}
	b, ok := v.(fact.Bool)
	if !ok {
		return false, types.NewError(types.CodeTypeMismatch, "whenPredicate did not evaluate to Bool", map[string]interface{}{
			"got": string(v.Kind()),
		})
	}
	return bool(b), nil
}

func ruleIndexByName(program *CompiledProgram) ruleIndexOf {
	byName := make(map[string]int, len(program.Rules))
	for i, r := range program.Rules {
		byName[r.Name] = i
	}
	return func(name string) (int, bool) {
		i, ok := byName[name]
		return i, ok
	}
}

// conditionMatches evaluates rule's condition and requires it to be Bool, the
// same way a Logical operand does (spec §3: "Expr is a side-effect-free
// boolean expression tree").
func conditionMatches(rule CompiledRule, ctx evalCtx) (bool, error) {
	v, err := evalExpr(rule.Condition, ctx)
	if err != nil {
		return false, err
	}
	b, ok := v.(fact.Bool)
	if !ok {
		return false, types.NewError(types.CodeTypeMismatch, "condition did not evaluate to Bool", map[string]interface{}{
			"rule": rule.Name, "got": string(v.Kind()),
		})
	}
	return bool(b), nil
}
