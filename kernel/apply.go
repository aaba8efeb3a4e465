package kernel

import (
	"errors"
	"fmt"

	"github.com/ksd-co/rule-engine-postgres/dsl"
	"github.com/ksd-co/rule-engine-postgres/fact"
	"github.com/ksd-co/rule-engine-postgres/types"
	pkgerrors "github.com/pkg/errors"
)

// ruleIndexOf resolves a rule name back to its index in the compiled
// program, used by Retract actions to drop matching agenda entries.
type ruleIndexOf func(name string) (int, bool)

// applyActions runs rule's actions in textual order (spec §4.D step 4d). If
// one action fails, remaining actions of that rule are skipped, an Error
// event is recorded, and the caller continues with the next agenda item
// (spec §4.D: "evaluation continues with the next agenda item"). It reports
// whether any fact actually changed, driving fixpoint detection.
func applyActions(rule CompiledRule, ctx evalCtx, agenda *Agenda, resolve ruleIndexOf, session *Session, logger types.Logger, aspects types.AspectList) (changed bool, err error) {
	firingCtx := &firingContext{sessionID: session.ID, ruleName: rule.Name, salience: rule.Salience}

	beforeRule := aspects.GetBeforeRuleAspects()
	afterRule := aspects.GetAfterRuleAspects()
	beforeAction := aspects.GetBeforeActionAspects()
	afterAction := aspects.GetAfterActionAspects()

	for _, a := range beforeRule {
		if a.PointCut(firingCtx) {
			if aspectErr := a.BeforeRule(firingCtx); aspectErr != nil {
				return changed, aspectErr
			}
		}
	}

	var fireErr error
	for i, action := range rule.Actions {
		for _, a := range beforeAction {
			if a.PointCut(firingCtx) {
				if aspectErr := a.BeforeAction(firingCtx, i); aspectErr != nil {
					fireErr = aspectErr
					break
				}
			}
		}
		if fireErr != nil {
			break
		}

		var mutated bool
		mutated, fireErr = applyOne(action, ctx, agenda, resolve, session, logger, rule.Name)
		if mutated {
			changed = true
		}

		for _, a := range afterAction {
			if a.PointCut(firingCtx) {
				_ = a.AfterAction(firingCtx, i, fireErr)
			}
		}

		if fireErr != nil {
			session.record(Event{
				Kind:         EventError,
				RuleName:     rule.Name,
				ActionIndex:  i,
				ErrorMessage: fireErr.Error(),
				ErrorCode:    errorCode(fireErr),
			})
			break
		}
	}

	for _, a := range afterRule {
		if a.PointCut(firingCtx) {
			_ = a.AfterRule(firingCtx, fireErr)
		}
	}

	session.record(Event{Kind: EventRuleFired, RuleName: rule.Name})
	return changed, fireErr
}

func applyOne(action dsl.Action, ctx evalCtx, agenda *Agenda, resolve ruleIndexOf, session *Session, logger types.Logger, ruleName string) (bool, error) {
	switch action.Kind {
	case dsl.ActionAssign:
		before, _ := ctx.facts.Get(action.Path)
		after, err := evalExpr(action.Value, ctx)
		if err != nil {
			return false, err
		}
		if err := ctx.facts.Set(action.Path, after); err != nil {
			return false, err
		}
		session.record(Event{Kind: EventFactAssigned, RuleName: ruleName, Path: action.Path, Before: before, After: after})
		return !fact.Equal(before, after), nil

	case dsl.ActionLog:
		v, err := evalExpr(action.Message, ctx)
		if err != nil {
			return false, err
		}
		if logger != nil {
			logger.Printf("rule %s: %v", ruleName, renderLogValue(v))
		}
		return false, nil

	case dsl.ActionRetract:
		agenda.Retract(action.RuleName, resolve)
		session.record(Event{Kind: EventRuleRetracted, RuleName: action.RuleName})
		return false, nil

	case dsl.ActionCall:
		args := make([]fact.Value, len(action.Args))
		for i, a := range action.Args {
			v, err := evalExpr(a, ctx)
			if err != nil {
				return false, err
			}
			args[i] = v
		}
		_, err := ctx.registry.Call(action.Func, args)
		if err != nil {
			return false, pkgerrors.Wrapf(err, "call %s in rule %s", action.Func, ruleName)
		}
		return false, nil

	default:
		return false, types.NewError(types.CodeInputMalformed, fmt.Sprintf("unknown action kind %q", action.Kind), nil)
	}
}

func renderLogValue(v fact.Value) string {
	switch t := v.(type) {
	case fact.String:
		return string(t)
	default:
		return fmt.Sprintf("%v", t)
	}
}

func errorCode(err error) types.Code {
	var be *types.Error
	if errors.As(err, &be) {
		return be.Code
	}
	return types.CodeTypeMismatch
}

// firingContext is the kernel's types.FiringContext implementation handed to
// aspects during a rule's firing.
type firingContext struct {
	sessionID string
	ruleName  string
	salience  int
}

func (f *firingContext) SessionID() string { return f.sessionID }
func (f *firingContext) RuleName() string  { return f.ruleName }
func (f *firingContext) Salience() int     { return f.salience }
