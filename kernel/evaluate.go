package kernel

import (
	"time"

	"github.com/ksd-co/rule-engine-postgres/fact"
	"github.com/ksd-co/rule-engine-postgres/types"
)

// Evaluate runs program against facts and returns the resulting facts plus a
// full session trace (spec §4.D: "evaluate(facts, program, options) →
// (newFacts, session)"). facts is never mutated in place: evaluation works
// against a clone so a caller holding the original is unaffected (spec §3
// Facts lifecycle: "mutated only by the kernel's applicator").
func Evaluate(facts *fact.Facts, program *CompiledProgram, cfg types.Config, opts Options) (*fact.Facts, *Session, error) {
	opts = opts.withDefaults(cfg)
	session := newSession()

	working := facts.Snapshot()
	ctx := evalCtx{facts: working, registry: opts.Registry}

	backEnd := resolveBackEnd(opts, len(program.Rules))
	if opts.Timeout > 0 {
		deadline := time.Now().Add(opts.Timeout)
		opts.timeoutCheck = func() bool { return time.Now().After(deadline) }
	}

	var status Status
	switch backEnd {
	case types.BackEndLinear:
		status = evaluateLinear(program, ctx, opts, session)
	default:
		status = evaluateRete(program, ctx, opts, session)
	}

	session.FinalFacts = working.Snapshot()
	session.Status = status

	switch status {
	case StatusNontermination:
		return session.FinalFacts, session, types.NewError(types.CodeNontermination, "evaluation exceeded max iterations", map[string]interface{}{
			"maxIterations": opts.MaxIterations,
		})
	case StatusTimeout:
		return session.FinalFacts, session, types.NewError(types.CodeTimeout, "evaluation exceeded its wall-clock budget", nil)
	case StatusFailed:
		return session.FinalFacts, session, lastSessionError(session)
	default:
		return session.FinalFacts, session, nil
	}
}

// lastSessionError reconstructs the boundary error for a strict-mode
// terminal failure from the last recorded Error event, since the back-ends
// themselves only return a Status (the failing action's error is already on
// the trace — spec §7: "strict mode converts them to a terminal session
// error").
func lastSessionError(session *Session) error {
	for i := len(session.Steps) - 1; i >= 0; i-- {
		if session.Steps[i].Kind == EventError {
			e := session.Steps[i]
			return types.NewError(e.ErrorCode, e.ErrorMessage, map[string]interface{}{"rule": e.RuleName})
		}
	}
	return types.NewError(types.CodeTypeMismatch, "evaluation failed in strict mode", nil)
}
