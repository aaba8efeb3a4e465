// Package api is the Programmatic API (spec §6): the callable surface the
// host database exposes — evaluate/evaluateWith/evaluateTraced, rule
// repository CRUD, trigger and webhook management, outbound dispatch, and
// observability accessors. Every callable follows the spec §7 exit
// discipline: success returns a value, failure returns a *types.Error, and
// nothing panics across this boundary.
package api

import (
	"context"

	"github.com/ksd-co/rule-engine-postgres/builtins"
	"github.com/ksd-co/rule-engine-postgres/cache"
	"github.com/ksd-co/rule-engine-postgres/dsl"
	"github.com/ksd-co/rule-engine-postgres/dsl/dslref"
	"github.com/ksd-co/rule-engine-postgres/fact"
	"github.com/ksd-co/rule-engine-postgres/kernel"
	"github.com/ksd-co/rule-engine-postgres/recorder"
	"github.com/ksd-co/rule-engine-postgres/store"
	"github.com/ksd-co/rule-engine-postgres/types"
)

// maxInputBytes is the 1 MiB cap spec §6/invariant 10 requires enforced
// "before any work is done" — checked ahead of parsing or deserializing.
const maxInputBytes = 1 << 20

// Engine wires the cache, rule repository, and recorder into the
// Programmatic API's evaluate family. Trigger/webhook/outbound/
// observability accessors live in sibling files but share this Engine.
type Engine struct {
	Cache    *cache.Cache
	Rules    *store.RuleRepository
	Recorder *recorder.Recorder
	Registry *builtins.Registry
	Config   types.Config

	// udfErr holds a cfg.Udf registration failure from NewEngine (e.g. an
	// unparseable goja script), surfaced on the next evaluate call rather
	// than panicking out of a constructor.
	udfErr *types.Error
}

// NewEngine builds an Engine with a fresh builtins registry, extended with
// any custom functions registered on cfg (cfg.Udf; see
// types.Config.RegisterUdf) before the registry is handed to evaluation —
// after this point the registry is immutable per spec §4.C.
func NewEngine(c *cache.Cache, rules *store.RuleRepository, rec *recorder.Recorder, cfg types.Config) *Engine {
	registry := builtins.New()
	e := &Engine{Cache: c, Rules: rules, Recorder: rec, Registry: registry, Config: cfg}
	if err := registry.RegisterUdfs(cfg.Udf); err != nil {
		if be, ok := err.(*types.Error); ok {
			e.udfErr = be
		}
	}
	return e
}

func checkSize(text string) *types.Error {
	if len(text) == 0 {
		return types.NewError(types.CodeInputEmpty, "input must not be empty", nil)
	}
	if len(text) > maxInputBytes {
		return types.NewError(types.CodeInputTooLarge, "input exceeds 1 MiB", map[string]interface{}{"bytes": len(text)})
	}
	return nil
}

// compile parses rulesSource, fingerprints it, and acquires a compiled
// program from the shared cache — the one choke point every evaluate
// variant funnels through, so fingerprinting/cache/compile-error handling
// lives in exactly one place.
func (e *Engine) compile(rulesSource string) (*kernel.CompiledProgram, dsl.Fingerprint, cache.ReleaseFunc, *types.Error) {
	program, err := dslref.Parse(rulesSource)
	if err != nil {
		return nil, dsl.Fingerprint{}, nil, types.NewError(types.CodeParseFailure, err.Error(), nil)
	}
	fp, err := dsl.ComputeFingerprint(program)
	if err != nil {
		return nil, dsl.Fingerprint{}, nil, types.NewError(types.CodeParseFailure, err.Error(), nil)
	}
	cp, release, err := e.Cache.Acquire(fp, func() (*kernel.CompiledProgram, error) {
		return kernel.Compile(program, nil)
	})
	if err != nil {
		return nil, fp, nil, types.NewError(types.CodeCompileCacheUnavailable, err.Error(), nil)
	}
	return cp, fp, release, nil
}

// Evaluate is the default back-end evaluate call (spec §6).
func (e *Engine) Evaluate(factsText, rulesSource string) (string, *types.Error) {
	return e.EvaluateWith(factsText, rulesSource, e.Config.BackEnd)
}

// EvaluateWith evaluates with an explicit back-end override.
func (e *Engine) EvaluateWith(factsText, rulesSource string, backEnd types.BackEnd) (string, *types.Error) {
	result, _, _, err := e.evaluate(factsText, rulesSource, backEnd, false)
	if err != nil {
		return "", err
	}
	return result, nil
}

// EvaluateTraced evaluates and additionally persists the session via the
// recorder, returning the session id alongside the result facts (spec §6
// "evaluateTraced(factsText, rulesSource) → (factsText, sessionId)").
func (e *Engine) EvaluateTraced(ctx context.Context, factsText, rulesSource string) (string, string, *types.Error) {
	result, session, fp, err := e.evaluate(factsText, rulesSource, e.Config.BackEnd, true)
	if err != nil {
		return "", "", err
	}
	sessionID := ""
	if session != nil {
		sessionID = session.ID
		if e.Recorder != nil {
			if recErr := e.Recorder.Record(ctx, fp.String(), session); recErr != nil {
				return result, sessionID, types.NewError(types.CodeInputMalformed, recErr.Error(), nil)
			}
		}
	}
	return result, sessionID, nil
}

func (e *Engine) evaluate(factsText, rulesSource string, backEnd types.BackEnd, trace bool) (string, *kernel.Session, dsl.Fingerprint, *types.Error) {
	if e.udfErr != nil {
		return "", nil, dsl.Fingerprint{}, e.udfErr
	}
	if err := checkSize(factsText); err != nil {
		return "", nil, dsl.Fingerprint{}, err
	}
	if err := checkSize(rulesSource); err != nil {
		return "", nil, dsl.Fingerprint{}, err
	}

	facts, perr := fact.Deserialize(factsText)
	if perr != nil {
		return "", nil, dsl.Fingerprint{}, types.NewError(types.CodeInputMalformed, perr.Error(), nil)
	}

	cp, fp, release, cerr := e.compile(rulesSource)
	if cerr != nil {
		return "", nil, fp, cerr
	}
	defer release()

	resultFacts, session, evalErr := kernel.Evaluate(facts, cp, e.Config, kernel.Options{
		BackEnd:  backEnd,
		Registry: e.Registry,
		Trace:    trace,
	})
	if evalErr != nil {
		return "", session, fp, translateEvalError(evalErr)
	}

	out, serr := resultFacts.Serialize()
	if serr != nil {
		return "", session, fp, types.NewError(types.CodeInputMalformed, serr.Error(), nil)
	}
	return out, session, fp, nil
}

// translateEvalError maps a kernel evaluation error onto the boundary's
// *types.Error shape. kernel.Evaluate already returns errors built from
// types.NewError internally (see kernel/evaluate.go), so this is a type
// assertion with a generic fallback for anything that somehow isn't.
func translateEvalError(err error) *types.Error {
	if be, ok := err.(*types.Error); ok {
		return be
	}
	return types.NewError(types.CodeTypeMismatch, err.Error(), nil)
}
