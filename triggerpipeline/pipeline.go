package triggerpipeline

import (
	"context"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/ksd-co/rule-engine-postgres/builtins"
	"github.com/ksd-co/rule-engine-postgres/fact"
	"github.com/ksd-co/rule-engine-postgres/kernel"
	"github.com/ksd-co/rule-engine-postgres/recorder"
	"github.com/ksd-co/rule-engine-postgres/store"
	"github.com/ksd-co/rule-engine-postgres/types"
)

// ProgramSource resolves a rule name to its compiled program, normally the
// compiled-rule cache fronting the rule repository (spec §4.E/§6).
type ProgramSource interface {
	Lookup(ruleName string) (*kernel.CompiledProgram, error)
}

// RowWriter applies a BEFORE-timing trigger's reverse-mapped columns back
// into the host row (spec §4.G step 4). Isolated behind an interface so the
// pipeline core stays testable without a live database (spec's own REDESIGN
// FLAG: "rowImage → factsText → resultFactsText").
type RowWriter interface {
	WriteBack(ctx context.Context, table, rowID string, columns RowImage) error
}

// Pipeline is the Reactive Trigger Pipeline's sync/async dispatcher.
type Pipeline struct {
	Programs ProgramSource
	Registry *builtins.Registry
	Config   types.Config
	Recorder *recorder.Recorder
	History  *store.TriggerHistoryRepository
	Queue    *store.PendingQueueRepository
	Writer   RowWriter

	guard *reentrancyGuard
}

// New builds a Pipeline. Recorder, Queue, and Writer may be nil for a
// sync-only, unrecorded deployment; Programs and History are required.
func New(programs ProgramSource, history *store.TriggerHistoryRepository) *Pipeline {
	return &Pipeline{
		Programs: programs,
		Registry: builtins.New(),
		Config:   types.NewConfig(),
		History:  history,
		guard:    newReentrancyGuard(),
	}
}

// Dispatch runs the full per-row-change dataflow described in spec §4.G
// steps 1-4 for a single already-matched trigger config. Trigger lookup by
// (table, operation) is the caller's responsibility (store.TriggerConfigRepository.FindEnabled)
// since that is a plain indexed query, not pipeline logic.
func (p *Pipeline) Dispatch(ctx context.Context, trig Config, op Operation, rowID string, row RowImage) error {
	if !trig.Enabled {
		return nil
	}
	if !p.guard.Enter(trig.ID, rowID) {
		return types.NewError(types.CodeTriggerMisconfigured, "trigger dispatch re-entered for the same row within one operation", map[string]interface{}{
			"trigger": trig.ID, "row": rowID,
		})
	}
	defer p.guard.Exit(trig.ID, rowID)

	facts := BuildFacts(trig.FactMapping, row)

	if trig.WhenPredicate != nil {
		matched, err := kernel.EvalPredicate(*trig.WhenPredicate, facts, p.Registry)
		if err != nil {
			return err
		}
		if !matched {
			// Spec invariant 9: a false whenPredicate must not record a
			// history row, so we return before any recording happens.
			return nil
		}
	}

	switch trig.Mode {
	case ModeAsync:
		return p.enqueueAsync(ctx, trig, op, rowID, facts)
	default:
		return p.runSync(ctx, trig, op, rowID, facts)
	}
}

func (p *Pipeline) runSync(ctx context.Context, trig Config, op Operation, rowID string, facts *fact.Facts) error {
	started := time.Now()

	program, err := p.Programs.Lookup(trig.RuleName)
	if err != nil {
		p.recordHistory(ctx, trig, rowID, started, facts, nil, err)
		return err
	}

	resultFacts, session, evalErr := kernel.Evaluate(facts, program, p.Config, kernel.Options{Registry: p.Registry})
	p.recordHistory(ctx, trig, rowID, started, facts, resultFacts, evalErr)

	if p.Recorder != nil && session != nil {
		_ = p.Recorder.Record(ctx, trig.RuleName, session)
	}

	// Sync-mode failure policy (spec §4.G): kernel errors propagate up to
	// abort the hosting transaction; the history row above already recorded
	// the error before we return it.
	if evalErr != nil {
		return evalErr
	}

	if trig.Timing == TimingBefore && (op == OpInsert || op == OpUpdate) && p.Writer != nil {
		columns := ReverseWriteBack(trig.FactMapping, resultFacts)
		if err := p.Writer.WriteBack(ctx, trig.TableName, rowID, columns); err != nil {
			return err
		}
	}

	if trig.SideEffectHandler != nil {
		trig.SideEffectHandler(facts, resultFacts)
	}

	return nil
}

func (p *Pipeline) recordHistory(ctx context.Context, trig Config, rowID string, started time.Time, before, after *fact.Facts, evalErr error) {
	if p.History == nil {
		return
	}
	id, _ := uuid.NewV4()
	beforeJSON, _ := before.Serialize()
	var afterJSON string
	if after != nil {
		afterJSON, _ = after.Serialize()
	}
	row := store.TriggerHistoryRow{
		ID:          id.String(),
		TriggerID:   trig.ID,
		RowID:       rowID,
		Success:     evalErr == nil,
		FactsBefore: []byte(beforeJSON),
		StartedAt:   started,
		DurationMs:  time.Since(started).Milliseconds(),
	}
	if afterJSON != "" {
		row.FactsAfter = []byte(afterJSON)
	}
	if evalErr != nil {
		msg := evalErr.Error()
		row.ErrorMessage = &msg
	}
	_ = p.History.Insert(ctx, row)
}

func (p *Pipeline) enqueueAsync(ctx context.Context, trig Config, op Operation, rowID string, facts *fact.Facts) error {
	if p.Queue == nil {
		return types.NewError(types.CodeTriggerMisconfigured, "async trigger has no queue configured", map[string]interface{}{"trigger": trig.ID})
	}
	text, err := facts.Serialize()
	if err != nil {
		return err
	}
	return p.Queue.Enqueue(ctx, trig.ID, rowID, string(op), []byte(text))
}
