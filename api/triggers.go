package api

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/ksd-co/rule-engine-postgres/store"
	"github.com/ksd-co/rule-engine-postgres/triggerpipeline"
	"github.com/ksd-co/rule-engine-postgres/types"
)

// TriggerEngine adds trigger management (spec §6 "Trigger management:
// create, enable, disable, delete, list, history by id and time range") on
// top of Engine's store access.
type TriggerEngine struct {
	*Engine
	Triggers *store.TriggerConfigRepository
	History  *store.TriggerHistoryRepository
}

// NewTriggerSpec is the input to CreateTrigger: a decoded Trigger
// Configuration (spec §3) before it is persisted as a row.
type NewTriggerSpec struct {
	Name        string
	TableName   string
	Operation   triggerpipeline.Operation
	Timing      triggerpipeline.Timing
	Mode        triggerpipeline.Mode
	ProgramName string
	FactMapping triggerpipeline.FactMapping
	MaxRetries  int
	Enabled     bool
}

// CreateTrigger persists a new Trigger Configuration, assigning it a fresh
// id.
func (t *TriggerEngine) CreateTrigger(ctx context.Context, spec NewTriggerSpec) (store.TriggerConfigRow, *types.Error) {
	id, err := uuid.NewV4()
	if err != nil {
		return store.TriggerConfigRow{}, types.NewError(types.CodeTriggerMisconfigured, err.Error(), nil)
	}
	mapping, merr := json.Marshal(spec.FactMapping)
	if merr != nil {
		return store.TriggerConfigRow{}, types.NewError(types.CodeTriggerMisconfigured, merr.Error(), nil)
	}
	row := store.TriggerConfigRow{
		ID:          id.String(),
		TableName:   spec.TableName,
		Operation:   string(spec.Operation),
		Enabled:     spec.Enabled,
		Timing:      string(spec.Timing),
		Mode:        string(spec.Mode),
		ProgramName: spec.ProgramName,
		FactMapping: mapping,
		MaxRetries:  spec.MaxRetries,
	}
	if err := t.Triggers.Upsert(ctx, row); err != nil {
		return store.TriggerConfigRow{}, types.NewError(types.CodeTriggerMisconfigured, err.Error(), nil)
	}
	return row, nil
}

func (t *TriggerEngine) setEnabled(ctx context.Context, id string, enabled bool) *types.Error {
	row, err := t.Triggers.Get(ctx, id)
	if err != nil {
		return types.NewError(types.CodeTriggerMisconfigured, err.Error(), nil)
	}
	row.Enabled = enabled
	if err := t.Triggers.Upsert(ctx, row); err != nil {
		return types.NewError(types.CodeTriggerMisconfigured, err.Error(), nil)
	}
	return nil
}

// EnableTrigger flips a trigger's enabled flag on.
func (t *TriggerEngine) EnableTrigger(ctx context.Context, id string) *types.Error {
	return t.setEnabled(ctx, id, true)
}

// DisableTrigger flips a trigger's enabled flag off.
func (t *TriggerEngine) DisableTrigger(ctx context.Context, id string) *types.Error {
	return t.setEnabled(ctx, id, false)
}

// DeleteTrigger removes a trigger configuration entirely.
func (t *TriggerEngine) DeleteTrigger(ctx context.Context, id string) *types.Error {
	if err := t.Triggers.Delete(ctx, id); err != nil {
		return types.NewError(types.CodeTriggerMisconfigured, err.Error(), nil)
	}
	return nil
}

// ListTriggers returns every configured trigger.
func (t *TriggerEngine) ListTriggers(ctx context.Context) ([]store.TriggerConfigRow, *types.Error) {
	rows, err := t.Triggers.List(ctx)
	if err != nil {
		return nil, types.NewError(types.CodeTriggerMisconfigured, err.Error(), nil)
	}
	return rows, nil
}

// TriggerHistory returns history rows for id within [from, to] (spec §6
// "history by id and time range").
func (t *TriggerEngine) TriggerHistory(ctx context.Context, id string, from, to time.Time) ([]store.TriggerHistoryRow, *types.Error) {
	rows, err := t.History.ForTriggerInRange(ctx, id, from, to)
	if err != nil {
		return nil, types.NewError(types.CodeTriggerMisconfigured, err.Error(), nil)
	}
	return rows, nil
}
