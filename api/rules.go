package api

import (
	"context"

	"github.com/ksd-co/rule-engine-postgres/dsl"
	"github.com/ksd-co/rule-engine-postgres/dsl/dslref"
	"github.com/ksd-co/rule-engine-postgres/store"
	"github.com/ksd-co/rule-engine-postgres/types"
)

// SaveRule creates name at version 1, or errors if it already exists (spec
// §6 "save ... with a monotonic integer version counter per name").
func (e *Engine) SaveRule(ctx context.Context, name, source string) (store.RuleProgramRow, *types.Error) {
	fp, err := fingerprintOf(source)
	if err != nil {
		return store.RuleProgramRow{}, err
	}
	row, dberr := e.Rules.Create(ctx, name, source, fp)
	if dberr != nil {
		return store.RuleProgramRow{}, types.NewError(types.CodeInputMalformed, dberr.Error(), nil)
	}
	return row, nil
}

// UpdateRule replaces name's source, incrementing its version counter.
func (e *Engine) UpdateRule(ctx context.Context, name, source string) (store.RuleProgramRow, *types.Error) {
	fp, err := fingerprintOf(source)
	if err != nil {
		return store.RuleProgramRow{}, err
	}
	row, dberr := e.Rules.Update(ctx, name, source, fp)
	if dberr != nil {
		return store.RuleProgramRow{}, types.NewError(types.CodeInputMalformed, dberr.Error(), nil)
	}
	return row, nil
}

// GetRule looks up name's current version.
func (e *Engine) GetRule(ctx context.Context, name string) (store.RuleProgramRow, *types.Error) {
	row, err := e.Rules.Get(ctx, name)
	if err != nil {
		return store.RuleProgramRow{}, types.NewError(types.CodeInputMalformed, err.Error(), nil)
	}
	return row, nil
}

// ListRules returns every named rule program.
func (e *Engine) ListRules(ctx context.Context) ([]store.RuleProgramRow, *types.Error) {
	rows, err := e.Rules.List(ctx)
	if err != nil {
		return nil, types.NewError(types.CodeInputMalformed, err.Error(), nil)
	}
	return rows, nil
}

// DeleteRule removes name entirely.
func (e *Engine) DeleteRule(ctx context.Context, name string) *types.Error {
	if err := e.Rules.Delete(ctx, name); err != nil {
		return types.NewError(types.CodeInputMalformed, err.Error(), nil)
	}
	return nil
}

func fingerprintOf(source string) (string, *types.Error) {
	program, err := dslref.Parse(source)
	if err != nil {
		return "", types.NewError(types.CodeParseFailure, err.Error(), nil)
	}
	fp, err := dsl.ComputeFingerprint(program)
	if err != nil {
		return "", types.NewError(types.CodeParseFailure, err.Error(), nil)
	}
	return fp.String(), nil
}
