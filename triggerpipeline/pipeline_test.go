package triggerpipeline

import (
	"context"
	"testing"

	"github.com/ksd-co/rule-engine-postgres/dsl"
	"github.com/ksd-co/rule-engine-postgres/dsl/dslref"
	"github.com/ksd-co/rule-engine-postgres/kernel"
	"github.com/ksd-co/rule-engine-postgres/types"
	"github.com/stretchr/testify/require"
)

type fakePrograms struct {
	programs map[string]*kernel.CompiledProgram
}

func (f *fakePrograms) Lookup(ruleName string) (*kernel.CompiledProgram, error) {
	return f.programs[ruleName], nil
}

func compileNamed(t *testing.T, name, source string) (string, *kernel.CompiledProgram) {
	t.Helper()
	prog, err := dslref.Parse(source)
	require.NoError(t, err)
	cp, err := kernel.Compile(prog, nil)
	require.NoError(t, err)
	return name, cp
}

type fakeWriter struct {
	calls []RowImage
}

func (w *fakeWriter) WriteBack(ctx context.Context, table, rowID string, columns RowImage) error {
	w.calls = append(w.calls, columns)
	return nil
}

func TestDispatchSyncAppliesBeforeWriteBack(t *testing.T) {
	name, cp := compileNamed(t, "discount", `rule "d" when Order.total > 1000 then assign Order.discount = Order.total * 0.1;`)
	writer := &fakeWriter{}
	p := &Pipeline{
		Programs: &fakePrograms{programs: map[string]*kernel.CompiledProgram{name: cp}},
		Writer:   writer,
		guard:    newReentrancyGuard(),
	}
	p.Registry = nil // Dispatch/runSync must tolerate a nil Registry the way kernel.Evaluate defaults it
	p.Config = types.NewConfig()

	trig := Config{
		ID: "t1", Name: "discount-trigger", TableName: "orders", RuleName: name,
		Event: OpInsert, Timing: TimingBefore, Mode: ModeSync, Enabled: true,
		FactMapping: FactMapping{"Order": {"total": "total", "discount": "discount"}},
	}

	err := p.Dispatch(context.Background(), trig, OpInsert, "row-1", RowImage{"total": int64(1500)})
	require.NoError(t, err)
	require.Len(t, writer.calls, 1)
	require.Equal(t, float64(150), writer.calls[0]["discount"])
}

func TestDispatchSkipsWhenPredicateFalse(t *testing.T) {
	name, cp := compileNamed(t, "r", `rule "r" when Order.total > 0 then assign Order.seen = true;`)
	writer := &fakeWriter{}
	p := &Pipeline{
		Programs: &fakePrograms{programs: map[string]*kernel.CompiledProgram{name: cp}},
		Writer:   writer,
		guard:    newReentrancyGuard(),
		Config:   types.NewConfig(),
	}

	falsePredicate := dsl.Expr{Kind: dsl.ExprLiteral, LitKind: dsl.LitBool, Bool: false}
	trig := Config{
		ID: "t2", TableName: "orders", RuleName: name, Event: OpInsert,
		Timing: TimingAfter, Mode: ModeSync, Enabled: true, WhenPredicate: &falsePredicate,
		FactMapping: FactMapping{"Order": {"total": "total"}},
	}

	err := p.Dispatch(context.Background(), trig, OpInsert, "row-2", RowImage{"total": int64(10)})
	require.NoError(t, err)
	require.Empty(t, writer.calls, "a false whenPredicate must never reach rule evaluation or write-back")
}

func TestDispatchRejectsReentrantRow(t *testing.T) {
	p := &Pipeline{guard: newReentrancyGuard()}
	trig := Config{ID: "t3", Enabled: true, Mode: ModeSync}

	require.True(t, p.guard.Enter("t3", "row-3"))
	err := p.Dispatch(context.Background(), trig, OpInsert, "row-3", RowImage{})
	require.Error(t, err)
}
