package api

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/ksd-co/rule-engine-postgres/store"
	"github.com/ksd-co/rule-engine-postgres/triggerpipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTriggerEngine(t *testing.T) (*TriggerEngine, sqlmock.Sqlmock) {
	db, mock := newMockDB(t)
	return &TriggerEngine{
		Engine:   &Engine{},
		Triggers: store.NewTriggerConfigRepository(db),
		History:  store.NewTriggerHistoryRepository(db),
	}, mock
}

func TestCreateTriggerAssignsIDAndPersists(t *testing.T) {
	te, mock := newTestTriggerEngine(t)

	mock.ExpectExec(`INSERT INTO trigger_configs`).WillReturnResult(sqlmock.NewResult(0, 1))

	row, err := te.CreateTrigger(context.Background(), NewTriggerSpec{
		Name:        "onOrderInsert",
		TableName:   "orders",
		Operation:   triggerpipeline.OpInsert,
		Timing:      triggerpipeline.TimingAfter,
		Mode:        triggerpipeline.ModeAsync,
		ProgramName: "discount",
		Enabled:     true,
	})
	require.Nil(t, err)
	assert.NotEmpty(t, row.ID)
	assert.Equal(t, "orders", row.TableName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnableTriggerReadsThenUpserts(t *testing.T) {
	te, mock := newTestTriggerEngine(t)

	cols := []string{"id", "table_name", "operation", "enabled", "timing", "mode", "program_name", "when_predicate", "fact_mapping", "max_retries"}
	mock.ExpectQuery(`SELECT \* FROM trigger_configs WHERE id`).
		WillReturnRows(sqlmock.NewRows(cols).AddRow("t1", "orders", "INSERT", false, "AFTER", "async", "discount", nil, []byte(`{}`), 3))
	mock.ExpectExec(`INSERT INTO trigger_configs`).WillReturnResult(sqlmock.NewResult(0, 1))

	err := te.EnableTrigger(context.Background(), "t1")
	require.Nil(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTriggerHistoryUsesRangeQuery(t *testing.T) {
	te, mock := newTestTriggerEngine(t)

	cols := []string{"id", "trigger_id", "row_id", "success", "error_message", "facts_before", "facts_after", "started_at", "duration_ms"}
	from := time.Now().Add(-time.Hour)
	to := time.Now()
	mock.ExpectQuery(`SELECT \* FROM trigger_execution_history`).
		WithArgs("t1", from, to).
		WillReturnRows(sqlmock.NewRows(cols))

	rows, err := te.TriggerHistory(context.Background(), "t1", from, to)
	require.Nil(t, err)
	assert.Empty(t, rows)
}
