package store

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockDB(t *testing.T) (*DB, sqlmock.Sqlmock) {
	t.Helper()
	raw, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return &DB{DB: sqlx.NewDb(raw, "postgres")}, mock
}

func TestRuleRepositoryCreate(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewRuleRepository(db)

	mock.ExpectExec(`INSERT INTO rule_programs`).
		WithArgs("discount", 1, "rule \"x\" ...", "abc123").
		WillReturnResult(sqlmock.NewResult(0, 1))

	row, err := repo.Create(context.Background(), "discount", "rule \"x\" ...", "abc123")
	require.NoError(t, err)
	assert.Equal(t, 1, row.Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRuleRepositoryUpdateIncrementsVersion(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewRuleRepository(db)

	cols := []string{"name", "version", "source", "fingerprint", "created_at", "updated_at"}
	mock.ExpectQuery(`UPDATE rule_programs`).
		WithArgs("discount", "new source", "def456").
		WillReturnRows(sqlmock.NewRows(cols).AddRow("discount", 2, "new source", "def456", time.Now(), time.Now()))

	row, err := repo.Update(context.Background(), "discount", "new source", "def456")
	require.NoError(t, err)
	assert.Equal(t, 2, row.Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPendingQueueClaimBatchUsesTransaction(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPendingQueueRepository(db)

	cols := []string{"id", "trigger_id", "row_id", "operation", "facts", "status", "attempt", "next_retry_at", "last_error"}
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT \* FROM pending_trigger_queue`).
		WithArgs(10).
		WillReturnRows(sqlmock.NewRows(cols).AddRow(1, "t1", "row1", "INSERT", []byte(`{}`), "pending", 0, time.Now(), nil))
	mock.ExpectExec(`UPDATE pending_trigger_queue SET status = 'claimed'`).
		WithArgs(int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	rows, err := repo.ClaimBatch(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "t1", rows[0].TriggerID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
