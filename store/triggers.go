package store

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
)

// TriggerConfigRow is a row-change → rule binding (spec §4.G step 1).
type TriggerConfigRow struct {
	ID            string `db:"id"`
	TableName     string `db:"table_name"`
	Operation     string `db:"operation"`
	Enabled       bool   `db:"enabled"`
	Timing        string `db:"timing"`
	Mode          string `db:"mode"`
	ProgramName   string `db:"program_name"`
	WhenPredicate *string `db:"when_predicate"`
	FactMapping   []byte `db:"fact_mapping"`
	MaxRetries    int    `db:"max_retries"`
}

type TriggerConfigRepository struct {
	db *DB
}

func NewTriggerConfigRepository(db *DB) *TriggerConfigRepository {
	return &TriggerConfigRepository{db: db}
}

// FindEnabled returns every enabled trigger configured for (table, operation)
// (spec §4.G step 1).
func (r *TriggerConfigRepository) FindEnabled(ctx context.Context, table, operation string) ([]TriggerConfigRow, error) {
	var rows []TriggerConfigRow
	err := r.db.SelectContext(ctx, &rows, `
		SELECT * FROM trigger_configs WHERE table_name = $1 AND operation = $2 AND enabled
	`, table, operation)
	return rows, err
}

func (r *TriggerConfigRepository) Get(ctx context.Context, id string) (TriggerConfigRow, error) {
	var row TriggerConfigRow
	err := r.db.GetContext(ctx, &row, `SELECT * FROM trigger_configs WHERE id = $1`, id)
	return row, err
}

func (r *TriggerConfigRepository) Upsert(ctx context.Context, row TriggerConfigRow) error {
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO trigger_configs (id, table_name, operation, enabled, timing, mode, program_name, when_predicate, fact_mapping, max_retries)
		VALUES (:id, :table_name, :operation, :enabled, :timing, :mode, :program_name, :when_predicate, :fact_mapping, :max_retries)
		ON CONFLICT (id) DO UPDATE SET
			table_name = EXCLUDED.table_name, operation = EXCLUDED.operation,
			enabled = EXCLUDED.enabled, timing = EXCLUDED.timing, mode = EXCLUDED.mode,
			program_name = EXCLUDED.program_name, when_predicate = EXCLUDED.when_predicate,
			fact_mapping = EXCLUDED.fact_mapping, max_retries = EXCLUDED.max_retries
	`, row)
	return err
}

func (r *TriggerConfigRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM trigger_configs WHERE id = $1`, id)
	return err
}

func (r *TriggerConfigRepository) List(ctx context.Context) ([]TriggerConfigRow, error) {
	var rows []TriggerConfigRow
	err := r.db.SelectContext(ctx, &rows, `SELECT * FROM trigger_configs ORDER BY id`)
	return rows, err
}

// TriggerHistoryRow records one sync-mode (or drained async) execution
// (spec §4.G step 4 "record an execution history row").
type TriggerHistoryRow struct {
	ID           string    `db:"id"`
	TriggerID    string    `db:"trigger_id"`
	RowID        string    `db:"row_id"`
	Success      bool      `db:"success"`
	ErrorMessage *string   `db:"error_message"`
	FactsBefore  []byte    `db:"facts_before"`
	FactsAfter   []byte    `db:"facts_after"`
	StartedAt    time.Time `db:"started_at"`
	DurationMs   int64     `db:"duration_ms"`
}

type TriggerHistoryRepository struct {
	db *DB
}

func NewTriggerHistoryRepository(db *DB) *TriggerHistoryRepository {
	return &TriggerHistoryRepository{db: db}
}

func (r *TriggerHistoryRepository) Insert(ctx context.Context, row TriggerHistoryRow) error {
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO trigger_execution_history (id, trigger_id, row_id, success, error_message, facts_before, facts_after, started_at, duration_ms)
		VALUES (:id, :trigger_id, :row_id, :success, :error_message, :facts_before, :facts_after, :started_at, :duration_ms)
	`, row)
	return err
}

func (r *TriggerHistoryRepository) ForTrigger(ctx context.Context, triggerID string, limit int) ([]TriggerHistoryRow, error) {
	var rows []TriggerHistoryRow
	err := r.db.SelectContext(ctx, &rows, `
		SELECT * FROM trigger_execution_history WHERE trigger_id = $1 ORDER BY started_at DESC LIMIT $2
	`, triggerID, limit)
	return rows, err
}

// ForTriggerInRange supports spec §6's "history by id and time range"
// Programmatic API accessor.
func (r *TriggerHistoryRepository) ForTriggerInRange(ctx context.Context, triggerID string, from, to time.Time) ([]TriggerHistoryRow, error) {
	var rows []TriggerHistoryRow
	err := r.db.SelectContext(ctx, &rows, `
		SELECT * FROM trigger_execution_history
		WHERE trigger_id = $1 AND started_at >= $2 AND started_at <= $3
		ORDER BY started_at DESC
	`, triggerID, from, to)
	return rows, err
}

// PendingQueueRow is one async-mode unit of work (spec §4.G step 4 async /
// step 5 worker drain).
type PendingQueueRow struct {
	ID          int64     `db:"id"`
	TriggerID   string    `db:"trigger_id"`
	RowID       string    `db:"row_id"`
	Operation   string    `db:"operation"`
	Facts       []byte    `db:"facts"`
	Status      string    `db:"status"`
	Attempt     int       `db:"attempt"`
	NextRetryAt time.Time `db:"next_retry_at"`
	LastError   *string   `db:"last_error"`
}

type PendingQueueRepository struct {
	db *DB
}

func NewPendingQueueRepository(db *DB) *PendingQueueRepository {
	return &PendingQueueRepository{db: db}
}

func (r *PendingQueueRepository) Enqueue(ctx context.Context, triggerID, rowID, operation string, facts []byte) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO pending_trigger_queue (trigger_id, row_id, operation, facts)
		VALUES ($1, $2, $3, $4)
	`, triggerID, rowID, operation, facts)
	return err
}

// ClaimBatch atomically claims up to limit due, pending rows using
// SELECT ... FOR UPDATE SKIP LOCKED, flipping them to "claimed" inside the
// same transaction so no two concurrent workers can drain the same row
// (spec §4.G concurrency: "locked, skip-locked batch claim").
func (r *PendingQueueRepository) ClaimBatch(ctx context.Context, limit int) ([]PendingQueueRow, error) {
	var claimed []PendingQueueRow
	err := r.db.Tx(ctx, func(tx *sqlx.Tx) error {
		var rows []PendingQueueRow
		if err := tx.SelectContext(ctx, &rows, `
			SELECT * FROM pending_trigger_queue
			WHERE status = 'pending' AND next_retry_at <= now()
			ORDER BY id
			LIMIT $1
			FOR UPDATE SKIP LOCKED
		`, limit); err != nil {
			return err
		}
		for _, row := range rows {
			if _, err := tx.ExecContext(ctx, `UPDATE pending_trigger_queue SET status = 'claimed' WHERE id = $1`, row.ID); err != nil {
				return err
			}
		}
		claimed = rows
		return nil
	})
	return claimed, err
}

func (r *PendingQueueRepository) MarkSucceeded(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `UPDATE pending_trigger_queue SET status = 'succeeded' WHERE id = $1`, id)
	return err
}

// MarkRetrying schedules the next attempt for id after delay, or marks it
// permanently failed once attempt exceeds maxRetries (spec §4.G step 5).
func (r *PendingQueueRepository) MarkRetrying(ctx context.Context, id int64, attempt, maxRetries int, delay time.Duration, lastErr string) error {
	status := "pending"
	if attempt > maxRetries {
		status = "failed"
	}
	_, err := r.db.ExecContext(ctx, `
		UPDATE pending_trigger_queue
		SET status = $2, attempt = $3, next_retry_at = now() + $4::interval, last_error = $5
		WHERE id = $1
	`, id, status, attempt, delay.String(), lastErr)
	return err
}
