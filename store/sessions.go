package store

import (
	"context"
	"encoding/json"
	"time"
)

// SessionRow is the persisted shape of one kernel.Session (spec §4.F).
// recorder/ is responsible for translating to/from kernel.Session; store
// only knows about the flattened, JSON-encoded columns.
type SessionRow struct {
	ID          string    `db:"id"`
	ProgramName string    `db:"program_name"`
	Status      string    `db:"status"`
	StartedAt   time.Time `db:"started_at"`
	EndedAt     time.Time `db:"ended_at"`
	FinalFacts  []byte    `db:"final_facts"`
	Events      []byte    `db:"events"`
}

// SessionRepository persists execution sessions (spec §4.F storage).
type SessionRepository struct {
	db *DB
}

func NewSessionRepository(db *DB) *SessionRepository {
	return &SessionRepository{db: db}
}

func (r *SessionRepository) Insert(ctx context.Context, row SessionRow) error {
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO execution_sessions (id, program_name, status, started_at, ended_at, final_facts, events)
		VALUES (:id, :program_name, :status, :started_at, :ended_at, :final_facts, :events)
	`, row)
	return err
}

func (r *SessionRepository) Get(ctx context.Context, id string) (SessionRow, error) {
	var row SessionRow
	err := r.db.GetContext(ctx, &row, `SELECT * FROM execution_sessions WHERE id = $1`, id)
	return row, err
}

func (r *SessionRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM execution_sessions WHERE id = $1`, id)
	return err
}

func (r *SessionRepository) ClearAll(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `TRUNCATE execution_sessions`)
	return err
}

// PurgeOlderThan deletes every session started before cutoff (spec §4.F
// retention sweep).
func (r *SessionRepository) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM execution_sessions WHERE started_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Recent returns the most recently started sessions, newest first, bounded
// at limit.
func (r *SessionRepository) Recent(ctx context.Context, limit int) ([]SessionRow, error) {
	var rows []SessionRow
	err := r.db.SelectContext(ctx, &rows, `
		SELECT * FROM execution_sessions ORDER BY started_at DESC LIMIT $1
	`, limit)
	return rows, err
}

// MarshalJSONOrEmpty is a small exported helper that turns a Go value into
// a JSONB column payload without ever persisting an
// invalid empty byte slice (Postgres rejects a zero-length jsonb literal).
func MarshalJSONOrEmpty(v interface{}) ([]byte, error) {
	if v == nil {
		return []byte("null"), nil
	}
	return json.Marshal(v)
}
