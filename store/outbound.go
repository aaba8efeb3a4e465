package store

import (
	"context"
	"time"
)

// EnvelopeRow is one outbound fan-out attempt (spec §4.H). QueueStatus and
// BusStatus are tracked independently since a "both" mode publish records
// each transport's outcome separately (spec §4.H: "bus publish failures do
// not roll back the queue insert, and vice versa").
type EnvelopeRow struct {
	ID          string     `db:"id"`
	MessageID   *string    `db:"message_id"`
	WebhookID   string     `db:"webhook_id"`
	Mode        string     `db:"mode"`
	Payload     []byte     `db:"payload"`
	QueueStatus *string    `db:"queue_status"`
	BusStatus   *string    `db:"bus_status"`
	BusStream   *string    `db:"bus_stream"`
	BusSequence *int64     `db:"bus_sequence"`
	Attempt     int        `db:"attempt"`
	NextRetryAt *time.Time `db:"next_retry_at"`
	LastError   *string    `db:"last_error"`
	CreatedAt   time.Time  `db:"created_at"`
}

type EnvelopeRepository struct {
	db *DB
}

func NewEnvelopeRepository(db *DB) *EnvelopeRepository {
	return &EnvelopeRepository{db: db}
}

func (r *EnvelopeRepository) Insert(ctx context.Context, row EnvelopeRow) error {
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO outbound_envelopes (id, message_id, webhook_id, mode, payload, queue_status, bus_status, bus_stream, bus_sequence, attempt, next_retry_at, last_error)
		VALUES (:id, :message_id, :webhook_id, :mode, :payload, :queue_status, :bus_status, :bus_stream, :bus_sequence, :attempt, :next_retry_at, :last_error)
	`, row)
	return err
}

func (r *EnvelopeRepository) UpdateQueueStatus(ctx context.Context, id, status string, lastErr *string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE outbound_envelopes SET queue_status = $2, last_error = $3 WHERE id = $1
	`, id, status, lastErr)
	return err
}

func (r *EnvelopeRepository) UpdateBusStatus(ctx context.Context, id, status, stream string, sequence int64) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE outbound_envelopes SET bus_status = $2, bus_stream = $3, bus_sequence = $4 WHERE id = $1
	`, id, status, stream, sequence)
	return err
}

// ScheduleRetry advances attempt and nextRetryAt following the exponential
// backoff spec §4.H describes: retryDelayMs * backoffMultiplier^(attempt-1).
func (r *EnvelopeRepository) ScheduleRetry(ctx context.Context, id string, attempt int, nextRetryAt time.Time, lastErr string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE outbound_envelopes
		SET queue_status = 'retrying', attempt = $2, next_retry_at = $3, last_error = $4
		WHERE id = $1
	`, id, attempt, nextRetryAt, lastErr)
	return err
}

func (r *EnvelopeRepository) DueForRetry(ctx context.Context, limit int) ([]EnvelopeRow, error) {
	var rows []EnvelopeRow
	err := r.db.SelectContext(ctx, &rows, `
		SELECT * FROM outbound_envelopes
		WHERE queue_status = 'retrying' AND next_retry_at <= now()
		ORDER BY next_retry_at
		LIMIT $1
	`, limit)
	return rows, err
}

func (r *EnvelopeRepository) Get(ctx context.Context, id string) (EnvelopeRow, error) {
	var row EnvelopeRow
	err := r.db.GetContext(ctx, &row, `SELECT * FROM outbound_envelopes WHERE id = $1`, id)
	return row, err
}

// RecentByWebhook supports observability's publish-summary views (spec
// §4.J), returning the most recent envelopes for a webhook.
func (r *EnvelopeRepository) RecentByWebhook(ctx context.Context, webhookID string, limit int) ([]EnvelopeRow, error) {
	var rows []EnvelopeRow
	err := r.db.SelectContext(ctx, &rows, `
		SELECT * FROM outbound_envelopes WHERE webhook_id = $1 ORDER BY created_at DESC LIMIT $2
	`, webhookID, limit)
	return rows, err
}
