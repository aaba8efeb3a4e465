package store

import (
	"context"
	"time"
)

// WebhookRow is a Webhook Descriptor (spec §3), with its auth secret kept
// sealed (spec §4.I): secret_ciphertext is a credential.Envelope's
// Ciphertext field, opaque to this package.
type WebhookRow struct {
	ID                string  `db:"id"`
	Name              string  `db:"name"`
	URL               string  `db:"url"`
	Method            string  `db:"method"`
	Headers           []byte  `db:"headers"`
	TimeoutMs         int64   `db:"timeout_ms"`
	RetryEnabled      bool    `db:"retry_enabled"`
	MaxRetries        int     `db:"max_retries"`
	RetryDelayMs      int64   `db:"retry_delay_ms"`
	BackoffMultiplier float64 `db:"backoff_multiplier"`
	PublishMode       string  `db:"publish_mode"`
	BusSubject        *string `db:"bus_subject"`
	Enabled           bool    `db:"enabled"`
	SecretCiphertext  *string `db:"secret_ciphertext"`
	CreatedAt         time.Time `db:"created_at"`
	UpdatedAt         time.Time `db:"updated_at"`
}

type WebhookRepository struct {
	db *DB
}

func NewWebhookRepository(db *DB) *WebhookRepository {
	return &WebhookRepository{db: db}
}

func (r *WebhookRepository) Create(ctx context.Context, row WebhookRow) error {
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO webhooks (id, name, url, method, headers, timeout_ms, retry_enabled, max_retries, retry_delay_ms, backoff_multiplier, publish_mode, bus_subject, enabled, secret_ciphertext)
		VALUES (:id, :name, :url, :method, :headers, :timeout_ms, :retry_enabled, :max_retries, :retry_delay_ms, :backoff_multiplier, :publish_mode, :bus_subject, :enabled, :secret_ciphertext)
	`, row)
	return err
}

func (r *WebhookRepository) Update(ctx context.Context, row WebhookRow) error {
	_, err := r.db.NamedExecContext(ctx, `
		UPDATE webhooks SET
			name = :name, url = :url, method = :method, headers = :headers,
			timeout_ms = :timeout_ms, retry_enabled = :retry_enabled, max_retries = :max_retries,
			retry_delay_ms = :retry_delay_ms, backoff_multiplier = :backoff_multiplier,
			publish_mode = :publish_mode, bus_subject = :bus_subject, enabled = :enabled,
			updated_at = now()
		WHERE id = :id
	`, row)
	return err
}

func (r *WebhookRepository) Get(ctx context.Context, id string) (WebhookRow, error) {
	var row WebhookRow
	err := r.db.GetContext(ctx, &row, `SELECT * FROM webhooks WHERE id = $1`, id)
	return row, err
}

func (r *WebhookRepository) List(ctx context.Context) ([]WebhookRow, error) {
	var rows []WebhookRow
	err := r.db.SelectContext(ctx, &rows, `SELECT * FROM webhooks ORDER BY name`)
	return rows, err
}

func (r *WebhookRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM webhooks WHERE id = $1`, id)
	return err
}

// SetSecret stores a sealed secret ciphertext for the webhook (spec §6
// "secret set/get/delete per webhook"). ciphertext is a credential.Envelope
// value, never plaintext.
func (r *WebhookRepository) SetSecret(ctx context.Context, id, ciphertext string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE webhooks SET secret_ciphertext = $2 WHERE id = $1`, id, ciphertext)
	return err
}

// GetSecret returns the stored ciphertext (empty, false if unset).
func (r *WebhookRepository) GetSecret(ctx context.Context, id string) (string, bool, error) {
	var ciphertext *string
	err := r.db.GetContext(ctx, &ciphertext, `SELECT secret_ciphertext FROM webhooks WHERE id = $1`, id)
	if err != nil {
		return "", false, err
	}
	if ciphertext == nil {
		return "", false, nil
	}
	return *ciphertext, true, nil
}

// DeleteSecret clears a webhook's sealed secret without deleting the
// webhook itself.
func (r *WebhookRepository) DeleteSecret(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE webhooks SET secret_ciphertext = NULL WHERE id = $1`, id)
	return err
}
