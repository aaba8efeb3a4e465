package api

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/ksd-co/rule-engine-postgres/credential"
	"github.com/ksd-co/rule-engine-postgres/outbound"
	"github.com/ksd-co/rule-engine-postgres/store"
	"github.com/ksd-co/rule-engine-postgres/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestWebhookEngine(t *testing.T) (*WebhookEngine, sqlmock.Sqlmock) {
	db, mock := newMockDB(t)
	sealer, err := credential.NewAESGCMSealer(make([]byte, 32))
	require.NoError(t, err)
	return &WebhookEngine{
		Engine:     &Engine{},
		Webhooks:   store.NewWebhookRepository(db),
		Credential: credential.NewStore(sealer),
	}, mock
}

func testWebhook() outbound.Webhook {
	return outbound.Webhook{
		Name:        "orders-sink",
		URL:         "https://example.test/hook",
		Method:      "POST",
		Timeout:     5 * time.Second,
		MaxRetries:  3,
		RetryDelay:  time.Second,
		PublishMode: outbound.PublishMode("queue"),
		Enabled:     true,
	}
}

func TestRegisterWebhookPersistsRow(t *testing.T) {
	we, mock := newTestWebhookEngine(t)

	mock.ExpectExec(`INSERT INTO webhooks`).WillReturnResult(sqlmock.NewResult(0, 1))

	row, err := we.RegisterWebhook(context.Background(), testWebhook())
	require.Nil(t, err)
	assert.NotEmpty(t, row.ID)
	assert.Equal(t, "orders-sink", row.Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSetAndGetWebhookSecretRoundTrips(t *testing.T) {
	we, mock := newTestWebhookEngine(t)

	mock.ExpectExec(`UPDATE webhooks SET secret_ciphertext`).WillReturnResult(sqlmock.NewResult(0, 1))

	err := we.SetWebhookSecret(context.Background(), "wh1", []byte("s3cr3t"))
	require.Nil(t, err)

	env, sealErr := we.Credential.Seal([]byte("s3cr3t"))
	require.NoError(t, sealErr)

	mock.ExpectQuery(`SELECT secret_ciphertext FROM webhooks`).
		WillReturnRows(sqlmock.NewRows([]string{"secret_ciphertext"}).AddRow(env.Ciphertext))

	plaintext, gerr := we.GetWebhookSecret(credential.WithPrivilege(context.Background()), "wh1")
	require.Nil(t, gerr)
	assert.Equal(t, "s3cr3t", string(plaintext))
}

func TestGetWebhookSecretRequiresPrivilegedContext(t *testing.T) {
	we, mock := newTestWebhookEngine(t)

	env, sealErr := we.Credential.Seal([]byte("s3cr3t"))
	require.NoError(t, sealErr)

	mock.ExpectQuery(`SELECT secret_ciphertext FROM webhooks`).
		WillReturnRows(sqlmock.NewRows([]string{"secret_ciphertext"}).AddRow(env.Ciphertext))

	_, err := we.GetWebhookSecret(context.Background(), "wh1")
	require.NotNil(t, err)
	assert.Equal(t, types.CodeCredentialOpenFailed, err.Code)
}
