package api

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/ksd-co/rule-engine-postgres/outbound"
	"github.com/ksd-co/rule-engine-postgres/store"
	"github.com/ksd-co/rule-engine-postgres/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBusPublisher struct {
	ack outbound.BusAck
	err error
}

func (f *fakeBusPublisher) Publish(ctx context.Context, subject, messageID string, payload []byte) (outbound.BusAck, error) {
	return f.ack, f.err
}

func webhookRowCols() []string {
	return []string{"id", "name", "url", "method", "headers", "timeout_ms", "retry_enabled", "max_retries", "retry_delay_ms", "backoff_multiplier", "publish_mode", "bus_subject", "enabled", "secret_ciphertext", "created_at", "updated_at"}
}

func TestPublishToBusRejectsWhenNoBusConfigured(t *testing.T) {
	db, mock := newMockDB(t)
	oe := &OutboundEngine{
		Engine:   &Engine{},
		Webhooks: store.NewWebhookRepository(db),
		Publisher: &outbound.Publisher{
			Envelopes: store.NewEnvelopeRepository(db),
		},
	}

	mock.ExpectQuery(`SELECT \* FROM webhooks`).
		WillReturnRows(sqlmock.NewRows(webhookRowCols()).
			AddRow("wh1", "orders-sink", "https://example.test", "POST", []byte(`{}`), int64(5000), true, 3, int64(1000), 2.0, "bus", "orders.created", true, nil, time.Now(), time.Now()))

	_, err := oe.PublishToBus(context.Background(), "wh1", []byte(`{"ok":true}`))
	require.NotNil(t, err)
	assert.Equal(t, types.CodeBusUnavailable, err.Code)
}

func TestPublishToBusSucceedsWithConfiguredBus(t *testing.T) {
	db, mock := newMockDB(t)
	bus := &fakeBusPublisher{ack: outbound.BusAck{Stream: "orders", Sequence: 1}}
	oe := &OutboundEngine{
		Engine:   &Engine{},
		Webhooks: store.NewWebhookRepository(db),
		Publisher: &outbound.Publisher{
			Envelopes: store.NewEnvelopeRepository(db),
			Bus:       bus,
		},
	}

	mock.ExpectQuery(`SELECT \* FROM webhooks`).
		WillReturnRows(sqlmock.NewRows(webhookRowCols()).
			AddRow("wh1", "orders-sink", "https://example.test", "POST", []byte(`{}`), int64(5000), true, 3, int64(1000), 2.0, "bus", "orders.created", true, nil, time.Now(), time.Now()))

	ack, err := oe.PublishToBus(context.Background(), "wh1", []byte(`{"ok":true}`))
	require.Nil(t, err)
	assert.Equal(t, int64(1), ack.Sequence)
}

func TestCallStatusReturnsEnvelope(t *testing.T) {
	db, mock := newMockDB(t)
	oe := &OutboundEngine{Engine: &Engine{}, Envelopes: store.NewEnvelopeRepository(db)}

	mock.ExpectQuery(`SELECT \* FROM outbound_envelopes`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "message_id", "webhook_id", "mode", "payload", "queue_status", "bus_status", "bus_stream", "bus_sequence", "attempt", "next_retry_at", "last_error", "created_at"}).
			AddRow("env1", nil, "wh1", "queue", []byte(`{}`), strPtr("delivered"), nil, nil, nil, 1, nil, nil, time.Now()))

	row, err := oe.CallStatus(context.Background(), "env1")
	require.Nil(t, err)
	assert.Equal(t, "env1", row.ID)
}

func strPtr(s string) *string { return &s }
