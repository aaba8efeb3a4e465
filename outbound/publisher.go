package outbound

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/ksd-co/rule-engine-postgres/metrics"
	"github.com/ksd-co/rule-engine-postgres/store"
	"github.com/ksd-co/rule-engine-postgres/types"
	"golang.org/x/time/rate"
)

// BusPublisher is the narrow surface Publisher needs from a bus transport,
// isolated the same way triggerpipeline isolates SQL behind RowWriter/
// ProgramSource — it lets Publish be exercised in tests without a live
// broker. *BusTransport satisfies it.
type BusPublisher interface {
	Publish(ctx context.Context, subject, messageID string, payload []byte) (BusAck, error)
}

// Publisher fans a rule-produced event out to a webhook's configured
// transport(s) (spec §4.H): queue, bus, or both, independently of one
// another — "bus publish failures do not roll back the queue insert, and
// vice versa".
type Publisher struct {
	Envelopes *store.EnvelopeRepository
	Bus       BusPublisher
	HTTP      *http.Client

	// Limiter paces the HTTP delivery leg so a slow or failing webhook
	// endpoint can't be hammered on every trigger/retry sweep. Unlimited by
	// default; NewPublisherWithRate sets a concrete cap.
	Limiter *rate.Limiter
}

// NewPublisher wires a Publisher against its repository and bus transport.
// bus may be nil when no webhook in the deployment uses bus/both mode.
func NewPublisher(envelopes *store.EnvelopeRepository, bus BusPublisher) *Publisher {
	return &Publisher{
		Envelopes: envelopes,
		Bus:       bus,
		HTTP:      &http.Client{},
		Limiter:   rate.NewLimiter(rate.Inf, 1),
	}
}

// NewPublisherWithRate is NewPublisher with the HTTP delivery leg capped at
// requestsPerSecond, bursting up to burst requests.
func NewPublisherWithRate(envelopes *store.EnvelopeRepository, bus BusPublisher, requestsPerSecond float64, burst int) *Publisher {
	p := NewPublisher(envelopes, bus)
	p.Limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), burst)
	return p
}

// Publish delivers payload for hook according to its PublishMode, recording
// one envelope row that carries a separate status for the queue and bus
// transports. It returns the first error
// encountered but always attempts every configured transport.
func (p *Publisher) Publish(ctx context.Context, hook Webhook, payload []byte) error {
	id, err := uuid.NewV4()
	if err != nil {
		return err
	}
	messageID := id.String()

	pendingQueue := "pending"
	pendingBus := "pending"
	row := store.EnvelopeRow{
		ID:          messageID,
		MessageID:   &messageID,
		WebhookID:   hook.ID,
		Mode:        string(hook.PublishMode),
		Payload:     payload,
		QueueStatus: &pendingQueue,
		BusStatus:   &pendingBus,
		CreatedAt:   time.Now().UTC(),
	}
	if err := p.Envelopes.Insert(ctx, row); err != nil {
		return err
	}

	var queueErr, busErr error
	if hook.PublishMode == ModeQueue || hook.PublishMode == ModeBoth {
		queueErr = p.deliverWebhook(ctx, hook, payload)
		if queueErr == nil {
			metrics.QueuePublishTotal.WithLabelValues("delivered").Inc()
			_ = p.Envelopes.UpdateQueueStatus(ctx, row.ID, "delivered", nil)
		} else if hook.MaxRetries < 1 {
			// No retry budget configured: the first failure is terminal.
			msg := queueErr.Error()
			metrics.QueuePublishTotal.WithLabelValues("failed").Inc()
			_ = p.Envelopes.UpdateQueueStatus(ctx, row.ID, "failed", &msg)
		} else {
			// Hand off to the RetrySweeper rather than failing terminally
			// (spec §4.H: queue mode inserts a pending envelope for the
			// external worker/sweeper to consume and drive through its own
			// backoff schedule).
			metrics.QueuePublishTotal.WithLabelValues("retrying").Inc()
			next := time.Now().Add(retryBackoff(hook, 1))
			_ = p.Envelopes.ScheduleRetry(ctx, row.ID, 1, next, queueErr.Error())
		}
	}

	if (hook.PublishMode == ModeBus || hook.PublishMode == ModeBoth) && p.Bus != nil {
		ack, err := p.Bus.Publish(ctx, hook.BusSubject, messageID, payload)
		busErr = err
		if err != nil {
			metrics.BusPublishTotal.WithLabelValues("failed").Inc()
			_ = p.Envelopes.UpdateBusStatus(ctx, row.ID, "failed", "", 0)
		} else {
			metrics.BusPublishTotal.WithLabelValues("delivered").Inc()
			_ = p.Envelopes.UpdateBusStatus(ctx, row.ID, "delivered", ack.Stream, ack.Sequence)
		}
	}

	if queueErr != nil {
		return queueErr
	}
	return busErr
}

// deliverWebhook performs the HTTP leg of queue-mode delivery.
func (p *Publisher) deliverWebhook(ctx context.Context, hook Webhook, payload []byte) error {
	method := hook.Method
	if method == "" {
		method = http.MethodPost
	}
	reqCtx, cancel := context.WithTimeout(ctx, hook.Timeout)
	defer cancel()

	if p.Limiter != nil {
		if err := p.Limiter.Wait(reqCtx); err != nil {
			return types.NewError(types.CodeQueueConsumerCrashed, err.Error(), map[string]interface{}{"webhookId": hook.ID})
		}
	}

	req, err := http.NewRequestWithContext(reqCtx, method, hook.URL, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range hook.Headers {
		req.Header.Set(k, v)
	}

	resp, err := p.HTTP.Do(req)
	if err != nil {
		return types.NewError(types.CodeQueueConsumerCrashed, err.Error(), map[string]interface{}{"webhookId": hook.ID})
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 300 {
		return fmt.Errorf("outbound: webhook %s responded %d", hook.ID, resp.StatusCode)
	}
	return nil
}

// EncodePayload is a convenience for callers that hold a generic value
// rather than pre-serialized bytes.
func EncodePayload(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}
