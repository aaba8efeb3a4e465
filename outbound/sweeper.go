package outbound

import (
	"context"
	"math"
	"time"

	"github.com/ksd-co/rule-engine-postgres/store"
	"github.com/robfig/cron/v3"
)

// WebhookSource resolves a webhook descriptor by id for the sweeper to
// re-attempt delivery against.
type WebhookSource interface {
	Get(id string) (Webhook, bool)
}

// RetrySweeper periodically re-publishes envelopes whose next_retry_at has
// elapsed (spec §4.H invariant 8: "nextRetryAt = now + retryDelayMs *
// backoffMultiplier^(attempt-1)"), using the same cron-driven sweep idiom
// r3e-network-service_layer uses for its scheduled housekeeping jobs.
type RetrySweeper struct {
	Envelopes *store.EnvelopeRepository
	Publisher *Publisher
	Webhooks  WebhookSource
	BatchSize int

	cron *cron.Cron
}

// NewRetrySweeper constructs a sweeper with a sane default batch size.
func NewRetrySweeper(envelopes *store.EnvelopeRepository, pub *Publisher, hooks WebhookSource) *RetrySweeper {
	return &RetrySweeper{
		Envelopes: envelopes,
		Publisher: pub,
		Webhooks:  hooks,
		BatchSize: 50,
		cron:      cron.New(),
	}
}

// Start registers the sweep to run on spec, e.g. "@every 10s", and begins
// the cron scheduler. Stop must be called to release the goroutine.
func (s *RetrySweeper) Start(spec string) error {
	_, err := s.cron.AddFunc(spec, func() {
		_, _ = s.SweepOnce(context.Background())
	})
	if err != nil {
		return err
	}
	s.cron.Start()
	return nil
}

// Stop halts the scheduler, waiting for any in-flight sweep to finish.
func (s *RetrySweeper) Stop() {
	<-s.cron.Stop().Done()
}

// SweepOnce claims one batch of due envelopes and re-attempts delivery,
// rescheduling failures with the next backoff step or marking them failed
// once MaxRetries is exhausted.
func (s *RetrySweeper) SweepOnce(ctx context.Context) (int, error) {
	due, err := s.Envelopes.DueForRetry(ctx, s.BatchSize)
	if err != nil {
		return 0, err
	}

	retried := 0
	for _, row := range due {
		hook, ok := s.Webhooks.Get(row.WebhookID)
		if !ok {
			continue
		}
		retried++
		if err := s.Publisher.deliverWebhook(ctx, hook, row.Payload); err != nil {
			s.reschedule(ctx, row, hook, err)
			continue
		}
		delivered := "delivered"
		_ = s.Envelopes.UpdateQueueStatus(ctx, row.ID, delivered, nil)
	}
	return retried, nil
}

func (s *RetrySweeper) reschedule(ctx context.Context, row store.EnvelopeRow, hook Webhook, cause error) {
	attempt := row.Attempt + 1
	if attempt > hook.MaxRetries {
		failed := "failed"
		msg := cause.Error()
		_ = s.Envelopes.UpdateQueueStatus(ctx, row.ID, failed, &msg)
		return
	}

	next := time.Now().Add(retryBackoff(hook, attempt))
	_ = s.Envelopes.ScheduleRetry(ctx, row.ID, attempt, next, cause.Error())
}

// retryBackoff computes the delay before attempt (1-indexed) following the
// formula spec §4.H invariant 8 gives: retryDelayMs *
// backoffMultiplier^(attempt-1). Shared by the sweeper's own re-attempts and
// Publisher's first-failure scheduling so both produce the same schedule
// (e.g. +1s, +2s, +4s for retryDelay=1s, backoffMultiplier=2).
func retryBackoff(hook Webhook, attempt int) time.Duration {
	delay := float64(hook.RetryDelay) * math.Pow(hook.BackoffMultiplier, float64(attempt-1))
	return time.Duration(delay)
}
