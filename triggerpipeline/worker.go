package triggerpipeline

import (
	"context"
	"math"
	"time"

	"github.com/ksd-co/rule-engine-postgres/fact"
	"github.com/ksd-co/rule-engine-postgres/kernel"
	"github.com/ksd-co/rule-engine-postgres/metrics"
	"github.com/ksd-co/rule-engine-postgres/observability"
	"github.com/ksd-co/rule-engine-postgres/store"
)

// Worker drains the async pending-trigger queue in batches, evaluating each
// item's rule program and marking it succeeded or retrying/failed (spec
// §4.G step 5).
type Worker struct {
	ID             string
	Pipeline       *Pipeline
	Queue          *store.PendingQueueRepository
	Configs        *store.TriggerConfigRepository
	BatchSize      int
	RetryBaseDelay time.Duration
	Stats          *observability.WorkerStatsTracker
}

// NewWorker builds a Worker with spec-reasonable defaults (batch size 20,
// base retry delay 1s).
func NewWorker(id string, p *Pipeline, queue *store.PendingQueueRepository, configs *store.TriggerConfigRepository) *Worker {
	return &Worker{
		ID: id, Pipeline: p, Queue: queue, Configs: configs,
		BatchSize: 20, RetryBaseDelay: time.Second,
		Stats: observability.NewWorkerStatsTracker(),
	}
}

// DrainOnce claims one batch and processes every item to completion,
// returning how many it processed.
func (w *Worker) DrainOnce(ctx context.Context) (int, error) {
	batch, err := w.Queue.ClaimBatch(ctx, w.BatchSize)
	if err != nil {
		return 0, err
	}
	metrics.QueueDepth.Set(float64(len(batch)))
	for _, item := range batch {
		w.processOne(ctx, item)
	}
	return len(batch), nil
}

func (w *Worker) processOne(ctx context.Context, item store.PendingQueueRow) {
	start := time.Now()
	defer func() {
		if w.Stats != nil {
			w.Stats.RecordProcessed(w.ID, time.Since(start).Milliseconds(), time.Now())
		}
	}()

	cfg, err := w.Configs.Get(ctx, item.TriggerID)
	if err != nil {
		w.retryOrFail(ctx, item, 5, err)
		return
	}

	facts, err := fact.Deserialize(string(item.Facts))
	if err != nil {
		w.retryOrFail(ctx, item, cfg.MaxRetries, err)
		return
	}

	program, err := w.Pipeline.Programs.Lookup(cfg.ProgramName)
	if err != nil {
		w.retryOrFail(ctx, item, cfg.MaxRetries, err)
		return
	}

	_, session, evalErr := kernel.Evaluate(facts, program, w.Pipeline.Config, kernel.Options{Registry: w.Pipeline.Registry})
	if w.Pipeline.Recorder != nil && session != nil {
		_ = w.Pipeline.Recorder.Record(ctx, cfg.ProgramName, session)
	}
	if evalErr != nil {
		w.retryOrFail(ctx, item, cfg.MaxRetries, evalErr)
		return
	}

	metrics.TriggerExecutionsTotal.WithLabelValues(item.TriggerID, "success").Inc()
	_ = w.Queue.MarkSucceeded(ctx, item.ID)
}

// retryOrFail schedules the next attempt with exponential backoff
// (retryDelay * 2^(attempt-1), mirroring the outbound envelope retry
// formula in spec §4.H) or marks the item permanently failed once attempt
// exceeds maxRetries.
func (w *Worker) retryOrFail(ctx context.Context, item store.PendingQueueRow, maxRetries int, cause error) {
	attempt := item.Attempt + 1
	delay := time.Duration(float64(w.RetryBaseDelay) * math.Pow(2, float64(attempt-1)))
	outcome := "retry"
	if attempt > maxRetries {
		outcome = "failed"
	}
	metrics.TriggerExecutionsTotal.WithLabelValues(item.TriggerID, outcome).Inc()
	_ = w.Queue.MarkRetrying(ctx, item.ID, attempt, maxRetries, delay, cause.Error())
}
