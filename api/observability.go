package api

import (
	"context"

	"github.com/ksd-co/rule-engine-postgres/observability"
	"github.com/ksd-co/rule-engine-postgres/store"
	"github.com/ksd-co/rule-engine-postgres/types"
)

// ObservabilityEngine adds the stats/recent-failure accessors (spec §6
// "Observability: stats and recent-failure accessors") on top of Engine's
// store access.
type ObservabilityEngine struct {
	*Engine
	History   *store.TriggerHistoryRepository
	Envelopes *store.EnvelopeRepository
	Workers   *observability.WorkerStatsTracker
}

// TriggerStats returns per-trigger aggregate execution stats (spec §4.J).
func (o *ObservabilityEngine) TriggerStats(ctx context.Context, triggerID string, sample int) (observability.TriggerStats, *types.Error) {
	stats, err := observability.TriggerStatsView(ctx, o.History, triggerID, sample)
	if err != nil {
		return observability.TriggerStats{}, types.NewError(types.CodeTriggerMisconfigured, err.Error(), nil)
	}
	return stats, nil
}

// RecentFailures returns the last N failed invocations for a trigger.
func (o *ObservabilityEngine) RecentFailures(ctx context.Context, triggerID string, limit int) ([]observability.RecentFailure, *types.Error) {
	failures, err := observability.RecentFailuresView(ctx, o.History, triggerID, limit)
	if err != nil {
		return nil, types.NewError(types.CodeTriggerMisconfigured, err.Error(), nil)
	}
	return failures, nil
}

// PublishSummary returns per-webhook delivery stats with p50/p95/p99
// latency. The envelope table has no persisted delivery timestamp
// distinct from status (see observability.PublishSummaryView's doc
// comment), so latency percentiles come back zeroed until a future
// migration adds one; success-rate and totals are accurate today.
func (o *ObservabilityEngine) PublishSummary(ctx context.Context, webhookID string, sample int) (observability.PublishSummary, *types.Error) {
	summary, err := observability.PublishSummaryView(ctx, o.Envelopes, webhookID, sample, nil)
	if err != nil {
		return observability.PublishSummary{}, types.NewError(types.CodeQueueConsumerCrashed, err.Error(), nil)
	}
	return summary, nil
}

// WorkerStats returns every tracked worker's live drain stats (spec §4.J).
func (o *ObservabilityEngine) WorkerStats() []observability.WorkerStats {
	if o.Workers == nil {
		return nil
	}
	return o.Workers.Snapshot()
}
