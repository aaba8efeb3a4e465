// Package observability computes the read-only aggregation views spec
// §4.J describes, on demand from the recorder, trigger history, and
// envelope tables — no separate metrics pipeline, mirroring
// bmachimbira-loyalty's EngineStats pattern of deriving everything from
// the stores that already exist rather than maintaining parallel counters.
package observability

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/ksd-co/rule-engine-postgres/store"
)

// TriggerStats is per-trigger aggregate execution history (spec §4.J).
type TriggerStats struct {
	TriggerID        string
	Total            int
	Successes        int
	Failures         int
	MeanExecutionMs  float64
}

// TriggerStatsView computes TriggerStats from the last `sample` history
// rows for triggerID (the trigger history table grows unboundedly, so the
// caller bounds how much of it this view scans).
func TriggerStatsView(ctx context.Context, history *store.TriggerHistoryRepository, triggerID string, sample int) (TriggerStats, error) {
	rows, err := history.ForTrigger(ctx, triggerID, sample)
	if err != nil {
		return TriggerStats{}, err
	}
	stats := TriggerStats{TriggerID: triggerID, Total: len(rows)}
	var totalMs int64
	for _, row := range rows {
		if row.Success {
			stats.Successes++
		} else {
			stats.Failures++
		}
		totalMs += row.DurationMs
	}
	if stats.Total > 0 {
		stats.MeanExecutionMs = float64(totalMs) / float64(stats.Total)
	}
	return stats, nil
}

// RecentFailure is one failed invocation surfaced by RecentFailuresView.
type RecentFailure struct {
	TriggerID    string
	RowID        string
	ErrorMessage string
	StartedAt    time.Time
}

// RecentFailuresView returns up to limit most recent failed invocations
// for triggerID (spec §4.J "recent failures: last N failed invocations
// with error text").
func RecentFailuresView(ctx context.Context, history *store.TriggerHistoryRepository, triggerID string, limit int) ([]RecentFailure, error) {
	rows, err := history.ForTrigger(ctx, triggerID, limit*4)
	if err != nil {
		return nil, err
	}
	var failures []RecentFailure
	for _, row := range rows {
		if row.Success {
			continue
		}
		msg := ""
		if row.ErrorMessage != nil {
			msg = *row.ErrorMessage
		}
		failures = append(failures, RecentFailure{
			TriggerID:    row.TriggerID,
			RowID:        row.RowID,
			ErrorMessage: msg,
			StartedAt:    row.StartedAt,
		})
		if len(failures) >= limit {
			break
		}
	}
	return failures, nil
}

// PublishSummary is per-webhook outbound delivery aggregate (spec §4.J).
type PublishSummary struct {
	WebhookID   string
	Total       int
	Successes   int
	SuccessRate float64
	P50Ms       float64
	P95Ms       float64
	P99Ms       float64
}

// PublishSummaryView computes PublishSummary from the last `sample`
// envelopes for webhookID. Latency samples come only from the caller's
// latencies function, since the envelope table does not persist a delivery
// timestamp separate from status: a row it rejects adds no sample, and with
// a nil function the percentiles are all zero.
func PublishSummaryView(ctx context.Context, envelopes *store.EnvelopeRepository, webhookID string, sample int, latencies func(store.EnvelopeRow) (float64, bool)) (PublishSummary, error) {
	rows, err := envelopes.RecentByWebhook(ctx, webhookID, sample)
	if err != nil {
		return PublishSummary{}, err
	}
	summary := PublishSummary{WebhookID: webhookID, Total: len(rows)}
	var samples []float64
	for _, row := range rows {
		if row.QueueStatus != nil && *row.QueueStatus == "delivered" {
			summary.Successes++
		}
		if latencies != nil {
			if ms, ok := latencies(row); ok {
				samples = append(samples, ms)
			}
		}
	}
	if summary.Total > 0 {
		summary.SuccessRate = float64(summary.Successes) / float64(summary.Total)
	}
	summary.P50Ms, summary.P95Ms, summary.P99Ms = percentiles(samples)
	return summary, nil
}

// percentiles computes p50/p95/p99 over samples using nearest-rank on a
// sorted copy — a small reservoir rather than a streaming sketch, adequate
// for on-demand views computed over a bounded recent sample.
func percentiles(samples []float64) (p50, p95, p99 float64) {
	if len(samples) == 0 {
		return 0, 0, 0
	}
	sorted := append([]float64(nil), samples...)
	sort.Float64s(sorted)
	rank := func(p float64) float64 {
		pos := p * float64(len(sorted))
		idx := int(pos)
		if float64(idx) < pos {
			idx++
		}
		idx--
		if idx < 0 {
			idx = 0
		}
		return sorted[idx]
	}
	return rank(0.50), rank(0.95), rank(0.99)
}

// WorkerStats is per-consumer drain progress (spec §4.J).
type WorkerStats struct {
	WorkerID         string
	Acknowledged     int
	MeanProcessingMs float64
	LastSeen         time.Time
}

// WorkerStatsTracker accumulates WorkerStats in memory as the pipeline
// worker drains batches; it is not persisted (spec §4.J's worker stats are
// a live operational view, not audit history the way trigger history is).
type WorkerStatsTracker struct {
	mu      sync.Mutex
	stats   map[string]*WorkerStats
	totalMs map[string]int64
}

// NewWorkerStatsTracker returns an empty tracker ready for concurrent use.
func NewWorkerStatsTracker() *WorkerStatsTracker {
	return &WorkerStatsTracker{
		stats:   make(map[string]*WorkerStats),
		totalMs: make(map[string]int64),
	}
}

// RecordProcessed registers one acknowledged item for workerID.
func (t *WorkerStatsTracker) RecordProcessed(workerID string, durationMs int64, seenAt time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	s, ok := t.stats[workerID]
	if !ok {
		s = &WorkerStats{WorkerID: workerID}
		t.stats[workerID] = s
	}
	s.Acknowledged++
	t.totalMs[workerID] += durationMs
	s.MeanProcessingMs = float64(t.totalMs[workerID]) / float64(s.Acknowledged)
	s.LastSeen = seenAt
}

// Snapshot returns a point-in-time copy of every tracked worker's stats.
func (t *WorkerStatsTracker) Snapshot() []WorkerStats {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]WorkerStats, 0, len(t.stats))
	for _, s := range t.stats {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].WorkerID < out[j].WorkerID })
	return out
}
