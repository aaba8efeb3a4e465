package api

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/ksd-co/rule-engine-postgres/observability"
	"github.com/ksd-co/rule-engine-postgres/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObservabilityEngineTriggerStats(t *testing.T) {
	db, mock := newMockDB(t)
	oe := &ObservabilityEngine{Engine: &Engine{}, History: store.NewTriggerHistoryRepository(db)}

	cols := []string{"id", "trigger_id", "row_id", "success", "error_message", "facts_before", "facts_after", "started_at", "duration_ms"}
	mock.ExpectQuery(`SELECT \* FROM trigger_execution_history`).
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow("h1", "t1", "r1", true, nil, []byte("{}"), []byte("{}"), time.Now(), int64(10)).
			AddRow("h2", "t1", "r2", false, "boom", []byte("{}"), []byte("{}"), time.Now(), int64(20)))

	stats, err := oe.TriggerStats(context.Background(), "t1", 10)
	require.Nil(t, err)
	assert.Equal(t, 2, stats.Total)
	assert.Equal(t, 1, stats.Failures)
}

func TestObservabilityEnginePublishSummaryZeroesLatencyWithoutDeliveryTimestamp(t *testing.T) {
	db, mock := newMockDB(t)
	oe := &ObservabilityEngine{Engine: &Engine{}, Envelopes: store.NewEnvelopeRepository(db)}

	cols := []string{"id", "message_id", "webhook_id", "mode", "payload", "queue_status", "bus_status", "bus_stream", "bus_sequence", "attempt", "next_retry_at", "last_error", "created_at"}
	mock.ExpectQuery(`SELECT \* FROM outbound_envelopes`).
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow("e1", nil, "wh1", "queue", []byte("{}"), strPtr("delivered"), nil, nil, nil, 1, nil, nil, time.Now()))

	summary, err := oe.PublishSummary(context.Background(), "wh1", 10)
	require.Nil(t, err)
	assert.Equal(t, 1, summary.Total)
	assert.Equal(t, 0.0, summary.P50Ms)
}

func TestObservabilityEngineWorkerStatsSnapshotsTracker(t *testing.T) {
	tracker := observability.NewWorkerStatsTracker()
	tracker.RecordProcessed("w1", 10, time.Now())
	oe := &ObservabilityEngine{Engine: &Engine{}, Workers: tracker}

	snap := oe.WorkerStats()
	require.Len(t, snap, 1)
	assert.Equal(t, "w1", snap[0].WorkerID)
}

func TestObservabilityEngineWorkerStatsNilTrackerReturnsNil(t *testing.T) {
	oe := &ObservabilityEngine{Engine: &Engine{}}
	assert.Nil(t, oe.WorkerStats())
}
