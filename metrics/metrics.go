// Package metrics registers the Prometheus counters/histograms/gauges
// exposed across the engine's subsystems (SPEC_FULL §K.5), following the
// teacher's engine/metrics.go idiom: package-level vectors MustRegister'd in
// an init(), incremented from the call site that owns the event.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// CacheHitsTotal/CacheMissesTotal/CacheEvictionsTotal mirror
	// cache.Stats' in-process counters as Prometheus series so an operator
	// can graph them across instances.
	CacheHitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "rule_engine",
		Subsystem: "cache",
		Name:      "hits_total",
		Help:      "Compiled-rule cache hits.",
	})
	CacheMissesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "rule_engine",
		Subsystem: "cache",
		Name:      "misses_total",
		Help:      "Compiled-rule cache misses.",
	})
	CacheEvictionsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "rule_engine",
		Subsystem: "cache",
		Name:      "evictions_total",
		Help:      "Compiled-rule cache evictions.",
	})
	CacheSize = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "rule_engine",
		Subsystem: "cache",
		Name:      "size",
		Help:      "Current number of entries held by the compiled-rule cache.",
	})

	// TriggerExecutionsTotal counts trigger-pipeline invocations by outcome
	// (spec §4.G).
	TriggerExecutionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "rule_engine",
		Subsystem: "trigger",
		Name:      "executions_total",
		Help:      "Trigger pipeline invocations.",
	}, []string{"trigger_id", "outcome"})

	// QueueDepth tracks the pending async trigger queue's size as last
	// observed by a worker drain (spec §4.G step 5).
	QueueDepth = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "rule_engine",
		Subsystem: "trigger",
		Name:      "queue_depth",
		Help:      "Pending async trigger queue items claimed in the last drain.",
	})

	// BusPublishTotal counts outbound bus publish attempts by outcome
	// (spec §4.H).
	BusPublishTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "rule_engine",
		Subsystem: "outbound",
		Name:      "bus_publish_total",
		Help:      "Outbound bus publish attempts.",
	}, []string{"outcome"})

	// QueuePublishTotal counts outbound webhook (queue-mode) delivery
	// attempts by outcome.
	QueuePublishTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "rule_engine",
		Subsystem: "outbound",
		Name:      "queue_publish_total",
		Help:      "Outbound webhook delivery attempts.",
	}, []string{"outcome"})
)

func init() {
	prometheus.MustRegister(
		CacheHitsTotal, CacheMissesTotal, CacheEvictionsTotal, CacheSize,
		TriggerExecutionsTotal, QueueDepth,
		BusPublishTotal, QueuePublishTotal,
	)
}
