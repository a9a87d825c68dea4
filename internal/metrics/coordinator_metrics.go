package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CoordinatorWritesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "qgraph_coordinator_writes_total",
			Help: "Total number of serialized write calls by operation and outcome",
		},
		[]string{"operation", "status"},
	)

	CoordinatorDivergenceTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "qgraph_coordinator_divergence_total",
			Help: "Total number of times the core was marked divergent from the durable store",
		},
	)

	CoordinatorWriteDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "qgraph_coordinator_write_duration_seconds",
			Help:    "Duration of a serialized write call, durable commit plus core apply",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)
)
