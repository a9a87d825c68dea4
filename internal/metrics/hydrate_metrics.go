package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HydrationBatchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "qgraph_hydration_batches_total",
			Help: "Total number of Arrow IPC batches processed during hydration",
		},
		[]string{"status"},
	)

	HydrationRowsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "qgraph_hydration_rows_total",
			Help: "Total number of edge rows hydrated into the topology",
		},
	)

	HydrationStreamDurationSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "qgraph_hydration_stream_duration_seconds",
			Help:    "Duration of a full Arrow IPC stream hydration",
			Buckets: prometheus.DefBuckets,
		},
	)
)
