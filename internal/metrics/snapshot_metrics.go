package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SnapshotOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "qgraph_snapshot_operations_total",
			Help: "Total number of snapshot save/load operations by status",
		},
		[]string{"operation", "status"},
	)

	SnapshotSaveDurationSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "qgraph_snapshot_save_duration_seconds",
			Help:    "Duration of snapshot save operations",
			Buckets: prometheus.DefBuckets,
		},
	)

	SnapshotLoadDurationSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "qgraph_snapshot_load_duration_seconds",
			Help:    "Duration of snapshot load operations",
			Buckets: prometheus.DefBuckets,
		},
	)

	SnapshotSizeBytes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "qgraph_snapshot_size_bytes",
			Help:    "Size of saved snapshot files in bytes",
			Buckets: []float64{1e3, 1e4, 1e5, 1e6, 1e7, 1e8},
		},
	)
)
