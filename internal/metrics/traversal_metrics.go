package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TraversalSingleHopCallsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "qgraph_traversal_single_hop_calls_total",
			Help: "Total number of single-hop traverse calls",
		},
	)

	TraversalSingleHopDurationSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "qgraph_traversal_single_hop_duration_seconds",
			Help:    "Duration of single-hop traverse calls",
			Buckets: prometheus.DefBuckets,
		},
	)

	TraversalBFSCallsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "qgraph_traversal_bfs_calls_total",
			Help: "Total number of bounded-BFS traverse calls",
		},
	)

	TraversalBFSDurationSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "qgraph_traversal_bfs_duration_seconds",
			Help:    "Duration of bounded-BFS traverse calls",
			Buckets: prometheus.DefBuckets,
		},
	)
)
