package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TopologyEdgesInsertedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "qgraph_topology_edges_inserted_total",
			Help: "Total number of edge records appended to the topology",
		},
	)

	TopologyEdgesClosedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "qgraph_topology_edges_closed_total",
			Help: "Total number of edge records closed (soft-deleted)",
		},
	)

	TopologyCompactionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "qgraph_topology_compactions_total",
			Help: "Total number of compaction passes run over the topology",
		},
	)

	TopologyCompactionDurationSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "qgraph_topology_compaction_duration_seconds",
			Help:    "Duration of compaction passes",
			Buckets: prometheus.DefBuckets,
		},
	)
)
