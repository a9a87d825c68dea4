package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	MatchCallsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "qgraph_match_calls_total",
			Help: "Total number of subgraph pattern match calls",
		},
	)

	MatchResultsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "qgraph_match_results_total",
			Help: "Total number of subgraph matches returned across all calls",
		},
	)

	MatchDurationSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "qgraph_match_duration_seconds",
			Help:    "Duration of subgraph pattern match calls",
			Buckets: prometheus.DefBuckets,
		},
	)
)
