package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// InternerHandlesTotal counts strings newly interned (cache misses).
	InternerHandlesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "qgraph_interner_handles_total",
			Help: "Total number of new handles issued by the interner",
		},
	)
)
