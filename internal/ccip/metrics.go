package ccip

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	callCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ccip",
			Subsystem: "gateway",
			Name:      "calls_total",
			Help:      "Total number of dispatched calls",
		},
		[]string{"selector", "status"},
	)

	callDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ccip",
			Subsystem: "gateway",
			Name:      "call_duration_seconds",
			Help:      "Dispatched call duration in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"selector"},
	)
)
