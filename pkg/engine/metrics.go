package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for engine runs.
var (
	rowsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nlp_engine_rows_total",
		Help: "Total number of reconciled rows by run name and outcome",
	}, []string{"name", "outcome"})

	unitsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nlp_engine_units_total",
		Help: "Total number of executed units by run name and status (ok, error, aborted)",
	}, []string{"name", "status"})

	callDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "nlp_engine_call_duration_seconds",
		Help:    "Duration of one unit call including rate limiting and retries",
		Buckets: prometheus.DefBuckets,
	}, []string{"name"})

	runsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nlp_engine_runs_total",
		Help: "Total number of engine runs by terminal state",
	}, []string{"name", "state"})
)
