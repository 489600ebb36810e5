package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	computationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "stridelab",
		Subsystem: "analytics",
		Name:      "computations_total",
		Help:      "Pipeline computations by function and outcome.",
	}, []string{"function", "outcome"})

	computationDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "stridelab",
		Subsystem: "analytics",
		Name:      "computation_duration_seconds",
		Help:      "Wall-clock duration of one pipeline computation.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"function"})
)

func init() {
	prometheus.MustRegister(computationsTotal, computationDuration)
}

// Outcome labels for RecordComputation.
const (
	OutcomeSuccess       = "success"
	OutcomeNotApplicable = "not_applicable"
	OutcomeFailure       = "failure"
)

// RecordComputation updates the per-function counters and latency histogram.
func RecordComputation(function, outcome string, elapsed time.Duration) {
	computationsTotal.WithLabelValues(function, outcome).Inc()
	computationDuration.WithLabelValues(function).Observe(elapsed.Seconds())
}
