// Package metrics provides the Prometheus collectors for the calculator service:
//   - http_request_total, http_request_duration_seconds, http_request_in_flight:
//     HTTP traffic labelled by chi route pattern
//   - rate_limiter_buckets_total: clients currently tracked by the limiter
//   - calculations_total: calculator invocations by calculator and outcome
//   - reference_reload_total, reference_entries: reference dataset reloads
//
// All collectors are registered with the Prometheus default registry during
// package initialization.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Calculation outcomes
const (
	OutcomeOK         = "ok"
	OutcomeOutOfRange = "out_of_range"
	OutcomeError      = "error"
)

// Reload statuses
const (
	ReloadSuccess = "success"
	ReloadFailure = "failure"
	ReloadSkipped = "skipped"
)

var (
	HTTPRequestTotals = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_request_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"method", "path"},
	)

	HTTPRequestInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_request_in_flight",
			Help: "Current in-flight requests",
		},
	)

	RateLimiterBucketsTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "rate_limiter_buckets_total",
			Help: "Total number of rate limiter buckets (clients seen in the last ~5 minutes)",
		},
	)

	CalculationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "calculations_total",
			Help: "Calculator invocations by calculator and outcome",
		},
		[]string{"calculator", "outcome"},
	)

	ReferenceReloadTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reference_reload_total",
			Help: "Reference dataset reload attempts by status",
		},
		[]string{"status"},
	)

	ReferenceEntries = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "reference_entries",
			Help: "Entries in the published reference datasets",
		},
		[]string{"dataset"},
	)
)

func init() {
	prometheus.MustRegister(HTTPRequestTotals)
	prometheus.MustRegister(HTTPRequestDuration)
	prometheus.MustRegister(HTTPRequestInFlight)
	prometheus.MustRegister(RateLimiterBucketsTotal)
	prometheus.MustRegister(CalculationsTotal)
	prometheus.MustRegister(ReferenceReloadTotal)
	prometheus.MustRegister(ReferenceEntries)
}

// ObserveCalculation counts one calculator call
func ObserveCalculation(calculator, outcome string) {
	CalculationsTotal.WithLabelValues(calculator, outcome).Inc()
}

// ObserveReload counts one reload attempt
func ObserveReload(status string) {
	ReferenceReloadTotal.WithLabelValues(status).Inc()
}

// SetReferenceEntries records the size of the published datasets
func SetReferenceEntries(drugs, toxidromes, redFlags int) {
	ReferenceEntries.WithLabelValues("drugs").Set(float64(drugs))
	ReferenceEntries.WithLabelValues("toxidromes").Set(float64(toxidromes))
	ReferenceEntries.WithLabelValues("red_flags").Set(float64(redFlags))
}
