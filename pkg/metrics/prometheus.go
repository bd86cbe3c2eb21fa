// Package metrics provides Prometheus metrics for the milepost grading service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the milepost service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	// Grading metrics
	gradings        *prometheus.CounterVec
	gradingLatency  prometheus.Histogram
	gradingFailures *prometheus.CounterVec

	// Eligibility sweep metrics
	sweepRuns     prometheus.Counter
	sweepFailures prometheus.Counter
	sweepLatency  prometheus.Histogram
	flagsFlipped  prometheus.Counter

	// Store metrics
	txConflicts prometheus.Counter

	// HTTP metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

// Initialize global metrics.
func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "milepost",
		subsystem:        "grading",
		histogramBuckets: prometheus.DefBuckets,
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.gradings = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "gradings_total",
		Help:      "Completed gradings by resulting level",
	}, []string{"level"})

	m.gradingLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "grading_duration_milliseconds",
		Help:      "End-to-end grading latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.gradingFailures = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "grading_failures_total",
		Help:      "Failed gradings by error kind",
	}, []string{"kind"})

	m.sweepRuns = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "eligibility_sweeps_total",
		Help:      "Eligibility sweep executions",
	})

	m.sweepFailures = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "eligibility_sweep_failures_total",
		Help:      "Eligibility sweeps that failed after the grade committed",
	})

	m.sweepLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "eligibility_sweep_duration_milliseconds",
		Help:      "Eligibility sweep latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.flagsFlipped = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "eligibility_flags_flipped_total",
		Help:      "Eligibility flags whose value changed during a sweep",
	})

	m.txConflicts = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "store_transaction_conflicts_total",
		Help:      "Store transactions that exhausted their conflict retries",
	})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_requests_total",
		Help:      "HTTP requests by endpoint, method and status",
	}, []string{"endpoint", "method", "status"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_request_duration_milliseconds",
		Help:      "HTTP request latency in milliseconds",
		Buckets:   m.histogramBuckets,
	}, []string{"endpoint", "method", "status"})
}

// RecordGrading counts a completed grading by its resulting level.
func RecordGrading(lvl string) {
	globalManager.gradings.WithLabelValues(lvl).Inc()
}

// RecordGradingLatency records end-to-end grading latency in milliseconds.
func RecordGradingLatency(latencyMs float64) {
	globalManager.gradingLatency.Observe(latencyMs)
}

// RecordGradingFailure counts a failed grading by error kind.
func RecordGradingFailure(kind string) {
	globalManager.gradingFailures.WithLabelValues(kind).Inc()
}

// RecordSweepRun counts one eligibility sweep execution.
func RecordSweepRun() {
	globalManager.sweepRuns.Inc()
}

// RecordSweepFailure counts a sweep that failed post-commit.
func RecordSweepFailure() {
	globalManager.sweepFailures.Inc()
}

// RecordSweepLatency records sweep latency in milliseconds.
func RecordSweepLatency(latencyMs float64) {
	globalManager.sweepLatency.Observe(latencyMs)
}

// RecordFlagsFlipped counts eligibility flags changed by a sweep.
func RecordFlagsFlipped(n int) {
	globalManager.flagsFlipped.Add(float64(n))
}

// RecordTxConflict counts a store transaction lost to retry exhaustion.
func RecordTxConflict() {
	globalManager.txConflicts.Inc()
}

// RecordHTTPRequest records an HTTP request with its outcome.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request latency in milliseconds.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, durationMs float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
}

// GetRegistry exposes the custom registry for the /healthz handler.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
