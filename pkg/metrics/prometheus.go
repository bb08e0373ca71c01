// Package metrics provides Prometheus metrics for the pairwise ranking service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	defaultRefreshInterval = 10 * time.Second
)

// Manager owns every collector exported by the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	refreshInterval  time.Duration
	customLabels     map[string]string
	metricPrefix     string
	registry         prometheus.Registerer

	// Ranking sessions
	sessionsCreated   prometheus.Counter
	sessionsRestored  prometheus.Counter
	sessionFallbacks  prometheus.Counter
	sessionsCompleted prometheus.Counter
	sessionResets     prometheus.Counter
	activeSessions    prometheus.Gauge
	comparisons       *prometheus.CounterVec
	staleChoices      prometheus.Counter
	imports           *prometheus.CounterVec
	exports           prometheus.Counter

	// Session store
	storeLatency     *prometheus.HistogramVec
	storeErrors      *prometheus.CounterVec
	storeExpired     prometheus.Counter
	breakerState     *prometheus.GaugeVec
	breakerTransited *prometheus.CounterVec

	// Calculator
	calcOperations *prometheus.CounterVec

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Errors
	errorRateByComponent *prometheus.CounterVec
	errorRateByType      *prometheus.CounterVec
	errorRateByEndpoint  *prometheus.CounterVec
	errorLatency         *prometheus.HistogramVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "pairwise",
		subsystem:        "ranking",
		histogramBuckets: prometheus.DefBuckets,
		enabled:          true,
		refreshInterval:  defaultRefreshInterval,
		customLabels:     make(map[string]string),
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) name(n string) string {
	if m.metricPrefix != "" {
		return m.metricPrefix + "_" + n
	}
	return n
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: m.name(name), Help: help, ConstLabels: m.customLabels,
	})
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: m.name(name), Help: help, ConstLabels: m.customLabels,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: m.name(name), Help: help, ConstLabels: m.customLabels,
	}, labels)
}

func (m *Manager) gaugeVec(name, help string, labels ...string) *prometheus.GaugeVec {
	return promauto.With(m.registry).NewGaugeVec(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: m.name(name), Help: help, ConstLabels: m.customLabels,
	}, labels)
}

func (m *Manager) histogramVec(name, help string, buckets []float64, labels ...string) *prometheus.HistogramVec {
	return promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: m.name(name), Help: help, ConstLabels: m.customLabels, Buckets: buckets,
	}, labels)
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every collector
	m.sessionsCreated = m.counter("sessions_created_total", "Total number of fresh ranking sessions created")
	m.sessionsRestored = m.counter("sessions_restored_total", "Total number of sessions restored from the store")
	m.sessionFallbacks = m.counter("session_restore_fallbacks_total", "Total number of stored sessions discarded as invalid and replaced")
	m.sessionsCompleted = m.counter("sessions_completed_total", "Total number of sessions that exhausted their pairing sequence")
	m.sessionResets = m.counter("session_resets_total", "Total number of explicit session resets")
	m.activeSessions = m.gauge("active_sessions", "Number of sessions currently held by the store")
	m.comparisons = m.counterVec("comparisons_total", "Total number of recorded comparisons by outcome", "outcome")
	m.staleChoices = m.counter("stale_choices_total", "Total number of choices rejected because they referenced an old pair")
	m.imports = m.counterVec("imports_total", "Total number of state imports by result", "result")
	m.exports = m.counter("exports_total", "Total number of state exports")

	m.storeLatency = m.histogramVec("store_latency_milliseconds", "Session store operation latency in milliseconds",
		m.histogramBuckets, "backend", "op")
	m.storeErrors = m.counterVec("store_errors_total", "Total number of session store errors", "backend", "op")
	m.storeExpired = m.counter("store_expired_total", "Total number of sessions evicted after their TTL")
	m.breakerState = m.gaugeVec("circuit_breaker_state", "Circuit breaker state (0 closed, 1 half-open, 2 open)", "name")
	m.breakerTransited = m.counterVec("circuit_breaker_transitions_total", "Circuit breaker state transitions", "name", "from", "to")

	m.calcOperations = m.counterVec("calculator_operations_total", "Calculator requests by operation and result", "op", "result")

	m.httpRequests = m.counterVec("http_requests_total", "Total number of HTTP requests by endpoint and method",
		"endpoint", "method", "status_code")
	m.httpRequestDuration = m.histogramVec("http_request_duration_milliseconds", "HTTP request duration in milliseconds",
		m.histogramBuckets, "endpoint", "method", "status_code")

	m.errorRateByComponent = m.counterVec("errors_by_component_total", "Total number of errors by component", "component", "error_type")
	m.errorRateByType = m.counterVec("errors_by_type_total", "Total number of errors by type", "error_type", "severity")
	m.errorRateByEndpoint = m.counterVec("errors_by_endpoint_total", "Total number of errors by endpoint", "endpoint", "method", "error_type")
	m.errorLatency = m.histogramVec("error_latency_milliseconds", "Latency of operations that resulted in errors",
		m.histogramBuckets, "component", "error_type")

	m.systemMemoryUsage = m.gauge("system_memory_usage_bytes", "System memory usage in bytes")
	m.systemGoroutineCount = m.gauge("system_goroutine_count", "Number of goroutines")
	m.systemGCPauseTime = promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("system_gc_pause_time_milliseconds"),
		Help:        "GC pause time in milliseconds",
		ConstLabels: m.customLabels,
		Buckets:     []float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000},
	})
}

// Enabled reports whether recording is switched on for the global manager.
func Enabled() bool { return globalManager.enabled }

// RecordSessionCreated increments the fresh sessions counter.
func RecordSessionCreated() {
	if globalManager.enabled {
		globalManager.sessionsCreated.Inc()
	}
}

// RecordSessionRestored increments the restored sessions counter.
func RecordSessionRestored() {
	if globalManager.enabled {
		globalManager.sessionsRestored.Inc()
	}
}

// RecordSessionFallback counts a stored session that failed validation.
func RecordSessionFallback() {
	if globalManager.enabled {
		globalManager.sessionFallbacks.Inc()
	}
}

// RecordSessionCompleted counts a session reaching the end of its sequence.
func RecordSessionCompleted() {
	if globalManager.enabled {
		globalManager.sessionsCompleted.Inc()
	}
}

// RecordSessionReset counts an explicit reset.
func RecordSessionReset() {
	if globalManager.enabled {
		globalManager.sessionResets.Inc()
	}
}

// UpdateActiveSessions sets the number of sessions held by the store.
func UpdateActiveSessions(n int) {
	globalManager.activeSessions.Set(float64(n))
}

// RecordComparison counts a recorded comparison, labelled a_wins, b_wins or draw.
func RecordComparison(outcome string) {
	if globalManager.enabled {
		globalManager.comparisons.WithLabelValues(outcome).Inc()
	}
}

// RecordStaleChoice counts a choice submitted against an outdated pair index.
func RecordStaleChoice() {
	if globalManager.enabled {
		globalManager.staleChoices.Inc()
	}
}

// RecordImport counts an import attempt with its result (accepted, rejected).
func RecordImport(result string) {
	if globalManager.enabled {
		globalManager.imports.WithLabelValues(result).Inc()
	}
}

// RecordExport counts an export.
func RecordExport() {
	if globalManager.enabled {
		globalManager.exports.Inc()
	}
}

// RecordStoreLatency records a store operation latency in milliseconds.
func RecordStoreLatency(backend, op string, latencyMs float64) {
	if globalManager.enabled {
		globalManager.storeLatency.WithLabelValues(backend, op).Observe(latencyMs)
	}
}

// RecordStoreError counts a failed store operation.
func RecordStoreError(backend, op string) {
	if globalManager.enabled {
		globalManager.storeErrors.WithLabelValues(backend, op).Inc()
	}
}

// RecordStoreExpired counts sessions swept after their TTL.
func RecordStoreExpired(n int) {
	if globalManager.enabled && n > 0 {
		globalManager.storeExpired.Add(float64(n))
	}
}

// UpdateCircuitBreakerState sets the numeric breaker state for name.
func UpdateCircuitBreakerState(name string, state float64) {
	globalManager.breakerState.WithLabelValues(name).Set(state)
}

// RecordCircuitBreakerTransition counts a breaker state change.
func RecordCircuitBreakerTransition(name, from, to string) {
	if globalManager.enabled {
		globalManager.breakerTransited.WithLabelValues(name, from, to).Inc()
	}
}

// RecordCalculation counts a calculator request by op (add, sub, mul, div, unsupported) and result (ok, error).
func RecordCalculation(op, result string) {
	if globalManager.enabled {
		globalManager.calcOperations.WithLabelValues(op, result).Inc()
	}
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	if globalManager.enabled {
		globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
	}
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	if globalManager.enabled {
		globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
	}
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	if globalManager.enabled {
		globalManager.errorRateByComponent.WithLabelValues(component, errorType).Inc()
	}
}

// RecordErrorByType records an error with type and severity labels.
func RecordErrorByType(errorType, severity string) {
	if globalManager.enabled {
		globalManager.errorRateByType.WithLabelValues(errorType, severity).Inc()
	}
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	if globalManager.enabled {
		globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
	}
}

// RecordErrorLatency records the latency of an operation that resulted in an error.
func RecordErrorLatency(component, errorType string, latencyMs float64) {
	if globalManager.enabled {
		globalManager.errorLatency.WithLabelValues(component, errorType).Observe(latencyMs)
	}
}

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) {
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}

// ObserveSince returns the milliseconds elapsed since start.
func ObserveSince(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000
}

// RefreshInterval returns how often gauges owned by m should be refreshed.
func (m *Manager) RefreshInterval() time.Duration { return m.refreshInterval }

// RefreshInterval returns the global manager's gauge refresh interval.
func RefreshInterval() time.Duration { return globalManager.refreshInterval }
