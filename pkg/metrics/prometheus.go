// Package metrics provides Prometheus metrics for the recipebox service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every collector exported by the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      prometheus.Labels
	registry         prometheus.Registerer

	// Resource metrics
	recipesTotal    prometheus.Gauge
	storeOperations *prometheus.CounterVec

	// HTTP metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	rateLimitRejects    prometheus.Counter
	panicsRecovered     prometheus.Counter

	// Error metrics
	errorRateByType     *prometheus.CounterVec
	errorRateByEndpoint *prometheus.CounterVec

	// System metrics
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "recipebox",
		subsystem:        "api",
		histogramBuckets: []float64{0.5, 1, 2.5, 5, 10, 25, 50, 100, 250, 500, 1000},
		constLabels:      prometheus.Labels{},
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one block per collector
	auto := promauto.With(m.registry)

	m.recipesTotal = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "recipes_total",
		Help:        "Number of recipes currently held in the store",
		ConstLabels: m.constLabels,
	})

	m.storeOperations = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "store_operations_total",
		Help:        "Store operations by operation and outcome",
		ConstLabels: m.constLabels,
	}, []string{"operation", "outcome"})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "http_requests_total",
		Help:        "Total number of HTTP requests by route, method and status code",
		ConstLabels: m.constLabels,
	}, []string{"endpoint", "method", "status_code"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "http_request_duration_milliseconds",
		Help:        "HTTP request duration in milliseconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: m.constLabels,
	}, []string{"endpoint", "method", "status_code"})

	m.rateLimitRejects = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "rate_limit_rejects_total",
		Help:        "Requests rejected by the rate limiter",
		ConstLabels: m.constLabels,
	})

	m.panicsRecovered = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "panics_recovered_total",
		Help:        "Handler panics converted into 500 responses",
		ConstLabels: m.constLabels,
	})

	m.errorRateByType = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "errors_by_type_total",
		Help:        "Error responses by type and severity",
		ConstLabels: m.constLabels,
	}, []string{"error_type", "severity"})

	m.errorRateByEndpoint = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "errors_by_endpoint_total",
		Help:        "Error responses by route, method and type",
		ConstLabels: m.constLabels,
	}, []string{"endpoint", "method", "error_type"})

	m.systemMemoryUsage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "system_memory_usage_bytes",
		Help:        "Heap bytes allocated",
		ConstLabels: m.constLabels,
	})

	m.systemGoroutineCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "system_goroutine_count",
		Help:        "Number of goroutines",
		ConstLabels: m.constLabels,
	})
}

// UpdateRecipesTotal sets the recipe count gauge.
func (m *Manager) UpdateRecipesTotal(count int) { m.recipesTotal.Set(float64(count)) }

// RecordStoreOperation counts one store call.
func (m *Manager) RecordStoreOperation(operation, outcome string) {
	m.storeOperations.WithLabelValues(operation, outcome).Inc()
}

// RecordHTTPRequest counts one served request.
func (m *Manager) RecordHTTPRequest(endpoint, method, statusCode string) {
	m.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration observes a request duration in milliseconds.
func (m *Manager) RecordHTTPRequestDuration(endpoint, method, statusCode string, durationMs float64) {
	m.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
}

// RecordRateLimitReject counts one throttled request.
func (m *Manager) RecordRateLimitReject() { m.rateLimitRejects.Inc() }

// RecordPanicRecovered counts one recovered handler panic.
func (m *Manager) RecordPanicRecovered() { m.panicsRecovered.Inc() }

// RecordErrorByType records an error with type and severity labels.
func (m *Manager) RecordErrorByType(errorType, severity string) {
	m.errorRateByType.WithLabelValues(errorType, severity).Inc()
}

// RecordErrorByEndpoint records an error with endpoint, method and type labels.
func (m *Manager) RecordErrorByEndpoint(endpoint, method, errorType string) {
	m.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// UpdateSystemMemoryUsage sets the memory gauge.
func (m *Manager) UpdateSystemMemoryUsage(bytes uint64) { m.systemMemoryUsage.Set(float64(bytes)) }

// UpdateSystemGoroutineCount sets the goroutine gauge.
func (m *Manager) UpdateSystemGoroutineCount(count int) {
	m.systemGoroutineCount.Set(float64(count))
}

// Package-level helpers record into the global manager.

// UpdateRecipesTotal sets the recipe count gauge.
func UpdateRecipesTotal(count int) { globalManager.UpdateRecipesTotal(count) }

// RecordStoreOperation counts one store call.
func RecordStoreOperation(operation, outcome string) {
	globalManager.RecordStoreOperation(operation, outcome)
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.RecordHTTPRequest(endpoint, method, statusCode)
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, durationMs float64) {
	globalManager.RecordHTTPRequestDuration(endpoint, method, statusCode, durationMs)
}

// RecordRateLimitReject counts one throttled request.
func RecordRateLimitReject() { globalManager.RecordRateLimitReject() }

// RecordPanicRecovered counts one recovered handler panic.
func RecordPanicRecovered() { globalManager.RecordPanicRecovered() }

// RecordErrorByType records an error with type and severity labels.
func RecordErrorByType(errorType, severity string) {
	globalManager.RecordErrorByType(errorType, severity)
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.RecordErrorByEndpoint(endpoint, method, errorType)
}

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) { globalManager.UpdateSystemMemoryUsage(bytes) }

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) { globalManager.UpdateSystemGoroutineCount(count) }

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
