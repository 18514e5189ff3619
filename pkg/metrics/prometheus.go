// Package metrics provides Prometheus metrics for the attendance service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Default metrics configuration constants.
const (
	defaultRefreshInterval = 10 * time.Second
)

// Recognition outcomes and suppression reasons used as label values.
const (
	OutcomeMatched = "matched"
	OutcomeUnknown = "unknown"

	ReasonCooldown  = "cooldown"
	ReasonDuplicate = "duplicate"

	ResultOK    = "ok"
	ResultError = "error"
)

// Manager manages all Prometheus metrics for the attendance service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	refreshInterval  time.Duration
	registry         prometheus.Registerer

	// Recognition and ledger
	recognitions         *prometheus.CounterVec
	matchConfidence      prometheus.Histogram
	attendanceRecorded   prometheus.Counter
	attendanceSuppressed *prometheus.CounterVec
	integrityViolations  prometheus.Counter

	// State size
	identities       prometheus.Gauge
	attendanceEvents prometheus.Gauge

	// Persistence and fan-out
	snapshotWrites *prometheus.CounterVec
	notifications  *prometheus.CounterVec
	queueSize      prometheus.Gauge
	wsConnections  prometheus.Gauge

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// System
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

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "attendance",
		subsystem:        "kiosk",
		histogramBuckets: prometheus.DefBuckets,
		refreshInterval:  defaultRefreshInterval,
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

// RefreshInterval is how often gauges fed by polling should be refreshed.
func (m *Manager) RefreshInterval() time.Duration {
	return m.refreshInterval
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for all metric definitions
	auto := promauto.With(m.registry)

	m.recognitions = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "recognitions_total",
		Help:      "Descriptors submitted for recognition by outcome",
	}, []string{"outcome"})

	m.matchConfidence = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "match_confidence",
		Help:      "Confidence of accepted matches",
		Buckets:   []float64{0.5, 0.6, 0.65, 0.7, 0.75, 0.8, 0.85, 0.9, 0.95, 1},
	})

	m.attendanceRecorded = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "attendance_recorded_total",
		Help:      "Attendance events appended to the ledger",
	})

	m.attendanceSuppressed = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "attendance_suppressed_total",
		Help:      "Matches that did not produce an event, by reason",
	}, []string{"reason"})

	m.integrityViolations = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "integrity_violations_total",
		Help:      "Ledger calls that referenced an unknown identity",
	})

	m.identities = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "identities",
		Help:      "Registered identities",
	})

	m.attendanceEvents = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "attendance_events",
		Help:      "Attendance events currently held",
	})

	m.snapshotWrites = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "snapshot_writes_total",
		Help:      "Snapshot writes to the configured store by result",
	}, []string{"result"})

	m.notifications = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "notifications_total",
		Help:      "Attendance notifications published by sink and result",
	}, []string{"sink", "result"})

	m.queueSize = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "notification_queue_size",
		Help:      "Notifications waiting to be published",
	})

	m.wsConnections = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "ws_connections",
		Help:      "Connected WebSocket feed clients",
	})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests by endpoint and method",
	}, []string{"endpoint", "method", "status_code"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_request_duration_milliseconds",
		Help:      "HTTP request duration in milliseconds",
		Buckets:   m.histogramBuckets,
	}, []string{"endpoint", "method", "status_code"})

	m.systemMemoryUsage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_memory_usage_bytes",
		Help:      "System memory usage in bytes",
	})

	m.systemGoroutineCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_goroutine_count",
		Help:      "Number of goroutines",
	})
}

// RecordRecognition counts a recognition attempt and, for matches, observes its confidence.
func RecordRecognition(matched bool, confidence float64) {
	if !matched {
		globalManager.recognitions.WithLabelValues(OutcomeUnknown).Inc()
		return
	}
	globalManager.recognitions.WithLabelValues(OutcomeMatched).Inc()
	globalManager.matchConfidence.Observe(confidence)
}

// RecordAttendance increments the recorded events counter.
func RecordAttendance() {
	globalManager.attendanceRecorded.Inc()
}

// RecordSuppressed counts a match that was not recorded.
func RecordSuppressed(reason string) {
	globalManager.attendanceSuppressed.WithLabelValues(reason).Inc()
}

// RecordIntegrityViolation counts a ledger call against an unknown identity.
func RecordIntegrityViolation() {
	globalManager.integrityViolations.Inc()
}

// UpdateIdentities sets the registered identity gauge.
func UpdateIdentities(count int) {
	globalManager.identities.Set(float64(count))
}

// UpdateAttendanceEvents sets the event gauge.
func UpdateAttendanceEvents(count int) {
	globalManager.attendanceEvents.Set(float64(count))
}

// RecordSnapshotWrite counts a snapshot write with its result.
func RecordSnapshotWrite(result string) {
	globalManager.snapshotWrites.WithLabelValues(result).Inc()
}

// RecordNotification counts a publish attempt for a sink.
func RecordNotification(sink, result string) {
	globalManager.notifications.WithLabelValues(sink, result).Inc()
}

// UpdateQueueSize sets the current notification queue size.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateWSConnections sets the number of connected feed clients.
func UpdateWSConnections(count int) {
	globalManager.wsConnections.Set(float64(count))
}

// RecordHTTPRequest increments the HTTP request counter.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration in milliseconds.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}

// Default returns the global manager.
func Default() *Manager {
	return globalManager
}
