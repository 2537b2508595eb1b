// Package metrics provides Prometheus metrics for the matchtrack service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the matchtrack service.
type Manager struct {
	namespace        string
	subsystem        string
	latencyBuckets   []float64
	refreshInterval  time.Duration
	registry         prometheus.Registerer

	// Broadcast channel
	broadcastsPublished    prometheus.Counter
	broadcastsDelivered    prometheus.Counter
	broadcastsDropped      *prometheus.CounterVec
	broadcastDecodeErrors  prometheus.Counter
	broadcastSubscriptions prometheus.Gauge

	// Inference
	inferredEvents       *prometheus.CounterVec
	inferredWriteFailure prometheus.Counter

	// Pending queue
	pendingOffered *prometheus.CounterVec
	pendingExpired prometheus.Counter
	pendingSize    *prometheus.GaugeVec

	// Commit pipeline
	commits       *prometheus.CounterVec
	rollbacks     *prometheus.CounterVec
	commitLatency prometheus.Histogram

	// Connectivity and sessions
	connectivityOnline *prometheus.GaugeVec
	activeSessions     *prometheus.GaugeVec
	rosterIntegrity    prometheus.Counter

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Errors
	errorRateByComponent *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:       defaultNamespace,
		subsystem:       defaultSubsystem,
		latencyBuckets:  defaultLatencyBuckets,
		refreshInterval: defaultRefreshInterval,
		registry:        prometheus.NewRegistry(),
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()
	return m
}

// RefreshInterval reports how often gauges should be refreshed by callers.
func (m *Manager) RefreshInterval() time.Duration {
	return m.refreshInterval
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every metric
	auto := promauto.With(m.registry)

	counter := func(name, help string) prometheus.Counter {
		return auto.NewCounter(prometheus.CounterOpts{Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help})
	}
	counterVec := func(name, help string, labels ...string) *prometheus.CounterVec {
		return auto.NewCounterVec(prometheus.CounterOpts{Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help}, labels)
	}
	gaugeVec := func(name, help string, labels ...string) *prometheus.GaugeVec {
		return auto.NewGaugeVec(prometheus.GaugeOpts{Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help}, labels)
	}

	m.broadcastsPublished = counter("broadcasts_published_total", "Possession announcements published")
	m.broadcastsDelivered = counter("broadcasts_delivered_total", "Possession announcements delivered to subscribers")
	m.broadcastsDropped = counterVec("broadcasts_dropped_total", "Possession announcements dropped before delivery", "reason")
	m.broadcastDecodeErrors = counter("broadcast_decode_errors_total", "Malformed broadcast payloads rejected at the subscription boundary")
	m.broadcastSubscriptions = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "broadcast_subscriptions",
		Help:      "Open broadcast subscriptions",
	})

	m.inferredEvents = counterVec("inferred_events_total", "Events derived from possession transitions", "event_type")
	m.inferredWriteFailure = counter("inferred_write_failures_total", "Inferred events that failed to persist")

	m.pendingOffered = counterVec("pending_offered_total", "Pending obligations offered to a tracker queue by outcome", "outcome")
	m.pendingExpired = counter("pending_expired_total", "Pending obligations dropped by age")
	m.pendingSize = gaugeVec("pending_queue_size", "Pending obligations per tracker", "tracker")

	m.commits = counterVec("commits_total", "Commit attempts by mode and outcome", "mode", "outcome")
	m.rollbacks = counterVec("rollbacks_total", "Optimistic removals restored after a failed write", "mode")
	m.commitLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "commit_latency_milliseconds",
		Help:      "Time spent persisting classified events",
		Buckets:   m.latencyBuckets,
	})

	m.connectivityOnline = gaugeVec("connectivity_online", "1 when the tracker transport is online", "tracker")
	m.activeSessions = gaugeVec("active_sessions", "Joined tracker sessions by role", "role")
	m.rosterIntegrity = counter("roster_integrity_errors_total", "Assignment records that failed to decode")

	m.httpRequests = counterVec("http_requests_total", "Total number of HTTP requests by endpoint and method", "endpoint", "method", "status_code")
	m.httpRequestDuration = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "http_request_duration_milliseconds",
			Help:      "HTTP request duration in milliseconds",
			Buckets:   m.latencyBuckets,
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.errorRateByComponent = counterVec("errors_by_component_total", "Total number of errors by component", "component", "error_type")

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
	m.systemGCPauseTime = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_gc_pause_time_milliseconds",
		Help:      "GC pause time in milliseconds",
		Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000},
	})
}

// Broadcast channel.

// RecordBroadcastPublished increments the published announcements counter.
func RecordBroadcastPublished() { globalManager.broadcastsPublished.Inc() }

// RecordBroadcastDelivered increments the delivered announcements counter.
func RecordBroadcastDelivered() { globalManager.broadcastsDelivered.Inc() }

// RecordBroadcastDropped counts an announcement that never reached a subscriber.
func RecordBroadcastDropped(reason string) {
	globalManager.broadcastsDropped.WithLabelValues(reason).Inc()
}

// RecordBroadcastDecodeError counts a payload rejected by the codec.
func RecordBroadcastDecodeError() { globalManager.broadcastDecodeErrors.Inc() }

// AddBroadcastSubscriptions adjusts the open subscriptions gauge.
func AddBroadcastSubscriptions(delta int) {
	globalManager.broadcastSubscriptions.Add(float64(delta))
}

// Inference.

// RecordInferredEvent counts an inferred event by type.
func RecordInferredEvent(eventType string) {
	globalManager.inferredEvents.WithLabelValues(eventType).Inc()
}

// RecordInferredWriteFailure counts an inferred event that could not be stored.
func RecordInferredWriteFailure() { globalManager.inferredWriteFailure.Inc() }

// Pending queue.

// RecordPendingOffered counts an offer to a pending queue by outcome.
func RecordPendingOffered(outcome string) {
	globalManager.pendingOffered.WithLabelValues(outcome).Inc()
}

// RecordPendingExpired counts obligations dropped by age.
func RecordPendingExpired(count int) {
	globalManager.pendingExpired.Add(float64(count))
}

// UpdatePendingSize sets the queue size gauge for a tracker.
func UpdatePendingSize(trackerID string, size int) {
	globalManager.pendingSize.WithLabelValues(trackerID).Set(float64(size))
}

// DeletePendingSize drops the gauge series of a tracker that left.
func DeletePendingSize(trackerID string) {
	globalManager.pendingSize.DeleteLabelValues(trackerID)
}

// Commit pipeline.

// RecordCommit counts a commit attempt.
func RecordCommit(mode, outcome string) {
	globalManager.commits.WithLabelValues(mode, outcome).Inc()
}

// RecordRollback counts a restored optimistic removal.
func RecordRollback(mode string) {
	globalManager.rollbacks.WithLabelValues(mode).Inc()
}

// RecordCommitLatency records persistence latency in milliseconds.
func RecordCommitLatency(latencyMs float64) {
	globalManager.commitLatency.Observe(latencyMs)
}

// Connectivity and sessions.

// UpdateConnectivity sets the online gauge for a tracker.
func UpdateConnectivity(trackerID string, online bool) {
	v := 0.0
	if online {
		v = 1
	}
	globalManager.connectivityOnline.WithLabelValues(trackerID).Set(v)
}

// UpdateActiveSessions sets the joined sessions gauge for a role.
func UpdateActiveSessions(role string, count int) {
	globalManager.activeSessions.WithLabelValues(role).Set(float64(count))
}

// RecordRosterIntegrityError counts an assignment that failed to decode.
func RecordRosterIntegrityError() { globalManager.rosterIntegrity.Inc() }

// HTTP.

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorRateByComponent.WithLabelValues(component, errorType).Inc()
}

// System.

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

// RefreshInterval reports how often the global manager's process gauges
// should be sampled.
func RefreshInterval() time.Duration { return globalManager.RefreshInterval() }

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
