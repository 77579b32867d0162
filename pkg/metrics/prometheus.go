// Package metrics provides Prometheus metrics for the servhooks extension service.
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

// Manager manages all Prometheus metrics for the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	refreshInterval  time.Duration
	registry         prometheus.Registerer

	// Hook intake
	hookEvents     *prometheus.CounterVec
	hookDuplicates prometheus.Counter

	// Enrichment pipeline
	enrichmentResults  *prometheus.CounterVec
	lookupsThrottled   prometheus.Counter
	lookupsDropped     prometheus.Counter
	deletionNotices    *prometheus.CounterVec
	fetchLatency       *prometheus.HistogramVec
	fetchErrors        *prometheus.CounterVec
	jobLatency         *prometheus.HistogramVec
	jobQueueWait       prometheus.Histogram
	outboundMessages   *prometheus.CounterVec
	outboundFailures   *prometheus.CounterVec

	// Identity integrity
	ghostsEvicted        prometheus.Counter
	ghostEvictFailures   prometheus.Counter
	forcedRenames        *prometheus.CounterVec
	placeholderAttempts  prometheus.Histogram
	placeholderFallbacks *prometheus.CounterVec
	liveSessions         prometheus.Gauge

	// Operator rank
	roleUpdates *prometheus.CounterVec

	// Queue
	queueSize        prometheus.Gauge
	queueCapacity    prometheus.Gauge
	queueUtilization prometheus.Gauge
	queueEnqueued    prometheus.Counter
	queueDequeued    prometheus.Counter
	queueRejected    *prometheus.CounterVec

	// Workers
	workerCount  prometheus.Gauge
	workerErrors prometheus.Counter

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Errors
	errorsByComponent *prometheus.CounterVec

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
		namespace:        "servhooks",
		subsystem:        "",
		histogramBuckets: []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
		refreshInterval:  defaultRefreshInterval,
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
	}, labels)
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
	})
}

func (m *Manager) histogram(name, help string, buckets []float64) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, Buckets: buckets,
	})
}

func (m *Manager) histogramVec(name, help string, labels ...string) *prometheus.HistogramVec {
	return promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, Buckets: m.histogramBuckets,
	}, labels)
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every collector
	m.hookEvents = m.counterVec("hook_events_total", "Hook invocations received, by event kind", "kind")
	m.hookDuplicates = m.counter("hook_duplicates_total", "Hook deliveries suppressed as redeliveries")

	m.enrichmentResults = m.counterVec("enrichment_results_total", "Enrichment pipeline outcomes, by result kind", "result")
	m.lookupsThrottled = m.counter("enrichment_throttled_total", "Resource references dropped by the per-channel throttle")
	m.lookupsDropped = m.counter("enrichment_dropped_total", "Jobs dropped because the queue rejected them")
	m.deletionNotices = m.counterVec("deletion_notifications_total", "Account deletion notifications, by outcome", "outcome")
	m.fetchLatency = m.histogramVec("fetch_latency_milliseconds", "Outbound HTTP call latency in milliseconds", "op")
	m.fetchErrors = m.counterVec("fetch_errors_total", "Outbound HTTP failures, by operation and cause", "op", "cause")
	m.jobLatency = m.histogramVec("job_latency_milliseconds", "Job processing latency in milliseconds", "kind")
	m.jobQueueWait = m.histogram("job_queue_wait_milliseconds", "Time jobs spent queued in milliseconds", m.histogramBuckets)
	m.outboundMessages = m.counterVec("outbound_messages_total", "Messages emitted to the host, by scope", "scope")
	m.outboundFailures = m.counterVec("outbound_failures_total", "Host control actions that failed, by action", "action")

	m.ghostsEvicted = m.counter("ghosts_evicted_total", "Ghost sessions terminated after an authoritative login")
	m.ghostEvictFailures = m.counter("ghost_evict_failures_total", "Ghost terminations that failed and were skipped")
	m.forcedRenames = m.counterVec("forced_renames_total", "Forced nickname changes, by reason", "reason")
	m.placeholderAttempts = m.histogram("placeholder_attempts", "Random candidates drawn per placeholder allocation",
		[]float64{1, 2, 3, 5, 10, 20, 30})
	m.placeholderFallbacks = m.counterVec("placeholder_fallbacks_total", "Placeholder allocations that left the random phase", "mode")
	m.liveSessions = m.gauge("live_sessions", "Sessions currently mirrored from the host")

	m.roleUpdates = m.counterVec("role_updates_total", "Operator rank updates, by outcome", "outcome")

	m.queueSize = m.gauge("queue_size", "Current number of queued jobs")
	m.queueCapacity = m.gauge("queue_capacity", "Configured queue capacity")
	m.queueUtilization = m.gauge("queue_utilization_ratio", "Queue size divided by capacity")
	m.queueEnqueued = m.counter("queue_enqueued_total", "Jobs accepted by the queue")
	m.queueDequeued = m.counter("queue_dequeued_total", "Jobs handed to workers")
	m.queueRejected = m.counterVec("queue_rejected_total", "Jobs rejected by the queue, by reason", "reason")

	m.workerCount = m.gauge("worker_count", "Number of running workers")
	m.workerErrors = m.counter("worker_errors_total", "Jobs that finished with an error")

	m.httpRequests = m.counterVec("http_requests_total", "HTTP requests by endpoint, method and status", "endpoint", "method", "status_code")
	m.httpRequestDuration = m.histogramVec("http_request_duration_milliseconds", "HTTP request duration in milliseconds", "endpoint", "method", "status_code")

	m.errorsByComponent = m.counterVec("errors_total", "Errors by component and type", "component", "error_type")

	m.systemMemoryUsage = m.gauge("system_memory_usage_bytes", "Heap bytes allocated")
	m.systemGoroutineCount = m.gauge("system_goroutine_count", "Number of goroutines")
}

// RecordHookEvent counts a hook invocation of the given kind.
func RecordHookEvent(kind string) { globalManager.hookEvents.WithLabelValues(kind).Inc() }

// RecordHookDuplicate counts a suppressed redelivery.
func RecordHookDuplicate() { globalManager.hookDuplicates.Inc() }

// RecordEnrichmentResult counts a pipeline outcome.
func RecordEnrichmentResult(result string) {
	globalManager.enrichmentResults.WithLabelValues(result).Inc()
}

// RecordLookupThrottled counts a reference dropped by the throttle.
func RecordLookupThrottled() { globalManager.lookupsThrottled.Inc() }

// RecordLookupDropped counts a job the queue refused.
func RecordLookupDropped() { globalManager.lookupsDropped.Inc() }

// RecordDeletionNotice counts a deletion notification outcome ("sent", "failed").
func RecordDeletionNotice(outcome string) {
	globalManager.deletionNotices.WithLabelValues(outcome).Inc()
}

// RecordFetchLatency observes the latency of one outbound call.
func RecordFetchLatency(op string, latencyMs float64) {
	globalManager.fetchLatency.WithLabelValues(op).Observe(latencyMs)
}

// RecordFetchError counts an outbound failure.
func RecordFetchError(op, cause string) {
	globalManager.fetchErrors.WithLabelValues(op, cause).Inc()
}

// RecordJobLatency observes how long a worker spent on a job.
func RecordJobLatency(kind string, latencyMs float64) {
	globalManager.jobLatency.WithLabelValues(kind).Observe(latencyMs)
}

// RecordJobQueueWait observes the time a job waited before a worker took it.
func RecordJobQueueWait(waitMs float64) { globalManager.jobQueueWait.Observe(waitMs) }

// RecordOutboundMessage counts a message emitted to the host ("broadcast", "private").
func RecordOutboundMessage(scope string) {
	globalManager.outboundMessages.WithLabelValues(scope).Inc()
}

// RecordOutboundFailure counts a failed host control action.
func RecordOutboundFailure(action string) {
	globalManager.outboundFailures.WithLabelValues(action).Inc()
}

// RecordGhostEvicted counts a terminated ghost session.
func RecordGhostEvicted() { globalManager.ghostsEvicted.Inc() }

// RecordGhostEvictFailure counts a ghost termination that failed.
func RecordGhostEvictFailure() { globalManager.ghostEvictFailures.Inc() }

// RecordForcedRename counts a forced nickname change.
func RecordForcedRename(reason string) {
	globalManager.forcedRenames.WithLabelValues(reason).Inc()
}

// RecordPlaceholderAttempts observes the random draws one allocation needed.
func RecordPlaceholderAttempts(n int) { globalManager.placeholderAttempts.Observe(float64(n)) }

// RecordPlaceholderFallback counts allocations that fell back ("probe", "exhausted").
func RecordPlaceholderFallback(mode string) {
	globalManager.placeholderFallbacks.WithLabelValues(mode).Inc()
}

// UpdateLiveSessions sets the number of mirrored sessions.
func UpdateLiveSessions(n int) { globalManager.liveSessions.Set(float64(n)) }

// RecordRoleUpdate counts an operator rank update outcome.
func RecordRoleUpdate(outcome string) {
	globalManager.roleUpdates.WithLabelValues(outcome).Inc()
}

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) { globalManager.queueSize.Set(float64(size)) }

// UpdateQueueCapacity sets the configured queue capacity.
func UpdateQueueCapacity(capacity int) { globalManager.queueCapacity.Set(float64(capacity)) }

// UpdateQueueUtilization sets the queue utilization ratio.
func UpdateQueueUtilization(ratio float64) { globalManager.queueUtilization.Set(ratio) }

// RecordQueueEnqueue counts an accepted job.
func RecordQueueEnqueue() { globalManager.queueEnqueued.Inc() }

// RecordQueueDequeue counts a job handed to a worker.
func RecordQueueDequeue() { globalManager.queueDequeued.Inc() }

// RecordQueueRejected counts a rejected job.
func RecordQueueRejected(reason string) {
	globalManager.queueRejected.WithLabelValues(reason).Inc()
}

// UpdateWorkerCount sets the number of running workers.
func UpdateWorkerCount(count int) { globalManager.workerCount.Set(float64(count)) }

// RecordWorkerError counts a job that finished with an error.
func RecordWorkerError() { globalManager.workerErrors.Inc() }

// RecordHTTPRequest counts an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration observes an HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByComponent counts an error attributed to a component.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// UpdateSystemMemoryUsage sets the heap allocation gauge.
func UpdateSystemMemoryUsage(bytes uint64) { globalManager.systemMemoryUsage.Set(float64(bytes)) }

// UpdateSystemGoroutineCount sets the goroutine gauge.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// GetRegistry returns the registry all package-level collectors live on.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
