// Package metrics provides Prometheus metrics for the wandbrain ingestion service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every Prometheus collector of the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      prometheus.Labels
	registry         prometheus.Registerer

	// Ingestion
	packetsReceived prometheus.Counter
	packetsDropped  *prometheus.CounterVec
	bytesReceived   prometheus.Counter
	receiveErrors   prometheus.Counter

	// Attempt lifecycle
	pointsAppended    prometheus.Counter
	pointsEvicted     prometheus.Counter
	pointsIgnored     prometheus.Counter
	attemptsFinalized *prometheus.CounterVec
	finalizeNoops     prometheus.Counter
	activeAttempts    prometheus.Gauge
	liveRenders       prometheus.Counter
	renderErrors      *prometheus.CounterVec
	renderLatency     *prometheus.HistogramVec

	// Results
	resultsStored  prometheus.Gauge
	resultsEvicted prometheus.Counter

	// Scoring
	scoringLatency prometheus.Histogram
	scoringJobs    *prometheus.CounterVec
	queueSize      prometheus.Gauge
	queueCapacity  prometheus.Gauge
	workerCount    prometheus.Gauge

	// HTTP and streaming
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	httpErrors          *prometheus.CounterVec
	streamSubscribers   prometheus.Gauge
	streamMessages      *prometheus.CounterVec

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
		namespace:        "wandbrain",
		subsystem:        "ingest",
		histogramBuckets: []float64{0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500},
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
		ConstLabels: m.constLabels,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
		ConstLabels: m.constLabels,
	}, labels)
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
		ConstLabels: m.constLabels,
	})
}

func (m *Manager) histogram(name, help string) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
		ConstLabels: m.constLabels,
		Buckets:     m.histogramBuckets,
	})
}

func (m *Manager) histogramVec(name, help string, labels ...string) *prometheus.HistogramVec {
	return promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
		ConstLabels: m.constLabels,
		Buckets:     m.histogramBuckets,
	}, labels)
}

func (m *Manager) initializeMetrics() {
	m.packetsReceived = m.counter("packets_received_total", "Datagrams read from the wand socket")
	m.packetsDropped = m.counterVec("packets_dropped_total", "Datagrams rejected by the codec", "reason")
	m.bytesReceived = m.counter("bytes_received_total", "Bytes read from the wand socket")
	m.receiveErrors = m.counter("receive_errors_total", "Fatal socket errors that ended a receive loop")

	m.pointsAppended = m.counter("points_appended_total", "Points appended to attempt buffers")
	m.pointsEvicted = m.counter("points_evicted_total", "Oldest points dropped because a buffer hit its cap")
	m.pointsIgnored = m.counter("points_ignored_total", "Pen-up packets without stroke end")
	m.attemptsFinalized = m.counterVec("attempts_finalized_total", "Attempts finalized", "reason")
	m.finalizeNoops = m.counter("finalize_noops_total", "Stroke ends that named no buffered attempt")
	m.activeAttempts = m.gauge("active_attempts", "Attempts currently in flight")
	m.liveRenders = m.counter("live_renders_total", "Live preview images written")
	m.renderErrors = m.counterVec("render_errors_total", "Failed image writes", "kind")
	m.renderLatency = m.histogramVec("render_latency_milliseconds", "Rasterize and persist latency", "kind")

	m.resultsStored = m.gauge("results_stored", "Finalized results retained in the attempt index")
	m.resultsEvicted = m.counter("results_evicted_total", "Finalized results evicted by the retention policy")

	m.scoringLatency = m.histogram("scoring_latency_milliseconds", "Latency of scoring one attempt against all templates")
	m.scoringJobs = m.counterVec("scoring_jobs_total", "Scoring jobs by outcome", "outcome")
	m.queueSize = m.gauge("score_queue_size", "Jobs waiting in the scoring queue")
	m.queueCapacity = m.gauge("score_queue_capacity", "Capacity of the scoring queue")
	m.workerCount = m.gauge("score_worker_count", "Scoring workers running")

	m.httpRequests = m.counterVec("http_requests_total", "HTTP requests by endpoint and method", "endpoint", "method", "status_code")
	m.httpRequestDuration = m.histogramVec("http_request_duration_milliseconds", "HTTP request duration in milliseconds", "endpoint", "method", "status_code")
	m.httpErrors = m.counterVec("http_errors_total", "HTTP error responses by endpoint and type", "endpoint", "method", "error_type", "severity")
	m.streamSubscribers = m.gauge("stream_subscribers", "Connected websocket subscribers")
	m.streamMessages = m.counterVec("stream_messages_total", "Websocket messages by outcome", "outcome")

	m.systemMemoryUsage = m.gauge("system_memory_bytes", "Heap bytes allocated")
	m.systemGoroutineCount = m.gauge("system_goroutines", "Goroutines running")
}

// RecordPacketReceived counts one datagram of n bytes.
func RecordPacketReceived(n int) {
	globalManager.packetsReceived.Inc()
	globalManager.bytesReceived.Add(float64(n))
}

// RecordPacketDropped counts a rejected datagram.
func RecordPacketDropped(reason string) {
	globalManager.packetsDropped.WithLabelValues(reason).Inc()
}

// RecordReceiveError counts a fatal socket error.
func RecordReceiveError() {
	globalManager.receiveErrors.Inc()
}

// RecordPointAppended counts an appended point.
func RecordPointAppended() {
	globalManager.pointsAppended.Inc()
}

// RecordPointsEvicted counts points dropped by the buffer cap.
func RecordPointsEvicted(n int) {
	globalManager.pointsEvicted.Add(float64(n))
}

// RecordPointIgnored counts a pen-up packet without stroke end.
func RecordPointIgnored() {
	globalManager.pointsIgnored.Inc()
}

// RecordAttemptFinalized counts a finalized attempt.
func RecordAttemptFinalized(reason string) {
	globalManager.attemptsFinalized.WithLabelValues(reason).Inc()
}

// RecordFinalizeNoop counts a stroke end with nothing to finalize.
func RecordFinalizeNoop() {
	globalManager.finalizeNoops.Inc()
}

// UpdateActiveAttempts sets the in-flight attempt gauge.
func UpdateActiveAttempts(n int) {
	globalManager.activeAttempts.Set(float64(n))
}

// RecordLiveRender counts a live preview write.
func RecordLiveRender() {
	globalManager.liveRenders.Inc()
}

// RecordRenderError counts a failed render write of the given kind (live, final).
func RecordRenderError(kind string) {
	globalManager.renderErrors.WithLabelValues(kind).Inc()
}

// RecordRenderLatency observes a render latency in milliseconds.
func RecordRenderLatency(kind string, latencyMs float64) {
	globalManager.renderLatency.WithLabelValues(kind).Observe(latencyMs)
}

// UpdateResultsStored sets the retained results gauge.
func UpdateResultsStored(n int) {
	globalManager.resultsStored.Set(float64(n))
}

// RecordResultEvicted counts a result evicted from the attempt index.
func RecordResultEvicted() {
	globalManager.resultsEvicted.Inc()
}

// RecordScoringLatency records scoring latency in milliseconds.
func RecordScoringLatency(latencyMs float64) {
	globalManager.scoringLatency.Observe(latencyMs)
}

// RecordScoringJob counts a scoring job outcome (scored, skipped, error, dropped).
func RecordScoringJob(outcome string) {
	globalManager.scoringJobs.WithLabelValues(outcome).Inc()
}

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// UpdateWorkerCount sets the current worker count.
func UpdateWorkerCount(count int) {
	globalManager.workerCount.Set(float64(count))
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordHTTPError counts an error response.
func RecordHTTPError(endpoint, method, errorType, severity string) {
	globalManager.httpErrors.WithLabelValues(endpoint, method, errorType, severity).Inc()
}

// UpdateStreamSubscribers sets the websocket subscriber gauge.
func UpdateStreamSubscribers(n int) {
	globalManager.streamSubscribers.Set(float64(n))
}

// RecordStreamMessage counts a websocket message outcome (sent, dropped).
func RecordStreamMessage(outcome string) {
	globalManager.streamMessages.WithLabelValues(outcome).Inc()
}

// UpdateSystemMemoryUsage sets the heap allocation gauge.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the goroutine gauge.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// GetRegistry returns the custom registry used for metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
