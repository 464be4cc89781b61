// Package metrics provides Prometheus metrics for observability.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "ai_script_editor"

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	// Document metrics
	DocumentMutations *prometheus.CounterVec
	PatchOperations   *prometheus.CounterVec
	StaleResponses    *prometheus.CounterVec
	SessionsActive    prometheus.Gauge

	// Audio render metrics
	AudioCacheHits   prometheus.Counter
	AudioCacheMisses prometheus.Counter
	RenderLatency    *prometheus.HistogramVec
	RenderErrors     *prometheus.CounterVec
	RenderBytes      *prometheus.CounterVec
	RenderSegments   *prometheus.CounterVec

	// AI collaborator metrics
	AIRequestLatency *prometheus.HistogramVec
	AIRequestErrors  *prometheus.CounterVec

	// Kafka publish metrics
	KafkaPublishTotal   *prometheus.CounterVec
	KafkaPublishErrors  *prometheus.CounterVec
	KafkaPublishLatency *prometheus.HistogramVec

	// Transport metrics
	GRPCCalls    *prometheus.CounterVec
	GRPCLatency  *prometheus.HistogramVec
	HTTPRequests *prometheus.CounterVec
	HTTPLatency  *prometheus.HistogramVec
}

// DefaultMetrics is the global metrics instance.
var DefaultMetrics = NewMetrics()

// NewMetrics creates and registers all Prometheus metrics on the default registry.
func NewMetrics() *Metrics {
	return NewMetricsWith(prometheus.DefaultRegisterer)
}

// NewMetricsWith creates and registers all Prometheus metrics on reg.
func NewMetricsWith(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		// Document metrics
		DocumentMutations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "document_mutations_total",
			Help:      "Total number of document mutations by operation and result",
		}, []string{"op", "result"}),
		PatchOperations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "patch_operations_total",
			Help:      "Total number of AI patch operations by kind and outcome",
		}, []string{"kind", "outcome"}),
		StaleResponses: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stale_responses_total",
			Help:      "Total number of collaborator responses discarded after newer local edits",
		}, []string{"service"}),
		SessionsActive: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_active",
			Help:      "Number of open editor sessions",
		}),

		// Audio render metrics
		AudioCacheHits: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audio_cache_hits_total",
			Help:      "Total number of audio renders served from the cache",
		}),
		AudioCacheMisses: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audio_cache_misses_total",
			Help:      "Total number of audio renders that called the provider",
		}),
		RenderLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "render_latency_seconds",
			Help:      "Speech synthesis latency per voice group in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		}, []string{"provider"}),
		RenderErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "render_errors_total",
			Help:      "Total number of speech synthesis errors",
		}, []string{"provider", "error_type"}),
		RenderBytes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "render_bytes_total",
			Help:      "Total audio bytes produced by the provider",
		}, []string{"provider"}),
		RenderSegments: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "render_segments_total",
			Help:      "Total number of voice groups sent to the provider",
		}, []string{"provider"}),

		// AI collaborator metrics
		AIRequestLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "ai_request_latency_seconds",
			Help:      "AI collaborator request latency in seconds",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 30, 60},
		}, []string{"op"}),
		AIRequestErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ai_request_errors_total",
			Help:      "Total number of AI collaborator errors",
		}, []string{"op", "error_type"}),

		// Kafka publish metrics
		KafkaPublishTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kafka_publish_total",
			Help:      "Total number of Kafka messages published",
		}, []string{"topic", "event_type"}),
		KafkaPublishErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kafka_publish_errors_total",
			Help:      "Total number of Kafka publish errors",
		}, []string{"topic", "event_type"}),
		KafkaPublishLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "kafka_publish_latency_seconds",
			Help:      "Kafka publish latency in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"topic"}),

		// Transport metrics
		GRPCCalls: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "grpc_calls_total",
			Help:      "Total number of gRPC unary calls",
		}, []string{"method", "code"}),
		GRPCLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "grpc_latency_seconds",
			Help:      "gRPC unary call latency in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}, []string{"method"}),
		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP API requests",
		}, []string{"route", "method", "status"}),
		HTTPLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_latency_seconds",
			Help:      "HTTP API latency in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 30},
		}, []string{"route", "method"}),
	}
}

// RecordMutation records a document mutation. result is applied, noop or not_found.
func (m *Metrics) RecordMutation(op, result string) {
	m.DocumentMutations.WithLabelValues(op, result).Inc()
}

// RecordPatchOperation records the outcome of one patch operation.
func (m *Metrics) RecordPatchOperation(kind, outcome string) {
	m.PatchOperations.WithLabelValues(kind, outcome).Inc()
}

// RecordStaleResponse records a discarded collaborator response.
func (m *Metrics) RecordStaleResponse(service string) {
	m.StaleResponses.WithLabelValues(service).Inc()
}

// RecordSessionOpen records an editor session being opened.
func (m *Metrics) RecordSessionOpen() {
	m.SessionsActive.Inc()
}

// RecordSessionClose records an editor session being closed.
func (m *Metrics) RecordSessionClose() {
	m.SessionsActive.Dec()
}

// RecordCacheLookup records an audio cache hit or miss.
func (m *Metrics) RecordCacheLookup(hit bool) {
	if hit {
		m.AudioCacheHits.Inc()
	} else {
		m.AudioCacheMisses.Inc()
	}
}

// RecordRender records one provider synthesis call.
func (m *Metrics) RecordRender(provider string, bytes int, err error, latencySeconds float64) {
	m.RenderSegments.WithLabelValues(provider).Inc()
	m.RenderLatency.WithLabelValues(provider).Observe(latencySeconds)
	if err != nil {
		return
	}
	m.RenderBytes.WithLabelValues(provider).Add(float64(bytes))
}

// RecordRenderError records a synthesis error.
func (m *Metrics) RecordRenderError(provider, errorType string) {
	m.RenderErrors.WithLabelValues(provider, errorType).Inc()
}

// RecordAIRequest records an AI collaborator call.
func (m *Metrics) RecordAIRequest(op string, errorType string, latencySeconds float64) {
	m.AIRequestLatency.WithLabelValues(op).Observe(latencySeconds)
	if errorType != "" {
		m.AIRequestErrors.WithLabelValues(op, errorType).Inc()
	}
}

// RecordKafkaPublish records a Kafka publish attempt.
func (m *Metrics) RecordKafkaPublish(topic, eventType string, err error, latencySeconds float64) {
	m.KafkaPublishTotal.WithLabelValues(topic, eventType).Inc()
	m.KafkaPublishLatency.WithLabelValues(topic).Observe(latencySeconds)
	if err != nil {
		m.KafkaPublishErrors.WithLabelValues(topic, eventType).Inc()
	}
}

// RecordGRPCCall records a unary gRPC call.
func (m *Metrics) RecordGRPCCall(method, code string, latencySeconds float64) {
	m.GRPCCalls.WithLabelValues(method, code).Inc()
	m.GRPCLatency.WithLabelValues(method).Observe(latencySeconds)
}

// RecordHTTPRequest records an HTTP API request.
func (m *Metrics) RecordHTTPRequest(route, method string, status int, latencySeconds float64) {
	m.HTTPRequests.WithLabelValues(route, method, statusClass(status)).Inc()
	m.HTTPLatency.WithLabelValues(route, method).Observe(latencySeconds)
}

func statusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
