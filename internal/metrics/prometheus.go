package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics contains all Prometheus metrics for the transcription service
type Metrics struct {
	registry *prometheus.Registry

	// Transcription metrics
	Transcriptions        *prometheus.CounterVec
	TranscriptionDuration prometheus.Histogram
	FramesSent            prometheus.Counter
	RecognitionEvents     *prometheus.CounterVec
	LoudnessFallbacks     prometheus.Counter

	// HTTP API metrics
	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// NewMetrics creates all metrics on a dedicated registry
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		Transcriptions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "scribe_transcriptions_total",
			Help: "Total number of transcription requests by outcome",
		}, []string{"status", "kind"}),
		TranscriptionDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "scribe_transcription_duration_seconds",
			Help:    "Wall time of transcription requests",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 10), // 250ms to ~2 minutes
		}),
		FramesSent: factory.NewCounter(prometheus.CounterOpts{
			Name: "scribe_audio_frames_sent_total",
			Help: "Total number of audio frames sent to the recognition service",
		}),
		RecognitionEvents: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "scribe_recognition_events_total",
			Help: "Total number of recognition events received by kind",
		}, []string{"kind"}),
		LoudnessFallbacks: factory.NewCounter(prometheus.CounterOpts{
			Name: "scribe_normalization_fallbacks_total",
			Help: "Total number of times loudness normalization was skipped",
		}),

		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "scribe_http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "route", "status_code"}),
		HTTPRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "scribe_http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

// ObserveResult records the outcome and duration of a transcription
func (m *Metrics) ObserveResult(status, kind string, elapsed time.Duration) {
	m.Transcriptions.WithLabelValues(status, kind).Inc()
	m.TranscriptionDuration.Observe(elapsed.Seconds())
}

// FrameSent increments the frames sent counter
func (m *Metrics) FrameSent() {
	m.FramesSent.Inc()
}

// EventReceived counts a recognition event of the given kind
func (m *Metrics) EventReceived(kind string) {
	m.RecognitionEvents.WithLabelValues(kind).Inc()
}

// LoudnessFallback increments the normalization fallback counter
func (m *Metrics) LoudnessFallback() {
	m.LoudnessFallbacks.Inc()
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, route, statusCode string, duration time.Duration) {
	m.HTTPRequests.WithLabelValues(method, route, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
