package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics contains all Prometheus metrics for the voice task pipeline
type Metrics struct {
	registry *prometheus.Registry

	// Transcription metrics
	TranscriptionRequests *prometheus.CounterVec
	TranscriptionDuration *prometheus.HistogramVec
	TranscriptionPolls    *prometheus.HistogramVec
	AudioSize             prometheus.Histogram

	// Extraction metrics
	ExtractionRequests *prometheus.CounterVec
	ExtractionDuration *prometheus.HistogramVec
	TasksExtracted     prometheus.Histogram

	CacheLookups *prometheus.CounterVec

	// Voice session metrics
	ActiveSessions prometheus.Gauge

	// HTTP API metrics
	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// New creates all metrics on a dedicated registry, together with the Go and
// process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,

		TranscriptionRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "voicetasks_transcription_requests_total",
			Help: "Total number of transcription requests by backend and result code",
		}, []string{"backend", "code"}),
		TranscriptionDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "voicetasks_transcription_duration_seconds",
			Help:    "Duration of transcription requests",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 10), // 250ms to ~2 minutes
		}, []string{"backend"}),
		TranscriptionPolls: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "voicetasks_transcription_poll_attempts",
			Help:    "Status requests needed per transcription job",
			Buckets: []float64{1, 2, 3, 5, 10, 20, 30, 45, 60},
		}, []string{"backend", "status"}),
		AudioSize: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "voicetasks_audio_size_bytes",
			Help:    "Size of submitted recordings in bytes",
			Buckets: prometheus.ExponentialBuckets(4096, 2, 12), // 4KB to ~8MB
		}),

		ExtractionRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "voicetasks_extraction_requests_total",
			Help: "Total number of task extraction requests by provider and result code",
		}, []string{"provider", "code"}),
		ExtractionDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "voicetasks_extraction_duration_seconds",
			Help:    "Duration of task extraction requests",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10), // 100ms to ~1 minute
		}, []string{"provider"}),
		TasksExtracted: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "voicetasks_tasks_per_transcript",
			Help:    "Number of tasks extracted from one transcript",
			Buckets: prometheus.LinearBuckets(0, 1, 11),
		}),

		CacheLookups: f.NewCounterVec(prometheus.CounterOpts{
			Name: "voicetasks_cache_lookups_total",
			Help: "Cache lookups by kind and outcome",
		}, []string{"kind", "outcome"}),

		ActiveSessions: f.NewGauge(prometheus.GaugeOpts{
			Name: "voicetasks_voice_sessions_active",
			Help: "Current number of open voice WebSocket sessions",
		}),

		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "voicetasks_http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "endpoint", "status_code"}),
		HTTPRequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "voicetasks_http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "endpoint"}),
	}
}

// Handler serves this registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry exposes the underlying registry (tests gather from it)
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// RecordTranscription records one finished transcription request
func (m *Metrics) RecordTranscription(backend, code string, durationSeconds float64, audioBytes int) {
	m.TranscriptionRequests.WithLabelValues(backend, code).Inc()
	m.TranscriptionDuration.WithLabelValues(backend).Observe(durationSeconds)
	m.AudioSize.Observe(float64(audioBytes))
}

// RecordPollAttempts records how many status requests a job took
func (m *Metrics) RecordPollAttempts(backend string, attempts int, status string) {
	m.TranscriptionPolls.WithLabelValues(backend, status).Observe(float64(attempts))
}

// RecordExtraction records one finished extraction request
func (m *Metrics) RecordExtraction(provider, code string, durationSeconds float64, tasks int) {
	m.ExtractionRequests.WithLabelValues(provider, code).Inc()
	m.ExtractionDuration.WithLabelValues(provider).Observe(durationSeconds)
	if code == "OK" {
		m.TasksExtracted.Observe(float64(tasks))
	}
}

// RecordCacheLookup counts a cache hit or miss
func (m *Metrics) RecordCacheLookup(kind string, hit bool) {
	outcome := "miss"
	if hit {
		outcome = "hit"
	}
	m.CacheLookups.WithLabelValues(kind, outcome).Inc()
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, endpoint, statusCode string, durationSeconds float64) {
	m.HTTPRequests.WithLabelValues(method, endpoint, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(durationSeconds)
}
