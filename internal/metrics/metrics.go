package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the translation service.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	// Connection metrics
	ActiveConnections prometheus.Gauge
	UpstreamReconnect prometheus.Counter

	// Session metrics
	SessionsCreated prometheus.Counter
	SessionsDeleted prometheus.Counter
	Segments        *prometheus.CounterVec

	// Translation metrics
	InstantTranslations *prometheus.CounterVec
	CacheHits           prometheus.Counter

	// Polish metrics
	PolishRuns      *prometheus.CounterVec
	PolishBatchSize prometheus.Histogram
	PolishDuration  prometheus.Histogram

	// HTTP metrics
	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		ActiveConnections: f.NewGauge(prometheus.GaugeOpts{
			Name: "hyprlingo_active_connections",
			Help: "Current number of live client connections",
		}),
		UpstreamReconnect: f.NewCounter(prometheus.CounterOpts{
			Name: "hyprlingo_upstream_reconnects_total",
			Help: "Total number of upstream transcription connection recreations",
		}),
		SessionsCreated: f.NewCounter(prometheus.CounterOpts{
			Name: "hyprlingo_sessions_created_total",
			Help: "Total number of sessions created",
		}),
		SessionsDeleted: f.NewCounter(prometheus.CounterOpts{
			Name: "hyprlingo_sessions_deleted_total",
			Help: "Total number of sessions deleted at teardown because they had no segments",
		}),
		Segments: f.NewCounterVec(prometheus.CounterOpts{
			Name: "hyprlingo_segments_total",
			Help: "Total number of final segments by mode",
		}, []string{"mode"}),
		InstantTranslations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "hyprlingo_instant_translations_total",
			Help: "Instant translation requests by outcome",
		}, []string{"outcome"}),
		CacheHits: f.NewCounter(prometheus.CounterOpts{
			Name: "hyprlingo_translation_cache_hits_total",
			Help: "Instant translations served from cache",
		}),
		PolishRuns: f.NewCounterVec(prometheus.CounterOpts{
			Name: "hyprlingo_polish_runs_total",
			Help: "Polish attempts by trigger and status",
		}, []string{"trigger", "status"}),
		PolishBatchSize: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "hyprlingo_polish_batch_size",
			Help:    "Number of segments sent in one batch polish call",
			Buckets: []float64{1, 2, 5, 10, 20, 50, 100},
		}),
		PolishDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "hyprlingo_polish_duration_seconds",
			Help:    "Wall time of a polish run",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 8),
		}),
		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "hyprlingo_http_requests_total",
			Help: "HTTP API requests by method, route and status code",
		}, []string{"method", "route", "code"}),
		HTTPRequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "hyprlingo_http_request_duration_seconds",
			Help:    "HTTP API request latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

func (m *Metrics) ConnectionOpened() {
	if m == nil {
		return
	}
	m.ActiveConnections.Inc()
}

func (m *Metrics) ConnectionClosed() {
	if m == nil {
		return
	}
	m.ActiveConnections.Dec()
}

func (m *Metrics) Reconnect() {
	if m == nil {
		return
	}
	m.UpstreamReconnect.Inc()
}

func (m *Metrics) SessionCreated() {
	if m == nil {
		return
	}
	m.SessionsCreated.Inc()
}

func (m *Metrics) SessionDeleted() {
	if m == nil {
		return
	}
	m.SessionsDeleted.Inc()
}

func (m *Metrics) Segment(mode string) {
	if m == nil {
		return
	}
	m.Segments.WithLabelValues(mode).Inc()
}

func (m *Metrics) Translation(outcome string) {
	if m == nil {
		return
	}
	m.InstantTranslations.WithLabelValues(outcome).Inc()
}

func (m *Metrics) CacheHit() {
	if m == nil {
		return
	}
	m.CacheHits.Inc()
}

// PolishRun records one coordinator run; batch is the number of segments sent.
func (m *Metrics) PolishRun(trigger, status string, batch int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.PolishRuns.WithLabelValues(trigger, status).Inc()
	if batch > 0 {
		m.PolishBatchSize.Observe(float64(batch))
		m.PolishDuration.Observe(elapsed.Seconds())
	}
}

func (m *Metrics) HTTPRequest(method, route string, code int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}
