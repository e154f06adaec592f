package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "anime_search_bot"

type Metrics struct {
	MessagesTotal    *prometheus.CounterVec
	RequestsInFlight prometheus.Gauge

	SearchRequestsTotal   *prometheus.CounterVec
	SearchRequestDuration *prometheus.HistogramVec

	CacheHitsTotal   *prometheus.CounterVec
	CacheMissesTotal *prometheus.CounterVec

	UpstreamRateLimitTotal prometheus.Counter
	InboundRateLimitTotal  prometheus.Counter

	StaleResponsesTotal prometheus.Counter
	CancelledTotal      prometheus.Counter

	ActiveSessions prometheus.Gauge
}

// New регистрирует метрики в reg. nil - DefaultRegisterer.
// В тестах передаём prometheus.NewRegistry(), иначе повторная регистрация паникует.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)

	return &Metrics{
		MessagesTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "messages_total",
				Help:      "Total number of telegram updates processed",
			},
			[]string{"type", "status"},
		),
		RequestsInFlight: f.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "upstream_requests_in_flight",
				Help:      "Number of upstream API requests currently in flight",
			},
		),

		SearchRequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "api_requests_total",
				Help:      "Total number of API client calls by operation, source and outcome",
			},
			[]string{"operation", "source", "status"},
		),
		SearchRequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "api_request_duration_seconds",
				Help:      "API client call duration in seconds",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
			},
			[]string{"operation", "source"},
		),

		CacheHitsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_hits_total",
				Help:      "Total number of cache hits",
			},
			[]string{"table"},
		),
		CacheMissesTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_misses_total",
				Help:      "Total number of cache misses",
			},
			[]string{"table"},
		),

		UpstreamRateLimitTotal: f.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "upstream_rate_limited_total",
				Help:      "Total number of 429 responses from the upstream API",
			},
		),
		InboundRateLimitTotal: f.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "inbound_rate_limited_total",
				Help:      "Total number of chat messages rejected by the per-chat limiter",
			},
		),

		StaleResponsesTotal: f.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "stale_responses_total",
				Help:      "Responses discarded because a newer request superseded them",
			},
		),
		CancelledTotal: f.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cancelled_requests_total",
				Help:      "Requests that ended with cancellation",
			},
		),

		ActiveSessions: f.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "active_sessions",
				Help:      "Number of live search sessions",
			},
		),
	}
}

func Handler() http.Handler {
	return promhttp.Handler()
}

func (m *Metrics) RecordMessage(msgType, status string) {
	m.MessagesTotal.WithLabelValues(msgType, status).Inc()
}

func (m *Metrics) RecordAPIRequest(operation, source, status string, duration time.Duration) {
	m.SearchRequestsTotal.WithLabelValues(operation, source, status).Inc()
	m.SearchRequestDuration.WithLabelValues(operation, source).Observe(duration.Seconds())
}

func (m *Metrics) RecordCacheHit(table string) {
	m.CacheHitsTotal.WithLabelValues(table).Inc()
}

func (m *Metrics) RecordCacheMiss(table string) {
	m.CacheMissesTotal.WithLabelValues(table).Inc()
}

func (m *Metrics) RecordUpstreamRateLimit() {
	m.UpstreamRateLimitTotal.Inc()
}

func (m *Metrics) RecordInboundRateLimit() {
	m.InboundRateLimitTotal.Inc()
}

func (m *Metrics) RecordStaleResponse() {
	m.StaleResponsesTotal.Inc()
}

func (m *Metrics) RecordCancelled() {
	m.CancelledTotal.Inc()
}

func (m *Metrics) IncActiveSessions() {
	m.ActiveSessions.Inc()
}

func (m *Metrics) DecActiveSessions() {
	m.ActiveSessions.Dec()
}

func (m *Metrics) IncRequestsInFlight() {
	m.RequestsInFlight.Inc()
}

func (m *Metrics) DecRequestsInFlight() {
	m.RequestsInFlight.Dec()
}
