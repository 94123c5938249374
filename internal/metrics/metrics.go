package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	RequestCount    *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	SecurityEvents  *prometheus.CounterVec
	Decisions       *prometheus.CounterVec
	Notifications   *prometheus.CounterVec
}

func New(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		RequestCount: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests.",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path", "status"},
		),
		SecurityEvents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "security_events_total",
				Help: "Security events recorded, by type and severity.",
			},
			[]string{"event_type", "severity"},
		),
		Decisions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "verification_decisions_total",
				Help: "Verification decisions, by entity type and outcome.",
			},
			[]string{"entity_type", "outcome"},
		),
		Notifications: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "notifications_total",
				Help: "Notifications handled, by kind and result.",
			},
			[]string{"kind", "result"},
		),
	}

	registry.MustRegister(m.RequestCount, m.RequestDuration, m.SecurityEvents, m.Decisions, m.Notifications)
	return m
}

func Handler(registry *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	code := strconv.Itoa(status)
	m.RequestCount.WithLabelValues(method, path, code).Inc()
	m.RequestDuration.WithLabelValues(method, path, code).Observe(duration.Seconds())
}

func (m *Metrics) ObserveSecurityEvent(eventType, severity string) {
	if m == nil {
		return
	}
	m.SecurityEvents.WithLabelValues(eventType, severity).Inc()
}

func (m *Metrics) ObserveDecision(entityType, outcome string) {
	if m == nil {
		return
	}
	m.Decisions.WithLabelValues(entityType, outcome).Inc()
}

func (m *Metrics) ObserveNotification(kind, result string) {
	if m == nil {
		return
	}
	m.Notifications.WithLabelValues(kind, result).Inc()
}
