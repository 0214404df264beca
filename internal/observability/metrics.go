package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/spec-kit/workshop-tickets/internal/domain"
)

const namespace = "workshop_tickets"

// Metrics holds the prometheus collectors for the service on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	requestCount    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	errorCount      *prometheus.CounterVec
	transitions     *prometheus.CounterVec
	rejected        *prometheus.CounterVec
}

// NewMetrics initializes and registers collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requestCount: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "The number of HTTP requests served.",
		}, []string{"method", "path", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Time to serve HTTP requests.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path"}),
		errorCount: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_errors_total",
			Help:      "The number of HTTP requests that ended in an error response, by code.",
		}, []string{"method", "path", "code"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transitions_total",
			Help:      "The number of applied ticket status transitions.",
		}, []string{"from", "action", "to"}),
		rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transitions_rejected_total",
			Help:      "The number of ticket actions rejected by the lifecycle.",
		}, []string{"from", "action"}),
	}
	m.registry.MustRegister(m.requestCount, m.requestDuration, m.errorCount, m.transitions, m.rejected)
	return m
}

// RecordRequest counts a served request.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.requestCount.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordError counts an error response.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	m.errorCount.WithLabelValues(method, path, code).Inc()
}

// RecordTransition counts an applied transition.
func (m *Metrics) RecordTransition(from domain.TicketStatus, action domain.TicketAction, to domain.TicketStatus) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(string(from), string(action), string(to)).Inc()
}

// RecordRejectedTransition counts an action the lifecycle refused.
func (m *Metrics) RecordRejectedTransition(from domain.TicketStatus, action domain.TicketAction) {
	if m == nil {
		return
	}
	m.rejected.WithLabelValues(string(from), string(action)).Inc()
}

// Handler exposes the registry in the prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
