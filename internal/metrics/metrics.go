package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "orderflow"

// Metrics groups every collector a binary exposes. A nil *Metrics is valid and
// records nothing, so components can be built without instrumentation in tests.
type Metrics struct {
	gatherer prometheus.Gatherer

	Requests  *prometheus.CounterVec
	LatencyMS *prometheus.HistogramVec

	Placements    *prometheus.CounterVec
	Cancellations *prometheus.CounterVec

	CollaboratorCalls   *prometheus.CounterVec
	CollaboratorLatency *prometheus.HistogramVec
	Enrichments         *prometheus.CounterVec
}

func New(service string) *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return NewWithRegistry(reg, reg, service)
}

func NewWithRegistry(reg prometheus.Registerer, gatherer prometheus.Gatherer, service string) *Metrics {
	m := &Metrics{
		gatherer: gatherer,
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: service,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests.",
		}, []string{"route", "status"}),
		LatencyMS: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: service,
			Name:      "http_request_duration_ms",
			Help:      "HTTP request latency in milliseconds.",
			Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		}, []string{"route"}),
		Placements: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: service,
			Name:      "order_placements_total",
			Help:      "Order placement attempts by outcome.",
		}, []string{"outcome"}),
		Cancellations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: service,
			Name:      "order_cancellations_total",
			Help:      "Order cancellation attempts by outcome.",
		}, []string{"outcome"}),
		CollaboratorCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: service,
			Name:      "collaborator_requests_total",
			Help:      "Outbound collaborator lookups by collaborator and outcome.",
		}, []string{"collaborator", "outcome"}),
		CollaboratorLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: service,
			Name:      "collaborator_request_duration_ms",
			Help:      "Outbound collaborator latency in milliseconds.",
			Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		}, []string{"collaborator"}),
		Enrichments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: service,
			Name:      "order_enrichments_total",
			Help:      "Best-effort order enrichment results (enriched or bare).",
		}, []string{"result"}),
	}
	reg.MustRegister(
		m.Requests, m.LatencyMS,
		m.Placements, m.Cancellations,
		m.CollaboratorCalls, m.CollaboratorLatency, m.Enrichments,
	)
	return m
}

func (m *Metrics) ObserveRequest(route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.Requests.WithLabelValues(route, http.StatusText(status)).Inc()
	m.LatencyMS.WithLabelValues(route).Observe(float64(elapsed.Milliseconds()))
}

func (m *Metrics) Placement(outcome string) {
	if m == nil {
		return
	}
	m.Placements.WithLabelValues(outcome).Inc()
}

func (m *Metrics) Cancellation(outcome string) {
	if m == nil {
		return
	}
	m.Cancellations.WithLabelValues(outcome).Inc()
}

func (m *Metrics) CollaboratorCall(collaborator, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.CollaboratorCalls.WithLabelValues(collaborator, outcome).Inc()
	m.CollaboratorLatency.WithLabelValues(collaborator).Observe(float64(elapsed.Milliseconds()))
}

func (m *Metrics) Enrichment(result string) {
	if m == nil {
		return
	}
	m.Enrichments.WithLabelValues(result).Inc()
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil || m.gatherer == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
