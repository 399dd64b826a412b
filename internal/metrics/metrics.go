// Package metrics provides Prometheus metrics for workflow tracking
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics of the tracker.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	Registry *prometheus.Registry

	// Completion request metrics
	RequestsTotal    *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	RequestsInFlight prometheus.Gauge

	// Event sink metrics
	EventsTotal       *prometheus.CounterVec
	SinkFailuresTotal prometheus.Counter
}

// New creates metrics registered in a dedicated registry
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	factory := promauto.With(reg)

	m := &Metrics{Registry: reg}

	m.RequestsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "curatrak_completion_requests_total",
			Help: "Total number of completion requests by outcome",
		},
		[]string{"model", "status"},
	)

	m.RequestDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "curatrak_completion_request_duration_seconds",
			Help:    "Duration of completion requests in seconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"model"},
	)

	m.RequestsInFlight = factory.NewGauge(
		prometheus.GaugeOpts{
			Name: "curatrak_completion_requests_in_flight",
			Help: "Number of completion requests waiting for the endpoint",
		},
	)

	m.EventsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "curatrak_workflow_events_total",
			Help: "Total number of workflow events handed to the sink",
		},
		[]string{"event_type"},
	)

	m.SinkFailuresTotal = factory.NewCounter(
		prometheus.CounterOpts{
			Name: "curatrak_sink_failures_total",
			Help: "Total number of workflow events the sink failed to store",
		},
	)

	return m
}

// Handler exposes the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

func (m *Metrics) RequestStarted() {
	if m == nil {
		return
	}
	m.RequestsInFlight.Inc()
}

func (m *Metrics) RequestFinished(model, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.RequestsInFlight.Dec()
	m.RequestsTotal.WithLabelValues(model, status).Inc()
	m.RequestDuration.WithLabelValues(model).Observe(duration.Seconds())
}

func (m *Metrics) EventEmitted(eventType string) {
	if m == nil {
		return
	}
	m.EventsTotal.WithLabelValues(eventType).Inc()
}

func (m *Metrics) SinkFailed() {
	if m == nil {
		return
	}
	m.SinkFailuresTotal.Inc()
}
