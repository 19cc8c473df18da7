// Package metrics exposes Prometheus collectors for the registration workflow and HTTP layer.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"eventsignup/internal/domain"
)

// Metrics holds the collectors registered on its own registry.
type Metrics struct {
	registry *prometheus.Registry

	registrations        *prometheus.CounterVec
	registrationDuration *prometheus.HistogramVec
	cancellations        *prometheus.CounterVec
	counterDrift         *prometheus.CounterVec
	httpRequests         *prometheus.CounterVec
	httpDuration         *prometheus.HistogramVec
}

var _ domain.RegistrationObserver = (*Metrics)(nil)

func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		registrations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "registrations_total",
				Help: "Registration attempts by outcome",
			},
			[]string{"outcome"},
		),
		registrationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "registration_duration_seconds",
				Help:    "Time spent in the registration workflow",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"outcome"},
		),
		cancellations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "registration_cancellations_total",
				Help: "Cancellation attempts by outcome",
			},
			[]string{"outcome"},
		),
		counterDrift: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "participant_counter_drift_total",
				Help: "Times the cached participant counter disagreed with the live count",
			},
			[]string{"event_id"},
		),
		httpRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "HTTP requests by method, route and status",
			},
			[]string{"method", "route", "status"},
		),
		httpDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
	}
}

func (m *Metrics) ObserveRegistration(outcome string, d time.Duration) {
	m.registrations.WithLabelValues(outcome).Inc()
	m.registrationDuration.WithLabelValues(outcome).Observe(d.Seconds())
}

func (m *Metrics) ObserveCancellation(outcome string) {
	m.cancellations.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveCounterDrift(eventID string) {
	m.counterDrift.WithLabelValues(eventID).Inc()
}

// ObserveHTTP records one served request. route should be the mux pattern, not the raw path.
func (m *Metrics) ObserveHTTP(method, route string, status int, d time.Duration) {
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
