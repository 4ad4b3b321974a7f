// package metrics exposes Prometheus collectors for generations, upstream failures and HTTP requests
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "promptlist"

// Metrics holds the application collectors. A nil *Metrics records nothing.
type Metrics struct {
	registry         *prometheus.Registry
	generations      *prometheus.CounterVec
	duration         *prometheus.HistogramVec
	upstreamFailures *prometheus.CounterVec
	httpRequests     *prometheus.CounterVec
}

// New creates the collectors and registers them on registry.
func New(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		registry: registry,
		generations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generations_total",
			Help:      "Finished playlist generations.",
		}, []string{"mode", "selection_method"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "generation_duration_seconds",
			Help:      "Wall time of playlist generations.",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600},
		}, []string{"mode"}),
		upstreamFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_failures_total",
			Help:      "Catalog calls that failed and were recovered from.",
		}, []string{"call"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status.",
		}, []string{"route", "method", "status"}),
	}
	registry.MustRegister(m.generations, m.duration, m.upstreamFailures, m.httpRequests)
	return m
}

// GenerationFinished records one completed generation.
func (m *Metrics) GenerationFinished(mode, method string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.generations.WithLabelValues(mode, method).Inc()
	m.duration.WithLabelValues(mode).Observe(elapsed.Seconds())
}

// UpstreamFailure records a failed catalog call.
func (m *Metrics) UpstreamFailure(call string) {
	if m == nil {
		return
	}
	m.upstreamFailures.WithLabelValues(call).Inc()
}

// Request records one served HTTP request.
func (m *Metrics) Request(route, method string, status int) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
