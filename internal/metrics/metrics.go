// Package metrics exposes Prometheus collectors for the API and worker.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups every collector behind its own registry.
type Metrics struct {
	Registry *prometheus.Registry

	recomputeRuns     *prometheus.CounterVec
	recomputeDuration prometheus.Histogram
	sanctioned        prometheus.Gauge
	httpRequests      *prometheus.CounterVec
	httpLatency       *prometheus.HistogramVec
}

// New registers the collectors; process and Go runtime collectors are included.
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		recomputeRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "membership",
			Name:      "sanction_recompute_total",
			Help:      "Sanction list recomputations by outcome.",
		}, []string{"outcome"}),
		recomputeDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "membership",
			Name:      "sanction_recompute_duration_seconds",
			Help:      "Duration of sanction list recomputations.",
			Buckets:   prometheus.DefBuckets,
		}),
		sanctioned: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "membership",
			Name:      "sanctioned_students",
			Help:      "Students on the sanction list after the last recompute.",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "membership",
			Name:      "http_requests_total",
			Help:      "HTTP requests by route, method and status.",
		}, []string{"route", "method", "status"}),
		httpLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "membership",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
	}
	m.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.recomputeRuns,
		m.recomputeDuration,
		m.sanctioned,
		m.httpRequests,
		m.httpLatency,
	)
	return m
}

// ObserveRecompute records one recompute run.
func (m *Metrics) ObserveRecompute(d time.Duration, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.recomputeRuns.WithLabelValues(outcome).Inc()
	m.recomputeDuration.Observe(d.Seconds())
}

// SetSanctioned sets the sanctioned students gauge.
func (m *Metrics) SetSanctioned(n int) {
	m.sanctioned.Set(float64(n))
}

// ObserveRequest records one HTTP request.
func (m *Metrics) ObserveRequest(route, method, status string, d time.Duration) {
	m.httpRequests.WithLabelValues(route, method, status).Inc()
	m.httpLatency.WithLabelValues(route, method).Observe(d.Seconds())
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}
