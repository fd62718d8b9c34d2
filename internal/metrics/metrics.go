package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder owns the service's collectors on a private registry. A nil
// *Recorder is valid and records nothing.
type Recorder struct {
	registry *prometheus.Registry

	verifications *prometheus.CounterVec
	activations   *prometheus.CounterVec
	increments    *prometheus.CounterVec
	httpDuration  *prometheus.HistogramVec
}

func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		verifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "licensegate",
			Name:      "license_verifications_total",
			Help:      "License verifications by outcome (valid, banned, expired, ...).",
		}, []string{"outcome"}),
		activations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "licensegate",
			Name:      "license_activations_total",
			Help:      "License key activations by outcome.",
		}, []string{"outcome"}),
		increments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "licensegate",
			Name:      "message_increments_total",
			Help:      "Message counter increments by outcome.",
		}, []string{"outcome"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "licensegate",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route pattern.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}

	r.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.verifications,
		r.activations,
		r.increments,
		r.httpDuration,
	)
	return r
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

func (r *Recorder) Verification(outcome string) {
	if r == nil {
		return
	}
	r.verifications.WithLabelValues(outcome).Inc()
}

func (r *Recorder) Activation(outcome string) {
	if r == nil {
		return
	}
	r.activations.WithLabelValues(outcome).Inc()
}

func (r *Recorder) Increment(outcome string) {
	if r == nil {
		return
	}
	r.increments.WithLabelValues(outcome).Inc()
}

func (r *Recorder) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.httpDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(elapsed.Seconds())
}
