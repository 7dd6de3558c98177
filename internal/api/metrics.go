package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the server's Prometheus collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry
	duration *prometheus.HistogramVec
	requests *prometheus.CounterVec
	uploads  prometheus.Counter
}

func newMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "srelease_http_response_duration_milliseconds",
			Help:    "The duration of time it takes to receive and write a response to an HTTP request",
			Buckets: prometheus.ExponentialBuckets(9.375, 2, 10),
		}, []string{"route", "code"}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "srelease_http_requests_total",
			Help: "HTTP requests by method, route and status code",
		}, []string{"method", "route", "code"}),
		uploads: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "srelease_image_uploads_total",
			Help: "Images stored through the upload endpoint",
		}),
	}
	m.registry.MustRegister(
		m.duration,
		m.requests,
		m.uploads,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) observe(method, route string, status int, elapsed time.Duration) {
	code := strconv.Itoa(status)
	m.duration.WithLabelValues(route, code).Observe(float64(elapsed.Nanoseconds()) / float64(time.Millisecond))
	m.requests.WithLabelValues(method, route, code).Inc()
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
