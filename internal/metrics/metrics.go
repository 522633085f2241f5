package metrics

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "commentflow"

// NewRegistry creates a Prometheus registry with Go runtime and process collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return reg
}

// Handler returns an http.Handler that serves Prometheus metrics.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

// Metrics holds the collectors shared by the comment pipeline. A nil *Metrics
// is valid and records nothing.
type Metrics struct {
	RequestDuration *prometheus.HistogramVec
	RequestsTotal   *prometheus.CounterVec

	CommentsFetched      prometheus.Counter
	Classifications      *prometheus.CounterVec
	ModelLoadingWaits    prometheus.Counter
	ModelLoadingWaitTime prometheus.Counter
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds.",
			Buckets:   []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300},
		}, []string{"method", "route", "status_code"}),
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests.",
		}, []string{"method", "route", "status_code"}),
		CommentsFetched: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "comments",
			Name:      "fetched_total",
			Help:      "Comments read from the comment source.",
		}),
		Classifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sentiment",
			Name:      "classifications_total",
			Help:      "Per-comment classification outcomes.",
		}, []string{"outcome"}),
		ModelLoadingWaits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sentiment",
			Name:      "model_loading_waits_total",
			Help:      "Times the classifier waited for the remote model to load.",
		}),
		ModelLoadingWaitTime: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sentiment",
			Name:      "model_loading_wait_seconds_total",
			Help:      "Total time spent waiting for the remote model to load.",
		}),
	}

	reg.MustRegister(
		m.RequestDuration, m.RequestsTotal,
		m.CommentsFetched, m.Classifications,
		m.ModelLoadingWaits, m.ModelLoadingWaitTime,
	)
	return m
}

func (m *Metrics) ObserveComment() {
	if m == nil {
		return
	}
	m.CommentsFetched.Inc()
}

func (m *Metrics) ObserveClassification(failed bool) {
	if m == nil {
		return
	}
	outcome := "success"
	if failed {
		outcome = "error"
	}
	m.Classifications.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveModelLoadingWait(seconds float64) {
	if m == nil {
		return
	}
	m.ModelLoadingWaits.Inc()
	m.ModelLoadingWaitTime.Add(seconds)
}

// Middleware returns an Echo middleware that records HTTP metrics.
// It skips /metrics and /health/* endpoints.
func (m *Metrics) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			path := c.Path()
			if m == nil || path == "/metrics" || strings.HasPrefix(path, "/health/") {
				return next(c)
			}

			timer := prometheus.NewTimer(prometheus.ObserverFunc(func(v float64) {
				status := strconv.Itoa(c.Response().Status)
				m.RequestDuration.WithLabelValues(c.Request().Method, path, status).Observe(v)
				m.RequestsTotal.WithLabelValues(c.Request().Method, path, status).Inc()
			}))

			err := next(c)
			timer.ObserveDuration()
			return err
		}
	}
}
