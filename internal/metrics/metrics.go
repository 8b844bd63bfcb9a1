// Package metrics owns the gateway's Prometheus registry: inbound traffic by
// surface and upstream Lichess traffic by route name.
package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "lichess_gateway"

// Lichess game exports can take most of the upstream timeout, so the
// buckets reach past the usual 10s ceiling.
var latencyBuckets = []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 20, 30}

var inboundLabels = []string{"method", "status_code", "path_prefix"}

// Metrics is the set of collectors shared by the HTTP middleware and the
// Lichess client.
type Metrics struct {
	Registry *prometheus.Registry

	RequestsTotal    *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	RequestsInFlight prometheus.Gauge

	UpstreamDuration  *prometheus.HistogramVec
	UpstreamResponses *prometheus.CounterVec
	UpstreamErrors    *prometheus.CounterVec
}

// New builds a private registry with runtime collectors and the gateway's own
// series registered.
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),

		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Dashboard requests answered by the gateway.",
		}, inboundLabels),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Time to answer a dashboard request, upstream call included.",
			Buckets:   latencyBuckets,
		}, inboundLabels),
		RequestsInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_in_flight",
			Help:      "Dashboard requests being served right now.",
		}),

		UpstreamDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "upstream",
			Name:      "request_duration_seconds",
			Help:      "Round trip to the Lichess API per gateway route, body read excluded.",
			Buckets:   latencyBuckets,
		}, []string{"route"}),
		UpstreamResponses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "upstream",
			Name:      "responses_total",
			Help:      "Lichess API answers per gateway route and HTTP status.",
		}, []string{"route", "status_code"}),
		UpstreamErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "upstream",
			Name:      "errors_total",
			Help:      "Lichess API calls that got no HTTP answer (dial, timeout, cancel).",
		}, []string{"route"}),
	}

	m.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.RequestsTotal,
		m.RequestDuration,
		m.RequestsInFlight,
		m.UpstreamDuration,
		m.UpstreamResponses,
		m.UpstreamErrors,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

// ObserveUpstream records a Lichess answer. A nil receiver records nothing.
func (m *Metrics) ObserveUpstream(route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.UpstreamDuration.WithLabelValues(route).Observe(elapsed.Seconds())
	m.UpstreamResponses.WithLabelValues(route, strconv.Itoa(status)).Inc()
}

// UpstreamFailed records a Lichess call that never produced a response.
// A nil receiver records nothing.
func (m *Metrics) UpstreamFailed(route string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.UpstreamDuration.WithLabelValues(route).Observe(elapsed.Seconds())
	m.UpstreamErrors.WithLabelValues(route).Inc()
}

// NormalizeMethod keeps the method label bounded; anything outside the
// standard set (case-sensitive) becomes "other".
func NormalizeMethod(method string) string {
	switch method {
	case http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete,
		http.MethodPatch, http.MethodHead, http.MethodOptions:
		return method
	}
	return "other"
}

// surfaces are the path_prefix label values. Every proxied Lichess route
// collapses into /api/lichess; route-level detail lives on the upstream series.
var surfaces = []string{"/api/lichess", "/healthz", "/gateway/status", "/metrics"}

// NormalizePath maps a request path to the gateway surface it belongs to.
func NormalizePath(path string) string {
	for _, s := range surfaces {
		rest, ok := strings.CutPrefix(path, s)
		if ok && (rest == "" || rest[0] == '/' || rest[0] == '?') {
			return s
		}
	}
	return "other"
}
