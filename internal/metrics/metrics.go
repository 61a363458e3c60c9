// Package metrics holds the Prometheus collectors for the HTTP server, the
// event store and social card rendering.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "techevents"

// Results used as label values.
const (
	ResultOK    = "ok"
	ResultError = "error"
	ResultCache = "cache"
)

// Metrics owns a private registry so tests and multiple servers in one
// process never collide on the global one.
type Metrics struct {
	Registry *prometheus.Registry

	requests     *prometheus.CounterVec
	duration     *prometheus.HistogramVec
	eventsLoaded prometheus.Gauge
	reloads      *prometheus.CounterVec
	ogRenders    *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{Registry: prometheus.NewRegistry()}

	m.requests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "HTTP requests by route template and status code",
	}, []string{"route", "code"})
	m.duration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by route template",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route"})
	m.eventsLoaded = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "events_loaded",
		Help:      "Events in the current store snapshot",
	})
	m.reloads = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "store_reloads_total",
		Help:      "Event store reload attempts by result",
	}, []string{"result"})
	m.ogRenders = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "og_renders_total",
		Help:      "Social card requests by result (ok, cache, error)",
	}, []string{"result"})

	m.Registry.MustRegister(
		m.requests, m.duration, m.eventsLoaded, m.reloads, m.ogRenders,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveRequest(route string, code int, d time.Duration) {
	m.requests.WithLabelValues(route, strconv.Itoa(code)).Inc()
	m.duration.WithLabelValues(route).Observe(d.Seconds())
}

// StoreReloaded matches store.Cache.OnReload.
func (m *Metrics) StoreReloaded(count int, err error) {
	m.eventsLoaded.Set(float64(count))
	if err != nil {
		m.reloads.WithLabelValues(ResultError).Inc()
		return
	}
	m.reloads.WithLabelValues(ResultOK).Inc()
}

func (m *Metrics) OGRendered(result string) {
	m.ogRenders.WithLabelValues(result).Inc()
}
