// Package metrics exposes Prometheus counters and histograms for relayed
// calls.
//
// Metrics:
//   - <ns>_requests_total: inbound relay calls by route and outcome
//   - <ns>_upstream_requests_total: outbound calls by upstream and status code
//   - <ns>_upstream_duration_seconds: outbound call latency by upstream
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels.
const (
	OutcomeOK            = "ok"
	OutcomeClientError   = "client_error"
	OutcomeConfigError   = "config_error"
	OutcomeUpstreamError = "upstream_error"
	OutcomeTimeout       = "timeout"
)

// Recorder is what the relay needs from a metrics backend.
type Recorder interface {
	ObserveRequest(route, outcome string)
	ObserveUpstream(upstream string, status int, elapsed time.Duration)
}

// Collector is the Prometheus Recorder. It owns its registry so tests and
// multiple instances never collide on the global one.
type Collector struct {
	registry *prometheus.Registry

	requestsTotal    *prometheus.CounterVec
	upstreamTotal    *prometheus.CounterVec
	upstreamDuration *prometheus.HistogramVec
}

// NewCollector registers all metrics under namespace.
func NewCollector(namespace string) *Collector {
	if namespace == "" {
		namespace = "chat_relay"
	}
	registry := prometheus.NewRegistry()

	c := &Collector{
		registry: registry,
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "requests_total",
				Help:      "Relay calls by route and outcome.",
			},
			[]string{"route", "outcome"},
		),
		upstreamTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "upstream_requests_total",
				Help:      "Outbound upstream calls by upstream and HTTP status (0 = no response).",
			},
			[]string{"upstream", "status"},
		),
		upstreamDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "upstream_duration_seconds",
				Help:      "Outbound upstream call latency.",
				// LLM completions: 100ms - 60s
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
			},
			[]string{"upstream"},
		),
	}

	registry.MustRegister(
		c.requestsTotal,
		c.upstreamTotal,
		c.upstreamDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return c
}

func (c *Collector) ObserveRequest(route, outcome string) {
	c.requestsTotal.WithLabelValues(route, outcome).Inc()
}

func (c *Collector) ObserveUpstream(upstream string, status int, elapsed time.Duration) {
	c.upstreamTotal.WithLabelValues(upstream, strconv.Itoa(status)).Inc()
	c.upstreamDuration.WithLabelValues(upstream).Observe(elapsed.Seconds())
}

// Registry exposes the underlying registry, mainly for tests.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
		ErrorHandling:     promhttp.ContinueOnError,
	})
}

// Nop discards everything.
type Nop struct{}

func (Nop) ObserveRequest(string, string) {}
func (Nop) ObserveUpstream(string, int, time.Duration) {}
