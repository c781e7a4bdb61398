// Package observability wires Prometheus metrics, OpenTelemetry tracing and the
// CloudWatch stats reporter.
package observability

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"photographer-backend/internal/repository"
	"photographer-backend/internal/timing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector owns a private registry with the HTTP, request-phase and store
// metrics. Cache and breaker metrics register on the same registry.
type Collector struct {
	registry *prometheus.Registry
	prefix   string

	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec
	PhaseTime    *prometheus.HistogramVec
	Degraded     *prometheus.CounterVec

	DBOperations *prometheus.CounterVec
	DBDuration   *prometheus.HistogramVec
}

// NewCollector creates a collector whose series are prefixed with namespace.
func NewCollector(namespace string) (*Collector, error) {
	registry := prometheus.NewRegistry()

	c := &Collector{
		registry: registry,
		prefix:   namespace,
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "route", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		PhaseTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_phase_seconds",
			Help:      "Per-request time split into server, database and cache phases",
			Buckets:   []float64{.0001, .0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1},
		}, []string{"phase"}),
		Degraded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "degraded_responses_total",
			Help:      "Responses served from a fallback",
		}, []string{"route"}),
		DBOperations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "db_operations_total",
			Help:      "Total number of store operations",
		}, []string{"operation", "status"}),
		DBDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "db_operation_duration_seconds",
			Help:      "Store operation duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
	}

	for _, m := range []prometheus.Collector{
		c.HTTPRequests, c.HTTPDuration, c.PhaseTime, c.Degraded, c.DBOperations, c.DBDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	} {
		if err := registry.Register(m); err != nil {
			return nil, fmt.Errorf("register metrics: %w", err)
		}
	}
	return c, nil
}

// Registry is where other components register their collectors.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Prefix is the metric namespace every series starts with.
func (c *Collector) Prefix() string {
	return c.prefix
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

func (c *Collector) ObserveHTTPRequest(method, route string, status int, elapsed time.Duration) {
	c.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.HTTPDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// ObserveBreakdown records the phases of one finished request. A negative
// server phase is recorded as zero.
func (c *Collector) ObserveBreakdown(b timing.Breakdown) {
	server := b.Server()
	if server < 0 {
		server = 0
	}
	c.PhaseTime.WithLabelValues("server").Observe(server.Seconds())
	c.PhaseTime.WithLabelValues("database").Observe(b.Database.Seconds())
	c.PhaseTime.WithLabelValues("cache").Observe(b.Cache.Seconds())
}

func (c *Collector) ObserveDegraded(route string) {
	c.Degraded.WithLabelValues(route).Inc()
}

// ObserveDBOperation implements repository.OperationObserver. Absence is
// reported as its own status rather than as an error.
func (c *Collector) ObserveDBOperation(operation string, err error, elapsed time.Duration) {
	status := "success"
	switch {
	case err == nil:
	case errors.Is(err, repository.ErrNotFound):
		status = "not_found"
	default:
		status = "error"
	}
	c.DBOperations.WithLabelValues(operation, status).Inc()
	c.DBDuration.WithLabelValues(operation).Observe(elapsed.Seconds())
}

var _ repository.OperationObserver = (*Collector)(nil)
