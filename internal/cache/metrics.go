package cache

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exports namespace activity to Prometheus. One instance is shared by all
// namespaces of a Manager; series are partitioned by the "namespace" label.
type Metrics struct {
	hits          *prometheus.CounterVec
	misses        *prometheus.CounterVec
	loads         *prometheus.CounterVec
	loadFailures  *prometheus.CounterVec
	evictions     *prometheus.CounterVec
	expirations   *prometheus.CounterVec
	invalidations *prometheus.CounterVec
	entries       *prometheus.GaugeVec
}

// NewMetrics creates and registers the cache collectors under the given prefix.
func NewMetrics(reg prometheus.Registerer, prefix string) (*Metrics, error) {
	counter := func(name, help string) *prometheus.CounterVec {
		return prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: prefix,
			Subsystem: "cache",
			Name:      name,
			Help:      help,
		}, []string{"namespace"})
	}

	m := &Metrics{
		hits:          counter("hits_total", "Cache lookups answered from a live entry"),
		misses:        counter("misses_total", "Cache lookups that found no live entry"),
		loads:         counter("loads_total", "Loader executions after a miss"),
		loadFailures:  counter("load_failures_total", "Loader executions that returned an error"),
		evictions:     counter("evictions_total", "Entries removed to respect maxEntries"),
		expirations:   counter("expirations_total", "Entries removed because their ttl elapsed"),
		invalidations: counter("invalidations_total", "Explicit evictions triggered by mutations"),
		entries: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: prefix,
			Subsystem: "cache",
			Name:      "entries",
			Help:      "Live entries per namespace",
		}, []string{"namespace"}),
	}

	for _, c := range []prometheus.Collector{
		m.hits, m.misses, m.loads, m.loadFailures,
		m.evictions, m.expirations, m.invalidations, m.entries,
	} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("register cache metrics: %w", err)
		}
	}
	return m, nil
}

// namespaceMetrics holds the curried series of one namespace. A nil value is a no-op.
type namespaceMetrics struct {
	hits          prometheus.Counter
	misses        prometheus.Counter
	loads         prometheus.Counter
	loadFailures  prometheus.Counter
	evictions     prometheus.Counter
	expirations   prometheus.Counter
	invalidations prometheus.Counter
	entries       prometheus.Gauge
}

func (m *Metrics) forNamespace(name string) *namespaceMetrics {
	if m == nil {
		return nil
	}
	return &namespaceMetrics{
		hits:          m.hits.WithLabelValues(name),
		misses:        m.misses.WithLabelValues(name),
		loads:         m.loads.WithLabelValues(name),
		loadFailures:  m.loadFailures.WithLabelValues(name),
		evictions:     m.evictions.WithLabelValues(name),
		expirations:   m.expirations.WithLabelValues(name),
		invalidations: m.invalidations.WithLabelValues(name),
		entries:       m.entries.WithLabelValues(name),
	}
}

func (m *namespaceMetrics) hit() {
	if m != nil {
		m.hits.Inc()
	}
}

func (m *namespaceMetrics) miss() {
	if m != nil {
		m.misses.Inc()
	}
}

func (m *namespaceMetrics) load(failed bool) {
	if m == nil {
		return
	}
	m.loads.Inc()
	if failed {
		m.loadFailures.Inc()
	}
}

func (m *namespaceMetrics) evicted(n int) {
	if m != nil && n > 0 {
		m.evictions.Add(float64(n))
	}
}

func (m *namespaceMetrics) expired(n int) {
	if m != nil && n > 0 {
		m.expirations.Add(float64(n))
	}
}

func (m *namespaceMetrics) invalidated() {
	if m != nil {
		m.invalidations.Inc()
	}
}

func (m *namespaceMetrics) size(n int) {
	if m != nil {
		m.entries.Set(float64(n))
	}
}
