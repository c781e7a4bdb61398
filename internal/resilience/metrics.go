package resilience

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exports guard activity, labelled by breaker name.
type Metrics struct {
	state     *prometheus.GaugeVec
	calls     *prometheus.CounterVec
	fallbacks *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer, prefix string) (*Metrics, error) {
	m := &Metrics{
		state: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: prefix,
			Subsystem: "breaker",
			Name:      "state",
			Help:      "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		}, []string{"breaker"}),
		calls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: prefix,
			Subsystem: "breaker",
			Name:      "calls_total",
			Help:      "Guarded calls by outcome",
		}, []string{"breaker", "result"}),
		fallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: prefix,
			Subsystem: "breaker",
			Name:      "fallbacks_total",
			Help:      "Degraded results served by the fallback",
		}, []string{"breaker"}),
	}

	for _, c := range []prometheus.Collector{m.state, m.calls, m.fallbacks} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("register breaker metrics: %w", err)
		}
	}
	return m, nil
}

type guardMetrics struct {
	name    string
	parent  *Metrics
	gauge   prometheus.Gauge
	degrade prometheus.Counter
}

func (m *Metrics) forGuard(name string) *guardMetrics {
	if m == nil {
		return nil
	}
	return &guardMetrics{
		name:    name,
		parent:  m,
		gauge:   m.state.WithLabelValues(name),
		degrade: m.fallbacks.WithLabelValues(name),
	}
}

func (m *guardMetrics) state(s State) {
	if m == nil {
		return
	}
	switch s {
	case StateOpen:
		m.gauge.Set(2)
	case StateHalfOpen:
		m.gauge.Set(1)
	default:
		m.gauge.Set(0)
	}
}

func (m *guardMetrics) call(result string) {
	if m != nil {
		m.parent.calls.WithLabelValues(m.name, result).Inc()
	}
}

func (m *guardMetrics) fallback() {
	if m != nil {
		m.degrade.Inc()
	}
}
