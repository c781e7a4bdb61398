package cache

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"
)

var (
	ErrUnknownNamespace = errors.New("unknown cache namespace")
	ErrNamespaceExists  = errors.New("cache namespace already registered")
)

// Evictor is the type-independent view of a namespace used for invalidation,
// maintenance and reporting.
type Evictor interface {
	Name() string
	Evict(key string) bool
	EvictAll() int
	PurgeExpired() int
	Reconfigure(policy Policy) error
	Policy() Policy
	Len() int
	Stats() StatsSnapshot
}

// Manager owns the namespaces of a process.
type Manager struct {
	mu         sync.RWMutex
	namespaces map[string]Evictor
	logger     *zap.Logger
	metrics    *Metrics
}

// NewManager creates an empty registry. metrics may be nil.
func NewManager(logger *zap.Logger, metrics *Metrics) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		namespaces: make(map[string]Evictor),
		logger:     logger.Named("cache"),
		metrics:    metrics,
	}
}

// Register creates a namespace holding values of type V and adds it to m.
func Register[V any](m *Manager, name string, policy Policy, opts ...Option) (*Namespace[V], error) {
	base := []Option{WithLogger(m.logger), WithMetrics(m.metrics)}
	ns, err := NewNamespace[V](name, policy, append(base, opts...)...)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.namespaces[name]; exists {
		return nil, fmt.Errorf("%w: %s", ErrNamespaceExists, name)
	}
	m.namespaces[name] = ns

	m.logger.Info("Cache namespace registered",
		zap.String("namespace", name),
		zap.Int("maxEntries", policy.MaxEntries),
		zap.Duration("ttl", policy.TTL),
	)
	return ns, nil
}

// Get returns the named namespace.
func (m *Manager) Get(name string) (Evictor, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ns, ok := m.namespaces[name]
	return ns, ok
}

// Names returns the registered namespace names in sorted order.
func (m *Manager) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.namespaces))
	for name := range m.namespaces {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Evict removes one key from the named namespace.
func (m *Manager) Evict(name, key string) (bool, error) {
	ns, ok := m.Get(name)
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrUnknownNamespace, name)
	}
	return ns.Evict(key), nil
}

// EvictAll clears the named namespaces, or every namespace when no name is
// given. All names are resolved before anything is evicted.
func (m *Manager) EvictAll(names ...string) (int, error) {
	targets, err := m.resolve(names)
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, ns := range targets {
		removed += ns.EvictAll()
	}
	return removed, nil
}

// PurgeExpired drops expired entries from every namespace.
func (m *Manager) PurgeExpired() int {
	targets, _ := m.resolve(nil)
	removed := 0
	for _, ns := range targets {
		removed += ns.PurgeExpired()
	}
	return removed
}

// Reconfigure applies new policies. Every policy is validated before any is
// applied; namespaces missing from policies keep their current policy.
func (m *Manager) Reconfigure(policies map[string]Policy) error {
	names := make([]string, 0, len(policies))
	for name, p := range policies {
		if err := p.Validate(); err != nil {
			return fmt.Errorf("namespace %q: %w", name, err)
		}
		names = append(names, name)
	}
	sort.Strings(names)

	targets, err := m.resolve(names)
	if err != nil {
		return err
	}
	for i, ns := range targets {
		policy := policies[names[i]]
		if policy == ns.Policy() {
			continue
		}
		if err := ns.Reconfigure(policy); err != nil {
			return err
		}
		m.logger.Info("Cache namespace reconfigured",
			zap.String("namespace", ns.Name()),
			zap.Int("maxEntries", policy.MaxEntries),
			zap.Duration("ttl", policy.TTL),
		)
	}
	return nil
}

// Stats returns a snapshot per namespace.
func (m *Manager) Stats() map[string]StatsSnapshot {
	targets, _ := m.resolve(nil)
	out := make(map[string]StatsSnapshot, len(targets))
	for _, ns := range targets {
		out[ns.Name()] = ns.Stats()
	}
	return out
}

// resolve maps names to namespaces in the given order; nil means all, sorted.
func (m *Manager) resolve(names []string) ([]Evictor, error) {
	if len(names) == 0 {
		names = m.Names()
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Evictor, 0, len(names))
	for _, name := range names {
		ns, ok := m.namespaces[name]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownNamespace, name)
		}
		out = append(out, ns)
	}
	return out, nil
}
