package cache

import (
	"container/list"
	"context"
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"sync"
	"time"

	"photographer-backend/internal/timing"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// ErrLoaderPanic wraps a panic recovered from a loader.
var ErrLoaderPanic = errors.New("cache loader panicked")

// Loader computes the value for a missing key. It receives a context that is
// detached from the cancellation of the caller that started the load.
type Loader[V any] func(ctx context.Context) (V, error)

type entry[V any] struct {
	key        string
	value      V
	insertedAt time.Time
}

// Namespace is a named cache-aside store with its own capacity and expiry.
//
// Entries are kept in recency order: a hit moves the entry to the front and a
// capacity eviction removes from the back (least recently used). Concurrent misses
// for the same key share one loader execution.
//
// Every eviction bumps the namespace generation. A load carries the generation it
// started under and is only stored if the generation is unchanged, so a value read
// before an invalidation can never be inserted after it.
type Namespace[V any] struct {
	name   string
	logger *zap.Logger
	clock  func() time.Time

	mu         sync.Mutex
	policy     Policy
	items      map[string]*list.Element
	order      *list.List
	generation uint64

	flights singleflight.Group
	stats   Statistics
	metrics *namespaceMetrics
}

type options struct {
	clock   func() time.Time
	logger  *zap.Logger
	metrics *Metrics
}

// Option customises a namespace.
type Option func(*options)

// WithClock replaces the clock used for expiry decisions.
func WithClock(clock func() time.Time) Option {
	return func(o *options) { o.clock = clock }
}

// WithLogger sets the namespace logger.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithMetrics exports namespace activity through m.
func WithMetrics(m *Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// NewNamespace creates a namespace after validating its policy.
func NewNamespace[V any](name string, policy Policy, opts ...Option) (*Namespace[V], error) {
	if name == "" {
		return nil, fmt.Errorf("%w: namespace name is required", ErrInvalidPolicy)
	}
	if err := policy.Validate(); err != nil {
		return nil, fmt.Errorf("namespace %q: %w", name, err)
	}

	o := options{clock: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}

	return &Namespace[V]{
		name:    name,
		logger:  o.logger.With(zap.String("namespace", name)),
		clock:   o.clock,
		policy:  policy,
		items:   make(map[string]*list.Element),
		order:   list.New(),
		metrics: o.metrics.forNamespace(name),
	}, nil
}

// Name returns the namespace name.
func (n *Namespace[V]) Name() string {
	return n.name
}

// GetOrLoad returns the live value for key, or runs load once for all concurrent
// callers asking for the same key and caches a successful result.
//
// The boolean reports a cache hit. Loader errors are returned to every waiting
// caller and never cached. If ctx is done while waiting, GetOrLoad returns ctx.Err()
// but the load keeps running for the other waiters and still populates the cache.
func (n *Namespace[V]) GetOrLoad(ctx context.Context, key string, load Loader[V]) (V, bool, error) {
	start := time.Now()
	tracker := timing.FromContext(ctx)
	dbBefore := tracker.Database()
	defer func() {
		tracker.AddCache(time.Since(start) - (tracker.Database() - dbBefore))
	}()

	value, gen, ok := n.lookup(key, true)
	if ok {
		return value, true, nil
	}

	ch := n.flights.DoChan(flightKey(gen, key), func() (any, error) {
		// A previous flight may have filled the entry between our miss and now.
		if v, _, ok := n.lookup(key, false); ok {
			return v, nil
		}
		v, err := n.runLoader(ctx, load)
		if err != nil {
			return nil, err
		}
		n.store(key, v, gen)
		return v, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			var zero V
			return zero, false, res.Err
		}
		v, _ := res.Val.(V)
		return v, false, nil
	case <-ctx.Done():
		var zero V
		return zero, false, ctx.Err()
	}
}

func (n *Namespace[V]) runLoader(ctx context.Context, load Loader[V]) (v V, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrLoaderPanic, r)
			n.logger.Error("Cache loader panicked", zap.Any("panic", r))
		}
		n.stats.loads.Add(1)
		if err != nil {
			n.stats.loadFailures.Add(1)
		}
		n.metrics.load(err != nil)
	}()
	return load(context.WithoutCancel(ctx))
}

// lookup returns a live entry and the current generation. Expired entries are
// removed on the way. Statistics are only recorded when count is set.
func (n *Namespace[V]) lookup(key string, count bool) (V, uint64, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()

	gen := n.generation
	if el, ok := n.items[key]; ok {
		e := el.Value.(*entry[V])
		if n.expired(e, n.clock()) {
			n.removeElement(el)
			n.stats.expirations.Add(1)
			n.metrics.expired(1)
			n.metrics.size(len(n.items))
		} else {
			n.order.MoveToFront(el)
			if count {
				n.stats.hits.Add(1)
				n.metrics.hit()
			}
			return e.value, gen, true
		}
	}

	if count {
		n.stats.misses.Add(1)
		n.metrics.miss()
	}
	var zero V
	return zero, gen, false
}

func (n *Namespace[V]) store(key string, value V, gen uint64) {
	if isNil(value) {
		return
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	if gen != n.generation {
		n.stats.discarded.Add(1)
		n.logger.Debug("Discarding load started before invalidation", zap.String("key", key))
		return
	}

	now := n.clock()
	if el, ok := n.items[key]; ok {
		e := el.Value.(*entry[V])
		e.value = value
		e.insertedAt = now
		n.order.MoveToFront(el)
		return
	}

	evicted := 0
	for len(n.items) >= n.policy.MaxEntries && n.order.Len() > 0 {
		n.removeElement(n.order.Back())
		evicted++
	}
	if evicted > 0 {
		n.stats.evictions.Add(int64(evicted))
		n.metrics.evicted(evicted)
	}

	n.items[key] = n.order.PushFront(&entry[V]{key: key, value: value, insertedAt: now})
	n.metrics.size(len(n.items))
}

// Evict removes key. Loads in flight for this namespace complete for their
// waiters but do not repopulate it.
func (n *Namespace[V]) Evict(key string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.generation++
	n.stats.invalidations.Add(1)
	n.metrics.invalidated()

	el, ok := n.items[key]
	if ok {
		n.removeElement(el)
		n.metrics.size(len(n.items))
	}
	return ok
}

// EvictAll removes every entry and returns how many were removed.
func (n *Namespace[V]) EvictAll() int {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.generation++
	n.stats.invalidations.Add(1)
	n.metrics.invalidated()

	removed := len(n.items)
	n.items = make(map[string]*list.Element)
	n.order.Init()
	n.metrics.size(0)
	return removed
}

// PurgeExpired removes every expired entry and returns how many were removed.
func (n *Namespace[V]) PurgeExpired() int {
	n.mu.Lock()
	defer n.mu.Unlock()

	now := n.clock()
	removed := 0
	for el := n.order.Back(); el != nil; {
		prev := el.Prev()
		if n.expired(el.Value.(*entry[V]), now) {
			n.removeElement(el)
			removed++
		}
		el = prev
	}
	if removed > 0 {
		n.stats.expirations.Add(int64(removed))
		n.metrics.expired(removed)
		n.metrics.size(len(n.items))
	}
	return removed
}

// Reconfigure applies a new policy, evicting least recently used entries when
// the new capacity is smaller than the current size.
func (n *Namespace[V]) Reconfigure(policy Policy) error {
	if err := policy.Validate(); err != nil {
		return fmt.Errorf("namespace %q: %w", n.name, err)
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	n.policy = policy
	evicted := 0
	for len(n.items) > policy.MaxEntries {
		n.removeElement(n.order.Back())
		evicted++
	}
	if evicted > 0 {
		n.stats.evictions.Add(int64(evicted))
		n.metrics.evicted(evicted)
		n.metrics.size(len(n.items))
	}
	return nil
}

// Policy returns the active policy.
func (n *Namespace[V]) Policy() Policy {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.policy
}

// Len returns the number of stored entries, expired or not.
func (n *Namespace[V]) Len() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.items)
}

// Keys returns the stored keys from most to least recently used.
func (n *Namespace[V]) Keys() []string {
	n.mu.Lock()
	defer n.mu.Unlock()

	keys := make([]string, 0, len(n.items))
	for el := n.order.Front(); el != nil; el = el.Next() {
		keys = append(keys, el.Value.(*entry[V]).key)
	}
	return keys
}

// Stats returns a snapshot of the namespace counters.
func (n *Namespace[V]) Stats() StatsSnapshot {
	return n.stats.snapshot(n.Len())
}

func (n *Namespace[V]) expired(e *entry[V], now time.Time) bool {
	return now.Sub(e.insertedAt) >= n.policy.TTL
}

// removeElement must be called with n.mu held.
func (n *Namespace[V]) removeElement(el *list.Element) {
	n.order.Remove(el)
	delete(n.items, el.Value.(*entry[V]).key)
}

func flightKey(gen uint64, key string) string {
	return strconv.FormatUint(gen, 10) + "/" + key
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}
