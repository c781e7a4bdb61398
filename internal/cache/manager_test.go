package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newTestManager(t *testing.T) (*Manager, *Namespace[string], *Namespace[int]) {
	t.Helper()
	m := NewManager(zaptest.NewLogger(t), nil)
	names, err := Register[string](m, "names", DefaultPolicy())
	require.NoError(t, err)
	ages, err := Register[int](m, "ages", DefaultPolicy())
	require.NoError(t, err)
	return m, names, ages
}

func TestManager(t *testing.T) {
	ctx := context.Background()

	t.Run("Should list namespaces in sorted order", func(t *testing.T) {
		m, _, _ := newTestManager(t)
		assert.Equal(t, []string{"ages", "names"}, m.Names())
	})

	t.Run("Should refuse duplicate names", func(t *testing.T) {
		m, _, _ := newTestManager(t)
		_, err := Register[string](m, "names", DefaultPolicy())
		assert.ErrorIs(t, err, ErrNamespaceExists)
	})

	t.Run("Should evict only the requested namespaces", func(t *testing.T) {
		m, names, ages := newTestManager(t)
		_, _, _ = names.GetOrLoad(ctx, "1", constLoader("ada"))
		_, _, _ = ages.GetOrLoad(ctx, "1", constLoader(36))

		removed, err := m.EvictAll("names")
		require.NoError(t, err)
		assert.Equal(t, 1, removed)
		assert.Zero(t, names.Len())
		assert.Equal(t, 1, ages.Len())
	})

	t.Run("Should evict every namespace when none is named", func(t *testing.T) {
		m, names, ages := newTestManager(t)
		_, _, _ = names.GetOrLoad(ctx, "1", constLoader("ada"))
		_, _, _ = ages.GetOrLoad(ctx, "1", constLoader(36))

		removed, err := m.EvictAll()
		require.NoError(t, err)
		assert.Equal(t, 2, removed)
	})

	t.Run("Should evict nothing when a name is unknown", func(t *testing.T) {
		m, names, _ := newTestManager(t)
		_, _, _ = names.GetOrLoad(ctx, "1", constLoader("ada"))

		_, err := m.EvictAll("names", "missing")
		assert.ErrorIs(t, err, ErrUnknownNamespace)
		assert.Equal(t, 1, names.Len())

		_, err = m.Evict("missing", "1")
		assert.ErrorIs(t, err, ErrUnknownNamespace)
	})

	t.Run("Should reconfigure atomically", func(t *testing.T) {
		m, names, ages := newTestManager(t)

		err := m.Reconfigure(map[string]Policy{
			"names": {MaxEntries: 5, TTL: time.Second},
			"ages":  {MaxEntries: 0, TTL: time.Second},
		})
		assert.ErrorIs(t, err, ErrInvalidPolicy)
		assert.Equal(t, DefaultPolicy(), names.Policy())

		require.NoError(t, m.Reconfigure(map[string]Policy{
			"ages": {MaxEntries: 7, TTL: time.Minute},
		}))
		assert.Equal(t, 7, ages.Policy().MaxEntries)
		assert.Equal(t, DefaultPolicy(), names.Policy())

		err = m.Reconfigure(map[string]Policy{"missing": DefaultPolicy()})
		assert.ErrorIs(t, err, ErrUnknownNamespace)
	})

	t.Run("Should report stats per namespace", func(t *testing.T) {
		m, names, _ := newTestManager(t)
		_, _, _ = names.GetOrLoad(ctx, "1", constLoader("ada"))
		_, _, _ = names.GetOrLoad(ctx, "1", constLoader("ada"))

		stats := m.Stats()
		require.Contains(t, stats, "names")
		require.Contains(t, stats, "ages")
		assert.Equal(t, int64(1), stats["names"].Hits)
		assert.Equal(t, 1, stats["names"].Size)
		assert.Zero(t, stats["ages"].Size)
	})

	t.Run("Should purge expired entries across namespaces", func(t *testing.T) {
		clock := newFakeClock()
		m := NewManager(nil, nil)
		short, err := Register[string](m, "short", Policy{MaxEntries: 10, TTL: time.Second}, WithClock(clock.Now))
		require.NoError(t, err)
		long, err := Register[string](m, "long", Policy{MaxEntries: 10, TTL: time.Hour}, WithClock(clock.Now))
		require.NoError(t, err)

		_, _, _ = short.GetOrLoad(ctx, "k", constLoader("v"))
		_, _, _ = long.GetOrLoad(ctx, "k", constLoader("v"))
		clock.Advance(time.Minute)

		assert.Equal(t, 1, m.PurgeExpired())
		assert.Zero(t, short.Len())
		assert.Equal(t, 1, long.Len())
	})
}
