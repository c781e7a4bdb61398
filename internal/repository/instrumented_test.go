package repository_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"photographer-backend/internal/domain"
	"photographer-backend/internal/repository"
	"photographer-backend/internal/repository/memory"
	"photographer-backend/internal/timing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type recordingObserver struct {
	mu  sync.Mutex
	ops []string
	err []error
}

func (o *recordingObserver) ObserveDBOperation(op string, err error, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.ops = append(o.ops, op)
	o.err = append(o.err, err)
}

type slowStore struct {
	repository.PhotographerStore
	delay time.Duration
}

func (s slowStore) Count(ctx context.Context) (int64, error) {
	time.Sleep(s.delay)
	return s.PhotographerStore.Count(ctx)
}

func TestInstrumented(t *testing.T) {
	ctx := context.Background()

	t.Run("Should record every call as database time", func(t *testing.T) {
		inner := slowStore{PhotographerStore: memory.NewStore(), delay: 5 * time.Millisecond}
		store := repository.NewInstrumented(inner, repository.InstrumentedConfig{}, nil)

		reqCtx, tracker := timing.Begin(ctx)
		_, err := store.Count(reqCtx)
		require.NoError(t, err)

		assert.GreaterOrEqual(t, tracker.Database(), 5*time.Millisecond)
		assert.Zero(t, tracker.Cache())
	})

	t.Run("Should report operations and outcomes to the observer", func(t *testing.T) {
		obs := &recordingObserver{}
		store := repository.NewInstrumented(memory.NewStore(), repository.InstrumentedConfig{Observer: obs}, nil)

		_, err := store.Save(ctx, &domain.Photographer{FirstName: "Ada"})
		require.NoError(t, err)
		_, err = store.FindByID(ctx, 42)
		require.ErrorIs(t, err, repository.ErrNotFound)

		assert.Equal(t, []string{"Save", "FindByID"}, obs.ops)
		assert.NoError(t, obs.err[0])
		assert.ErrorIs(t, obs.err[1], repository.ErrNotFound)
	})

	t.Run("Should warn about slow calls and not log absence as failure", func(t *testing.T) {
		core, logs := observer.New(zapcore.DebugLevel)
		inner := slowStore{PhotographerStore: memory.NewStore(), delay: 5 * time.Millisecond}
		store := repository.NewInstrumented(inner, repository.InstrumentedConfig{SlowThreshold: time.Millisecond}, zap.New(core))

		_, _ = store.Count(ctx)
		_, _ = store.FindByID(ctx, 1)

		assert.Equal(t, 1, logs.FilterMessage("Slow store operation").Len())
		assert.Zero(t, logs.FilterMessage("Store operation failed").Len())
	})
}
