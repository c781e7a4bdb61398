package observability

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"photographer-backend/internal/cache"
	"photographer-backend/internal/repository"
	"photographer-backend/internal/timing"

	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector(t *testing.T) {
	t.Run("Should label store outcomes", func(t *testing.T) {
		c, err := NewCollector("photographer")
		require.NoError(t, err)

		c.ObserveDBOperation("FindByID", nil, time.Millisecond)
		c.ObserveDBOperation("FindByID", repository.ErrNotFound, time.Millisecond)
		c.ObserveDBOperation("FindByID", errors.New("boom"), time.Millisecond)

		assert.Equal(t, 1.0, testutil.ToFloat64(c.DBOperations.WithLabelValues("FindByID", "success")))
		assert.Equal(t, 1.0, testutil.ToFloat64(c.DBOperations.WithLabelValues("FindByID", "not_found")))
		assert.Equal(t, 1.0, testutil.ToFloat64(c.DBOperations.WithLabelValues("FindByID", "error")))
	})

	t.Run("Should record request phases", func(t *testing.T) {
		c, err := NewCollector("photographer")
		require.NoError(t, err)

		c.ObserveBreakdown(timing.Breakdown{Total: 10 * time.Millisecond, Database: 4 * time.Millisecond, Cache: 1 * time.Millisecond})
		c.ObserveHTTPRequest("GET", "/api/photographers/{id}", 200, 10*time.Millisecond)

		assert.Equal(t, 3, testutil.CollectAndCount(c.PhaseTime))
		assert.Equal(t, 1.0, testutil.ToFloat64(c.HTTPRequests.WithLabelValues("GET", "/api/photographers/{id}", "200")))
	})

	t.Run("Should expose the registry over HTTP", func(t *testing.T) {
		c, err := NewCollector("photographer")
		require.NoError(t, err)
		c.ObserveDegraded("/api/photographers/proximity")

		rec := httptest.NewRecorder()
		c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "photographer_degraded_responses_total")
	})
}

type fakeCloudWatch struct {
	calls []*cloudwatch.PutMetricDataInput
	err   error
}

func (f *fakeCloudWatch) PutMetricData(_ context.Context, in *cloudwatch.PutMetricDataInput, _ ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error) {
	f.calls = append(f.calls, in)
	return &cloudwatch.PutMetricDataOutput{}, f.err
}

func TestCloudWatchReporter(t *testing.T) {
	ctx := context.Background()
	stats := map[string]cache.StatsSnapshot{
		"byId":     {Hits: 3, Misses: 1, Size: 1, HitRate: 0.75},
		"youngest": {Misses: 2},
	}

	t.Run("Should send one datum per counter and namespace", func(t *testing.T) {
		client := &fakeCloudWatch{}
		r := NewCloudWatchReporter(client, "Photographer/Cache")

		require.NoError(t, r.PublishCacheStats(ctx, stats))
		require.Len(t, client.calls, 1)
		assert.Equal(t, "Photographer/Cache", *client.calls[0].Namespace)
		assert.Len(t, client.calls[0].MetricData, 14)
		assert.Equal(t, "byId", *client.calls[0].MetricData[0].Dimensions[0].Value)
		assert.Equal(t, 75.0, *client.calls[0].MetricData[6].Value)
	})

	t.Run("Should surface client errors", func(t *testing.T) {
		r := NewCloudWatchReporter(&fakeCloudWatch{err: errors.New("throttled")}, "ns")
		assert.Error(t, r.PublishCacheStats(ctx, stats))
	})

	t.Run("Should do nothing without a client", func(t *testing.T) {
		assert.NoError(t, NewCloudWatchReporter(nil, "ns").PublishCacheStats(ctx, stats))
	})
}

func TestInitTracingDisabled(t *testing.T) {
	tp, err := InitTracing(context.Background(), TracingConfig{})
	require.NoError(t, err)
	assert.NotNil(t, tp.Tracer())
	assert.NoError(t, tp.Shutdown(context.Background()))
}
