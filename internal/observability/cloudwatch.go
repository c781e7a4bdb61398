package observability

import (
	"context"
	"fmt"
	"sort"
	"time"

	"photographer-backend/internal/cache"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
)

// maxDatumsPerCall is the PutMetricData limit.
const maxDatumsPerCall = 1000

// PutMetricDataAPI is the part of the CloudWatch client the reporter uses.
type PutMetricDataAPI interface {
	PutMetricData(ctx context.Context, in *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error)
}

// CloudWatchReporter publishes cache statistics as CloudWatch metrics, one
// datum per counter and namespace.
type CloudWatchReporter struct {
	client    PutMetricDataAPI
	namespace string
	now       func() time.Time
}

// NewCloudWatchReporter creates a reporter. A nil client makes every call a no-op.
func NewCloudWatchReporter(client PutMetricDataAPI, namespace string) *CloudWatchReporter {
	return &CloudWatchReporter{client: client, namespace: namespace, now: time.Now}
}

// PublishCacheStats sends one batch of datums for stats. Counters are cumulative
// since process start.
func (r *CloudWatchReporter) PublishCacheStats(ctx context.Context, stats map[string]cache.StatsSnapshot) error {
	if r == nil || r.client == nil || len(stats) == 0 {
		return nil
	}

	names := make([]string, 0, len(stats))
	for name := range stats {
		names = append(names, name)
	}
	sort.Strings(names)

	ts := aws.Time(r.now())
	var data []types.MetricDatum
	for _, name := range names {
		s := stats[name]
		dims := []types.Dimension{{Name: aws.String("CacheNamespace"), Value: aws.String(name)}}
		datum := func(metric string, value float64, unit types.StandardUnit) types.MetricDatum {
			return types.MetricDatum{
				MetricName: aws.String(metric),
				Dimensions: dims,
				Value:      aws.Float64(value),
				Unit:       unit,
				Timestamp:  ts,
			}
		}
		data = append(data,
			datum("CacheHits", float64(s.Hits), types.StandardUnitCount),
			datum("CacheMisses", float64(s.Misses), types.StandardUnitCount),
			datum("CacheLoadFailures", float64(s.LoadFailures), types.StandardUnitCount),
			datum("CacheEvictions", float64(s.Evictions), types.StandardUnitCount),
			datum("CacheInvalidations", float64(s.Invalidations), types.StandardUnitCount),
			datum("CacheEntries", float64(s.Size), types.StandardUnitCount),
			datum("CacheHitRate", s.HitRate*100, types.StandardUnitPercent),
		)
	}

	for start := 0; start < len(data); start += maxDatumsPerCall {
		end := min(start+maxDatumsPerCall, len(data))
		_, err := r.client.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
			Namespace:  aws.String(r.namespace),
			MetricData: data[start:end],
		})
		if err != nil {
			return fmt.Errorf("put metric data: %w", err)
		}
	}
	return nil
}
