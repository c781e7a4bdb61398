// Package jobs runs the periodic cache maintenance tasks.
package jobs

import (
	"context"
	"fmt"
	"time"

	"photographer-backend/internal/cache"

	"github.com/robfig/cron"
	"go.uber.org/zap"
)

// Schedules use the six-field cron syntax (seconds first) or "@every <duration>".
// An empty schedule disables the job.
type Schedules struct {
	PurgeExpired string `yaml:"purgeExpired"`
	ReportStats  string `yaml:"reportStats"`
}

// CacheMaintainer is the part of cache.Manager the jobs drive.
type CacheMaintainer interface {
	PurgeExpired() int
	Stats() map[string]cache.StatsSnapshot
}

// StatsReporter ships cache statistics somewhere outside the process.
type StatsReporter interface {
	PublishCacheStats(ctx context.Context, stats map[string]cache.StatsSnapshot) error
}

// Scheduler wraps a cron runner with the service's jobs registered on it.
type Scheduler struct {
	cron   *cron.Cron
	logger *zap.Logger
}

// NewScheduler registers the jobs named in schedules. reporter may be nil, in
// which case statistics are only logged.
func NewScheduler(schedules Schedules, caches CacheMaintainer, reporter StatsReporter, reportTimeout time.Duration, logger *zap.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("jobs")

	c := cron.New()
	jobs := []struct {
		schedule string
		run      func()
	}{
		{schedules.PurgeExpired, PurgeExpired(caches, logger)},
		{schedules.ReportStats, ReportStats(caches, reporter, reportTimeout, logger)},
	}
	for _, job := range jobs {
		if job.schedule == "" {
			continue
		}
		if err := c.AddFunc(job.schedule, job.run); err != nil {
			return nil, fmt.Errorf("schedule %q: %w", job.schedule, err)
		}
	}
	return &Scheduler{cron: c, logger: logger}, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("Scheduler started", zap.Int("jobs", len(s.cron.Entries())))
}

func (s *Scheduler) Stop() {
	s.cron.Stop()
	s.logger.Info("Scheduler stopped")
}

// PurgeExpired drops entries whose ttl has elapsed so idle namespaces do not
// hold stale values until their next access.
func PurgeExpired(caches CacheMaintainer, logger *zap.Logger) func() {
	return func() {
		if n := caches.PurgeExpired(); n > 0 {
			logger.Debug("Purged expired cache entries", zap.Int("removed", n))
		}
	}
}

// ReportStats logs a snapshot of every namespace and forwards it to reporter.
func ReportStats(caches CacheMaintainer, reporter StatsReporter, timeout time.Duration, logger *zap.Logger) func() {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return func() {
		stats := caches.Stats()
		for name, s := range stats {
			logger.Info("Cache statistics",
				zap.String("namespace", name),
				zap.Int64("hits", s.Hits),
				zap.Int64("misses", s.Misses),
				zap.Int64("loadFailures", s.LoadFailures),
				zap.Int64("evictions", s.Evictions),
				zap.Int64("invalidations", s.Invalidations),
				zap.Int("size", s.Size),
				zap.Float64("hitRate", s.HitRate),
			)
		}
		if reporter == nil {
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := reporter.PublishCacheStats(ctx, stats); err != nil {
			logger.Warn("Failed to publish cache statistics", zap.Error(err))
		}
	}
}
