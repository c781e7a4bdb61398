package di

import (
	"context"
	"fmt"
	"time"

	"photographer-backend/internal/cache"
	"photographer-backend/internal/config"
	"photographer-backend/internal/handlers"
	"photographer-backend/internal/invalidation"
	"photographer-backend/internal/jobs"
	"photographer-backend/internal/middleware"
	"photographer-backend/internal/observability"
	"photographer-backend/internal/repository"
	"photographer-backend/internal/repository/dynamodb"
	"photographer-backend/internal/repository/memory"
	"photographer-backend/internal/repository/postgres"
	"photographer-backend/internal/repository/sqlite"
	"photographer-backend/internal/resilience"
	"photographer-backend/internal/service/photographer"
	"photographer-backend/pkg/auth"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awscloudwatch "github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awseventbridge "github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// ProvideLogger builds the production logger in production and the
// development logger everywhere else, at the configured level.
func ProvideLogger(cfg *config.Config) (*zap.Logger, error) {
	zapCfg := zap.NewDevelopmentConfig()
	if cfg.Environment == config.Production {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zap.ParseAtomicLevel(cfg.Logging.Level)
	if err != nil {
		return nil, fmt.Errorf("logging.level: %w", err)
	}
	zapCfg.Level = level

	return zapCfg.Build(zap.Fields(
		zap.String("service", "photographer-backend"),
		zap.String("environment", string(cfg.Environment)),
	))
}

// ProvideAWSConfig creates AWS configuration. Credentials resolve lazily, so
// this succeeds even when no AWS service is enabled.
func ProvideAWSConfig(ctx context.Context, cfg *config.Config) (aws.Config, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWS.Region))
	if err != nil {
		return aws.Config{}, fmt.Errorf("load aws config: %w", err)
	}
	if cfg.AWS.Endpoint != "" {
		awsCfg.BaseEndpoint = aws.String(cfg.AWS.Endpoint)
	}
	return awsCfg, nil
}

func ProvideDynamoDBClient(awsCfg aws.Config) *awsdynamodb.Client {
	return awsdynamodb.NewFromConfig(awsCfg)
}

func ProvideEventBridgeClient(awsCfg aws.Config) *awseventbridge.Client {
	return awseventbridge.NewFromConfig(awsCfg)
}

func ProvideCloudWatchClient(awsCfg aws.Config) *awscloudwatch.Client {
	return awscloudwatch.NewFromConfig(awsCfg)
}

func ProvideCollector(cfg *config.Config) (*observability.Collector, error) {
	return observability.NewCollector(cfg.Observability.MetricsNamespace)
}

// ProvideTracerProvider installs tracing; the cleanup flushes pending spans.
func ProvideTracerProvider(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*observability.TracerProvider, func(), error) {
	tp, err := observability.InitTracing(ctx, cfg.Observability.Tracing)
	if err != nil {
		return nil, nil, fmt.Errorf("init tracing: %w", err)
	}
	cleanup := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			logger.Warn("Failed to flush traces", zap.Error(err))
		}
	}
	return tp, cleanup, nil
}

// ProvideStore opens the configured driver and wraps it with timing, tracing
// and metrics.
func ProvideStore(
	ctx context.Context,
	cfg *config.Config,
	client *awsdynamodb.Client,
	collector *observability.Collector,
	tracing *observability.TracerProvider,
	logger *zap.Logger,
) (repository.PhotographerStore, func(), error) {
	var (
		store   repository.PhotographerStore
		cleanup = func() {}
	)

	switch cfg.Database.Driver {
	case config.DriverMemory:
		store = memory.NewStore()
	case config.DriverSQLite:
		s, err := sqlite.Open(ctx, cfg.Database.DSN)
		if err != nil {
			return nil, nil, err
		}
		store = s
		cleanup = func() {
			if err := s.Close(); err != nil {
				logger.Warn("Failed to close sqlite store", zap.Error(err))
			}
		}
	case config.DriverPostgres:
		s, err := postgres.Open(ctx, cfg.Database.DSN)
		if err != nil {
			return nil, nil, err
		}
		store = s
		cleanup = s.Close
	case config.DriverDynamoDB:
		store = dynamodb.NewStore(client, cfg.Database.TableName, logger)
	default:
		return nil, nil, fmt.Errorf("unknown database driver %q", cfg.Database.Driver)
	}

	logger.Info("Photographer store ready", zap.String("driver", cfg.Database.Driver))
	return repository.NewInstrumented(store, repository.InstrumentedConfig{
		SlowThreshold: cfg.Database.SlowThreshold,
		Tracer:        tracing.Tracer(),
		Observer:      collector,
	}, logger), cleanup, nil
}

func ProvideCacheManager(collector *observability.Collector, logger *zap.Logger) (*cache.Manager, error) {
	metrics, err := cache.NewMetrics(collector.Registry(), collector.Prefix())
	if err != nil {
		return nil, fmt.Errorf("cache metrics: %w", err)
	}
	return cache.NewManager(logger, metrics), nil
}

func ProvideBreakerMetrics(collector *observability.Collector) (*resilience.Metrics, error) {
	return resilience.NewMetrics(collector.Registry(), collector.Prefix())
}

// ProvidePublisher sends invalidation events to EventBridge when enabled.
func ProvidePublisher(cfg *config.Config, client *awseventbridge.Client, logger *zap.Logger) invalidation.Publisher {
	if !cfg.Events.Enabled {
		return invalidation.NoopPublisher{}
	}
	return invalidation.NewEventBridgePublisher(client, cfg.Events.EventBusName, logger)
}

func ProvideCoordinator(manager *cache.Manager, publisher invalidation.Publisher, cfg *config.Config, logger *zap.Logger) *invalidation.Coordinator {
	return invalidation.NewCoordinator(manager, publisher, cfg.Events.PublishTimeout, logger)
}

func ProvidePhotographerService(
	store repository.PhotographerStore,
	manager *cache.Manager,
	coordinator *invalidation.Coordinator,
	breakerMetrics *resilience.Metrics,
	tracing *observability.TracerProvider,
	cfg *config.Config,
	logger *zap.Logger,
) (*photographer.Service, error) {
	return photographer.New(store, manager, coordinator, photographer.Config{
		Policies:       cfg.Cache.Namespaces,
		Breaker:        cfg.Breaker,
		BreakerMetrics: breakerMetrics,
		Tracer:         tracing.Tracer(),
	}, logger)
}

// ProvideStatsReporter returns nil unless CloudWatch publishing is enabled.
func ProvideStatsReporter(cfg *config.Config, client *awscloudwatch.Client) jobs.StatsReporter {
	if !cfg.Observability.CloudWatch.Enabled {
		return nil
	}
	return observability.NewCloudWatchReporter(client, cfg.Observability.CloudWatch.Namespace)
}

func ProvideScheduler(cfg *config.Config, manager *cache.Manager, reporter jobs.StatsReporter, logger *zap.Logger) (*jobs.Scheduler, error) {
	return jobs.NewScheduler(cfg.Jobs.Schedules, manager, reporter, cfg.Jobs.ReportTimeout, logger)
}

// ProvideTokenValidator returns nil when authentication is disabled.
func ProvideTokenValidator(cfg *config.Config) (middleware.TokenValidator, error) {
	if !cfg.Auth.Enabled {
		return nil, nil
	}
	svc, err := auth.NewJWTService(auth.Config{
		SecretKey: cfg.Auth.SecretKey,
		Issuer:    cfg.Auth.Issuer,
		Audience:  cfg.Auth.Audience,
		TTL:       cfg.Auth.TokenTTL,
	})
	if err != nil {
		return nil, err
	}
	return svc, nil
}

func ProvideRouter(
	cfg *config.Config,
	svc *photographer.Service,
	store repository.PhotographerStore,
	manager *cache.Manager,
	validator middleware.TokenValidator,
	collector *observability.Collector,
	logger *zap.Logger,
) *chi.Mux {
	deps := handlers.Dependencies{
		Photographers: svc,
		Store:         store,
		Caches:        manager,
		Breaker:       svc.BreakerState,
		Observer:      collector,
		Metrics:       collector.Handler(),
	}
	opts := handlers.RouterOptions{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Validator:      validator,
		WriteRole:      cfg.Auth.WriteRole,
	}
	return handlers.NewRouter(deps, opts, logger).Setup()
}
