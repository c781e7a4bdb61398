//go:build wireinject
// +build wireinject

package di

import (
	"context"

	"photographer-backend/internal/config"

	"github.com/google/wire"
)

var AWSSet = wire.NewSet(
	ProvideAWSConfig,
	ProvideDynamoDBClient,
	ProvideEventBridgeClient,
	ProvideCloudWatchClient,
)

var ObservabilitySet = wire.NewSet(
	ProvideLogger,
	ProvideCollector,
	ProvideTracerProvider,
	ProvideBreakerMetrics,
	ProvideStatsReporter,
)

// SuperSet is the main provider set containing all providers.
var SuperSet = wire.NewSet(
	AWSSet,
	ObservabilitySet,
	ProvideStore,
	ProvideCacheManager,
	ProvidePublisher,
	ProvideCoordinator,
	ProvidePhotographerService,
	ProvideScheduler,
	ProvideTokenValidator,
	ProvideRouter,
	wire.Struct(new(Container), "*"),
)

// InitializeContainer creates a fully wired container. The returned cleanup
// closes the store and flushes traces.
func InitializeContainer(ctx context.Context, cfg *config.Config) (*Container, func(), error) {
	wire.Build(SuperSet)
	return nil, nil, nil
}
