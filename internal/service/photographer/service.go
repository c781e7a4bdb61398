// Package photographer is the query facade of the service. Reads go through the
// per-shape cache namespaces; the proximity search additionally runs behind a
// circuit breaker. Writes go to the store and then invalidate every namespace.
package photographer

import (
	"context"
	"fmt"
	"time"

	"photographer-backend/internal/cache"
	"photographer-backend/internal/domain"
	"photographer-backend/internal/invalidation"
	"photographer-backend/internal/repository"
	"photographer-backend/internal/resilience"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Cache namespaces owned by the facade.
const (
	NamespaceByID        = "byId"
	NamespaceByEventType = "byEventType"
	NamespaceYoungest    = "youngest"
	NamespaceByProximity = "byProximity"
)

// Namespaces lists every namespace a write invalidates.
func Namespaces() []string {
	return []string{NamespaceByID, NamespaceByEventType, NamespaceYoungest, NamespaceByProximity}
}

// Result is a read answer. CacheHit is false when the value was loaded on this
// call; Degraded is true when the fallback produced it.
type Result[T any] struct {
	Value    T
	CacheHit bool
	Degraded bool
}

// Page is one zero-based page of the full listing.
type Page struct {
	Content []domain.Summary
	Page    int
	Size    int
	Total   int64
}

// Invalidator is notified after every successful write.
type Invalidator interface {
	OnMutation(ctx context.Context, m invalidation.Mutation) error
}

// Config carries the tunables of the facade. Missing namespace policies fall
// back to cache.DefaultPolicy.
type Config struct {
	Policies       map[string]cache.Policy
	Breaker        resilience.Settings
	BreakerMetrics *resilience.Metrics
	Tracer         trace.Tracer
	Clock          func() time.Time
}

// ProximityQuery is the argument of the guarded proximity search.
type ProximityQuery struct {
	Lat    float64
	Lng    float64
	Radius float64
}

// Service answers photographer queries. Values returned by the read paths are
// shared with the cache and must not be modified.
type Service struct {
	store       repository.PhotographerStore
	invalidator Invalidator

	byID        *cache.Namespace[*domain.Photographer]
	byEventType *cache.Namespace[[]domain.Summary]
	youngest    *cache.Namespace[[]domain.Summary]
	byProximity *cache.Namespace[[]domain.Summary]
	proximity   *resilience.Guard[ProximityQuery, []domain.Summary]

	now    func() time.Time
	tracer trace.Tracer
	logger *zap.Logger
}

// New registers the facade's namespaces on manager and builds the proximity guard.
func New(store repository.PhotographerStore, manager *cache.Manager, invalidator Invalidator, cfg Config, logger *zap.Logger) (*Service, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{
		store:       store,
		invalidator: invalidator,
		now:         cfg.Clock,
		tracer:      cfg.Tracer,
		logger:      logger.Named("photographers"),
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.tracer == nil {
		s.tracer = otel.Tracer("photographer-backend/service")
	}

	policy := func(name string) cache.Policy {
		if p, ok := cfg.Policies[name]; ok {
			return p
		}
		return cache.DefaultPolicy()
	}

	var err error
	if s.byID, err = cache.Register[*domain.Photographer](manager, NamespaceByID, policy(NamespaceByID)); err != nil {
		return nil, fmt.Errorf("register %s: %w", NamespaceByID, err)
	}
	if s.byEventType, err = cache.Register[[]domain.Summary](manager, NamespaceByEventType, policy(NamespaceByEventType)); err != nil {
		return nil, fmt.Errorf("register %s: %w", NamespaceByEventType, err)
	}
	if s.youngest, err = cache.Register[[]domain.Summary](manager, NamespaceYoungest, policy(NamespaceYoungest)); err != nil {
		return nil, fmt.Errorf("register %s: %w", NamespaceYoungest, err)
	}
	if s.byProximity, err = cache.Register[[]domain.Summary](manager, NamespaceByProximity, policy(NamespaceByProximity)); err != nil {
		return nil, fmt.Errorf("register %s: %w", NamespaceByProximity, err)
	}

	settings := cfg.Breaker
	if settings.Name == "" {
		settings = resilience.DefaultSettings("proximity")
	}
	s.proximity, err = resilience.NewGuard[ProximityQuery, []domain.Summary](settings, s.searchProximity, emptyProximity, logger, cfg.BreakerMetrics)
	if err != nil {
		return nil, fmt.Errorf("proximity guard: %w", err)
	}
	return s, nil
}

// BreakerState exposes the proximity breaker state for health reporting.
func (s *Service) BreakerState() resilience.State {
	return s.proximity.State()
}

func (s *Service) startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, "PhotographerService."+name,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attrs...),
	)
}

func endSpan(span trace.Span, hit, degraded bool, err error) {
	span.SetAttributes(
		attribute.Bool("cache.hit", hit),
		attribute.Bool("degraded", degraded),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
