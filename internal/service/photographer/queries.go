package photographer

import (
	"context"
	"errors"

	"photographer-backend/internal/cache"
	"photographer-backend/internal/domain"
	"photographer-backend/pkg/validation"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// List returns one page of summaries ordered by id. Pages are not cached.
func (s *Service) List(ctx context.Context, page, size int) (_ Result[Page], err error) {
	ctx, span := s.startSpan(ctx, "List", attribute.Int("page", page), attribute.Int("size", size))
	defer func() { endSpan(span, false, false, err) }()

	if err := validation.Struct(validation.PageQuery{Page: page, Size: size}); err != nil {
		return Result[Page]{}, err
	}

	photographers, total, err := s.store.FindPage(ctx, page, size)
	if err != nil {
		return Result[Page]{}, mapError("list photographers", err)
	}
	summaries, err := domain.Summarize(photographers, s.now())
	if err != nil {
		return Result[Page]{}, mapError("list photographers", err)
	}
	return Result[Page]{Value: Page{Content: summaries, Page: page, Size: size, Total: total}}, nil
}

// GetByID returns the full photographer record.
func (s *Service) GetByID(ctx context.Context, id int64) (_ Result[*domain.Photographer], err error) {
	var hit bool
	ctx, span := s.startSpan(ctx, "GetByID", attribute.Int64("photographer.id", id))
	defer func() { endSpan(span, hit, false, err) }()

	if err := validation.Struct(validation.IDParam{ID: id}); err != nil {
		return Result[*domain.Photographer]{}, err
	}

	p, hit, err := s.byID.GetOrLoad(ctx, cache.IDKey(id), func(ctx context.Context) (*domain.Photographer, error) {
		return s.store.FindByID(ctx, id)
	})
	if err != nil {
		return Result[*domain.Photographer]{}, mapError("get photographer", err)
	}
	return Result[*domain.Photographer]{Value: p, CacheHit: hit}, nil
}

// ListByEventType returns summaries of photographers covering eventType. The
// match is case-sensitive.
func (s *Service) ListByEventType(ctx context.Context, eventType string) (_ Result[[]domain.Summary], err error) {
	var hit bool
	ctx, span := s.startSpan(ctx, "ListByEventType", attribute.String("event.type", eventType))
	defer func() { endSpan(span, hit, false, err) }()

	if err := validation.Struct(validation.EventTypeParam{EventType: eventType}); err != nil {
		return Result[[]domain.Summary]{}, err
	}

	summaries, hit, err := s.byEventType.GetOrLoad(ctx, cache.EventTypeKey(eventType), func(ctx context.Context) ([]domain.Summary, error) {
		photographers, err := s.store.FindByEventType(ctx, eventType)
		if err != nil {
			return nil, err
		}
		return domain.Summarize(photographers, s.now())
	})
	if err != nil {
		return Result[[]domain.Summary]{}, mapError("list by event type", err)
	}
	return Result[[]domain.Summary]{Value: summaries, CacheHit: hit}, nil
}

// Youngest returns the size youngest photographers, youngest first, ties broken
// by first name.
func (s *Service) Youngest(ctx context.Context, size int) (_ Result[[]domain.Summary], err error) {
	var hit bool
	ctx, span := s.startSpan(ctx, "Youngest", attribute.Int("size", size))
	defer func() { endSpan(span, hit, false, err) }()

	if err := validation.Struct(validation.YoungestQuery{Size: size}); err != nil {
		return Result[[]domain.Summary]{}, err
	}

	summaries, hit, err := s.youngest.GetOrLoad(ctx, cache.YoungestKey(size), func(ctx context.Context) ([]domain.Summary, error) {
		photographers, err := s.store.FindOrderedByBirthDate(ctx, true, size)
		if err != nil {
			return nil, err
		}
		summaries, err := domain.Summarize(photographers, s.now())
		if err != nil {
			return nil, err
		}
		domain.SortYoungest(summaries)
		return summaries, nil
	})
	if err != nil {
		return Result[[]domain.Summary]{}, mapError("youngest photographers", err)
	}
	return Result[[]domain.Summary]{Value: summaries, CacheHit: hit}, nil
}

// NearBy returns photographers strictly within radius km of (lat, lng), nearest
// first. When the store is failing the breaker serves an empty, degraded answer
// that is never cached.
func (s *Service) NearBy(ctx context.Context, lat, lng, radius float64) (_ Result[[]domain.Summary], err error) {
	var hit, degraded bool
	ctx, span := s.startSpan(ctx, "NearBy",
		attribute.Float64("geo.lat", lat),
		attribute.Float64("geo.lng", lng),
		attribute.Float64("geo.radius_km", radius),
	)
	defer func() { endSpan(span, hit, degraded, err) }()

	if err := validation.Struct(validation.ProximityQuery{Lat: lat, Lng: lng, Radius: radius}); err != nil {
		return Result[[]domain.Summary]{}, err
	}

	q := ProximityQuery{Lat: lat, Lng: lng, Radius: radius}
	summaries, hit, err := s.byProximity.GetOrLoad(ctx, cache.ProximityKey(lat, lng, radius), func(ctx context.Context) ([]domain.Summary, error) {
		res, err := s.proximity.Execute(ctx, q)
		if err != nil {
			return nil, err
		}
		if res.Degraded {
			return nil, &degradedResult{value: res.Value, cause: res.Cause}
		}
		return res.Value, nil
	})

	var deg *degradedResult
	if errors.As(err, &deg) {
		degraded = true
		s.logger.Warn("Serving degraded proximity result",
			zap.Float64("lat", lat),
			zap.Float64("lng", lng),
			zap.Float64("radius", radius),
			zap.Error(deg.cause),
		)
		return Result[[]domain.Summary]{Value: deg.value, Degraded: true}, nil
	}
	if err != nil {
		return Result[[]domain.Summary]{}, mapError("proximity search", err)
	}
	return Result[[]domain.Summary]{Value: summaries, CacheHit: hit}, nil
}

func (s *Service) searchProximity(ctx context.Context, q ProximityQuery) ([]domain.Summary, error) {
	photographers, err := s.store.FindByProximity(ctx, q.Lat, q.Lng, q.Radius)
	if err != nil {
		return nil, err
	}
	return domain.Summarize(photographers, s.now())
}

func emptyProximity(context.Context, ProximityQuery, error) ([]domain.Summary, error) {
	return []domain.Summary{}, nil
}

// degradedResult carries a fallback value out of a cache loader. Loaders that
// fail are never cached, which keeps fallback answers out of the namespace.
type degradedResult struct {
	value []domain.Summary
	cause error
}

func (d *degradedResult) Error() string {
	if d.cause == nil {
		return "degraded result"
	}
	return "degraded result: " + d.cause.Error()
}

func (d *degradedResult) Unwrap() error {
	return d.cause
}
