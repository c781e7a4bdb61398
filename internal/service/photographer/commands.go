package photographer

import (
	"context"

	"photographer-backend/internal/domain"
	"photographer-backend/internal/invalidation"
	apperrors "photographer-backend/pkg/errors"
	"photographer-backend/pkg/validation"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// Create stores a new photographer under a freshly assigned id.
func (s *Service) Create(ctx context.Context, p domain.Photographer) (_ *domain.Photographer, err error) {
	ctx, span := s.startSpan(ctx, "Create")
	defer func() { endSpan(span, false, false, err) }()

	p.ID = 0
	if err := validation.Struct(p); err != nil {
		return nil, err
	}

	saved, err := s.store.Save(ctx, &p)
	if err != nil {
		return nil, mapError("create photographer", err)
	}
	if err := s.invalidate(ctx, invalidation.KindCreated, saved.ID); err != nil {
		return nil, err
	}
	return saved, nil
}

// Update replaces the photographer stored under id.
func (s *Service) Update(ctx context.Context, id int64, p domain.Photographer) (_ *domain.Photographer, err error) {
	ctx, span := s.startSpan(ctx, "Update", attribute.Int64("photographer.id", id))
	defer func() { endSpan(span, false, false, err) }()

	if err := validation.Struct(validation.IDParam{ID: id}); err != nil {
		return nil, err
	}
	p.ID = id
	if err := validation.Struct(p); err != nil {
		return nil, err
	}

	if _, err := s.store.FindByID(ctx, id); err != nil {
		return nil, mapError("update photographer", err)
	}
	saved, err := s.store.Save(ctx, &p)
	if err != nil {
		return nil, mapError("update photographer", err)
	}
	if err := s.invalidate(ctx, invalidation.KindUpdated, id); err != nil {
		return nil, err
	}
	return saved, nil
}

// Delete removes the photographer stored under id.
func (s *Service) Delete(ctx context.Context, id int64) (err error) {
	ctx, span := s.startSpan(ctx, "Delete", attribute.Int64("photographer.id", id))
	defer func() { endSpan(span, false, false, err) }()

	if err := validation.Struct(validation.IDParam{ID: id}); err != nil {
		return err
	}
	if err := s.store.DeleteByID(ctx, id); err != nil {
		return mapError("delete photographer", err)
	}
	return s.invalidate(ctx, invalidation.KindDeleted, id)
}

// invalidate clears every namespace after a committed write. The write itself
// is not rolled back when this fails.
func (s *Service) invalidate(ctx context.Context, kind invalidation.Kind, id int64) error {
	if s.invalidator == nil {
		return nil
	}
	err := s.invalidator.OnMutation(ctx, invalidation.Mutation{
		Kind:       kind,
		EntityID:   id,
		Namespaces: Namespaces(),
	})
	if err != nil {
		s.logger.Error("Cache invalidation failed after write",
			zap.String("kind", string(kind)),
			zap.Int64("id", id),
			zap.Error(err),
		)
		return apperrors.NewInternalError("cache invalidation failed").WithCause(err)
	}
	return nil
}
