package photographer

import (
	"context"
	"errors"

	"photographer-backend/internal/cache"
	"photographer-backend/internal/domain"
	"photographer-backend/internal/repository"
	"photographer-backend/internal/resilience"
	apperrors "photographer-backend/pkg/errors"
)

// mapError turns store, cache and breaker failures into typed errors. Caller
// cancellation is passed through untouched.
func mapError(op string, err error) error {
	if _, ok := apperrors.As(err); ok {
		return err
	}

	switch {
	case errors.Is(err, context.Canceled):
		return err
	case errors.Is(err, repository.ErrNotFound):
		return apperrors.NewNotFoundError("photographer").WithCause(err)
	case errors.Is(err, context.DeadlineExceeded):
		return apperrors.NewTimeoutError(op).WithCause(err)
	case errors.Is(err, domain.ErrInvalidBirthDate), errors.Is(err, cache.ErrLoaderPanic):
		return apperrors.NewInternalError(op + " failed").WithCause(err)
	case resilience.IsRejection(err):
		return apperrors.NewUnavailableError("photographer store").WithCode("CIRCUIT_OPEN").WithCause(err)
	default:
		return apperrors.NewUnavailableError("photographer store").WithCause(err)
	}
}
