// Package repository defines the photographer store contract and its
// cross-cutting decorators. Implementations live in subpackages.
package repository

import (
	"context"
	"errors"

	"photographer-backend/internal/domain"
)

var (
	// ErrNotFound is returned when no photographer has the requested id.
	ErrNotFound = errors.New("photographer not found")
	// ErrUnavailable marks a store failure that is not about the request itself.
	ErrUnavailable = errors.New("photographer store unavailable")
)

// PhotographerStore is the persistence boundary of the service. Every method may
// block and may fail; callers measure and guard calls as needed.
type PhotographerStore interface {
	// FindPage returns one zero-based page ordered by id, plus the total count.
	FindPage(ctx context.Context, page, size int) ([]*domain.Photographer, int64, error)
	FindByID(ctx context.Context, id int64) (*domain.Photographer, error)
	// FindByEventType matches event types case-sensitively.
	FindByEventType(ctx context.Context, eventType string) ([]*domain.Photographer, error)
	// FindOrderedByBirthDate orders by date of birth. A limit <= 0 returns all.
	FindOrderedByBirthDate(ctx context.Context, descending bool, limit int) ([]*domain.Photographer, error)
	// FindByProximity returns photographers strictly within radiusKm, nearest first.
	FindByProximity(ctx context.Context, lat, lng, radiusKm float64) ([]*domain.Photographer, error)
	// Save inserts or replaces p. A zero id is assigned the next free id.
	Save(ctx context.Context, p *domain.Photographer) (*domain.Photographer, error)
	SaveAll(ctx context.Context, photographers []*domain.Photographer) error
	DeleteByID(ctx context.Context, id int64) error
	Count(ctx context.Context) (int64, error)
	Ping(ctx context.Context) error
}

// Offset converts a zero-based page into a row offset.
func Offset(page, size int) int {
	if page < 0 || size <= 0 {
		return 0
	}
	return page * size
}
