// Package memory is an in-process photographer store for development and tests.
package memory

import (
	"context"
	"sort"
	"sync"

	"photographer-backend/internal/domain"
	"photographer-backend/internal/repository"
)

// Store keeps photographers in a map guarded by a RWMutex. Values are copied on
// the way in and out.
type Store struct {
	mu     sync.RWMutex
	items  map[int64]*domain.Photographer
	nextID int64
}

func NewStore() *Store {
	return &Store{items: make(map[int64]*domain.Photographer), nextID: 1}
}

func clone(p *domain.Photographer) *domain.Photographer {
	c := *p
	c.EventTypes = append([]string(nil), p.EventTypes...)
	return &c
}

// sorted returns copies ordered by id. Caller holds at least a read lock.
func (s *Store) sorted(keep func(*domain.Photographer) bool) []*domain.Photographer {
	out := make([]*domain.Photographer, 0, len(s.items))
	for _, p := range s.items {
		if keep == nil || keep(p) {
			out = append(out, clone(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *Store) FindPage(_ context.Context, page, size int) ([]*domain.Photographer, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := s.sorted(nil)
	total := int64(len(all))
	offset := repository.Offset(page, size)
	if offset >= len(all) || size <= 0 {
		return []*domain.Photographer{}, total, nil
	}
	end := offset + size
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

func (s *Store) FindByID(_ context.Context, id int64) (*domain.Photographer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.items[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return clone(p), nil
}

func (s *Store) FindByEventType(_ context.Context, eventType string) ([]*domain.Photographer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sorted(func(p *domain.Photographer) bool { return p.HasEventType(eventType) }), nil
}

func (s *Store) FindOrderedByBirthDate(_ context.Context, descending bool, limit int) ([]*domain.Photographer, error) {
	s.mu.RLock()
	all := s.sorted(nil)
	s.mu.RUnlock()

	sort.SliceStable(all, func(i, j int) bool {
		if descending {
			return all[i].DateOfBirth > all[j].DateOfBirth
		}
		return all[i].DateOfBirth < all[j].DateOfBirth
	})
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	return all, nil
}

func (s *Store) FindByProximity(_ context.Context, lat, lng, radiusKm float64) ([]*domain.Photographer, error) {
	s.mu.RLock()
	all := s.sorted(nil)
	s.mu.RUnlock()
	return repository.WithinRadius(all, lat, lng, radiusKm), nil
}

func (s *Store) Save(_ context.Context, p *domain.Photographer) (*domain.Photographer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := s.put(p)
	return clone(stored), nil
}

func (s *Store) SaveAll(_ context.Context, photographers []*domain.Photographer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range photographers {
		s.put(p)
	}
	return nil
}

// put must be called with the write lock held.
func (s *Store) put(p *domain.Photographer) *domain.Photographer {
	stored := clone(p)
	if stored.ID == 0 {
		stored.ID = s.nextID
	}
	if stored.ID >= s.nextID {
		s.nextID = stored.ID + 1
	}
	s.items[stored.ID] = stored
	return stored
}

func (s *Store) DeleteByID(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.items[id]; !ok {
		return repository.ErrNotFound
	}
	delete(s.items, id)
	return nil
}

func (s *Store) Count(context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.items)), nil
}

func (s *Store) Ping(context.Context) error { return nil }

var _ repository.PhotographerStore = (*Store)(nil)
