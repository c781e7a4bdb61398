// Package storetest runs the behaviour every PhotographerStore must share.
package storetest

import (
	"context"
	"testing"

	"photographer-backend/internal/domain"
	"photographer-backend/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Fixtures returns a small dataset: three photographers in Berlin, one in
// Potsdam (about 27 km away) and one in London.
func Fixtures() []*domain.Photographer {
	return []*domain.Photographer{
		{ID: 1, UID: "u-1", FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com",
			DateOfBirth: "1990-12-10", Latitude: 52.5200, Longitude: 13.4050, EventTypes: []string{"Wedding", "Birthday"}},
		{ID: 2, UID: "u-2", FirstName: "Grace", LastName: "Hopper", Email: "grace@example.com",
			DateOfBirth: "1998-03-09", Latitude: 52.5300, Longitude: 13.3800, EventTypes: []string{"Corporate"}},
		{ID: 3, UID: "u-3", FirstName: "Alan", LastName: "Turing", Email: "alan@example.com",
			DateOfBirth: "1985-06-23", Latitude: 52.5100, Longitude: 13.4200, EventTypes: []string{"Wedding"}},
		{ID: 4, UID: "u-4", FirstName: "Edsger", LastName: "Dijkstra", Email: "edsger@example.com",
			DateOfBirth: "2001-05-11", Latitude: 52.3906, Longitude: 13.0645, EventTypes: []string{"wedding", "Concert"}},
		{ID: 5, UID: "u-5", FirstName: "Barbara", LastName: "Liskov", Email: "barbara@example.com",
			DateOfBirth: "1995-11-07", Latitude: 51.5074, Longitude: -0.1278, EventTypes: []string{"Birthday"}},
	}
}

func ids(ps []*domain.Photographer) []int64 {
	out := make([]int64, len(ps))
	for i, p := range ps {
		out[i] = p.ID
	}
	return out
}

// Run exercises newStore. Each subtest receives a fresh store seeded with Fixtures.
func Run(t *testing.T, newStore func(t *testing.T) repository.PhotographerStore) {
	ctx := context.Background()

	seeded := func(t *testing.T) repository.PhotographerStore {
		t.Helper()
		s := newStore(t)
		require.NoError(t, s.SaveAll(ctx, Fixtures()))
		return s
	}

	t.Run("Should count seeded photographers", func(t *testing.T) {
		n, err := seeded(t).Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(5), n)
	})

	t.Run("Should page by id", func(t *testing.T) {
		s := seeded(t)

		page, total, err := s.FindPage(ctx, 0, 2)
		require.NoError(t, err)
		assert.Equal(t, int64(5), total)
		assert.Equal(t, []int64{1, 2}, ids(page))

		page, _, err = s.FindPage(ctx, 2, 2)
		require.NoError(t, err)
		assert.Equal(t, []int64{5}, ids(page))

		page, _, err = s.FindPage(ctx, 9, 2)
		require.NoError(t, err)
		assert.Empty(t, page)
	})

	t.Run("Should find by id with every field", func(t *testing.T) {
		p, err := seeded(t).FindByID(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, Fixtures()[0], p)
	})

	t.Run("Should report missing ids", func(t *testing.T) {
		_, err := seeded(t).FindByID(ctx, 99)
		assert.ErrorIs(t, err, repository.ErrNotFound)
	})

	t.Run("Should filter event types case-sensitively", func(t *testing.T) {
		s := seeded(t)

		got, err := s.FindByEventType(ctx, "Wedding")
		require.NoError(t, err)
		assert.Equal(t, []int64{1, 3}, ids(got))

		got, err = s.FindByEventType(ctx, "wedding")
		require.NoError(t, err)
		assert.Equal(t, []int64{4}, ids(got))

		got, err = s.FindByEventType(ctx, "Funeral")
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("Should order by birth date", func(t *testing.T) {
		s := seeded(t)

		got, err := s.FindOrderedByBirthDate(ctx, true, 3)
		require.NoError(t, err)
		assert.Equal(t, []int64{4, 2, 5}, ids(got))

		got, err = s.FindOrderedByBirthDate(ctx, false, 0)
		require.NoError(t, err)
		assert.Equal(t, []int64{3, 1, 5, 2, 4}, ids(got))
	})

	t.Run("Should find nearby photographers nearest first", func(t *testing.T) {
		s := seeded(t)

		got, err := s.FindByProximity(ctx, 52.5200, 13.4050, 5)
		require.NoError(t, err)
		assert.Equal(t, []int64{1, 3, 2}, ids(got))

		got, err = s.FindByProximity(ctx, 52.5200, 13.4050, 50)
		require.NoError(t, err)
		assert.Equal(t, []int64{1, 3, 2, 4}, ids(got))

		got, err = s.FindByProximity(ctx, 0, 0, 1)
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("Should assign ids on insert and replace on update", func(t *testing.T) {
		s := seeded(t)

		created, err := s.Save(ctx, &domain.Photographer{
			FirstName: "Linus", LastName: "Torvalds", Email: "linus@example.com",
			DateOfBirth: "1999-12-28", EventTypes: []string{"Concert"},
		})
		require.NoError(t, err)
		assert.Equal(t, int64(6), created.ID)

		created.EventTypes = []string{"Wedding"}
		created.LastName = "T."
		_, err = s.Save(ctx, created)
		require.NoError(t, err)

		got, err := s.FindByID(ctx, 6)
		require.NoError(t, err)
		assert.Equal(t, "T.", got.LastName)
		assert.Equal(t, []string{"Wedding"}, got.EventTypes)

		n, err := s.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(6), n)
	})

	t.Run("Should delete by id", func(t *testing.T) {
		s := seeded(t)

		require.NoError(t, s.DeleteByID(ctx, 2))
		_, err := s.FindByID(ctx, 2)
		assert.ErrorIs(t, err, repository.ErrNotFound)
		assert.ErrorIs(t, s.DeleteByID(ctx, 2), repository.ErrNotFound)

		got, err := s.FindByEventType(ctx, "Corporate")
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("Should answer pings", func(t *testing.T) {
		assert.NoError(t, newStore(t).Ping(ctx))
	})
}
