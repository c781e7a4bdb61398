package repository

import (
	"testing"

	"photographer-backend/internal/domain"

	"github.com/stretchr/testify/assert"
)

func TestDistanceKm(t *testing.T) {
	t.Run("Should be zero for the same point", func(t *testing.T) {
		assert.InDelta(t, 0, DistanceKm(52.52, 13.405, 52.52, 13.405), 1e-9)
	})

	t.Run("Should match the known Berlin to London distance", func(t *testing.T) {
		assert.InDelta(t, 931.0, DistanceKm(52.5200, 13.4050, 51.5074, -0.1278), 5)
	})

	t.Run("Should be symmetric", func(t *testing.T) {
		assert.InDelta(t, DistanceKm(10, 20, -30, 40), DistanceKm(-30, 40, 10, 20), 1e-9)
	})
}

func TestBoundingBox(t *testing.T) {
	t.Run("Should contain every point within the radius", func(t *testing.T) {
		minLat, maxLat, minLng, maxLng := BoundingBox(52.52, 13.405, 30)
		assert.Less(t, minLat, 52.3906)
		assert.Greater(t, maxLat, 52.52)
		assert.Less(t, minLng, 13.0645)
		assert.Greater(t, maxLng, 13.405)
	})

	t.Run("Should widen to every longitude near the poles", func(t *testing.T) {
		_, maxLat, minLng, maxLng := BoundingBox(89.9, 0, 50)
		assert.Equal(t, 90.0, maxLat)
		assert.Equal(t, -180.0, minLng)
		assert.Equal(t, 180.0, maxLng)
	})
}

func TestWithinRadius(t *testing.T) {
	near := &domain.Photographer{ID: 1, Latitude: 52.52, Longitude: 13.405}
	mid := &domain.Photographer{ID: 2, Latitude: 52.53, Longitude: 13.38}
	far := &domain.Photographer{ID: 3, Latitude: 51.5074, Longitude: -0.1278}

	got := WithinRadius([]*domain.Photographer{far, mid, near}, 52.52, 13.405, 10)
	assert.Equal(t, []*domain.Photographer{near, mid}, got)

	assert.NotNil(t, WithinRadius(nil, 0, 0, 1))
}
