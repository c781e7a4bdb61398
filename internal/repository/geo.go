package repository

import (
	"math"
	"sort"

	"photographer-backend/internal/domain"
)

// EarthRadiusKm is the mean earth radius used for every distance.
const EarthRadiusKm = 6371.0

// DistanceKm returns the great-circle distance between two points.
func DistanceKm(lat1, lng1, lat2, lng2 float64) float64 {
	rlat1 := lat1 * math.Pi / 180
	rlat2 := lat2 * math.Pi / 180
	dLatRad := (lat2 - lat1) * math.Pi / 180
	dLngRad := (lng2 - lng1) * math.Pi / 180

	a := math.Sin(dLatRad/2)*math.Sin(dLatRad/2) + math.Cos(rlat1)*math.Cos(rlat2)*math.Sin(dLngRad/2)*math.Sin(dLngRad/2)
	return 2 * EarthRadiusKm * math.Asin(math.Min(1, math.Sqrt(a)))
}

// BoundingBox returns a lat/lng rectangle that contains every point within
// radiusKm of the centre. Stores use it to narrow candidates before the exact check.
func BoundingBox(lat, lng, radiusKm float64) (minLat, maxLat, minLng, maxLng float64) {
	dLat := radiusKm / EarthRadiusKm * 180 / math.Pi
	minLat, maxLat = math.Max(lat-dLat, -90), math.Min(lat+dLat, 90)

	cosLat := math.Cos(lat * math.Pi / 180)
	if cosLat < 1e-9 || minLat == -90 || maxLat == 90 {
		return minLat, maxLat, -180, 180
	}
	dLng := dLat / cosLat
	if dLng >= 180 || lng-dLng < -180 || lng+dLng > 180 {
		return minLat, maxLat, -180, 180
	}
	return minLat, maxLat, lng - dLng, lng + dLng
}

// WithinRadius keeps the photographers strictly closer than radiusKm and sorts
// them nearest first. The result is never nil.
func WithinRadius(candidates []*domain.Photographer, lat, lng, radiusKm float64) []*domain.Photographer {
	type hit struct {
		p *domain.Photographer
		d float64
	}
	hits := make([]hit, 0, len(candidates))
	for _, p := range candidates {
		if d := DistanceKm(lat, lng, p.Latitude, p.Longitude); d < radiusKm {
			hits = append(hits, hit{p, d})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].d < hits[j].d })

	out := make([]*domain.Photographer, len(hits))
	for i, h := range hits {
		out[i] = h.p
	}
	return out
}
