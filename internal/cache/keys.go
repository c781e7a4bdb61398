package cache

import (
	"strconv"
	"strings"
)

const keySeparator = "|"

// IDKey derives the key for a lookup by identifier.
func IDKey(id int64) string {
	return strconv.FormatInt(id, 10)
}

// EventTypeKey derives the key for a filter by event type. Event types are
// compared case-sensitively, so "Wedding" and "wedding" are distinct keys.
func EventTypeKey(eventType string) string {
	return eventType
}

// YoungestKey derives the key for a youngest-N query. The size is part of the
// key so a short list cached for a small request never answers a larger one.
func YoungestKey(size int) string {
	return strconv.Itoa(size)
}

// ProximityKey derives the key for a proximity query. Each component uses fixed
// six-decimal formatting so numerically equal inputs produce the same key.
func ProximityKey(lat, lng, radius float64) string {
	return strings.Join([]string{
		formatCoordinate(lat),
		formatCoordinate(lng),
		formatCoordinate(radius),
	}, keySeparator)
}

func formatCoordinate(v float64) string {
	s := strconv.FormatFloat(v, 'f', 6, 64)
	if s == "-0.000000" {
		return "0.000000"
	}
	return s
}
