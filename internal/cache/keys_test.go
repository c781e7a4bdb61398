package cache

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeys(t *testing.T) {
	t.Run("Should use the decimal identifier", func(t *testing.T) {
		assert.Equal(t, "42", IDKey(42))
	})

	t.Run("Should keep event types case sensitive", func(t *testing.T) {
		assert.Equal(t, "Wedding", EventTypeKey("Wedding"))
		assert.NotEqual(t, EventTypeKey("Wedding"), EventTypeKey("wedding"))
	})

	t.Run("Should include the size in youngest keys", func(t *testing.T) {
		assert.Equal(t, "3", YoungestKey(3))
		assert.NotEqual(t, YoungestKey(3), YoungestKey(10))
	})

	t.Run("Should format proximity components with fixed precision", func(t *testing.T) {
		tests := []struct {
			name             string
			lat, lng, radius float64
			want             string
		}{
			{"whole numbers", 1, 2, 5, "1.000000|2.000000|5.000000"},
			{"decimals", 52.52, 13.405, 10.5, "52.520000|13.405000|10.500000"},
			{"negative", -33.8688, 151.2093, 1, "-33.868800|151.209300|1.000000"},
			{"negative zero", math.Copysign(0, -1), 0, 1, "0.000000|0.000000|1.000000"},
			{"rounds to negative zero", -0.0000001, 0, 1, "0.000000|0.000000|1.000000"},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				assert.Equal(t, tt.want, ProximityKey(tt.lat, tt.lng, tt.radius))
			})
		}
	})

	t.Run("Should produce one key for numerically equal inputs", func(t *testing.T) {
		one, oneDotZero := 1.0, float64(1)
		assert.Equal(t, ProximityKey(one, 2, 3), ProximityKey(oneDotZero, 2.0000000001, 3))
	})
}
