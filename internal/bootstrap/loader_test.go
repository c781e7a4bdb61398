package bootstrap

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"photographer-backend/internal/domain"
	"photographer-backend/internal/repository/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const export = `[
  {
    "id": 7,
    "uid": "3f1c",
    "first_name": "Ada",
    "last_name": "Lovelace",
    "username": "ada",
    "email": "ada@example.com",
    "avatar": "https://example.com/ada.png",
    "gender": "Female",
    "phone_number": "+49 30 1234",
    "date_of_birth": "1990-12-10",
    "address": {"city": "Berlin", "coordinates": {"lat": 52.52, "lng": 13.405}},
    "event_type": {"type": ["Wedding", "Birthday"]}
  },
  {
    "id": 8,
    "first_name": "Alan",
    "last_name": "Turing",
    "email": "alan@example.com",
    "date_of_birth": "1985-06-23",
    "address": {"coordinates": {"lat": 51.5, "lng": -0.12}},
    "event_type": {}
  }
]`

func TestDecode(t *testing.T) {
	t.Run("Should flatten nested coordinates and event types", func(t *testing.T) {
		got, err := Decode(strings.NewReader(export))
		require.NoError(t, err)
		require.Len(t, got, 2)

		assert.Equal(t, &domain.Photographer{
			ID: 7, UID: "3f1c", FirstName: "Ada", LastName: "Lovelace", Username: "ada",
			Email: "ada@example.com", Avatar: "https://example.com/ada.png", Gender: "Female",
			PhoneNumber: "+49 30 1234", DateOfBirth: "1990-12-10",
			Latitude: 52.52, Longitude: 13.405, EventTypes: []string{"Wedding", "Birthday"},
		}, got[0])
		assert.NotNil(t, got[1].EventTypes)
		assert.Empty(t, got[1].EventTypes)
	})

	t.Run("Should reject a bad date of birth", func(t *testing.T) {
		_, err := Decode(strings.NewReader(`[{"id":1,"date_of_birth":"10/12/1990"}]`))
		assert.ErrorIs(t, err, domain.ErrInvalidBirthDate)
	})

	t.Run("Should reject malformed JSON", func(t *testing.T) {
		_, err := Decode(strings.NewReader(`{"id":1}`))
		assert.Error(t, err)
	})
}

func TestSeed(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "photographers.json")
	require.NoError(t, os.WriteFile(path, []byte(export), 0o600))

	t.Run("Should seed an empty store", func(t *testing.T) {
		store := memory.NewStore()
		n, err := Seed(ctx, store, path, nil)
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		p, err := store.FindByID(ctx, 8)
		require.NoError(t, err)
		assert.Equal(t, "Alan", p.FirstName)
	})

	t.Run("Should leave a populated store alone", func(t *testing.T) {
		store := memory.NewStore()
		_, err := store.Save(ctx, &domain.Photographer{FirstName: "Existing", DateOfBirth: "2000-01-01"})
		require.NoError(t, err)

		n, err := Seed(ctx, store, path, nil)
		require.NoError(t, err)
		assert.Zero(t, n)
		count, _ := store.Count(ctx)
		assert.Equal(t, int64(1), count)
	})

	t.Run("Should fail on a missing file", func(t *testing.T) {
		_, err := Seed(ctx, memory.NewStore(), filepath.Join(t.TempDir(), "missing.json"), nil)
		assert.Error(t, err)
	})

	t.Run("Should load the bundled dataset", func(t *testing.T) {
		got, err := LoadFile(filepath.Join("..", "..", "data", "photographers.json"))
		require.NoError(t, err)
		assert.NotEmpty(t, got)
	})
}
