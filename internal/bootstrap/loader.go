// Package bootstrap seeds an empty store from a photographers JSON export.
package bootstrap

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"photographer-backend/internal/domain"
	"photographer-backend/internal/repository"

	"go.uber.org/zap"
)

// record is one entry of the export. Coordinates and event types are nested.
type record struct {
	ID          int64  `json:"id"`
	UID         string `json:"uid"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Username    string `json:"username"`
	Email       string `json:"email"`
	Avatar      string `json:"avatar"`
	Gender      string `json:"gender"`
	PhoneNumber string `json:"phone_number"`
	DateOfBirth string `json:"date_of_birth"`
	Address     struct {
		Coordinates struct {
			Lat float64 `json:"lat"`
			Lng float64 `json:"lng"`
		} `json:"coordinates"`
	} `json:"address"`
	EventType struct {
		Type []string `json:"type"`
	} `json:"event_type"`
}

func (r record) photographer() *domain.Photographer {
	return &domain.Photographer{
		ID:          r.ID,
		UID:         r.UID,
		FirstName:   r.FirstName,
		LastName:    r.LastName,
		Username:    r.Username,
		Email:       r.Email,
		Avatar:      r.Avatar,
		Gender:      r.Gender,
		PhoneNumber: r.PhoneNumber,
		DateOfBirth: r.DateOfBirth,
		Latitude:    r.Address.Coordinates.Lat,
		Longitude:   r.Address.Coordinates.Lng,
		EventTypes:  append([]string{}, r.EventType.Type...),
	}
}

// Decode reads a JSON array of export records. Unknown fields are ignored and
// every record must carry a parseable date of birth.
func Decode(r io.Reader) ([]*domain.Photographer, error) {
	var records []record
	if err := json.NewDecoder(r).Decode(&records); err != nil {
		return nil, fmt.Errorf("decode photographers: %w", err)
	}

	out := make([]*domain.Photographer, 0, len(records))
	for i, rec := range records {
		p := rec.photographer()
		if _, err := p.BirthDate(); err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		out = append(out, p)
	}
	return out, nil
}

// LoadFile decodes the export at path.
func LoadFile(path string) ([]*domain.Photographer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return Decode(f)
}

// Seed loads path into store when the store is empty and returns how many
// photographers were written. A populated store is left untouched.
func Seed(ctx context.Context, store repository.PhotographerStore, path string, logger *zap.Logger) (int, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	count, err := store.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count photographers: %w", err)
	}
	if count > 0 {
		logger.Info("Store already populated, skipping seed", zap.Int64("count", count))
		return 0, nil
	}

	photographers, err := LoadFile(path)
	if err != nil {
		return 0, err
	}
	if err := store.SaveAll(ctx, photographers); err != nil {
		return 0, fmt.Errorf("save photographers: %w", err)
	}

	logger.Info("Store seeded", zap.String("path", path), zap.Int("count", len(photographers)))
	return len(photographers), nil
}
