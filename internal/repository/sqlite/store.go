// Package sqlite stores photographers in SQLite through the pure-Go
// modernc.org/sqlite driver.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"photographer-backend/internal/domain"
	"photographer-backend/internal/repository"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS photographers (
	id            INTEGER PRIMARY KEY,
	uid           TEXT NOT NULL DEFAULT '',
	first_name    TEXT NOT NULL,
	last_name     TEXT NOT NULL,
	username      TEXT NOT NULL DEFAULT '',
	email         TEXT NOT NULL,
	avatar        TEXT NOT NULL DEFAULT '',
	gender        TEXT NOT NULL DEFAULT '',
	phone_number  TEXT NOT NULL DEFAULT '',
	date_of_birth TEXT NOT NULL,
	latitude      REAL NOT NULL,
	longitude     REAL NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_photographers_dob ON photographers (date_of_birth);
CREATE INDEX IF NOT EXISTS idx_photographers_geo ON photographers (latitude, longitude);
CREATE TABLE IF NOT EXISTS event_types (
	photographer_id INTEGER NOT NULL,
	position        INTEGER NOT NULL,
	event_type      TEXT NOT NULL,
	PRIMARY KEY (photographer_id, position)
);
CREATE INDEX IF NOT EXISTS idx_event_types_type ON event_types (event_type);
`

const columns = `id, uid, first_name, last_name, username, email, avatar, gender,
	phone_number, date_of_birth, latitude, longitude`

const upsert = `INSERT INTO photographers (` + columns + `)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (id) DO UPDATE SET
	uid = excluded.uid,
	first_name = excluded.first_name,
	last_name = excluded.last_name,
	username = excluded.username,
	email = excluded.email,
	avatar = excluded.avatar,
	gender = excluded.gender,
	phone_number = excluded.phone_number,
	date_of_birth = excluded.date_of_birth,
	latitude = excluded.latitude,
	longitude = excluded.longitude`

// Store is a PhotographerStore over a *sql.DB.
type Store struct {
	db *sql.DB
}

// Open connects to dsn and creates the schema if needed. An in-memory dsn is
// limited to one connection so every query sees the same database.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if strings.Contains(dsn, ":memory:") || strings.Contains(dsn, "mode=memory") {
		db.SetMaxOpenConns(1)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create sqlite schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPhotographer(row scanner) (*domain.Photographer, error) {
	var p domain.Photographer
	err := row.Scan(&p.ID, &p.UID, &p.FirstName, &p.LastName, &p.Username, &p.Email,
		&p.Avatar, &p.Gender, &p.PhoneNumber, &p.DateOfBirth, &p.Latitude, &p.Longitude)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *Store) query(ctx context.Context, query string, args ...any) ([]*domain.Photographer, error) {
	out, err := s.scanAll(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	if err := s.attachEventTypes(ctx, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) scanAll(ctx context.Context, query string, args ...any) ([]*domain.Photographer, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query photographers: %w", err)
	}
	defer rows.Close()

	out := []*domain.Photographer{}
	for rows.Next() {
		p, err := scanPhotographer(rows)
		if err != nil {
			return nil, fmt.Errorf("scan photographer: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate photographers: %w", err)
	}
	return out, nil
}

func (s *Store) attachEventTypes(ctx context.Context, ps []*domain.Photographer) error {
	if len(ps) == 0 {
		return nil
	}

	byID := make(map[int64]*domain.Photographer, len(ps))
	args := make([]any, 0, len(ps))
	for _, p := range ps {
		byID[p.ID] = p
		args = append(args, p.ID)
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(args)), ",")

	rows, err := s.db.QueryContext(ctx,
		`SELECT photographer_id, event_type FROM event_types
		 WHERE photographer_id IN (`+placeholders+`)
		 ORDER BY photographer_id, position`, args...)
	if err != nil {
		return fmt.Errorf("query event types: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id int64
		var eventType string
		if err := rows.Scan(&id, &eventType); err != nil {
			return fmt.Errorf("scan event type: %w", err)
		}
		if p, ok := byID[id]; ok {
			p.EventTypes = append(p.EventTypes, eventType)
		}
	}
	return rows.Err()
}

func (s *Store) FindPage(ctx context.Context, page, size int) ([]*domain.Photographer, int64, error) {
	total, err := s.Count(ctx)
	if err != nil {
		return nil, 0, err
	}
	if size <= 0 {
		return []*domain.Photographer{}, total, nil
	}
	out, err := s.query(ctx, `SELECT `+columns+` FROM photographers ORDER BY id LIMIT ? OFFSET ?`,
		size, repository.Offset(page, size))
	return out, total, err
}

func (s *Store) FindByID(ctx context.Context, id int64) (*domain.Photographer, error) {
	out, err := s.query(ctx, `SELECT `+columns+` FROM photographers WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, repository.ErrNotFound
	}
	return out[0], nil
}

func (s *Store) FindByEventType(ctx context.Context, eventType string) ([]*domain.Photographer, error) {
	return s.query(ctx, `SELECT `+columns+` FROM photographers p
		WHERE EXISTS (SELECT 1 FROM event_types e WHERE e.photographer_id = p.id AND e.event_type = ?)
		ORDER BY p.id`, eventType)
}

func (s *Store) FindOrderedByBirthDate(ctx context.Context, descending bool, limit int) ([]*domain.Photographer, error) {
	order := "ASC"
	if descending {
		order = "DESC"
	}
	if limit <= 0 {
		limit = -1
	}
	return s.query(ctx, `SELECT `+columns+` FROM photographers
		ORDER BY date_of_birth `+order+`, id LIMIT ?`, limit)
}

func (s *Store) FindByProximity(ctx context.Context, lat, lng, radiusKm float64) ([]*domain.Photographer, error) {
	minLat, maxLat, minLng, maxLng := repository.BoundingBox(lat, lng, radiusKm)
	candidates, err := s.query(ctx, `SELECT `+columns+` FROM photographers
		WHERE latitude BETWEEN ? AND ? AND longitude BETWEEN ? AND ?
		ORDER BY id`, minLat, maxLat, minLng, maxLng)
	if err != nil {
		return nil, err
	}
	return repository.WithinRadius(candidates, lat, lng, radiusKm), nil
}

func (s *Store) Save(ctx context.Context, p *domain.Photographer) (*domain.Photographer, error) {
	saved := *p
	saved.EventTypes = append([]string(nil), p.EventTypes...)

	err := s.inTx(ctx, func(tx *sql.Tx) error {
		if saved.ID == 0 {
			if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(id), 0) + 1 FROM photographers`).Scan(&saved.ID); err != nil {
				return fmt.Errorf("allocate id: %w", err)
			}
		}
		return put(ctx, tx, &saved)
	})
	if err != nil {
		return nil, err
	}
	return &saved, nil
}

func (s *Store) SaveAll(ctx context.Context, photographers []*domain.Photographer) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		for _, p := range photographers {
			if p.ID == 0 {
				return fmt.Errorf("bulk save requires ids, got photographer %q without one", p.Email)
			}
			if err := put(ctx, tx, p); err != nil {
				return err
			}
		}
		return nil
	})
}

func put(ctx context.Context, tx *sql.Tx, p *domain.Photographer) error {
	if _, err := tx.ExecContext(ctx, upsert, p.ID, p.UID, p.FirstName, p.LastName, p.Username,
		p.Email, p.Avatar, p.Gender, p.PhoneNumber, p.DateOfBirth, p.Latitude, p.Longitude); err != nil {
		return fmt.Errorf("upsert photographer %d: %w", p.ID, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM event_types WHERE photographer_id = ?`, p.ID); err != nil {
		return fmt.Errorf("clear event types of %d: %w", p.ID, err)
	}
	for i, t := range p.EventTypes {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO event_types (photographer_id, position, event_type) VALUES (?, ?, ?)`,
			p.ID, i, t); err != nil {
			return fmt.Errorf("insert event type of %d: %w", p.ID, err)
		}
	}
	return nil
}

func (s *Store) DeleteByID(ctx context.Context, id int64) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM photographers WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("delete photographer %d: %w", id, err)
		}
		if n, err := res.RowsAffected(); err != nil {
			return err
		} else if n == 0 {
			return repository.ErrNotFound
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM event_types WHERE photographer_id = ?`, id); err != nil {
			return fmt.Errorf("delete event types of %d: %w", id, err)
		}
		return nil
	})
}

func (s *Store) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM photographers`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count photographers: %w", err)
	}
	return n, nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) inTx(ctx context.Context, fn func(*sql.Tx) error) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				err = errors.Join(err, rbErr)
			}
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

var _ repository.PhotographerStore = (*Store)(nil)
