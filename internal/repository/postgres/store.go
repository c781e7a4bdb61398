// Package postgres stores photographers in PostgreSQL through a pgx connection pool.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"photographer-backend/internal/domain"
	"photographer-backend/internal/repository"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const schema = `
CREATE TABLE IF NOT EXISTS photographers (
	id            BIGSERIAL PRIMARY KEY,
	uid           TEXT NOT NULL DEFAULT '',
	first_name    TEXT NOT NULL,
	last_name     TEXT NOT NULL,
	username      TEXT NOT NULL DEFAULT '',
	email         TEXT NOT NULL,
	avatar        TEXT NOT NULL DEFAULT '',
	gender        TEXT NOT NULL DEFAULT '',
	phone_number  TEXT NOT NULL DEFAULT '',
	date_of_birth TEXT NOT NULL,
	latitude      DOUBLE PRECISION NOT NULL,
	longitude     DOUBLE PRECISION NOT NULL,
	event_types   TEXT[] NOT NULL DEFAULT '{}'
);
CREATE INDEX IF NOT EXISTS idx_photographers_dob ON photographers (date_of_birth);
CREATE INDEX IF NOT EXISTS idx_photographers_event_types ON photographers USING GIN (event_types);
`

const columns = `id, uid, first_name, last_name, username, email, avatar, gender,
	phone_number, date_of_birth, latitude, longitude, event_types`

const upsert = `INSERT INTO photographers (` + columns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
ON CONFLICT (id) DO UPDATE SET
	uid = EXCLUDED.uid,
	first_name = EXCLUDED.first_name,
	last_name = EXCLUDED.last_name,
	username = EXCLUDED.username,
	email = EXCLUDED.email,
	avatar = EXCLUDED.avatar,
	gender = EXCLUDED.gender,
	phone_number = EXCLUDED.phone_number,
	date_of_birth = EXCLUDED.date_of_birth,
	latitude = EXCLUDED.latitude,
	longitude = EXCLUDED.longitude,
	event_types = EXCLUDED.event_types`

const insertNew = `INSERT INTO photographers (
	uid, first_name, last_name, username, email, avatar, gender,
	phone_number, date_of_birth, latitude, longitude, event_types)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
RETURNING id`

// Great-circle distance on a 6371 km sphere; the acos argument is clamped to
// absorb rounding at zero distance.
const proximity = `SELECT ` + columns + ` FROM (
	SELECT *, 6371 * acos(LEAST(1.0, GREATEST(-1.0,
		cos(radians($1)) * cos(radians(latitude)) * cos(radians(longitude) - radians($2))
		+ sin(radians($1)) * sin(radians(latitude))))) AS distance
	FROM photographers
) candidates
WHERE distance < $3
ORDER BY distance ASC, id`

// Store is a PhotographerStore over a pgx pool.
type Store struct {
	pool *pgxpool.Pool
}

// Open connects and creates the schema if needed.
func Open(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("create postgres pool: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create postgres schema: %w", err)
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	s.pool.Close()
}

func scanPhotographer(row pgx.Row) (*domain.Photographer, error) {
	var p domain.Photographer
	err := row.Scan(&p.ID, &p.UID, &p.FirstName, &p.LastName, &p.Username, &p.Email,
		&p.Avatar, &p.Gender, &p.PhoneNumber, &p.DateOfBirth, &p.Latitude, &p.Longitude, &p.EventTypes)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *Store) query(ctx context.Context, sql string, args ...any) ([]*domain.Photographer, error) {
	rows, err := s.pool.Query(ctx, sql, args...)
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

func (s *Store) FindPage(ctx context.Context, page, size int) ([]*domain.Photographer, int64, error) {
	total, err := s.Count(ctx)
	if err != nil {
		return nil, 0, err
	}
	if size <= 0 {
		return []*domain.Photographer{}, total, nil
	}
	out, err := s.query(ctx, `SELECT `+columns+` FROM photographers ORDER BY id LIMIT $1 OFFSET $2`,
		size, repository.Offset(page, size))
	return out, total, err
}

func (s *Store) FindByID(ctx context.Context, id int64) (*domain.Photographer, error) {
	p, err := scanPhotographer(s.pool.QueryRow(ctx, `SELECT `+columns+` FROM photographers WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find photographer %d: %w", id, err)
	}
	return p, nil
}

func (s *Store) FindByEventType(ctx context.Context, eventType string) ([]*domain.Photographer, error) {
	return s.query(ctx, `SELECT `+columns+` FROM photographers WHERE $1 = ANY(event_types) ORDER BY id`, eventType)
}

func (s *Store) FindOrderedByBirthDate(ctx context.Context, descending bool, limit int) ([]*domain.Photographer, error) {
	order := "ASC"
	if descending {
		order = "DESC"
	}
	sql := `SELECT ` + columns + ` FROM photographers ORDER BY date_of_birth ` + order + `, id`
	if limit > 0 {
		return s.query(ctx, sql+` LIMIT $1`, limit)
	}
	return s.query(ctx, sql)
}

func (s *Store) FindByProximity(ctx context.Context, lat, lng, radiusKm float64) ([]*domain.Photographer, error) {
	return s.query(ctx, proximity, lat, lng, radiusKm)
}

func (s *Store) Save(ctx context.Context, p *domain.Photographer) (*domain.Photographer, error) {
	saved := *p
	saved.EventTypes = eventTypes(p.EventTypes)

	if saved.ID == 0 {
		err := s.pool.QueryRow(ctx, insertNew, saved.UID, saved.FirstName, saved.LastName, saved.Username,
			saved.Email, saved.Avatar, saved.Gender, saved.PhoneNumber, saved.DateOfBirth,
			saved.Latitude, saved.Longitude, saved.EventTypes).Scan(&saved.ID)
		if err != nil {
			return nil, fmt.Errorf("insert photographer: %w", err)
		}
		return &saved, nil
	}

	if _, err := s.pool.Exec(ctx, upsert, upsertArgs(&saved)...); err != nil {
		return nil, fmt.Errorf("upsert photographer %d: %w", saved.ID, err)
	}
	if err := s.syncSequence(ctx, s.pool); err != nil {
		return nil, err
	}
	return &saved, nil
}

// SaveAll upserts every photographer in one transaction using a batch.
func (s *Store) SaveAll(ctx context.Context, photographers []*domain.Photographer) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, p := range photographers {
			if p.ID == 0 {
				return fmt.Errorf("bulk save requires ids, got photographer %q without one", p.Email)
			}
			c := *p
			c.EventTypes = eventTypes(p.EventTypes)
			batch.Queue(upsert, upsertArgs(&c)...)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("bulk upsert photographers: %w", err)
		}
		return s.syncSequence(ctx, tx)
	})
}

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// syncSequence moves the id sequence past explicitly assigned ids.
func (s *Store) syncSequence(ctx context.Context, q execer) error {
	_, err := q.Exec(ctx, `SELECT setval(pg_get_serial_sequence('photographers', 'id'),
		GREATEST((SELECT COALESCE(MAX(id), 0) FROM photographers), 1))`)
	if err != nil {
		return fmt.Errorf("sync id sequence: %w", err)
	}
	return nil
}

func (s *Store) DeleteByID(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM photographers WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete photographer %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (s *Store) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM photographers`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count photographers: %w", err)
	}
	return n, nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func upsertArgs(p *domain.Photographer) []any {
	return []any{p.ID, p.UID, p.FirstName, p.LastName, p.Username, p.Email, p.Avatar, p.Gender,
		p.PhoneNumber, p.DateOfBirth, p.Latitude, p.Longitude, p.EventTypes}
}

// eventTypes copies ts, mapping nil to an empty array so the NOT NULL column holds.
func eventTypes(ts []string) []string {
	return append([]string{}, ts...)
}

var _ repository.PhotographerStore = (*Store)(nil)
