package pg

import (
	"context"

	"github.com/dropDatabas3/triplog/internal/store/core"
)

func (s *Store) GetTrip(ctx context.Context, id string) (*core.Trip, error) {
	const q = `SELECT id, title, created_at FROM trips WHERE id = $1;`
	var t core.Trip
	if err := s.pool.QueryRow(ctx, q, id).Scan(&t.ID, &t.Title, &t.CreatedAt); err != nil {
		return nil, translate(err)
	}
	return &t, nil
}

func (s *Store) CreateTrip(ctx context.Context, t *core.Trip) error {
	const q = `INSERT INTO trips (id, title, created_at) VALUES ($1, $2, $3);`
	_, err := s.pool.Exec(ctx, q, t.ID, t.Title, s.clock.Now())
	return translate(err)
}
