package pg

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/dropDatabas3/triplog/internal/store/core"
)

const grantCols = `id, user_id, trip_id, role, granted_at, granted_by`

func scanGrant(row pgx.Row) (*core.TripAccessGrant, error) {
	var g core.TripAccessGrant
	err := row.Scan(&g.ID, &g.UserID, &g.TripID, &g.Role, &g.GrantedAt, &g.GrantedBy)
	if err != nil {
		return nil, translate(err)
	}
	return &g, nil
}

// CreateGrant: la unique constraint (user_id, trip_id) convierte el segundo
// grant del mismo par en ErrConflict, nunca en un overwrite silencioso.
func (s *Store) CreateGrant(ctx context.Context, g *core.TripAccessGrant) error {
	const q = `
INSERT INTO trip_access (id, user_id, trip_id, role, granted_at, granted_by)
VALUES ($1, $2, $3, $4, $5, $6);`
	_, err := s.pool.Exec(ctx, q, g.ID, g.UserID, g.TripID, g.Role, s.clock.Now(), g.GrantedBy)
	return translate(err)
}

func (s *Store) GetGrant(ctx context.Context, id string) (*core.TripAccessGrant, error) {
	const q = `SELECT ` + grantCols + ` FROM trip_access WHERE id = $1;`
	return scanGrant(s.pool.QueryRow(ctx, q, id))
}

func (s *Store) GetGrantForTrip(ctx context.Context, userID, tripID string) (*core.TripAccessGrant, error) {
	const q = `SELECT ` + grantCols + ` FROM trip_access WHERE user_id = $1 AND trip_id = $2;`
	return scanGrant(s.pool.QueryRow(ctx, q, userID, tripID))
}

func (s *Store) ListGrantsByTrip(ctx context.Context, tripID string) ([]core.TripAccessGrant, error) {
	const q = `SELECT ` + grantCols + ` FROM trip_access WHERE trip_id = $1 ORDER BY granted_at;`
	return s.listGrants(ctx, q, tripID)
}

func (s *Store) ListGrantsByUser(ctx context.Context, userID string) ([]core.TripAccessGrant, error) {
	const q = `SELECT ` + grantCols + ` FROM trip_access WHERE user_id = $1 ORDER BY granted_at;`
	return s.listGrants(ctx, q, userID)
}

func (s *Store) listGrants(ctx context.Context, q, arg string) ([]core.TripAccessGrant, error) {
	rows, err := s.pool.Query(ctx, q, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []core.TripAccessGrant
	for rows.Next() {
		var g core.TripAccessGrant
		if err := rows.Scan(&g.ID, &g.UserID, &g.TripID, &g.Role, &g.GrantedAt, &g.GrantedBy); err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func (s *Store) UpdateGrantRole(ctx context.Context, id string, role core.Role) error {
	ct, err := s.pool.Exec(ctx, `UPDATE trip_access SET role = $2 WHERE id = $1;`, id, role)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (s *Store) DeleteGrant(ctx context.Context, id string) error {
	ct, err := s.pool.Exec(ctx, `DELETE FROM trip_access WHERE id = $1;`, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return core.ErrNotFound
	}
	return nil
}
