package pg

import (
	"context"

	"github.com/dropDatabas3/triplog/internal/store/core"
)

const inviteCols = `id, code, created_by, email, role, expires_at, used_at, used_by, created_at`

// CreateInvite: una invitación activa por email, trips validados, inserción
// de invitación + vínculos atómica.
func (s *Store) CreateInvite(ctx context.Context, inv *core.Invite) error {
	now := s.clock.Now()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if inv.Email != nil {
		var active bool
		const chk = `
SELECT EXISTS (
  SELECT 1 FROM invites
  WHERE email = lower($1) AND used_at IS NULL AND expires_at > $2
);`
		if err := tx.QueryRow(ctx, chk, *inv.Email, now).Scan(&active); err != nil {
			return err
		}
		if active {
			return core.ErrConflict
		}
	}

	// Todos los trips vinculados deben existir antes de insertar.
	var found int
	if err := tx.QueryRow(ctx,
		`SELECT COUNT(*) FROM trips WHERE id = ANY($1);`, inv.TripIDs).Scan(&found); err != nil {
		return err
	}
	if found != len(inv.TripIDs) {
		return core.ErrNotFound
	}

	const ins = `
INSERT INTO invites (id, code, created_by, email, role, expires_at, created_at)
VALUES ($1, $2, $3, lower($4), $5, $6, $7);`
	if _, err := tx.Exec(ctx, ins, inv.ID, inv.Code, inv.CreatedBy, inv.Email, inv.Role,
		inv.ExpiresAt, now); err != nil {
		return translate(err)
	}
	for _, tripID := range inv.TripIDs {
		if _, err := tx.Exec(ctx,
			`INSERT INTO invite_trips (invite_id, trip_id) VALUES ($1, $2);`,
			inv.ID, tripID); err != nil {
			return translate(err)
		}
	}
	return tx.Commit(ctx)
}

func (s *Store) GetInviteByCode(ctx context.Context, code string) (*core.Invite, error) {
	const q = `SELECT ` + inviteCols + ` FROM invites WHERE code = $1;`
	return s.getInvite(ctx, q, code)
}

func (s *Store) GetInviteByID(ctx context.Context, id string) (*core.Invite, error) {
	const q = `SELECT ` + inviteCols + ` FROM invites WHERE id = $1;`
	return s.getInvite(ctx, q, id)
}

func (s *Store) getInvite(ctx context.Context, q, arg string) (*core.Invite, error) {
	var inv core.Invite
	err := s.pool.QueryRow(ctx, q, arg).Scan(&inv.ID, &inv.Code, &inv.CreatedBy, &inv.Email,
		&inv.Role, &inv.ExpiresAt, &inv.UsedAt, &inv.UsedBy, &inv.CreatedAt)
	if err != nil {
		return nil, translate(err)
	}

	rows, err := s.pool.Query(ctx, `SELECT trip_id FROM invite_trips WHERE invite_id = $1;`, inv.ID)
	if err != nil {
		return nil, err
	}
	inv.TripIDs, err = collectStrings(rows)
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

func (s *Store) ListInvites(ctx context.Context) ([]core.Invite, error) {
	const q = `SELECT ` + inviteCols + ` FROM invites ORDER BY created_at DESC;`
	rows, err := s.pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []core.Invite
	for rows.Next() {
		var inv core.Invite
		if err := rows.Scan(&inv.ID, &inv.Code, &inv.CreatedBy, &inv.Email, &inv.Role,
			&inv.ExpiresAt, &inv.UsedAt, &inv.UsedBy, &inv.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// N+1 aceptable: listado admin, volúmenes chicos.
	for i := range out {
		trRows, err := s.pool.Query(ctx, `SELECT trip_id FROM invite_trips WHERE invite_id = $1;`, out[i].ID)
		if err != nil {
			return nil, err
		}
		out[i].TripIDs, err = collectStrings(trRows)
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// RevokeInvite: solo una invitación todavía pendiente puede revocarse.
// Revocar la marca usada sin consumidor: desaparece de la validación pero la
// fila queda como registro de auditoría.
func (s *Store) RevokeInvite(ctx context.Context, id string) error {
	now := s.clock.Now()

	const q = `
UPDATE invites SET used_at = $2
WHERE id = $1 AND used_at IS NULL AND expires_at > $2;`
	ct, err := s.pool.Exec(ctx, q, id, now)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 1 {
		return nil
	}

	// Distinguir "no existe" de "ya no está pendiente".
	var exists bool
	if err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM invites WHERE id = $1);`, id).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return core.ErrNotFound
	}
	return core.ErrInviteNotPending
}
