package pg

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/dropDatabas3/triplog/internal/store/core"
)

// firstAdminLockKey serializa la decisión "¿es la primera identidad?".
// Un check-then-insert naive permitiría dos admins bajo registros concurrentes.
const firstAdminLockKey = int64(0x7472_6970_6c6f_67) // "triplog"

const identityCols = `id, email, webauthn_handle, display_name, is_admin, created_at, updated_at`

func scanIdentity(row pgx.Row) (*core.Identity, error) {
	var ident core.Identity
	err := row.Scan(&ident.ID, &ident.Email, &ident.WebAuthnHandle, &ident.DisplayName,
		&ident.IsAdmin, &ident.CreatedAt, &ident.UpdatedAt)
	if err != nil {
		return nil, translate(err)
	}
	return &ident, nil
}

func (s *Store) GetIdentityByEmail(ctx context.Context, email string) (*core.Identity, error) {
	const q = `SELECT ` + identityCols + ` FROM identities WHERE email = lower($1);`
	return scanIdentity(s.pool.QueryRow(ctx, q, email))
}

func (s *Store) GetIdentityByID(ctx context.Context, id string) (*core.Identity, error) {
	const q = `SELECT ` + identityCols + ` FROM identities WHERE id = $1;`
	return scanIdentity(s.pool.QueryRow(ctx, q, id))
}

// RegisterIdentity: ver contrato en core.Repository. Todo dentro de una
// transacción: guard del primer admin, alta de identidad + passkey y, si
// corresponde, consumo de invitación + grants.
func (s *Store) RegisterIdentity(ctx context.Context, ident *core.Identity, auth *core.Authenticator, inviteCode *string) (*core.Identity, error) {
	now := s.clock.Now()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	// Serializa contra otros registros concurrentes: exactamente una
	// transacción puede decidir ser "la primera". El lock se libera al commit.
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1);`, firstAdminLockKey); err != nil {
		return nil, err
	}

	var hasIdentities bool
	if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM identities);`).Scan(&hasIdentities); err != nil {
		return nil, err
	}
	isAdmin := !hasIdentities

	const insIdentity = `
INSERT INTO identities (id, email, webauthn_handle, display_name, is_admin, created_at, updated_at)
VALUES ($1, lower($2), $3, $4, $5, $6, $6);`
	if _, err := tx.Exec(ctx, insIdentity,
		ident.ID, ident.Email, ident.WebAuthnHandle, ident.DisplayName, isAdmin, now); err != nil {
		// Email duplicado (race de dos registros simultáneos): la unique
		// constraint es el backstop final.
		return nil, translate(err)
	}

	if err := insertAuthenticator(ctx, tx, auth, now); err != nil {
		return nil, translate(err)
	}

	if inviteCode != nil && *inviteCode != "" {
		if err := s.consumeInvite(ctx, tx, *inviteCode, ident.ID, isAdmin, now); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, translate(err)
	}

	out := *ident
	out.IsAdmin = isAdmin
	out.CreatedAt = now
	out.UpdatedAt = now
	return &out, nil
}

// consumeInvite re-valida y consume la invitación dentro de la transacción de
// registro (pudo haberse usado, revocado o expirado entre options y verify) y
// crea un grant por cada trip vinculado con el rol de la invitación.
func (s *Store) consumeInvite(ctx context.Context, tx pgx.Tx, code, identityID string, isAdmin bool, now time.Time) error {
	const claim = `
UPDATE invites
SET used_at = $2, used_by = $3
WHERE code = $1 AND used_at IS NULL AND expires_at > $2
RETURNING id, role, created_by;`

	var inviteID, createdBy string
	var role core.Role
	if err := tx.QueryRow(ctx, claim, code, now, identityID).Scan(&inviteID, &role, &createdBy); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return core.ErrInviteNotPending
		}
		return err
	}

	// El primer usuario queda admin: acceso implícito total, no debe aparecer
	// en la tabla de grants aunque haya entrado con invitación.
	if isAdmin {
		return nil
	}

	rows, err := tx.Query(ctx, `SELECT trip_id FROM invite_trips WHERE invite_id = $1;`, inviteID)
	if err != nil {
		return err
	}
	tripIDs, err := collectStrings(rows)
	if err != nil {
		return err
	}

	const insGrant = `
INSERT INTO trip_access (id, user_id, trip_id, role, granted_at, granted_by)
VALUES ($1, $2, $3, $4, $5, $6);`
	for _, tripID := range tripIDs {
		if _, err := tx.Exec(ctx, insGrant, uuid.NewString(), identityID, tripID, role, now, createdBy); err != nil {
			return translate(err)
		}
	}
	return nil
}

func collectStrings(rows pgx.Rows) ([]string, error) {
	defer rows.Close()
	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
