package pg

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/dropDatabas3/triplog/internal/store/core"
)

// CreateRecoveryToken inserta el token nuevo invalidando cualquier otro activo
// de la misma identidad, en una transacción (a lo sumo un token activo).
func (s *Store) CreateRecoveryToken(ctx context.Context, t *core.RecoveryToken) error {
	now := s.clock.Now()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`UPDATE recovery_tokens SET used_at = $2 WHERE identity_id = $1 AND used_at IS NULL;`,
		t.IdentityID, now); err != nil {
		return err
	}

	const ins = `
INSERT INTO recovery_tokens (id, identity_id, code_hash, expires_at, attempts, created_at)
VALUES ($1, $2, $3, $4, 0, $5);`
	if _, err := tx.Exec(ctx, ins, t.ID, t.IdentityID, t.CodeHash, t.ExpiresAt, now); err != nil {
		return translate(err)
	}
	return tx.Commit(ctx)
}

// GetLatestRecoveryToken: el token sin usar y sin expirar más reciente.
// Puede venir bloqueado; el service decide qué contestar en ese caso.
func (s *Store) GetLatestRecoveryToken(ctx context.Context, identityID string) (*core.RecoveryToken, error) {
	const q = `
SELECT id, identity_id, code_hash, expires_at, attempts, locked_at, used_at, created_at
FROM recovery_tokens
WHERE identity_id = $1 AND used_at IS NULL AND expires_at > $2
ORDER BY created_at DESC
LIMIT 1;`
	var t core.RecoveryToken
	err := s.pool.QueryRow(ctx, q, identityID, s.clock.Now()).Scan(
		&t.ID, &t.IdentityID, &t.CodeHash, &t.ExpiresAt, &t.Attempts, &t.LockedAt, &t.UsedAt, &t.CreatedAt)
	if err != nil {
		return nil, translate(err)
	}
	return &t, nil
}

// FailRecoveryAttempt: incremento atómico; al llegar a maxAttempts el mismo
// UPDATE deja el token bloqueado. Dos verifies concurrentes nunca pierden un
// incremento.
func (s *Store) FailRecoveryAttempt(ctx context.Context, tokenID string, maxAttempts int) (int, bool, error) {
	const q = `
UPDATE recovery_tokens
SET attempts = attempts + 1,
    locked_at = CASE WHEN attempts + 1 >= $2 AND locked_at IS NULL THEN $3 ELSE locked_at END
WHERE id = $1 AND used_at IS NULL
RETURNING attempts, locked_at IS NOT NULL;`
	var attempts int
	var locked bool
	err := s.pool.QueryRow(ctx, q, tokenID, maxAttempts, s.clock.Now()).Scan(&attempts, &locked)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, core.ErrNotFound
		}
		return 0, false, err
	}
	return attempts, locked, nil
}

// ClaimRecoveryToken: claim condicional + borrado de TODAS las passkeys de la
// identidad en una transacción. Exactamente un caller concurrente gana el
// claim; el resto recibe ErrConflict.
func (s *Store) ClaimRecoveryToken(ctx context.Context, tokenID string) error {
	now := s.clock.Now()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	const claim = `
UPDATE recovery_tokens
SET used_at = $2
WHERE id = $1 AND used_at IS NULL AND locked_at IS NULL AND expires_at > $2
RETURNING identity_id;`
	var identityID string
	if err := tx.QueryRow(ctx, claim, tokenID, now).Scan(&identityID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return core.ErrConflict
		}
		return err
	}

	// Fuerza re-registro de passkey: la identidad queda transitoriamente sin
	// autenticadores y el login bloqueado hasta completar el re-registro.
	if _, err := tx.Exec(ctx, `DELETE FROM authenticators WHERE identity_id = $1;`, identityID); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
