package pg

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/dropDatabas3/triplog/internal/store/core"
)

const authCols = `credential_id, identity_id, public_key, attestation_type, transports,
sign_count, backup_eligible, backup_state, created_at, last_used_at`

func scanAuthenticator(row pgx.Row) (*core.Authenticator, error) {
	var a core.Authenticator
	err := row.Scan(&a.CredentialID, &a.IdentityID, &a.PublicKey, &a.AttestationType,
		&a.Transports, &a.SignCount, &a.BackupEligible, &a.BackupState, &a.CreatedAt, &a.LastUsedAt)
	if err != nil {
		return nil, translate(err)
	}
	return &a, nil
}

func (s *Store) ListAuthenticators(ctx context.Context, identityID string) ([]core.Authenticator, error) {
	const q = `SELECT ` + authCols + ` FROM authenticators WHERE identity_id = $1 ORDER BY created_at;`
	rows, err := s.pool.Query(ctx, q, identityID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []core.Authenticator
	for rows.Next() {
		var a core.Authenticator
		if err := rows.Scan(&a.CredentialID, &a.IdentityID, &a.PublicKey, &a.AttestationType,
			&a.Transports, &a.SignCount, &a.BackupEligible, &a.BackupState, &a.CreatedAt, &a.LastUsedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *Store) GetAuthenticator(ctx context.Context, credentialID []byte) (*core.Authenticator, error) {
	const q = `SELECT ` + authCols + ` FROM authenticators WHERE credential_id = $1;`
	return scanAuthenticator(s.pool.QueryRow(ctx, q, credentialID))
}

func (s *Store) AddAuthenticator(ctx context.Context, a *core.Authenticator) error {
	return translate(insertAuthenticator(ctx, s.pool, a, s.clock.Now()))
}

// execer cubre pool y tx para los inserts compartidos.
type execer interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

func insertAuthenticator(ctx context.Context, db execer, a *core.Authenticator, now time.Time) error {
	const q = `
INSERT INTO authenticators
  (credential_id, identity_id, public_key, attestation_type, transports,
   sign_count, backup_eligible, backup_state, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9);`
	_, err := db.Exec(ctx, q, a.CredentialID, a.IdentityID, a.PublicKey, a.AttestationType,
		a.Transports, a.SignCount, a.BackupEligible, a.BackupState, now)
	return err
}

// DeleteAuthenticator: prohibido borrar la última passkey de una identidad.
// El SELECT FOR UPDATE serializa dos deletes concurrentes de la misma identidad.
func (s *Store) DeleteAuthenticator(ctx context.Context, identityID string, credentialID []byte) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	rows, err := tx.Query(ctx,
		`SELECT credential_id FROM authenticators WHERE identity_id = $1 FOR UPDATE;`, identityID)
	if err != nil {
		return err
	}
	var total int
	var found bool
	for rows.Next() {
		var id []byte
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return err
		}
		total++
		if string(id) == string(credentialID) {
			found = true
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	if !found {
		return core.ErrNotFound
	}
	if total <= 1 {
		return core.ErrLastAuthenticator
	}

	if _, err := tx.Exec(ctx,
		`DELETE FROM authenticators WHERE identity_id = $1 AND credential_id = $2;`,
		identityID, credentialID); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *Store) UpdateAuthenticatorUsage(ctx context.Context, credentialID []byte, signCount uint32, usedAt time.Time) error {
	const q = `UPDATE authenticators SET sign_count = $2, last_used_at = $3 WHERE credential_id = $1;`
	ct, err := s.pool.Exec(ctx, q, credentialID, signCount, usedAt)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return core.ErrNotFound
	}
	return nil
}
