package core

import (
	"context"
	"time"
)

// Repository es el contrato de persistencia del core de auth/RBAC.
// Implementaciones: pg (producción) y memory (tests / demos single-instance).
//
// Convenciones de error: ErrNotFound / ErrConflict / ErrLastAuthenticator /
// ErrInviteNotPending según el caso. Las violaciones de unicidad del storage
// (email duplicado, grant duplicado) SIEMPRE se traducen a ErrConflict: la
// constraint es la autoridad final frente a races de check-then-insert.
type Repository interface {
	Ping(ctx context.Context) error
	Close()

	// ------- Identities -------

	GetIdentityByEmail(ctx context.Context, email string) (*Identity, error)
	GetIdentityByID(ctx context.Context, id string) (*Identity, error)

	// RegisterIdentity crea identidad + primera passkey en una unidad atómica.
	// Dentro de la misma transacción y bajo un guard serializable decide si esta
	// es la primera identidad del sistema (→ admin). Si inviteCode != nil,
	// re-valida y consume la invitación y crea un grant por cada trip vinculado.
	// Errores: ErrConflict (email duplicado), ErrInviteNotPending (la invitación
	// se consumió o expiró entre options y verify).
	RegisterIdentity(ctx context.Context, ident *Identity, auth *Authenticator, inviteCode *string) (*Identity, error)

	// ------- Authenticators -------

	ListAuthenticators(ctx context.Context, identityID string) ([]Authenticator, error)
	GetAuthenticator(ctx context.Context, credentialID []byte) (*Authenticator, error)

	// AddAuthenticator agrega una passkey a una identidad existente
	// (add-passkey con sesión, o re-registro post-recovery).
	AddAuthenticator(ctx context.Context, a *Authenticator) error

	// DeleteAuthenticator borra una passkey. Borrar la última está prohibido:
	// retorna ErrLastAuthenticator.
	DeleteAuthenticator(ctx context.Context, identityID string, credentialID []byte) error

	// UpdateAuthenticatorUsage persiste el sign counter reportado por el
	// autenticador y el last-used tras un login exitoso.
	UpdateAuthenticatorUsage(ctx context.Context, credentialID []byte, signCount uint32, usedAt time.Time) error

	// ------- Recovery tokens -------

	// CreateRecoveryToken inserta un token nuevo invalidando cualquier otro
	// token activo de la misma identidad (a lo sumo uno activo).
	CreateRecoveryToken(ctx context.Context, t *RecoveryToken) error

	// GetLatestRecoveryToken retorna el token sin usar y sin expirar más
	// reciente de la identidad (puede estar bloqueado; el caller decide).
	GetLatestRecoveryToken(ctx context.Context, identityID string) (*RecoveryToken, error)

	// FailRecoveryAttempt incrementa el contador de intentos de forma atómica
	// y bloquea el token al llegar a maxAttempts. Retorna el contador nuevo y
	// si quedó bloqueado.
	FailRecoveryAttempt(ctx context.Context, tokenID string, maxAttempts int) (attempts int, locked bool, err error)

	// ClaimRecoveryToken marca el token como usado y borra TODAS las passkeys
	// de la identidad en una transacción. El claim es condicional: exactamente
	// un caller concurrente gana; el resto recibe ErrConflict.
	ClaimRecoveryToken(ctx context.Context, tokenID string) error

	// ------- Invites -------

	// CreateInvite persiste invitación + vínculos a trips de forma atómica.
	// ErrConflict si ya existe una invitación activa para el mismo email;
	// ErrNotFound si algún trip vinculado no existe.
	CreateInvite(ctx context.Context, inv *Invite) error
	GetInviteByCode(ctx context.Context, code string) (*Invite, error)
	GetInviteByID(ctx context.Context, id string) (*Invite, error)
	ListInvites(ctx context.Context) ([]Invite, error)

	// RevokeInvite marca como usada (sin consumidor) una invitación todavía
	// pendiente. ErrInviteNotPending si ya fue usada/expiró, ErrNotFound si no existe.
	RevokeInvite(ctx context.Context, id string) error

	// ------- Trip access grants -------

	CreateGrant(ctx context.Context, g *TripAccessGrant) error
	GetGrant(ctx context.Context, id string) (*TripAccessGrant, error)
	GetGrantForTrip(ctx context.Context, userID, tripID string) (*TripAccessGrant, error)
	ListGrantsByTrip(ctx context.Context, tripID string) ([]TripAccessGrant, error)
	ListGrantsByUser(ctx context.Context, userID string) ([]TripAccessGrant, error)
	UpdateGrantRole(ctx context.Context, id string, role Role) error
	DeleteGrant(ctx context.Context, id string) error

	// ------- Trips (solo lectura + alta mínima; el CRUD completo vive fuera) -------

	GetTrip(ctx context.Context, id string) (*Trip, error)
	CreateTrip(ctx context.Context, t *Trip) error
}
