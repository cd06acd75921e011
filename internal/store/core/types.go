package core

import "time"

// Role es el rol de acceso a un trip.
type Role string

const (
	RoleEditor Role = "editor"
	RoleViewer Role = "viewer"
)

// Valid reporta si el rol es uno de los conocidos.
func (r Role) Valid() bool {
	return r == RoleEditor || r == RoleViewer
}

// Identity es la identidad canónica de un usuario. Una por email (case-insensitive).
// WebAuthnHandle se genera una sola vez y nunca cambia, ni siquiera tras recovery.
type Identity struct {
	ID             string
	Email          string
	WebAuthnHandle []byte
	DisplayName    *string
	IsAdmin        bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Authenticator es una passkey WebAuthn registrada para una identidad.
type Authenticator struct {
	CredentialID    []byte
	IdentityID      string
	PublicKey       []byte
	AttestationType string
	Transports      []string
	SignCount       uint32
	BackupEligible  bool
	BackupState     bool
	CreatedAt       time.Time
	LastUsedAt      *time.Time
}

// RecoveryToken es un código de recuperación one-time enviado por canal externo.
// Solo se persiste el hash del código. A lo sumo un token activo por identidad.
type RecoveryToken struct {
	ID         string
	IdentityID string
	CodeHash   string
	ExpiresAt  time.Time
	Attempts   int
	LockedAt   *time.Time
	UsedAt     *time.Time
	CreatedAt  time.Time
}

// Active reporta si el token sigue siendo utilizable en el instante now.
func (t *RecoveryToken) Active(now time.Time) bool {
	return t.UsedAt == nil && t.LockedAt == nil && now.Before(t.ExpiresAt)
}

// Invite es un código de invitación emitido por un admin. Consumirlo durante el
// registro otorga acceso a los trips vinculados con el rol indicado.
type Invite struct {
	ID        string
	Code      string
	CreatedBy string
	Email     *string
	Role      Role
	ExpiresAt time.Time
	UsedAt    *time.Time
	UsedBy    *string
	CreatedAt time.Time

	// TripIDs son los trips vinculados (join invite_trips).
	TripIDs []string
}

// Pending reporta si la invitación todavía puede consumirse.
func (i *Invite) Pending(now time.Time) bool {
	return i.UsedAt == nil && now.Before(i.ExpiresAt)
}

// TripAccessGrant vincula una identidad no-admin con un trip y un rol.
// Único por par (user, trip). Los admins nunca aparecen en esta tabla.
type TripAccessGrant struct {
	ID        string
	UserID    string
	TripID    string
	Role      Role
	GrantedAt time.Time
	GrantedBy string
}

// Trip es la referencia mínima a un trip. El CRUD de trips vive fuera de este core;
// acá solo se necesita para validar vínculos de invitaciones y el gate de acceso.
type Trip struct {
	ID        string
	Title     string
	CreatedAt time.Time
}
