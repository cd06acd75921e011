package auth

import "time"

// PasskeyResponse es la representación wire de un autenticador registrado.
// El credential id viaja en base64url; la public key nunca se expone.
type PasskeyResponse struct {
	CredentialID string     `json:"credential_id"`
	Transports   []string   `json:"transports,omitempty"`
	BackupState  bool       `json:"backup_state"`
	CreatedAt    time.Time  `json:"created_at"`
	LastUsedAt   *time.Time `json:"last_used_at,omitempty"`
}

// MeResponse es la identidad de la sesión actual.
type MeResponse struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	DisplayName *string   `json:"display_name,omitempty"`
	IsAdmin     bool      `json:"is_admin"`
	CreatedAt   time.Time `json:"created_at"`
}
