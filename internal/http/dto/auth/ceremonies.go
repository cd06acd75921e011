// Package auth contiene DTOs para los endpoints de ceremonias WebAuthn.
package auth

import "encoding/json"

// RegisterOptionsRequest representa la solicitud de opciones de registro.
type RegisterOptionsRequest struct {
	Email       string `json:"email"`
	DisplayName string `json:"display_name,omitempty"`
	// InviteCode opcional: si viene, se valida en el paso options y se
	// consume atómicamente en el verify.
	InviteCode string `json:"invite_code,omitempty"`
}

// VerifyRequest representa el paso verify de cualquier ceremonia: el email
// del principal y la respuesta del autenticador tal como la serializa el
// cliente WebAuthn (attestation o assertion según el flujo).
type VerifyRequest struct {
	Email      string          `json:"email"`
	Credential json.RawMessage `json:"credential"`
}

// LoginOptionsRequest representa la solicitud de opciones de login.
type LoginOptionsRequest struct {
	Email string `json:"email"`
}

// SessionResponse representa la sesión emitida tras un verify exitoso.
type SessionResponse struct {
	Token     string `json:"token"`
	TokenType string `json:"token_type"` // "Bearer"
	ExpiresAt int64  `json:"expires_at"` // unix seconds
}
