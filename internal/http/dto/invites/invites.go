// Package invites contiene DTOs para la gestión y validación de invitaciones.
package invites

import "time"

// CreateInviteRequest representa la creación de una invitación (admin).
type CreateInviteRequest struct {
	// Email opcional: si viene, la invitación queda ligada a ese email.
	Email   string   `json:"email,omitempty"`
	Role    string   `json:"role"`
	TripIDs []string `json:"trip_ids"`
}

// InviteResponse es la representación wire de una invitación.
// Code solo se incluye en la respuesta de creación.
type InviteResponse struct {
	ID        string     `json:"id"`
	Code      string     `json:"code,omitempty"`
	Email     *string    `json:"email,omitempty"`
	Role      string     `json:"role"`
	TripIDs   []string   `json:"trip_ids"`
	Status    string     `json:"status"` // pending | used | expired
	ExpiresAt time.Time  `json:"expires_at"`
	UsedAt    *time.Time `json:"used_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// ValidateResponse es la respuesta de la validación pública de un código.
type ValidateResponse struct {
	Valid   bool     `json:"valid"`
	Role    string   `json:"role,omitempty"`
	TripIDs []string `json:"trips,omitempty"`
	Email   *string  `json:"email,omitempty"`
}
