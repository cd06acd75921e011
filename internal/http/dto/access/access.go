// Package access contiene DTOs para la gestión de grants de acceso a trips.
package access

import "time"

// CreateGrantRequest otorga acceso a un trip (admin).
type CreateGrantRequest struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
}

// UpdateGrantRequest cambia el rol de un grant existente.
type UpdateGrantRequest struct {
	Role string `json:"role"`
}

// GrantResponse es la representación wire de un grant.
type GrantResponse struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	TripID    string    `json:"trip_id"`
	Role      string    `json:"role"`
	GrantedAt time.Time `json:"granted_at"`
	GrantedBy string    `json:"granted_by"`
}
