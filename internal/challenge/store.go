// Package challenge guarda los challenges WebAuthn pendientes entre el paso
// options y el paso verify de cada ceremonia.
//
// Semántica: a lo sumo un challenge vivo por email; Put pisa al anterior.
// Los challenges son single-use: el caller debe llamar Clear después de
// consumirlo, falle o no la verificación. Un sweep periódico elimina los
// expirados para acotar memoria.
//
// Restricción arquitectural: el backend memory es process-local. Para correr
// más de una instancia hay que usar el backend redis (o un balanceo sticky);
// no es un bug del store sino un límite documentado del deployment simple.
package challenge

import (
	"context"
	"encoding/json"
	"strings"
	"time"
)

// DefaultTTL es la ventana en la que un challenge puede verificarse.
const DefaultTTL = 5 * time.Minute

// Entry es el estado transitorio de una ceremonia WebAuthn pendiente.
type Entry struct {
	// SessionData es el webauthn.SessionData serializado que necesita la
	// librería para validar la respuesta del cliente.
	SessionData json.RawMessage `json:"session_data"`

	// PendingHandle es el user handle minteado para un registro nuevo.
	PendingHandle []byte `json:"pending_handle,omitempty"`

	// IdentityID vincula el challenge a una identidad existente
	// (flujos de recovery re-registro y add-passkey).
	IdentityID string `json:"identity_id,omitempty"`

	// DisplayName acompaña a un registro nuevo hasta el commit.
	DisplayName string `json:"display_name,omitempty"`

	// InviteCode es un código de invitación ya validado en el paso options,
	// que se consumirá atómicamente en el verify.
	InviteCode string `json:"invite_code,omitempty"`

	ExpiresAt time.Time `json:"expires_at"`
}

// Store es el contrato del challenge store. Keyed por email lower-case.
type Store interface {
	// Put guarda el entry pisando cualquier challenge anterior del mismo email.
	Put(ctx context.Context, email string, e Entry) error

	// Take retorna el entry solo si no expiró. NO lo borra: el caller es
	// responsable de Clear tras consumirlo (éxito o fallo).
	Take(ctx context.Context, email string) (*Entry, bool)

	// Clear elimina el challenge del email, si existe.
	Clear(ctx context.Context, email string) error
}

// Key normaliza el principal: email en minúsculas y sin espacios.
func Key(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
