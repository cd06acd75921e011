package core

import "errors"

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")
	ErrInvalid  = errors.New("invalid")

	// ErrLastAuthenticator indica que se intentó borrar la última passkey de una
	// identidad. Quedarse sin passkeys bloquea el login, así que se rechaza.
	ErrLastAuthenticator = errors.New("last authenticator")

	// ErrInviteNotPending indica que la invitación ya fue usada, revocada o expiró.
	ErrInviteNotPending = errors.New("invite not pending")

	// ErrAdminGrant indica un intento de otorgar acceso por-trip a un admin.
	// Los admins tienen acceso implícito total y no deben aparecer en la tabla.
	ErrAdminGrant = errors.New("grant to admin identity")
)
