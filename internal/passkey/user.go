package passkey

import (
	"github.com/go-webauthn/webauthn/protocol"
	"github.com/go-webauthn/webauthn/webauthn"

	"github.com/dropDatabas3/triplog/internal/store/core"
)

// ceremonyUser adapta (handle, email, passkeys) a la interfaz webauthn.User.
// Es un snapshot efímero por ceremonia, no el modelo de identidad.
type ceremonyUser struct {
	handle      []byte
	email       string
	displayName string
	creds       []webauthn.Credential
}

func newCeremonyUser(handle []byte, email, displayName string, auths []core.Authenticator) *ceremonyUser {
	if displayName == "" {
		displayName = email
	}
	creds := make([]webauthn.Credential, 0, len(auths))
	for _, a := range auths {
		creds = append(creds, toWebAuthnCredential(a))
	}
	return &ceremonyUser{handle: handle, email: email, displayName: displayName, creds: creds}
}

func (u *ceremonyUser) WebAuthnID() []byte                         { return u.handle }
func (u *ceremonyUser) WebAuthnName() string                       { return u.email }
func (u *ceremonyUser) WebAuthnDisplayName() string                { return u.displayName }
func (u *ceremonyUser) WebAuthnCredentials() []webauthn.Credential { return u.creds }

func toWebAuthnCredential(a core.Authenticator) webauthn.Credential {
	transports := make([]protocol.AuthenticatorTransport, 0, len(a.Transports))
	for _, t := range a.Transports {
		transports = append(transports, protocol.AuthenticatorTransport(t))
	}
	return webauthn.Credential{
		ID:              a.CredentialID,
		PublicKey:       a.PublicKey,
		AttestationType: a.AttestationType,
		Transport:       transports,
		Flags: webauthn.CredentialFlags{
			BackupEligible: a.BackupEligible,
			BackupState:    a.BackupState,
		},
		Authenticator: webauthn.Authenticator{
			SignCount: a.SignCount,
		},
	}
}

// fromWebAuthnCredential mapea la credencial verificada por la librería al
// modelo de storage. IdentityID y timestamps los completa el caller.
func fromWebAuthnCredential(c *webauthn.Credential) core.Authenticator {
	transports := make([]string, 0, len(c.Transport))
	for _, t := range c.Transport {
		transports = append(transports, string(t))
	}
	return core.Authenticator{
		CredentialID:    c.ID,
		PublicKey:       c.PublicKey,
		AttestationType: c.AttestationType,
		Transports:      transports,
		SignCount:       c.Authenticator.SignCount,
		BackupEligible:  c.Flags.BackupEligible,
		BackupState:     c.Flags.BackupState,
	}
}
