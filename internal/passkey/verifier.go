package passkey

import (
	"encoding/json"
	"fmt"

	"github.com/go-webauthn/webauthn/protocol"
	"github.com/go-webauthn/webauthn/webauthn"

	"github.com/dropDatabas3/triplog/internal/store/core"
)

// Verifier es la fachada sobre go-webauthn. Función pura de
// (challenge guardado, respuesta del cliente, config del RP) → credencial
// verificada o fallo estructurado.
type Verifier struct {
	wa  *webauthn.WebAuthn
	cfg Config
}

// NewVerifier valida la config y construye el verificador.
// Config inválida = condición fatal de arranque.
func NewVerifier(cfg Config) (*Verifier, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	wa, err := webauthn.New(cfg.toWebAuthnConfig())
	if err != nil {
		return nil, fmt.Errorf("passkey: webauthn init: %w", err)
	}
	return &Verifier{wa: wa, cfg: cfg}, nil
}

// Ceremony es el resultado del paso options: las opciones públicas para el
// cliente y el session data que hay que guardar en el challenge store.
type Ceremony struct {
	// Options es *protocol.CredentialCreation o *protocol.CredentialAssertion.
	Options any
	// Session es el webauthn.SessionData serializado (va al challenge store).
	Session json.RawMessage
}

// BeginRegistration arma las opciones de registro para el handle/email dados.
// exclude evita re-registrar passkeys ya conocidas de la identidad.
func (v *Verifier) BeginRegistration(handle []byte, email, displayName string, exclude []core.Authenticator) (*Ceremony, error) {
	user := newCeremonyUser(handle, email, displayName, exclude)

	excludeList := make([]protocol.CredentialDescriptor, 0, len(exclude))
	for _, a := range exclude {
		excludeList = append(excludeList, protocol.CredentialDescriptor{
			Type:         protocol.PublicKeyCredentialType,
			CredentialID: a.CredentialID,
		})
	}

	options, session, err := v.wa.BeginRegistration(user, webauthn.WithExclusions(excludeList))
	if err != nil {
		return nil, fmt.Errorf("passkey: begin registration: %w", err)
	}
	raw, err := json.Marshal(session)
	if err != nil {
		return nil, err
	}
	return &Ceremony{Options: options, Session: raw}, nil
}

// FinishRegistration valida la respuesta de attestation contra el session data
// guardado. Devuelve la credencial verificada (id, public key, sign counter).
func (v *Verifier) FinishRegistration(handle []byte, email, displayName string, session json.RawMessage, response *protocol.ParsedCredentialCreationData) (*core.Authenticator, error) {
	var sd webauthn.SessionData
	if err := json.Unmarshal(session, &sd); err != nil {
		return nil, fmt.Errorf("passkey: session decode: %w", err)
	}
	user := newCeremonyUser(handle, email, displayName, nil)

	cred, err := v.wa.CreateCredential(user, sd, response)
	if err != nil {
		return nil, fmt.Errorf("passkey: create credential: %w", err)
	}
	a := fromWebAuthnCredential(cred)
	return &a, nil
}

// BeginLogin arma las opciones de assertion listando las credenciales
// permitidas de la identidad.
func (v *Verifier) BeginLogin(handle []byte, email, displayName string, allowed []core.Authenticator) (*Ceremony, error) {
	user := newCeremonyUser(handle, email, displayName, allowed)

	options, session, err := v.wa.BeginLogin(user)
	if err != nil {
		return nil, fmt.Errorf("passkey: begin login: %w", err)
	}
	raw, err := json.Marshal(session)
	if err != nil {
		return nil, err
	}
	return &Ceremony{Options: options, Session: raw}, nil
}

// FinishLogin valida la assertion: firma contra la public key guardada, echo
// del challenge, origin y flags de presencia. Devuelve la credencial con el
// sign counter nuevo reportado por el autenticador y si la librería detectó
// un posible clone (counter que no avanza).
func (v *Verifier) FinishLogin(handle []byte, email, displayName string, allowed []core.Authenticator, session json.RawMessage, response *protocol.ParsedCredentialAssertionData) (cred *core.Authenticator, cloneWarning bool, err error) {
	var sd webauthn.SessionData
	if err := json.Unmarshal(session, &sd); err != nil {
		return nil, false, fmt.Errorf("passkey: session decode: %w", err)
	}
	user := newCeremonyUser(handle, email, displayName, allowed)

	validated, err := v.wa.ValidateLogin(user, sd, response)
	if err != nil {
		return nil, false, fmt.Errorf("passkey: validate login: %w", err)
	}
	a := fromWebAuthnCredential(validated)
	return &a, validated.Authenticator.CloneWarning, nil
}
