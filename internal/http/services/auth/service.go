// Package auth implementa los servicios de las ceremonias WebAuthn:
// registro, login y gestión de passkeys de la sesión actual.
package auth

import (
	"bytes"
	"context"
	"errors"
	"time"

	"github.com/go-webauthn/webauthn/protocol"

	"github.com/dropDatabas3/triplog/internal/challenge"
	dto "github.com/dropDatabas3/triplog/internal/http/dto/auth"
	"github.com/dropDatabas3/triplog/internal/passkey"
	"github.com/dropDatabas3/triplog/internal/session"
	"github.com/dropDatabas3/triplog/internal/store/core"
)

// Errores del servicio. ErrAuthFailed es deliberadamente único para todos los
// modos de fallo de una ceremonia: cuenta inexistente, challenge vencido,
// firma inválida y credencial desconocida son indistinguibles desde afuera.
var (
	ErrAuthFailed      = errors.New("auth: authentication failed")
	ErrMissingFields   = errors.New("auth: missing required fields")
	ErrAccountExists   = errors.New("auth: account already has passkeys")
	ErrInviteInvalid   = errors.New("auth: invite invalid or expired")
	ErrLastPasskey     = errors.New("auth: cannot delete the last passkey")
	ErrPasskeyNotFound = errors.New("auth: passkey not found")
)

// Service agrupa las operaciones de autenticación.
type Service interface {
	RegisterOptions(ctx context.Context, in dto.RegisterOptionsRequest) (*passkey.Ceremony, error)
	RegisterVerify(ctx context.Context, in dto.VerifyRequest) (*dto.SessionResponse, error)

	LoginOptions(ctx context.Context, in dto.LoginOptionsRequest) (*passkey.Ceremony, error)
	LoginVerify(ctx context.Context, in dto.VerifyRequest) (*dto.SessionResponse, error)

	AddPasskeyOptions(ctx context.Context, claims *session.Claims) (*passkey.Ceremony, error)
	AddPasskeyVerify(ctx context.Context, claims *session.Claims, in dto.VerifyRequest) error

	ListPasskeys(ctx context.Context, claims *session.Claims) ([]dto.PasskeyResponse, error)
	DeletePasskey(ctx context.Context, claims *session.Claims, credentialID string) error
	Me(ctx context.Context, claims *session.Claims) (*dto.MeResponse, error)
}

// Deps contiene las dependencias del servicio de auth.
type Deps struct {
	Repo       core.Repository
	Challenges challenge.Store
	Verifier   *passkey.Verifier
	Sessions   *session.Issuer
	Clock      core.Clock

	// ChallengeTTL de los challenges emitidos (default challenge.DefaultTTL).
	ChallengeTTL time.Duration
}

type service struct {
	deps Deps
}

// NewService crea el servicio de auth.
func NewService(deps Deps) Service {
	if deps.Clock == nil {
		deps.Clock = core.RealClock{}
	}
	if deps.ChallengeTTL <= 0 {
		deps.ChallengeTTL = challenge.DefaultTTL
	}
	return &service{deps: deps}
}

// parseAttestation decodifica la respuesta de attestation del cliente.
func parseAttestation(raw []byte) (*protocol.ParsedCredentialCreationData, error) {
	return protocol.ParseCredentialCreationResponseBody(bytes.NewReader(raw))
}

// parseAssertion decodifica la respuesta de assertion del cliente.
func parseAssertion(raw []byte) (*protocol.ParsedCredentialAssertionData, error) {
	return protocol.ParseCredentialRequestResponseBody(bytes.NewReader(raw))
}
