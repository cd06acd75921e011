package auth

import (
	"context"
	"crypto/rand"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/dropDatabas3/triplog/internal/challenge"
	dto "github.com/dropDatabas3/triplog/internal/http/dto/auth"
	"github.com/dropDatabas3/triplog/internal/metrics"
	"github.com/dropDatabas3/triplog/internal/observability/logger"
	"github.com/dropDatabas3/triplog/internal/passkey"
	"github.com/dropDatabas3/triplog/internal/store/core"
)

// handleLen es el largo del user handle WebAuthn (bytes aleatorios, inmutable).
const handleLen = 32

func newHandle() ([]byte, error) {
	h := make([]byte, handleLen)
	if _, err := rand.Read(h); err != nil {
		return nil, err
	}
	return h, nil
}

// RegisterOptions arma el challenge de registro para un email.
//
// Tres salidas posibles según el estado de la cuenta:
//   - no existe → handle nuevo, registro de identidad nueva
//   - existe sin passkeys → re-registro post-recovery con el handle original
//   - existe con passkeys → rechazo: tiene que loguearse, no pisar credenciales
func (s *service) RegisterOptions(ctx context.Context, in dto.RegisterOptionsRequest) (*passkey.Ceremony, error) {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("auth.register"),
		logger.Op("RegisterOptions"),
	)

	email := challenge.Key(in.Email)
	if email == "" || !strings.Contains(email, "@") {
		return nil, ErrMissingFields
	}
	now := s.deps.Clock.Now()

	// La invitación se valida acá y se consume recién en el verify.
	inviteCode := strings.TrimSpace(in.InviteCode)
	if inviteCode != "" {
		inv, err := s.deps.Repo.GetInviteByCode(ctx, inviteCode)
		if err != nil || !inv.Pending(now) {
			return nil, ErrInviteInvalid
		}
		if inv.Email != nil && *inv.Email != email {
			return nil, ErrInviteInvalid
		}
	}

	entry := challenge.Entry{
		InviteCode:  inviteCode,
		DisplayName: strings.TrimSpace(in.DisplayName),
		ExpiresAt:   now.Add(s.deps.ChallengeTTL),
	}

	ident, err := s.deps.Repo.GetIdentityByEmail(ctx, email)
	switch {
	case err == nil:
		auths, err := s.deps.Repo.ListAuthenticators(ctx, ident.ID)
		if err != nil {
			return nil, err
		}
		if len(auths) > 0 {
			log.Debug("registration for account with passkeys rejected")
			return nil, ErrAccountExists
		}
		// Re-registro: el handle original se reusa, nunca se regenera.
		entry.IdentityID = ident.ID
		entry.PendingHandle = ident.WebAuthnHandle
	case errors.Is(err, core.ErrNotFound):
		handle, err := newHandle()
		if err != nil {
			return nil, err
		}
		entry.PendingHandle = handle
	default:
		return nil, err
	}

	cer, err := s.deps.Verifier.BeginRegistration(entry.PendingHandle, email, entry.DisplayName, nil)
	if err != nil {
		return nil, err
	}
	entry.SessionData = cer.Session

	if err := s.deps.Challenges.Put(ctx, email, entry); err != nil {
		return nil, err
	}
	return cer, nil
}

// RegisterVerify valida la attestation y commitea el registro.
// El challenge se limpia siempre, falle o no la verificación.
func (s *service) RegisterVerify(ctx context.Context, in dto.VerifyRequest) (*dto.SessionResponse, error) {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("auth.register"),
		logger.Op("RegisterVerify"),
	)

	email := challenge.Key(in.Email)
	if email == "" || len(in.Credential) == 0 {
		return nil, ErrMissingFields
	}

	entry, ok := s.deps.Challenges.Take(ctx, email)
	defer func() { _ = s.deps.Challenges.Clear(ctx, email) }()
	if !ok {
		metrics.AuthAttempts.WithLabelValues("register", "fail").Inc()
		return nil, ErrAuthFailed
	}

	parsed, err := parseAttestation(in.Credential)
	if err != nil {
		metrics.AuthAttempts.WithLabelValues("register", "fail").Inc()
		log.Debug("attestation parse failed", logger.Err(err))
		return nil, ErrAuthFailed
	}

	auth, err := s.deps.Verifier.FinishRegistration(entry.PendingHandle, email, entry.DisplayName, entry.SessionData, parsed)
	if err != nil {
		metrics.AuthAttempts.WithLabelValues("register", "fail").Inc()
		log.Debug("attestation verification failed", logger.Err(err))
		return nil, ErrAuthFailed
	}

	var ident *core.Identity
	if entry.IdentityID != "" {
		// Re-registro post-recovery: passkey nueva para la identidad existente.
		ident, err = s.deps.Repo.GetIdentityByID(ctx, entry.IdentityID)
		if err != nil {
			return nil, ErrAuthFailed
		}
		auth.IdentityID = ident.ID
		if err := s.deps.Repo.AddAuthenticator(ctx, auth); err != nil {
			return nil, err
		}
		log.Info("passkey re-registered after recovery", logger.UserID(ident.ID))
	} else {
		var displayName *string
		if entry.DisplayName != "" {
			displayName = &entry.DisplayName
		}
		candidate := &core.Identity{
			ID:             uuid.NewString(),
			Email:          email,
			WebAuthnHandle: entry.PendingHandle,
			DisplayName:    displayName,
		}
		auth.IdentityID = candidate.ID

		var inviteCode *string
		if entry.InviteCode != "" {
			inviteCode = &entry.InviteCode
		}
		ident, err = s.deps.Repo.RegisterIdentity(ctx, candidate, auth, inviteCode)
		if err != nil {
			// ErrConflict (email duplicado en race) y ErrInviteNotPending
			// suben tal cual: el controller los distingue.
			return nil, err
		}
		log.Info("identity registered",
			logger.UserID(ident.ID),
			logger.Bool("admin", ident.IsAdmin),
		)
	}

	metrics.AuthAttempts.WithLabelValues("register", "ok").Inc()
	return s.issueSession(ident)
}
