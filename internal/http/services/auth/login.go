package auth

import (
	"context"
	"encoding/base64"

	"github.com/dropDatabas3/triplog/internal/challenge"
	dto "github.com/dropDatabas3/triplog/internal/http/dto/auth"
	"github.com/dropDatabas3/triplog/internal/metrics"
	"github.com/dropDatabas3/triplog/internal/observability/logger"
	"github.com/dropDatabas3/triplog/internal/passkey"
	"github.com/dropDatabas3/triplog/internal/session"
	"github.com/dropDatabas3/triplog/internal/store/core"
)

// LoginOptions arma el challenge de assertion para un email.
// Cuenta inexistente o sin passkeys responden el mismo fallo genérico.
func (s *service) LoginOptions(ctx context.Context, in dto.LoginOptionsRequest) (*passkey.Ceremony, error) {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("auth.login"),
		logger.Op("LoginOptions"),
	)

	email := challenge.Key(in.Email)
	if email == "" {
		return nil, ErrMissingFields
	}

	ident, err := s.deps.Repo.GetIdentityByEmail(ctx, email)
	if err != nil {
		log.Debug("login options for unknown email")
		return nil, ErrAuthFailed
	}
	auths, err := s.deps.Repo.ListAuthenticators(ctx, ident.ID)
	if err != nil {
		return nil, err
	}
	if len(auths) == 0 {
		// Cuenta en estado post-recovery: login imposible hasta re-registrar.
		log.Debug("login options for identity without passkeys")
		return nil, ErrAuthFailed
	}

	displayName := ""
	if ident.DisplayName != nil {
		displayName = *ident.DisplayName
	}
	cer, err := s.deps.Verifier.BeginLogin(ident.WebAuthnHandle, email, displayName, auths)
	if err != nil {
		return nil, err
	}

	entry := challenge.Entry{
		SessionData: cer.Session,
		IdentityID:  ident.ID,
		ExpiresAt:   s.deps.Clock.Now().Add(s.deps.ChallengeTTL),
	}
	if err := s.deps.Challenges.Put(ctx, email, entry); err != nil {
		return nil, err
	}
	return cer, nil
}

// LoginVerify valida la assertion contra el challenge vivo y emite la sesión.
// Cualquier fallo limpia el challenge y responde el genérico.
func (s *service) LoginVerify(ctx context.Context, in dto.VerifyRequest) (*dto.SessionResponse, error) {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("auth.login"),
		logger.Op("LoginVerify"),
	)

	email := challenge.Key(in.Email)
	if email == "" || len(in.Credential) == 0 {
		return nil, ErrMissingFields
	}

	entry, ok := s.deps.Challenges.Take(ctx, email)
	defer func() { _ = s.deps.Challenges.Clear(ctx, email) }()
	if !ok || entry.IdentityID == "" {
		metrics.AuthAttempts.WithLabelValues("login", "fail").Inc()
		return nil, ErrAuthFailed
	}

	ident, err := s.deps.Repo.GetIdentityByID(ctx, entry.IdentityID)
	if err != nil {
		metrics.AuthAttempts.WithLabelValues("login", "fail").Inc()
		return nil, ErrAuthFailed
	}
	auths, err := s.deps.Repo.ListAuthenticators(ctx, ident.ID)
	if err != nil {
		return nil, err
	}

	parsed, err := parseAssertion(in.Credential)
	if err != nil {
		metrics.AuthAttempts.WithLabelValues("login", "fail").Inc()
		log.Debug("assertion parse failed", logger.Err(err))
		return nil, ErrAuthFailed
	}

	displayName := ""
	if ident.DisplayName != nil {
		displayName = *ident.DisplayName
	}
	cred, cloneWarning, err := s.deps.Verifier.FinishLogin(ident.WebAuthnHandle, email, displayName, auths, entry.SessionData, parsed)
	if err != nil {
		metrics.AuthAttempts.WithLabelValues("login", "fail").Inc()
		log.Debug("assertion verification failed", logger.Err(err))
		return nil, ErrAuthFailed
	}

	if cloneWarning {
		// Counter que no avanza: señal estándar de credencial clonada.
		// Se loguea y se persiste igual; rechazar acá dejaría afuera a los
		// autenticadores legítimos que no implementan el counter.
		log.Warn("sign counter did not increase, possible cloned credential",
			logger.UserID(ident.ID),
			logger.CredentialID(base64.RawURLEncoding.EncodeToString(cred.CredentialID)),
		)
	}

	now := s.deps.Clock.Now()
	if err := s.deps.Repo.UpdateAuthenticatorUsage(ctx, cred.CredentialID, cred.SignCount, now); err != nil {
		log.Warn("usage update failed", logger.Err(err))
	}

	metrics.AuthAttempts.WithLabelValues("login", "ok").Inc()
	log.Info("login verified", logger.UserID(ident.ID))
	return s.issueSession(ident)
}

// issueSession firma el token de sesión para la identidad.
func (s *service) issueSession(ident *core.Identity) (*dto.SessionResponse, error) {
	token, exp, err := s.deps.Sessions.Sign(session.Claims{
		UserID:  ident.ID,
		Email:   ident.Email,
		IsAdmin: ident.IsAdmin,
	})
	if err != nil {
		return nil, err
	}
	return &dto.SessionResponse{
		Token:     token,
		TokenType: "Bearer",
		ExpiresAt: exp.Unix(),
	}, nil
}
