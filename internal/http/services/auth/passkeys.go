package auth

import (
	"context"
	"encoding/base64"
	"errors"

	"github.com/dropDatabas3/triplog/internal/challenge"
	dto "github.com/dropDatabas3/triplog/internal/http/dto/auth"
	"github.com/dropDatabas3/triplog/internal/observability/logger"
	"github.com/dropDatabas3/triplog/internal/passkey"
	"github.com/dropDatabas3/triplog/internal/session"
	"github.com/dropDatabas3/triplog/internal/store/core"
)

// AddPasskeyOptions arma un challenge de registro para sumar una passkey a la
// sesión actual, excluyendo las credenciales ya registradas.
func (s *service) AddPasskeyOptions(ctx context.Context, claims *session.Claims) (*passkey.Ceremony, error) {
	ident, err := s.deps.Repo.GetIdentityByID(ctx, claims.UserID)
	if err != nil {
		return nil, err
	}
	auths, err := s.deps.Repo.ListAuthenticators(ctx, ident.ID)
	if err != nil {
		return nil, err
	}

	displayName := ""
	if ident.DisplayName != nil {
		displayName = *ident.DisplayName
	}
	cer, err := s.deps.Verifier.BeginRegistration(ident.WebAuthnHandle, ident.Email, displayName, auths)
	if err != nil {
		return nil, err
	}

	entry := challenge.Entry{
		SessionData:   cer.Session,
		IdentityID:    ident.ID,
		PendingHandle: ident.WebAuthnHandle,
		ExpiresAt:     s.deps.Clock.Now().Add(s.deps.ChallengeTTL),
	}
	if err := s.deps.Challenges.Put(ctx, ident.Email, entry); err != nil {
		return nil, err
	}
	return cer, nil
}

// AddPasskeyVerify valida la attestation y persiste la passkey nueva.
func (s *service) AddPasskeyVerify(ctx context.Context, claims *session.Claims, in dto.VerifyRequest) error {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("auth.passkeys"),
		logger.Op("AddPasskeyVerify"),
	)

	email := challenge.Key(claims.Email)
	entry, ok := s.deps.Challenges.Take(ctx, email)
	defer func() { _ = s.deps.Challenges.Clear(ctx, email) }()
	if !ok || entry.IdentityID != claims.UserID {
		return ErrAuthFailed
	}

	ident, err := s.deps.Repo.GetIdentityByID(ctx, claims.UserID)
	if err != nil {
		return ErrAuthFailed
	}

	parsed, err := parseAttestation(in.Credential)
	if err != nil {
		return ErrAuthFailed
	}
	displayName := ""
	if ident.DisplayName != nil {
		displayName = *ident.DisplayName
	}
	auth, err := s.deps.Verifier.FinishRegistration(ident.WebAuthnHandle, ident.Email, displayName, entry.SessionData, parsed)
	if err != nil {
		log.Debug("attestation verification failed", logger.Err(err))
		return ErrAuthFailed
	}

	auth.IdentityID = ident.ID
	if err := s.deps.Repo.AddAuthenticator(ctx, auth); err != nil {
		return err
	}
	log.Info("passkey added", logger.UserID(ident.ID))
	return nil
}

// ListPasskeys lista las passkeys de la sesión actual.
func (s *service) ListPasskeys(ctx context.Context, claims *session.Claims) ([]dto.PasskeyResponse, error) {
	auths, err := s.deps.Repo.ListAuthenticators(ctx, claims.UserID)
	if err != nil {
		return nil, err
	}
	out := make([]dto.PasskeyResponse, 0, len(auths))
	for _, a := range auths {
		out = append(out, dto.PasskeyResponse{
			CredentialID: base64.RawURLEncoding.EncodeToString(a.CredentialID),
			Transports:   a.Transports,
			BackupState:  a.BackupState,
			CreatedAt:    a.CreatedAt,
			LastUsedAt:   a.LastUsedAt,
		})
	}
	return out, nil
}

// DeletePasskey borra una passkey de la sesión actual. La última no se puede
// borrar: una cuenta con login posible tiene que conservar al menos una.
func (s *service) DeletePasskey(ctx context.Context, claims *session.Claims, credentialID string) error {
	credID, err := base64.RawURLEncoding.DecodeString(credentialID)
	if err != nil {
		return ErrPasskeyNotFound
	}
	err = s.deps.Repo.DeleteAuthenticator(ctx, claims.UserID, credID)
	switch {
	case errors.Is(err, core.ErrLastAuthenticator):
		return ErrLastPasskey
	case errors.Is(err, core.ErrNotFound):
		return ErrPasskeyNotFound
	}
	return err
}

// Me devuelve la identidad de la sesión actual.
func (s *service) Me(ctx context.Context, claims *session.Claims) (*dto.MeResponse, error) {
	ident, err := s.deps.Repo.GetIdentityByID(ctx, claims.UserID)
	if err != nil {
		return nil, err
	}
	return &dto.MeResponse{
		ID:          ident.ID,
		Email:       ident.Email,
		DisplayName: ident.DisplayName,
		IsAdmin:     ident.IsAdmin,
		CreatedAt:   ident.CreatedAt,
	}, nil
}
