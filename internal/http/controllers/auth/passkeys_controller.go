package auth

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	dto "github.com/dropDatabas3/triplog/internal/http/dto/auth"
	httperrors "github.com/dropDatabas3/triplog/internal/http/errors"
	"github.com/dropDatabas3/triplog/internal/http/helpers"
	"github.com/dropDatabas3/triplog/internal/http/middlewares"
	svc "github.com/dropDatabas3/triplog/internal/http/services/auth"
	"github.com/dropDatabas3/triplog/internal/observability/logger"
)

// PasskeysController maneja la gestión de passkeys de la sesión actual.
type PasskeysController struct {
	service svc.Service
}

func NewPasskeysController(service svc.Service) *PasskeysController {
	return &PasskeysController{service: service}
}

// Options maneja POST /api/auth/passkeys/options (sesión requerida).
func (c *PasskeysController) Options(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("PasskeysController.Options"))

	claims := middlewares.MustGetClaims(ctx)
	cer, err := c.service.AddPasskeyOptions(ctx, claims)
	if err != nil {
		c.handleError(w, err, log)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, cer.Options)
}

// Verify maneja POST /api/auth/passkeys/verify (sesión requerida).
func (c *PasskeysController) Verify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("PasskeysController.Verify"))

	claims := middlewares.MustGetClaims(ctx)
	var in dto.VerifyRequest
	if err := helpers.DecodeJSON(r, &in); err != nil {
		httperrors.WriteError(w, httperrors.ErrInvalidJSON)
		return
	}

	if err := c.service.AddPasskeyVerify(ctx, claims, in); err != nil {
		c.handleError(w, err, log)
		return
	}
	helpers.WriteJSON(w, http.StatusCreated, map[string]bool{"ok": true})
}

// List maneja GET /api/auth/passkeys.
func (c *PasskeysController) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("PasskeysController.List"))

	claims := middlewares.MustGetClaims(ctx)
	out, err := c.service.ListPasskeys(ctx, claims)
	if err != nil {
		c.handleError(w, err, log)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, out)
}

// Delete maneja DELETE /api/auth/passkeys/{credID}.
func (c *PasskeysController) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("PasskeysController.Delete"))

	claims := middlewares.MustGetClaims(ctx)
	credID := chi.URLParam(r, "credID")

	if err := c.service.DeletePasskey(ctx, claims, credID); err != nil {
		c.handleError(w, err, log)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Me maneja GET /api/auth/me.
func (c *PasskeysController) Me(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("PasskeysController.Me"))

	claims := middlewares.MustGetClaims(ctx)
	me, err := c.service.Me(ctx, claims)
	if err != nil {
		c.handleError(w, err, log)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, me)
}

func (c *PasskeysController) handleError(w http.ResponseWriter, err error, log *zap.Logger) {
	switch {
	case errors.Is(err, svc.ErrAuthFailed):
		httperrors.WriteError(w, httperrors.ErrInvalidCredentials)
	case errors.Is(err, svc.ErrLastPasskey):
		httperrors.WriteError(w, httperrors.ErrLastPasskey)
	case errors.Is(err, svc.ErrPasskeyNotFound):
		httperrors.WriteError(w, httperrors.ErrNotFound)
	default:
		log.Error("unexpected passkeys error", logger.Err(err))
		httperrors.WriteError(w, httperrors.ErrInternal)
	}
}
