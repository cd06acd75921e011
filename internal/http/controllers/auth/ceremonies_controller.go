// Package auth contiene los controllers de las ceremonias WebAuthn.
package auth

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	dto "github.com/dropDatabas3/triplog/internal/http/dto/auth"
	httperrors "github.com/dropDatabas3/triplog/internal/http/errors"
	"github.com/dropDatabas3/triplog/internal/http/helpers"
	svc "github.com/dropDatabas3/triplog/internal/http/services/auth"
	"github.com/dropDatabas3/triplog/internal/observability/logger"
	"github.com/dropDatabas3/triplog/internal/store/core"
)

// CeremoniesController maneja registro y login.
type CeremoniesController struct {
	service svc.Service
}

func NewCeremoniesController(service svc.Service) *CeremoniesController {
	return &CeremoniesController{service: service}
}

// RegisterOptions maneja POST /api/auth/register/options.
func (c *CeremoniesController) RegisterOptions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("CeremoniesController.RegisterOptions"))

	var in dto.RegisterOptionsRequest
	if err := helpers.DecodeJSON(r, &in); err != nil {
		httperrors.WriteError(w, httperrors.ErrInvalidJSON)
		return
	}

	cer, err := c.service.RegisterOptions(ctx, in)
	if err != nil {
		c.handleError(w, err, log)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, cer.Options)
}

// RegisterVerify maneja POST /api/auth/register/verify.
func (c *CeremoniesController) RegisterVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("CeremoniesController.RegisterVerify"))

	var in dto.VerifyRequest
	if err := helpers.DecodeJSON(r, &in); err != nil {
		httperrors.WriteError(w, httperrors.ErrInvalidJSON)
		return
	}

	sess, err := c.service.RegisterVerify(ctx, in)
	if err != nil {
		c.handleError(w, err, log)
		return
	}
	helpers.WriteJSON(w, http.StatusCreated, sess)
}

// LoginOptions maneja POST /api/auth/login/options.
func (c *CeremoniesController) LoginOptions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("CeremoniesController.LoginOptions"))

	var in dto.LoginOptionsRequest
	if err := helpers.DecodeJSON(r, &in); err != nil {
		httperrors.WriteError(w, httperrors.ErrInvalidJSON)
		return
	}

	cer, err := c.service.LoginOptions(ctx, in)
	if err != nil {
		c.handleError(w, err, log)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, cer.Options)
}

// LoginVerify maneja POST /api/auth/login/verify.
func (c *CeremoniesController) LoginVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("CeremoniesController.LoginVerify"))

	var in dto.VerifyRequest
	if err := helpers.DecodeJSON(r, &in); err != nil {
		httperrors.WriteError(w, httperrors.ErrInvalidJSON)
		return
	}

	sess, err := c.service.LoginVerify(ctx, in)
	if err != nil {
		c.handleError(w, err, log)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, sess)
}

// handleError mapea errores del service a respuestas HTTP.
func (c *CeremoniesController) handleError(w http.ResponseWriter, err error, log *zap.Logger) {
	switch {
	case errors.Is(err, svc.ErrMissingFields):
		httperrors.WriteError(w, httperrors.ErrMissingFields)
	case errors.Is(err, svc.ErrAuthFailed):
		httperrors.WriteError(w, httperrors.ErrInvalidCredentials)
	case errors.Is(err, svc.ErrAccountExists), errors.Is(err, core.ErrConflict):
		httperrors.WriteError(w, httperrors.ErrConflict)
	case errors.Is(err, svc.ErrInviteInvalid):
		httperrors.WriteError(w, httperrors.ErrInviteInvalid)
	case errors.Is(err, core.ErrInviteNotPending):
		httperrors.WriteError(w, httperrors.ErrInviteNotPending)
	default:
		log.Error("unexpected ceremony error", logger.Err(err))
		httperrors.WriteError(w, httperrors.ErrInternal)
	}
}
