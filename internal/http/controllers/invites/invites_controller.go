// Package invites contiene los controllers de gestión y validación de
// invitaciones.
package invites

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	dto "github.com/dropDatabas3/triplog/internal/http/dto/invites"
	httperrors "github.com/dropDatabas3/triplog/internal/http/errors"
	"github.com/dropDatabas3/triplog/internal/http/helpers"
	"github.com/dropDatabas3/triplog/internal/http/middlewares"
	svc "github.com/dropDatabas3/triplog/internal/http/services/invites"
	"github.com/dropDatabas3/triplog/internal/observability/logger"
	"github.com/dropDatabas3/triplog/internal/store/core"
)

// Controller maneja el CRUD admin y la validación pública.
type Controller struct {
	service svc.Service
}

func NewController(service svc.Service) *Controller {
	return &Controller{service: service}
}

// Create maneja POST /api/invites (admin).
func (c *Controller) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("InvitesController.Create"))

	claims := middlewares.MustGetClaims(ctx)
	var in dto.CreateInviteRequest
	if err := helpers.DecodeJSON(r, &in); err != nil {
		httperrors.WriteError(w, httperrors.ErrInvalidJSON)
		return
	}

	resp, err := c.service.Create(ctx, claims.UserID, in)
	if err != nil {
		c.handleError(w, err, log)
		return
	}
	helpers.WriteJSON(w, http.StatusCreated, resp)
}

// List maneja GET /api/invites (admin).
func (c *Controller) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("InvitesController.List"))

	out, err := c.service.List(ctx)
	if err != nil {
		c.handleError(w, err, log)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, out)
}

// Revoke maneja DELETE /api/invites/{id} (admin).
func (c *Controller) Revoke(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("InvitesController.Revoke"))

	if err := c.service.Revoke(ctx, chi.URLParam(r, "id")); err != nil {
		c.handleError(w, err, log)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Validate maneja GET /api/invites/validate/{code} (público, rate-limited).
// Código inexistente, usado y expirado responden exactamente igual.
func (c *Controller) Validate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	resp, err := c.service.Validate(ctx, chi.URLParam(r, "code"))
	if err != nil {
		httperrors.WriteError(w, httperrors.ErrInviteInvalid)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, resp)
}

func (c *Controller) handleError(w http.ResponseWriter, err error, log *zap.Logger) {
	switch {
	case errors.Is(err, svc.ErrInvalidRole):
		httperrors.WriteError(w, httperrors.ErrInvalidRole)
	case errors.Is(err, core.ErrConflict):
		httperrors.WriteError(w, httperrors.ErrConflict.
			WithDetail("Ya existe una invitación activa para ese email."))
	case errors.Is(err, core.ErrInviteNotPending):
		httperrors.WriteError(w, httperrors.ErrInviteNotPending)
	case errors.Is(err, core.ErrNotFound):
		httperrors.WriteError(w, httperrors.ErrNotFound)
	default:
		log.Error("unexpected invites error", logger.Err(err))
		httperrors.WriteError(w, httperrors.ErrInternal)
	}
}
