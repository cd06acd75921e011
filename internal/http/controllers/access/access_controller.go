// Package access contiene los controllers de grants de acceso a trips.
package access

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	dto "github.com/dropDatabas3/triplog/internal/http/dto/access"
	httperrors "github.com/dropDatabas3/triplog/internal/http/errors"
	"github.com/dropDatabas3/triplog/internal/http/helpers"
	"github.com/dropDatabas3/triplog/internal/http/middlewares"
	svc "github.com/dropDatabas3/triplog/internal/http/services/access"
	"github.com/dropDatabas3/triplog/internal/observability/logger"
	"github.com/dropDatabas3/triplog/internal/store/core"
)

// Controller maneja la gestión de grants (admin).
type Controller struct {
	service svc.Service
}

func NewController(service svc.Service) *Controller {
	return &Controller{service: service}
}

// Grant maneja POST /api/trips/{tripID}/access (admin).
func (c *Controller) Grant(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("AccessController.Grant"))

	claims := middlewares.MustGetClaims(ctx)
	var in dto.CreateGrantRequest
	if err := helpers.DecodeJSON(r, &in); err != nil {
		httperrors.WriteError(w, httperrors.ErrInvalidJSON)
		return
	}

	resp, err := c.service.Grant(ctx, claims.UserID, chi.URLParam(r, "tripID"), in)
	if err != nil {
		c.handleError(w, err, log)
		return
	}
	helpers.WriteJSON(w, http.StatusCreated, resp)
}

// List maneja GET /api/trips/{tripID}/access (admin).
func (c *Controller) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("AccessController.List"))

	out, err := c.service.ListByTrip(ctx, chi.URLParam(r, "tripID"))
	if err != nil {
		c.handleError(w, err, log)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, out)
}

// Update maneja PUT /api/access/{id} (admin).
func (c *Controller) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("AccessController.Update"))

	var in dto.UpdateGrantRequest
	if err := helpers.DecodeJSON(r, &in); err != nil {
		httperrors.WriteError(w, httperrors.ErrInvalidJSON)
		return
	}

	if err := c.service.UpdateRole(ctx, chi.URLParam(r, "id"), in); err != nil {
		c.handleError(w, err, log)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// Revoke maneja DELETE /api/access/{id} (admin).
func (c *Controller) Revoke(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("AccessController.Revoke"))

	if err := c.service.Revoke(ctx, chi.URLParam(r, "id")); err != nil {
		c.handleError(w, err, log)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (c *Controller) handleError(w http.ResponseWriter, err error, log *zap.Logger) {
	switch {
	case errors.Is(err, svc.ErrInvalidRole):
		httperrors.WriteError(w, httperrors.ErrInvalidRole)
	case errors.Is(err, svc.ErrAdminGrant):
		httperrors.WriteError(w, httperrors.ErrForbidden.
			WithDetail("Los administradores tienen acceso implícito; no reciben grants."))
	case errors.Is(err, svc.ErrForbidden):
		httperrors.WriteError(w, httperrors.ErrForbidden)
	case errors.Is(err, core.ErrConflict):
		httperrors.WriteError(w, httperrors.ErrConflict.
			WithDetail("Ya existe un grant para ese usuario y trip; actualice el existente."))
	case errors.Is(err, core.ErrNotFound):
		httperrors.WriteError(w, httperrors.ErrNotFound)
	default:
		log.Error("unexpected access error", logger.Err(err))
		httperrors.WriteError(w, httperrors.ErrInternal)
	}
}
