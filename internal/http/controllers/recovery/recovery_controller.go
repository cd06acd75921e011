// Package recovery contiene el controller del flujo de recuperación de cuenta.
package recovery

import (
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	dto "github.com/dropDatabas3/triplog/internal/http/dto/recovery"
	httperrors "github.com/dropDatabas3/triplog/internal/http/errors"
	"github.com/dropDatabas3/triplog/internal/http/helpers"
	svc "github.com/dropDatabas3/triplog/internal/http/services/recovery"
	"github.com/dropDatabas3/triplog/internal/observability/logger"
)

// Controller maneja request y verify de recovery.
type Controller struct {
	service svc.Service
}

func NewController(service svc.Service) *Controller {
	return &Controller{service: service}
}

// Request maneja POST /api/auth/recovery/request.
// Siempre 200: que el email exista o no es inobservable desde afuera.
func (c *Controller) Request(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("RecoveryController.Request"))

	var in dto.RequestRecovery
	if err := helpers.DecodeJSON(r, &in); err != nil {
		httperrors.WriteError(w, httperrors.ErrInvalidJSON)
		return
	}

	if err := c.service.Request(ctx, in.Email); err != nil {
		// Acá solo llegan fallos de infraestructura, que no dependen de la
		// existencia del email: el 500 no filtra nada.
		log.Error("recovery request failed", logger.Err(err))
		httperrors.WriteError(w, httperrors.ErrInternal)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, dto.RequestRecoveryResponse{OK: true})
}

// Verify maneja POST /api/auth/recovery/verify.
func (c *Controller) Verify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("RecoveryController.Verify"))

	var in dto.VerifyRecovery
	if err := helpers.DecodeJSON(r, &in); err != nil {
		httperrors.WriteError(w, httperrors.ErrInvalidJSON)
		return
	}

	if err := c.service.Verify(ctx, in.Email, in.Code); err != nil {
		c.handleError(w, err, log)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, dto.VerifyRecoveryResponse{Recovered: true})
}

func (c *Controller) handleError(w http.ResponseWriter, err error, log *zap.Logger) {
	var attempts *svc.AttemptsError
	switch {
	case errors.Is(err, svc.ErrInvalid):
		httperrors.WriteError(w, httperrors.ErrInvalidCredentials)
	case errors.Is(err, svc.ErrLocked):
		httperrors.WriteError(w, httperrors.ErrInvalidCredentials.
			WithDetail("Código bloqueado por demasiados intentos; solicite uno nuevo."))
	case errors.As(err, &attempts):
		httperrors.WriteError(w, httperrors.ErrInvalidCredentials.
			WithDetail(fmt.Sprintf("Código incorrecto; quedan %d intentos.", attempts.Remaining)))
	default:
		log.Error("unexpected recovery error", logger.Err(err))
		httperrors.WriteError(w, httperrors.ErrInternal)
	}
}
