// Package invites implementa la emisión, validación y revocación de
// invitaciones. La validación pública es enumeración-safe: código inexistente,
// usado y expirado responden exactamente igual.
package invites

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dropDatabas3/triplog/internal/challenge"
	dto "github.com/dropDatabas3/triplog/internal/http/dto/invites"
	"github.com/dropDatabas3/triplog/internal/metrics"
	"github.com/dropDatabas3/triplog/internal/observability/logger"
	"github.com/dropDatabas3/triplog/internal/security/token"
	"github.com/dropDatabas3/triplog/internal/store/core"
)

// DefaultTTL: las invitaciones expiran a la semana de emitidas.
const DefaultTTL = 7 * 24 * time.Hour

// codeLen es el largo fijo del código wire (24 bytes base64url).
const codeLen = 32

var (
	ErrInvalidRole = errors.New("invites: invalid role")

	// ErrInvalid es el único fallo observable de la validación pública.
	ErrInvalid = errors.New("invites: invalid or expired code")
)

// Service expone el ciclo de vida de las invitaciones.
type Service interface {
	Create(ctx context.Context, createdBy string, in dto.CreateInviteRequest) (*dto.InviteResponse, error)
	List(ctx context.Context) ([]dto.InviteResponse, error)
	Revoke(ctx context.Context, id string) error
	Validate(ctx context.Context, code string) (*dto.ValidateResponse, error)
}

// Deps contiene las dependencias del servicio.
type Deps struct {
	Repo  core.Repository
	Clock core.Clock
	TTL   time.Duration
}

type service struct {
	deps Deps
}

func NewService(deps Deps) Service {
	if deps.Clock == nil {
		deps.Clock = core.RealClock{}
	}
	if deps.TTL <= 0 {
		deps.TTL = DefaultTTL
	}
	return &service{deps: deps}
}

func (s *service) Create(ctx context.Context, createdBy string, in dto.CreateInviteRequest) (*dto.InviteResponse, error) {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("invites"),
		logger.Op("Create"),
	)

	role := core.Role(strings.TrimSpace(in.Role))
	if !role.Valid() {
		return nil, ErrInvalidRole
	}
	// TripIDs puede venir vacío: una invitación solo-registro pre-autoriza la
	// cuenta sin otorgar ningún grant.

	code, err := token.GenerateInviteCode()
	if err != nil {
		return nil, err
	}

	var email *string
	if e := challenge.Key(in.Email); e != "" {
		email = &e
	}

	now := s.deps.Clock.Now()
	inv := &core.Invite{
		ID:        uuid.NewString(),
		Code:      code,
		CreatedBy: createdBy,
		Email:     email,
		Role:      role,
		ExpiresAt: now.Add(s.deps.TTL),
		TripIDs:   in.TripIDs,
	}
	if err := s.deps.Repo.CreateInvite(ctx, inv); err != nil {
		// ErrConflict: ya hay una invitación activa para ese email.
		// ErrNotFound: algún trip vinculado no existe.
		return nil, err
	}

	log.Info("invite created", logger.InviteID(inv.ID), logger.Count(len(inv.TripIDs)))
	resp := toResponse(inv, now)
	resp.Code = inv.Code // el código solo viaja en la creación
	return &resp, nil
}

func (s *service) List(ctx context.Context) ([]dto.InviteResponse, error) {
	invs, err := s.deps.Repo.ListInvites(ctx)
	if err != nil {
		return nil, err
	}
	now := s.deps.Clock.Now()
	out := make([]dto.InviteResponse, 0, len(invs))
	for i := range invs {
		out = append(out, toResponse(&invs[i], now))
	}
	return out, nil
}

func (s *service) Revoke(ctx context.Context, id string) error {
	// Revoke marca la invitación usada sin consumidor. Es best-effort: si un
	// registro concurrente consume el código antes de que el revoke commitee,
	// gana el que llegó primero a la transacción.
	return s.deps.Repo.RevokeInvite(ctx, id)
}

func (s *service) Validate(ctx context.Context, code string) (*dto.ValidateResponse, error) {
	code = strings.TrimSpace(code)
	if len(code) != codeLen {
		metrics.AuthAttempts.WithLabelValues("invite_validate", "fail").Inc()
		return nil, ErrInvalid
	}

	inv, err := s.deps.Repo.GetInviteByCode(ctx, code)
	if err != nil || !inv.Pending(s.deps.Clock.Now()) {
		metrics.AuthAttempts.WithLabelValues("invite_validate", "fail").Inc()
		return nil, ErrInvalid
	}

	metrics.AuthAttempts.WithLabelValues("invite_validate", "ok").Inc()
	return &dto.ValidateResponse{
		Valid:   true,
		Role:    string(inv.Role),
		TripIDs: inv.TripIDs,
		Email:   inv.Email,
	}, nil
}

// ─── Helpers ───

func toResponse(inv *core.Invite, now time.Time) dto.InviteResponse {
	status := "pending"
	switch {
	case inv.UsedAt != nil:
		status = "used"
	case !now.Before(inv.ExpiresAt):
		status = "expired"
	}
	return dto.InviteResponse{
		ID:        inv.ID,
		Email:     inv.Email,
		Role:      string(inv.Role),
		TripIDs:   inv.TripIDs,
		Status:    status,
		ExpiresAt: inv.ExpiresAt,
		UsedAt:    inv.UsedAt,
		CreatedAt: inv.CreatedAt,
	}
}
