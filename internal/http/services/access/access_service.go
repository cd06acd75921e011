// Package access implementa el gate de autorización por trip y la gestión de
// grants. Regla: los admins tienen acceso implícito total y NUNCA aparecen en
// la tabla de grants; el resto necesita un grant explícito por trip.
package access

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	dto "github.com/dropDatabas3/triplog/internal/http/dto/access"
	"github.com/dropDatabas3/triplog/internal/observability/logger"
	"github.com/dropDatabas3/triplog/internal/session"
	"github.com/dropDatabas3/triplog/internal/store/core"
)

var (
	// ErrForbidden: sin grant para el trip. Genérico a propósito: no revela
	// si el trip existe.
	ErrForbidden = errors.New("access: forbidden")

	ErrInvalidRole = errors.New("access: invalid role")

	// ErrAdminGrant: se intentó otorgar un grant a un admin.
	ErrAdminGrant = errors.New("access: admins cannot receive grants")
)

// Service expone el gate y el CRUD de grants.
type Service interface {
	// CanAccessTrip computa allow/deny para la sesión y el trip dados.
	// Admin → acceso total (rol editor implícito). Sin grant → ErrForbidden.
	CanAccessTrip(ctx context.Context, claims *session.Claims, tripID string) (core.Role, error)

	Grant(ctx context.Context, grantedBy, tripID string, in dto.CreateGrantRequest) (*dto.GrantResponse, error)
	ListByTrip(ctx context.Context, tripID string) ([]dto.GrantResponse, error)
	UpdateRole(ctx context.Context, grantID string, in dto.UpdateGrantRequest) error
	Revoke(ctx context.Context, grantID string) error
}

// Deps contiene las dependencias del servicio.
type Deps struct {
	Repo  core.Repository
	Clock core.Clock
}

type service struct {
	deps Deps
}

func NewService(deps Deps) Service {
	if deps.Clock == nil {
		deps.Clock = core.RealClock{}
	}
	return &service{deps: deps}
}

func (s *service) CanAccessTrip(ctx context.Context, claims *session.Claims, tripID string) (core.Role, error) {
	if claims.IsAdmin {
		return core.RoleEditor, nil
	}
	g, err := s.deps.Repo.GetGrantForTrip(ctx, claims.UserID, tripID)
	if err != nil {
		// NotFound y cualquier otra cosa colapsan en forbidden: la ausencia
		// de grant no debe distinguirse de "el trip no existe".
		return "", ErrForbidden
	}
	return g.Role, nil
}

func (s *service) Grant(ctx context.Context, grantedBy, tripID string, in dto.CreateGrantRequest) (*dto.GrantResponse, error) {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("access"),
		logger.Op("Grant"),
	)

	role := core.Role(strings.TrimSpace(in.Role))
	if !role.Valid() {
		return nil, ErrInvalidRole
	}

	target, err := s.deps.Repo.GetIdentityByID(ctx, in.UserID)
	if err != nil {
		return nil, err // ErrNotFound: el usuario no existe
	}
	if target.IsAdmin {
		return nil, ErrAdminGrant
	}
	if _, err := s.deps.Repo.GetTrip(ctx, tripID); err != nil {
		return nil, err
	}

	g := &core.TripAccessGrant{
		ID:        uuid.NewString(),
		UserID:    target.ID,
		TripID:    tripID,
		Role:      role,
		GrantedAt: s.deps.Clock.Now(),
		GrantedBy: grantedBy,
	}
	if err := s.deps.Repo.CreateGrant(ctx, g); err != nil {
		// ErrConflict: ya hay un grant (user, trip); corresponde update, no insert.
		return nil, err
	}

	log.Info("grant created",
		logger.UserID(g.UserID), logger.TripID(g.TripID), logger.String("role", string(g.Role)))
	resp := toResponse(g)
	return &resp, nil
}

func (s *service) ListByTrip(ctx context.Context, tripID string) ([]dto.GrantResponse, error) {
	if _, err := s.deps.Repo.GetTrip(ctx, tripID); err != nil {
		return nil, err
	}
	grants, err := s.deps.Repo.ListGrantsByTrip(ctx, tripID)
	if err != nil {
		return nil, err
	}
	out := make([]dto.GrantResponse, 0, len(grants))
	for i := range grants {
		out = append(out, toResponse(&grants[i]))
	}
	return out, nil
}

func (s *service) UpdateRole(ctx context.Context, grantID string, in dto.UpdateGrantRequest) error {
	role := core.Role(strings.TrimSpace(in.Role))
	if !role.Valid() {
		return ErrInvalidRole
	}
	// Actuar sobre un grant inexistente es ErrNotFound, distinto de forbidden.
	return s.deps.Repo.UpdateGrantRole(ctx, grantID, role)
}

func (s *service) Revoke(ctx context.Context, grantID string) error {
	return s.deps.Repo.DeleteGrant(ctx, grantID)
}

func toResponse(g *core.TripAccessGrant) dto.GrantResponse {
	return dto.GrantResponse{
		ID:        g.ID,
		UserID:    g.UserID,
		TripID:    g.TripID,
		Role:      string(g.Role),
		GrantedAt: g.GrantedAt,
		GrantedBy: g.GrantedBy,
	}
}
