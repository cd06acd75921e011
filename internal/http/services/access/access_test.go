package access

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	dto "github.com/dropDatabas3/triplog/internal/http/dto/access"
	"github.com/dropDatabas3/triplog/internal/session"
	"github.com/dropDatabas3/triplog/internal/store/core"
	"github.com/dropDatabas3/triplog/internal/store/memory"
)

type testEnv struct {
	repo  *memory.Store
	svc   Service
	admin *core.Identity
	user  *core.Identity
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()
	repo := memory.New(nil)

	mk := func(email string) *core.Identity {
		ident, err := repo.RegisterIdentity(ctx, &core.Identity{
			ID: uuid.NewString(), Email: email, WebAuthnHandle: []byte(email),
		}, &core.Authenticator{CredentialID: []byte(email), PublicKey: []byte("pk")}, nil)
		if err != nil {
			t.Fatalf("RegisterIdentity err: %v", err)
		}
		return ident
	}
	admin := mk("admin@example.com") // primero = admin
	user := mk("user@example.com")

	if err := repo.CreateTrip(ctx, &core.Trip{ID: "t1", Title: "Ruta 40"}); err != nil {
		t.Fatalf("CreateTrip err: %v", err)
	}
	return &testEnv{repo: repo, svc: NewService(Deps{Repo: repo}), admin: admin, user: user}
}

func claimsFor(ident *core.Identity) *session.Claims {
	return &session.Claims{UserID: ident.ID, Email: ident.Email, IsAdmin: ident.IsAdmin}
}

func TestCanAccessTrip_AdminBypass(t *testing.T) {
	env := newTestEnv(t)

	role, err := env.svc.CanAccessTrip(context.Background(), claimsFor(env.admin), "t1")
	if err != nil {
		t.Fatalf("CanAccessTrip err: %v", err)
	}
	if role != core.RoleEditor {
		t.Fatalf("admin role = %s, want editor", role)
	}

	// Incluso para un trip inexistente: el admin no pasa por la tabla de grants.
	if _, err := env.svc.CanAccessTrip(context.Background(), claimsFor(env.admin), "nope"); err != nil {
		t.Fatalf("admin access to unknown trip err: %v", err)
	}
}

func TestCanAccessTrip_RequiresGrant(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	// Sin grant: forbidden, igual que un trip inexistente.
	if _, err := env.svc.CanAccessTrip(ctx, claimsFor(env.user), "t1"); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if _, err := env.svc.CanAccessTrip(ctx, claimsFor(env.user), "no-such-trip"); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden for unknown trip, got %v", err)
	}

	_, err := env.svc.Grant(ctx, env.admin.ID, "t1", dto.CreateGrantRequest{UserID: env.user.ID, Role: "viewer"})
	if err != nil {
		t.Fatalf("Grant err: %v", err)
	}
	role, err := env.svc.CanAccessTrip(ctx, claimsFor(env.user), "t1")
	if err != nil {
		t.Fatalf("CanAccessTrip err: %v", err)
	}
	if role != core.RoleViewer {
		t.Fatalf("role = %s, want viewer", role)
	}
}

func TestGrant_Validations(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.svc.Grant(ctx, env.admin.ID, "t1", dto.CreateGrantRequest{UserID: env.user.ID, Role: "owner"})
	if !errors.Is(err, ErrInvalidRole) {
		t.Fatalf("expected ErrInvalidRole, got %v", err)
	}

	_, err = env.svc.Grant(ctx, env.admin.ID, "t1", dto.CreateGrantRequest{UserID: "nope", Role: "viewer"})
	if !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown user, got %v", err)
	}

	_, err = env.svc.Grant(ctx, env.admin.ID, "no-such-trip", dto.CreateGrantRequest{UserID: env.user.ID, Role: "viewer"})
	if !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown trip, got %v", err)
	}

	// Los admins no reciben grants: su acceso es implícito.
	_, err = env.svc.Grant(ctx, env.admin.ID, "t1", dto.CreateGrantRequest{UserID: env.admin.ID, Role: "viewer"})
	if !errors.Is(err, ErrAdminGrant) {
		t.Fatalf("expected ErrAdminGrant, got %v", err)
	}
}

func TestGrant_DuplicateConflict(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	in := dto.CreateGrantRequest{UserID: env.user.ID, Role: "viewer"}
	if _, err := env.svc.Grant(ctx, env.admin.ID, "t1", in); err != nil {
		t.Fatalf("Grant err: %v", err)
	}
	if _, err := env.svc.Grant(ctx, env.admin.ID, "t1", in); !errors.Is(err, core.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestUpdateRoleAndRevoke(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	g, err := env.svc.Grant(ctx, env.admin.ID, "t1", dto.CreateGrantRequest{UserID: env.user.ID, Role: "viewer"})
	if err != nil {
		t.Fatalf("Grant err: %v", err)
	}

	if err := env.svc.UpdateRole(ctx, g.ID, dto.UpdateGrantRequest{Role: "editor"}); err != nil {
		t.Fatalf("UpdateRole err: %v", err)
	}
	role, _ := env.svc.CanAccessTrip(ctx, claimsFor(env.user), "t1")
	if role != core.RoleEditor {
		t.Fatalf("role = %s, want editor", role)
	}

	if err := env.svc.UpdateRole(ctx, g.ID, dto.UpdateGrantRequest{Role: "boss"}); !errors.Is(err, ErrInvalidRole) {
		t.Fatalf("expected ErrInvalidRole, got %v", err)
	}
	if err := env.svc.UpdateRole(ctx, "nope", dto.UpdateGrantRequest{Role: "viewer"}); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := env.svc.Revoke(ctx, g.ID); err != nil {
		t.Fatalf("Revoke err: %v", err)
	}
	if _, err := env.svc.CanAccessTrip(ctx, claimsFor(env.user), "t1"); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden after revoke, got %v", err)
	}
}

func TestListByTrip(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if _, err := env.svc.ListByTrip(ctx, "no-such-trip"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	_, _ = env.svc.Grant(ctx, env.admin.ID, "t1", dto.CreateGrantRequest{UserID: env.user.ID, Role: "viewer"})
	list, err := env.svc.ListByTrip(ctx, "t1")
	if err != nil {
		t.Fatalf("ListByTrip err: %v", err)
	}
	if len(list) != 1 || list[0].UserID != env.user.ID {
		t.Fatalf("unexpected grants: %+v", list)
	}
}
