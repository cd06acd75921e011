package invites

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	dto "github.com/dropDatabas3/triplog/internal/http/dto/invites"
	"github.com/dropDatabas3/triplog/internal/store/core"
	"github.com/dropDatabas3/triplog/internal/store/memory"
)

type testEnv struct {
	repo  *memory.Store
	svc   Service
	admin *core.Identity
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()

	repo := memory.New(nil)
	admin, err := repo.RegisterIdentity(ctx, &core.Identity{
		ID: uuid.NewString(), Email: "admin@example.com", WebAuthnHandle: []byte("h"),
	}, &core.Authenticator{CredentialID: []byte("c"), PublicKey: []byte("pk")}, nil)
	if err != nil {
		t.Fatalf("RegisterIdentity err: %v", err)
	}
	for _, id := range []string{"t1", "t2"} {
		if err := repo.CreateTrip(ctx, &core.Trip{ID: id, Title: id}); err != nil {
			t.Fatalf("CreateTrip err: %v", err)
		}
	}
	return &testEnv{repo: repo, svc: NewService(Deps{Repo: repo}), admin: admin}
}

func TestCreate_HappyPath(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	resp, err := env.svc.Create(ctx, env.admin.ID, dto.CreateInviteRequest{
		Email:   "Guest@Example.com",
		Role:    "editor",
		TripIDs: []string{"t1", "t2"},
	})
	if err != nil {
		t.Fatalf("Create err: %v", err)
	}
	if len(resp.Code) != 32 {
		t.Fatalf("code length = %d, want 32", len(resp.Code))
	}
	if resp.Status != "pending" {
		t.Fatalf("status = %s, want pending", resp.Status)
	}
	if resp.Email == nil || *resp.Email != "guest@example.com" {
		t.Fatalf("email should be normalized: %+v", resp.Email)
	}

	// El código solo viaja en la respuesta de creación.
	list, err := env.svc.List(ctx)
	if err != nil {
		t.Fatalf("List err: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("expected 1 invite, got %d", len(list))
	}
	if list[0].Code != "" {
		t.Fatal("List must not expose invite codes")
	}
}

func TestCreate_Validations(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.svc.Create(ctx, env.admin.ID, dto.CreateInviteRequest{Role: "owner", TripIDs: []string{"t1"}})
	if !errors.Is(err, ErrInvalidRole) {
		t.Fatalf("expected ErrInvalidRole, got %v", err)
	}

	_, err = env.svc.Create(ctx, env.admin.ID, dto.CreateInviteRequest{Role: "viewer", TripIDs: []string{"nope"}})
	if !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown trip, got %v", err)
	}
}

func TestCreate_ZeroTrips(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	// Invitación solo-registro: sin trips, pre-autoriza la cuenta sin grants.
	created, err := env.svc.Create(ctx, env.admin.ID, dto.CreateInviteRequest{Role: "viewer"})
	if err != nil {
		t.Fatalf("Create err: %v", err)
	}
	if len(created.Code) != 32 || created.Status != "pending" {
		t.Fatalf("unexpected invite: %+v", created)
	}

	got, err := env.svc.Validate(ctx, created.Code)
	if err != nil {
		t.Fatalf("Validate err: %v", err)
	}
	if !got.Valid || len(got.TripIDs) != 0 {
		t.Fatalf("unexpected validate response: %+v", got)
	}
}

func TestCreate_OneActivePerEmail(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	in := dto.CreateInviteRequest{Email: "guest@example.com", Role: "viewer", TripIDs: []string{"t1"}}
	if _, err := env.svc.Create(ctx, env.admin.ID, in); err != nil {
		t.Fatalf("Create err: %v", err)
	}
	if _, err := env.svc.Create(ctx, env.admin.ID, in); !errors.Is(err, core.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestValidate_UniformFailureShape(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	created, err := env.svc.Create(ctx, env.admin.ID, dto.CreateInviteRequest{Role: "viewer", TripIDs: []string{"t1"}})
	if err != nil {
		t.Fatalf("Create err: %v", err)
	}
	if err := env.svc.Revoke(ctx, created.ID); err != nil {
		t.Fatalf("Revoke err: %v", err)
	}

	// Inexistente, malformado y revocado: indistinguibles desde afuera.
	cases := map[string]string{
		"fabricated": "AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA",
		"malformed":  "demasiado-corto",
		"revoked":    created.Code,
	}
	for name, code := range cases {
		if _, err := env.svc.Validate(ctx, code); !errors.Is(err, ErrInvalid) {
			t.Fatalf("%s: expected ErrInvalid, got %v", name, err)
		}
	}
}

func TestValidate_PendingInvite(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	created, err := env.svc.Create(ctx, env.admin.ID, dto.CreateInviteRequest{
		Email: "guest@example.com", Role: "editor", TripIDs: []string{"t1", "t2"},
	})
	if err != nil {
		t.Fatalf("Create err: %v", err)
	}

	got, err := env.svc.Validate(ctx, created.Code)
	if err != nil {
		t.Fatalf("Validate err: %v", err)
	}
	if !got.Valid || got.Role != "editor" || len(got.TripIDs) != 2 {
		t.Fatalf("unexpected validate response: %+v", got)
	}
	if got.Email == nil || *got.Email != "guest@example.com" {
		t.Fatalf("email mismatch: %+v", got.Email)
	}
}

func TestValidate_ExpiredInvite(t *testing.T) {
	ctx := context.Background()
	repo := memory.New(nil)
	admin, _ := repo.RegisterIdentity(ctx, &core.Identity{
		ID: uuid.NewString(), Email: "admin@example.com", WebAuthnHandle: []byte("h"),
	}, &core.Authenticator{CredentialID: []byte("c"), PublicKey: []byte("pk")}, nil)
	_ = repo.CreateTrip(ctx, &core.Trip{ID: "t1", Title: "t1"})

	// TTL de un milisegundo: expira enseguida.
	svc := NewService(Deps{Repo: repo, TTL: time.Millisecond})
	created, err := svc.Create(ctx, admin.ID, dto.CreateInviteRequest{Role: "viewer", TripIDs: []string{"t1"}})
	if err != nil {
		t.Fatalf("Create err: %v", err)
	}

	time.Sleep(5 * time.Millisecond)
	if _, err := svc.Validate(ctx, created.Code); !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected ErrInvalid for expired invite, got %v", err)
	}
}

func TestList_Status(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	created, _ := env.svc.Create(ctx, env.admin.ID, dto.CreateInviteRequest{Role: "viewer", TripIDs: []string{"t1"}})
	_ = env.svc.Revoke(ctx, created.ID)

	list, err := env.svc.List(ctx)
	if err != nil {
		t.Fatalf("List err: %v", err)
	}
	if len(list) != 1 || list[0].Status != "used" {
		t.Fatalf("revoked invite should list as used: %+v", list)
	}
}
