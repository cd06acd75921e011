package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/dropDatabas3/triplog/internal/store/core"
)

func newIdentity(email string) *core.Identity {
	return &core.Identity{
		ID:             uuid.NewString(),
		Email:          email,
		WebAuthnHandle: []byte(email),
	}
}

func newAuth(credID string) *core.Authenticator {
	return &core.Authenticator{
		CredentialID: []byte(credID),
		PublicKey:    []byte("pk-" + credID),
	}
}

func TestRegisterIdentity_FirstIsAdmin(t *testing.T) {
	ctx := context.Background()
	s := New(nil)

	first, err := s.RegisterIdentity(ctx, newIdentity("a@b.c"), newAuth("cred-a"), nil)
	if err != nil {
		t.Fatalf("RegisterIdentity err: %v", err)
	}
	if !first.IsAdmin {
		t.Fatal("first identity should be admin")
	}

	second, err := s.RegisterIdentity(ctx, newIdentity("d@e.f"), newAuth("cred-d"), nil)
	if err != nil {
		t.Fatalf("RegisterIdentity err: %v", err)
	}
	if second.IsAdmin {
		t.Fatal("second identity should not be admin")
	}
}

func TestRegisterIdentity_ConcurrentSingleAdmin(t *testing.T) {
	ctx := context.Background()
	s := New(nil)

	const n = 20
	results := make([]*core.Identity, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ident, err := s.RegisterIdentity(ctx,
				newIdentity(uuid.NewString()+"@x.y"), newAuth(uuid.NewString()), nil)
			if err == nil {
				results[i] = ident
			}
		}(i)
	}
	wg.Wait()

	admins := 0
	for _, ident := range results {
		if ident != nil && ident.IsAdmin {
			admins++
		}
	}
	if admins != 1 {
		t.Fatalf("exactly one admin expected, got %d", admins)
	}
}

func TestRegisterIdentity_DuplicateEmailConflict(t *testing.T) {
	ctx := context.Background()
	s := New(nil)

	if _, err := s.RegisterIdentity(ctx, newIdentity("a@b.c"), newAuth("c1"), nil); err != nil {
		t.Fatalf("RegisterIdentity err: %v", err)
	}
	// Mismo email con otra capitalización: misma cuenta, conflicto.
	_, err := s.RegisterIdentity(ctx, newIdentity("A@B.C"), newAuth("c2"), nil)
	if !errors.Is(err, core.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestRegisterIdentity_ConsumesInviteAndCreatesGrants(t *testing.T) {
	ctx := context.Background()
	clock := core.FixedClock{T: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	s := New(clock)

	admin, err := s.RegisterIdentity(ctx, newIdentity("admin@x.y"), newAuth("a1"), nil)
	if err != nil {
		t.Fatalf("RegisterIdentity err: %v", err)
	}
	for _, tripID := range []string{"t1", "t2"} {
		if err := s.CreateTrip(ctx, &core.Trip{ID: tripID, Title: tripID}); err != nil {
			t.Fatalf("CreateTrip err: %v", err)
		}
	}
	inv := &core.Invite{
		ID:        uuid.NewString(),
		Code:      "codigo-de-invitacion-para-el-test",
		CreatedBy: admin.ID,
		Role:      core.RoleEditor,
		ExpiresAt: clock.T.Add(time.Hour),
		TripIDs:   []string{"t1", "t2"},
	}
	if err := s.CreateInvite(ctx, inv); err != nil {
		t.Fatalf("CreateInvite err: %v", err)
	}

	guest, err := s.RegisterIdentity(ctx, newIdentity("guest@x.y"), newAuth("g1"), &inv.Code)
	if err != nil {
		t.Fatalf("RegisterIdentity with invite err: %v", err)
	}

	grants, err := s.ListGrantsByUser(ctx, guest.ID)
	if err != nil {
		t.Fatalf("ListGrantsByUser err: %v", err)
	}
	if len(grants) != 2 {
		t.Fatalf("expected 2 grants, got %d", len(grants))
	}
	for _, g := range grants {
		if g.Role != core.RoleEditor {
			t.Fatalf("grant role = %s, want editor", g.Role)
		}
		if g.GrantedBy != admin.ID {
			t.Fatalf("grant granted_by = %s, want %s", g.GrantedBy, admin.ID)
		}
	}

	stored, err := s.GetInviteByID(ctx, inv.ID)
	if err != nil {
		t.Fatalf("GetInviteByID err: %v", err)
	}
	if stored.UsedAt == nil || stored.UsedBy == nil || *stored.UsedBy != guest.ID {
		t.Fatalf("invite should be consumed by the guest: %+v", stored)
	}

	// Segundo registro con el mismo código: ya no está pendiente.
	_, err = s.RegisterIdentity(ctx, newIdentity("other@x.y"), newAuth("o1"), &inv.Code)
	if !errors.Is(err, core.ErrInviteNotPending) {
		t.Fatalf("expected ErrInviteNotPending, got %v", err)
	}
}

func TestDeleteAuthenticator_LastOneForbidden(t *testing.T) {
	ctx := context.Background()
	s := New(nil)

	ident, err := s.RegisterIdentity(ctx, newIdentity("a@b.c"), newAuth("only"), nil)
	if err != nil {
		t.Fatalf("RegisterIdentity err: %v", err)
	}

	err = s.DeleteAuthenticator(ctx, ident.ID, []byte("only"))
	if !errors.Is(err, core.ErrLastAuthenticator) {
		t.Fatalf("expected ErrLastAuthenticator, got %v", err)
	}

	second := newAuth("second")
	second.IdentityID = ident.ID
	if err := s.AddAuthenticator(ctx, second); err != nil {
		t.Fatalf("AddAuthenticator err: %v", err)
	}
	if err := s.DeleteAuthenticator(ctx, ident.ID, []byte("only")); err != nil {
		t.Fatalf("DeleteAuthenticator err: %v", err)
	}

	auths, _ := s.ListAuthenticators(ctx, ident.ID)
	if len(auths) != 1 {
		t.Fatalf("expected 1 authenticator left, got %d", len(auths))
	}
}

func TestRecoveryToken_LockoutAndClaim(t *testing.T) {
	ctx := context.Background()
	clock := core.FixedClock{T: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	s := New(clock)

	ident, err := s.RegisterIdentity(ctx, newIdentity("a@b.c"), newAuth("c1"), nil)
	if err != nil {
		t.Fatalf("RegisterIdentity err: %v", err)
	}
	tok := &core.RecoveryToken{
		ID:         uuid.NewString(),
		IdentityID: ident.ID,
		CodeHash:   "hash",
		ExpiresAt:  clock.T.Add(15 * time.Minute),
	}
	if err := s.CreateRecoveryToken(ctx, tok); err != nil {
		t.Fatalf("CreateRecoveryToken err: %v", err)
	}

	// Cuatro fallos: todavía sin lock.
	for i := 1; i <= 4; i++ {
		attempts, locked, err := s.FailRecoveryAttempt(ctx, tok.ID, 5)
		if err != nil {
			t.Fatalf("FailRecoveryAttempt err: %v", err)
		}
		if attempts != i || locked {
			t.Fatalf("attempt %d: attempts=%d locked=%v", i, attempts, locked)
		}
	}
	// El quinto bloquea.
	attempts, locked, err := s.FailRecoveryAttempt(ctx, tok.ID, 5)
	if err != nil {
		t.Fatalf("FailRecoveryAttempt err: %v", err)
	}
	if attempts != 5 || !locked {
		t.Fatalf("5th attempt: attempts=%d locked=%v, want 5/true", attempts, locked)
	}

	// Token bloqueado no se puede canjear.
	if err := s.ClaimRecoveryToken(ctx, tok.ID); !errors.Is(err, core.ErrConflict) {
		t.Fatalf("claim of locked token: expected ErrConflict, got %v", err)
	}
}

func TestClaimRecoveryToken_DeletesAllPasskeys(t *testing.T) {
	ctx := context.Background()
	clock := core.FixedClock{T: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	s := New(clock)

	ident, err := s.RegisterIdentity(ctx, newIdentity("a@b.c"), newAuth("c1"), nil)
	if err != nil {
		t.Fatalf("RegisterIdentity err: %v", err)
	}
	extra := newAuth("c2")
	extra.IdentityID = ident.ID
	if err := s.AddAuthenticator(ctx, extra); err != nil {
		t.Fatalf("AddAuthenticator err: %v", err)
	}

	tok := &core.RecoveryToken{
		ID:         uuid.NewString(),
		IdentityID: ident.ID,
		CodeHash:   "hash",
		ExpiresAt:  clock.T.Add(15 * time.Minute),
	}
	_ = s.CreateRecoveryToken(ctx, tok)

	if err := s.ClaimRecoveryToken(ctx, tok.ID); err != nil {
		t.Fatalf("ClaimRecoveryToken err: %v", err)
	}
	auths, _ := s.ListAuthenticators(ctx, ident.ID)
	if len(auths) != 0 {
		t.Fatalf("claim should delete every passkey, %d left", len(auths))
	}

	// El claim es one-shot: el segundo pierde.
	if err := s.ClaimRecoveryToken(ctx, tok.ID); !errors.Is(err, core.ErrConflict) {
		t.Fatalf("second claim: expected ErrConflict, got %v", err)
	}
}

func TestCreateRecoveryToken_InvalidatesPrevious(t *testing.T) {
	ctx := context.Background()
	clock := core.FixedClock{T: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	s := New(clock)

	ident, _ := s.RegisterIdentity(ctx, newIdentity("a@b.c"), newAuth("c1"), nil)

	older := &core.RecoveryToken{ID: "tk-old", IdentityID: ident.ID, CodeHash: "h1", ExpiresAt: clock.T.Add(15 * time.Minute)}
	newer := &core.RecoveryToken{ID: "tk-new", IdentityID: ident.ID, CodeHash: "h2", ExpiresAt: clock.T.Add(15 * time.Minute)}
	_ = s.CreateRecoveryToken(ctx, older)
	_ = s.CreateRecoveryToken(ctx, newer)

	got, err := s.GetLatestRecoveryToken(ctx, ident.ID)
	if err != nil {
		t.Fatalf("GetLatestRecoveryToken err: %v", err)
	}
	if got.ID != "tk-new" {
		t.Fatalf("latest token = %s, want tk-new", got.ID)
	}
	// El viejo quedó invalidado, no solo desplazado.
	if err := s.ClaimRecoveryToken(ctx, "tk-old"); !errors.Is(err, core.ErrConflict) {
		t.Fatalf("old token claim: expected ErrConflict, got %v", err)
	}
}

func TestCreateInvite_OneActivePerEmail(t *testing.T) {
	ctx := context.Background()
	clock := core.FixedClock{T: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	s := New(clock)

	admin, _ := s.RegisterIdentity(ctx, newIdentity("admin@x.y"), newAuth("a1"), nil)
	_ = s.CreateTrip(ctx, &core.Trip{ID: "t1", Title: "t1"})

	email := "guest@x.y"
	mk := func(id, code string) *core.Invite {
		return &core.Invite{
			ID: id, Code: code, CreatedBy: admin.ID, Email: &email,
			Role: core.RoleViewer, ExpiresAt: clock.T.Add(time.Hour), TripIDs: []string{"t1"},
		}
	}

	if err := s.CreateInvite(ctx, mk("i1", "code-1")); err != nil {
		t.Fatalf("CreateInvite err: %v", err)
	}
	if err := s.CreateInvite(ctx, mk("i2", "code-2")); !errors.Is(err, core.ErrConflict) {
		t.Fatalf("expected ErrConflict for second active invite, got %v", err)
	}

	// Revocada la primera, el email queda libre.
	if err := s.RevokeInvite(ctx, "i1"); err != nil {
		t.Fatalf("RevokeInvite err: %v", err)
	}
	if err := s.CreateInvite(ctx, mk("i3", "code-3")); err != nil {
		t.Fatalf("CreateInvite after revoke err: %v", err)
	}
}

func TestCreateInvite_UnknownTrip(t *testing.T) {
	ctx := context.Background()
	s := New(nil)
	admin, _ := s.RegisterIdentity(ctx, newIdentity("admin@x.y"), newAuth("a1"), nil)

	inv := &core.Invite{
		ID: "i1", Code: "c", CreatedBy: admin.ID, Role: core.RoleViewer,
		ExpiresAt: time.Now().Add(time.Hour), TripIDs: []string{"no-such-trip"},
	}
	if err := s.CreateInvite(ctx, inv); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRevokeInvite_NotPending(t *testing.T) {
	ctx := context.Background()
	clock := core.FixedClock{T: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	s := New(clock)

	admin, _ := s.RegisterIdentity(ctx, newIdentity("admin@x.y"), newAuth("a1"), nil)
	_ = s.CreateTrip(ctx, &core.Trip{ID: "t1", Title: "t1"})
	inv := &core.Invite{
		ID: "i1", Code: "c", CreatedBy: admin.ID, Role: core.RoleViewer,
		ExpiresAt: clock.T.Add(time.Hour), TripIDs: []string{"t1"},
	}
	_ = s.CreateInvite(ctx, inv)

	if err := s.RevokeInvite(ctx, "i1"); err != nil {
		t.Fatalf("RevokeInvite err: %v", err)
	}
	if err := s.RevokeInvite(ctx, "i1"); !errors.Is(err, core.ErrInviteNotPending) {
		t.Fatalf("expected ErrInviteNotPending, got %v", err)
	}
	if err := s.RevokeInvite(ctx, "nope"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCreateGrant_UniquePerUserTrip(t *testing.T) {
	ctx := context.Background()
	s := New(nil)

	_, _ = s.RegisterIdentity(ctx, newIdentity("admin@x.y"), newAuth("a1"), nil)
	user, _ := s.RegisterIdentity(ctx, newIdentity("u@x.y"), newAuth("u1"), nil)
	_ = s.CreateTrip(ctx, &core.Trip{ID: "t1", Title: "t1"})

	g := &core.TripAccessGrant{ID: "g1", UserID: user.ID, TripID: "t1", Role: core.RoleViewer, GrantedBy: "admin"}
	if err := s.CreateGrant(ctx, g); err != nil {
		t.Fatalf("CreateGrant err: %v", err)
	}
	dup := &core.TripAccessGrant{ID: "g2", UserID: user.ID, TripID: "t1", Role: core.RoleEditor, GrantedBy: "admin"}
	if err := s.CreateGrant(ctx, dup); !errors.Is(err, core.ErrConflict) {
		t.Fatalf("expected ErrConflict for duplicate grant, got %v", err)
	}

	if err := s.UpdateGrantRole(ctx, "g1", core.RoleEditor); err != nil {
		t.Fatalf("UpdateGrantRole err: %v", err)
	}
	got, _ := s.GetGrantForTrip(ctx, user.ID, "t1")
	if got.Role != core.RoleEditor {
		t.Fatalf("role = %s, want editor", got.Role)
	}

	if err := s.DeleteGrant(ctx, "g1"); err != nil {
		t.Fatalf("DeleteGrant err: %v", err)
	}
	if _, err := s.GetGrantForTrip(ctx, user.ID, "t1"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}
