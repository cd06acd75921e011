// Package memory implementa core.Repository con maps + mutex. Se usa en tests
// y en modo demo single-instance; la semántica (conflictos, claims atómicos,
// primer admin) replica la del backend pg.
package memory

import (
	"bytes"
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dropDatabas3/triplog/internal/store/core"
)

type Store struct {
	mu    sync.Mutex
	clock core.Clock

	identities map[string]*core.Identity // keyed por id
	byEmail    map[string]string         // lower(email) → id
	auths      map[string][]core.Authenticator
	recovery   map[string]*core.RecoveryToken
	invites    map[string]*core.Invite
	grants     map[string]*core.TripAccessGrant
	trips      map[string]*core.Trip
}

func New(clock core.Clock) *Store {
	if clock == nil {
		clock = core.RealClock{}
	}
	return &Store{
		clock:      clock,
		identities: make(map[string]*core.Identity),
		byEmail:    make(map[string]string),
		auths:      make(map[string][]core.Authenticator),
		recovery:   make(map[string]*core.RecoveryToken),
		invites:    make(map[string]*core.Invite),
		grants:     make(map[string]*core.TripAccessGrant),
		trips:      make(map[string]*core.Trip),
	}
}

func (s *Store) Ping(context.Context) error { return nil }
func (s *Store) Close()                     {}

// ------- Identities -------

func (s *Store) GetIdentityByEmail(_ context.Context, email string) (*core.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.byEmail[strings.ToLower(email)]
	if !ok {
		return nil, core.ErrNotFound
	}
	cp := *s.identities[id]
	return &cp, nil
}

func (s *Store) GetIdentityByID(_ context.Context, id string) (*core.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ident, ok := s.identities[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	cp := *ident
	return &cp, nil
}

func (s *Store) RegisterIdentity(_ context.Context, ident *core.Identity, auth *core.Authenticator, inviteCode *string) (*core.Identity, error) {
	now := s.clock.Now()

	// El mutex del store cumple acá el rol del advisory lock de pg: el check
	// "¿es la primera identidad?" y el insert son una sola sección crítica.
	s.mu.Lock()
	defer s.mu.Unlock()

	email := strings.ToLower(ident.Email)
	if _, exists := s.byEmail[email]; exists {
		return nil, core.ErrConflict
	}
	isAdmin := len(s.identities) == 0

	// Validar la invitación antes de mutar nada (atomicidad sin rollback).
	var inv *core.Invite
	if inviteCode != nil && *inviteCode != "" {
		for _, cand := range s.invites {
			if cand.Code == *inviteCode {
				inv = cand
				break
			}
		}
		if inv == nil || !inv.Pending(now) {
			return nil, core.ErrInviteNotPending
		}
	}

	cp := *ident
	cp.Email = email
	cp.IsAdmin = isAdmin
	cp.CreatedAt = now
	cp.UpdatedAt = now
	s.identities[cp.ID] = &cp
	s.byEmail[email] = cp.ID

	a := *auth
	a.IdentityID = cp.ID
	a.CreatedAt = now
	s.auths[cp.ID] = append(s.auths[cp.ID], a)

	if inv != nil {
		used := now
		inv.UsedAt = &used
		usedBy := cp.ID
		inv.UsedBy = &usedBy
		if !isAdmin {
			for _, tripID := range inv.TripIDs {
				g := &core.TripAccessGrant{
					ID:        uuid.NewString(),
					UserID:    cp.ID,
					TripID:    tripID,
					Role:      inv.Role,
					GrantedAt: now,
					GrantedBy: inv.CreatedBy,
				}
				s.grants[g.ID] = g
			}
		}
	}

	out := cp
	return &out, nil
}

// ------- Authenticators -------

func (s *Store) ListAuthenticators(_ context.Context, identityID string) ([]core.Authenticator, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Authenticator, len(s.auths[identityID]))
	copy(out, s.auths[identityID])
	return out, nil
}

func (s *Store) GetAuthenticator(_ context.Context, credentialID []byte) (*core.Authenticator, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, list := range s.auths {
		for _, a := range list {
			if bytes.Equal(a.CredentialID, credentialID) {
				cp := a
				return &cp, nil
			}
		}
	}
	return nil, core.ErrNotFound
}

func (s *Store) AddAuthenticator(_ context.Context, a *core.Authenticator) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.identities[a.IdentityID]; !ok {
		return core.ErrNotFound
	}
	for _, list := range s.auths {
		for _, existing := range list {
			if bytes.Equal(existing.CredentialID, a.CredentialID) {
				return core.ErrConflict
			}
		}
	}
	cp := *a
	cp.CreatedAt = s.clock.Now()
	s.auths[a.IdentityID] = append(s.auths[a.IdentityID], cp)
	return nil
}

func (s *Store) DeleteAuthenticator(_ context.Context, identityID string, credentialID []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.auths[identityID]
	idx := -1
	for i, a := range list {
		if bytes.Equal(a.CredentialID, credentialID) {
			idx = i
			break
		}
	}
	if idx < 0 {
		return core.ErrNotFound
	}
	if len(list) <= 1 {
		return core.ErrLastAuthenticator
	}
	s.auths[identityID] = append(list[:idx], list[idx+1:]...)
	return nil
}

func (s *Store) UpdateAuthenticatorUsage(_ context.Context, credentialID []byte, signCount uint32, usedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, list := range s.auths {
		for i, a := range list {
			if bytes.Equal(a.CredentialID, credentialID) {
				t := usedAt
				s.auths[id][i].SignCount = signCount
				s.auths[id][i].LastUsedAt = &t
				return nil
			}
		}
	}
	return core.ErrNotFound
}

// ------- Recovery tokens -------

func (s *Store) CreateRecoveryToken(_ context.Context, t *core.RecoveryToken) error {
	now := s.clock.Now()
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.recovery {
		if existing.IdentityID == t.IdentityID && existing.UsedAt == nil {
			used := now
			existing.UsedAt = &used
		}
	}
	cp := *t
	cp.Attempts = 0
	cp.CreatedAt = now
	s.recovery[cp.ID] = &cp
	return nil
}

func (s *Store) GetLatestRecoveryToken(_ context.Context, identityID string) (*core.RecoveryToken, error) {
	now := s.clock.Now()
	s.mu.Lock()
	defer s.mu.Unlock()

	var candidates []*core.RecoveryToken
	for _, t := range s.recovery {
		if t.IdentityID == identityID && t.UsedAt == nil && now.Before(t.ExpiresAt) {
			candidates = append(candidates, t)
		}
	}
	if len(candidates) == 0 {
		return nil, core.ErrNotFound
	}
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].CreatedAt.After(candidates[j].CreatedAt)
	})
	cp := *candidates[0]
	return &cp, nil
}

func (s *Store) FailRecoveryAttempt(_ context.Context, tokenID string, maxAttempts int) (int, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.recovery[tokenID]
	if !ok || t.UsedAt != nil {
		return 0, false, core.ErrNotFound
	}
	t.Attempts++
	if t.Attempts >= maxAttempts && t.LockedAt == nil {
		locked := s.clock.Now()
		t.LockedAt = &locked
	}
	return t.Attempts, t.LockedAt != nil, nil
}

func (s *Store) ClaimRecoveryToken(_ context.Context, tokenID string) error {
	now := s.clock.Now()
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.recovery[tokenID]
	if !ok || t.UsedAt != nil || t.LockedAt != nil || !now.Before(t.ExpiresAt) {
		return core.ErrConflict
	}
	used := now
	t.UsedAt = &used
	delete(s.auths, t.IdentityID)
	return nil
}

// ------- Invites -------

func (s *Store) CreateInvite(_ context.Context, inv *core.Invite) error {
	now := s.clock.Now()
	s.mu.Lock()
	defer s.mu.Unlock()

	if inv.Email != nil {
		email := strings.ToLower(*inv.Email)
		for _, existing := range s.invites {
			if existing.Email != nil && *existing.Email == email && existing.Pending(now) {
				return core.ErrConflict
			}
		}
	}
	for _, tripID := range inv.TripIDs {
		if _, ok := s.trips[tripID]; !ok {
			return core.ErrNotFound
		}
	}

	cp := *inv
	if cp.Email != nil {
		email := strings.ToLower(*cp.Email)
		cp.Email = &email
	}
	cp.CreatedAt = now
	cp.TripIDs = append([]string(nil), inv.TripIDs...)
	s.invites[cp.ID] = &cp
	return nil
}

func (s *Store) GetInviteByCode(_ context.Context, code string) (*core.Invite, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, inv := range s.invites {
		if inv.Code == code {
			cp := *inv
			return &cp, nil
		}
	}
	return nil, core.ErrNotFound
}

func (s *Store) GetInviteByID(_ context.Context, id string) (*core.Invite, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	inv, ok := s.invites[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	cp := *inv
	return &cp, nil
}

func (s *Store) ListInvites(_ context.Context) ([]core.Invite, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Invite, 0, len(s.invites))
	for _, inv := range s.invites {
		out = append(out, *inv)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) RevokeInvite(_ context.Context, id string) error {
	now := s.clock.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	inv, ok := s.invites[id]
	if !ok {
		return core.ErrNotFound
	}
	if !inv.Pending(now) {
		return core.ErrInviteNotPending
	}
	used := now
	inv.UsedAt = &used
	return nil
}

// ------- Trip access grants -------

func (s *Store) CreateGrant(_ context.Context, g *core.TripAccessGrant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.identities[g.UserID]; !ok {
		return core.ErrNotFound
	}
	if _, ok := s.trips[g.TripID]; !ok {
		return core.ErrNotFound
	}
	for _, existing := range s.grants {
		if existing.UserID == g.UserID && existing.TripID == g.TripID {
			return core.ErrConflict
		}
	}
	cp := *g
	cp.GrantedAt = s.clock.Now()
	s.grants[cp.ID] = &cp
	return nil
}

func (s *Store) GetGrant(_ context.Context, id string) (*core.TripAccessGrant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.grants[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	cp := *g
	return &cp, nil
}

func (s *Store) GetGrantForTrip(_ context.Context, userID, tripID string) (*core.TripAccessGrant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, g := range s.grants {
		if g.UserID == userID && g.TripID == tripID {
			cp := *g
			return &cp, nil
		}
	}
	return nil, core.ErrNotFound
}

func (s *Store) ListGrantsByTrip(_ context.Context, tripID string) ([]core.TripAccessGrant, error) {
	return s.filterGrants(func(g *core.TripAccessGrant) bool { return g.TripID == tripID })
}

func (s *Store) ListGrantsByUser(_ context.Context, userID string) ([]core.TripAccessGrant, error) {
	return s.filterGrants(func(g *core.TripAccessGrant) bool { return g.UserID == userID })
}

func (s *Store) filterGrants(keep func(*core.TripAccessGrant) bool) ([]core.TripAccessGrant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.TripAccessGrant
	for _, g := range s.grants {
		if keep(g) {
			out = append(out, *g)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].GrantedAt.Before(out[j].GrantedAt) })
	return out, nil
}

func (s *Store) UpdateGrantRole(_ context.Context, id string, role core.Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.grants[id]
	if !ok {
		return core.ErrNotFound
	}
	g.Role = role
	return nil
}

func (s *Store) DeleteGrant(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.grants[id]; !ok {
		return core.ErrNotFound
	}
	delete(s.grants, id)
	return nil
}

// ------- Trips -------

func (s *Store) GetTrip(_ context.Context, id string) (*core.Trip, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.trips[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (s *Store) CreateTrip(_ context.Context, t *core.Trip) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.trips[t.ID]; ok {
		return core.ErrConflict
	}
	cp := *t
	cp.CreatedAt = s.clock.Now()
	s.trips[t.ID] = &cp
	return nil
}
