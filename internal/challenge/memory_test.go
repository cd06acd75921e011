package challenge

import (
	"context"
	"encoding/json"
	"testing"
	"time"
)

func TestMemoryStore_PutTakeClear(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(time.Minute, 0, nil)

	e := Entry{
		SessionData: json.RawMessage(`{"challenge":"abc"}`),
		ExpiresAt:   time.Now().Add(time.Minute),
	}
	if err := s.Put(ctx, "User@Example.com", e); err != nil {
		t.Fatalf("Put err: %v", err)
	}

	// El lookup normaliza el email: misma entry con otra capitalización.
	got, ok := s.Take(ctx, "user@example.com")
	if !ok {
		t.Fatal("Take: expected entry")
	}
	if string(got.SessionData) != `{"challenge":"abc"}` {
		t.Fatalf("session data mismatch: %s", got.SessionData)
	}

	// Take no consume: el mismo entry sigue disponible hasta el Clear.
	if _, ok := s.Take(ctx, "user@example.com"); !ok {
		t.Fatal("Take should not consume the entry")
	}

	if err := s.Clear(ctx, "USER@example.com"); err != nil {
		t.Fatalf("Clear err: %v", err)
	}
	if _, ok := s.Take(ctx, "user@example.com"); ok {
		t.Fatal("entry should be gone after Clear")
	}
}

func TestMemoryStore_PutSupersedes(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(time.Minute, 0, nil)

	first := Entry{SessionData: json.RawMessage(`"first"`), ExpiresAt: time.Now().Add(time.Minute)}
	second := Entry{SessionData: json.RawMessage(`"second"`), ExpiresAt: time.Now().Add(time.Minute)}

	_ = s.Put(ctx, "a@b.c", first)
	_ = s.Put(ctx, "a@b.c", second)

	got, ok := s.Take(ctx, "a@b.c")
	if !ok {
		t.Fatal("Take: expected entry")
	}
	if string(got.SessionData) != `"second"` {
		t.Fatalf("expected the second Put to win, got %s", got.SessionData)
	}
}

func TestMemoryStore_Expiry(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(time.Minute, 0, nil)

	e := Entry{ExpiresAt: time.Now().Add(30 * time.Millisecond)}
	_ = s.Put(ctx, "a@b.c", e)

	time.Sleep(60 * time.Millisecond)
	if _, ok := s.Take(ctx, "a@b.c"); ok {
		t.Fatal("expired entry should not be returned")
	}
}

// stepClock es un reloj manual para testear expiración sin dormir.
type stepClock struct{ t time.Time }

func (c *stepClock) Now() time.Time { return c.t }

func TestMemoryStore_ExpiryFollowsInjectedClock(t *testing.T) {
	ctx := context.Background()
	clk := &stepClock{t: time.Date(2026, 8, 27, 12, 0, 0, 0, time.UTC)}
	s := NewMemoryStore(time.Minute, 0, clk)

	e := Entry{
		SessionData: json.RawMessage(`"sess"`),
		ExpiresAt:   clk.t.Add(30 * time.Second),
	}
	if err := s.Put(ctx, "a@b.c", e); err != nil {
		t.Fatalf("Put err: %v", err)
	}
	if _, ok := s.Take(ctx, "a@b.c"); !ok {
		t.Fatal("Take: expected entry before expiry")
	}

	// Avanza el reloj inyectado más allá del TTL: el de pared no se movió.
	clk.t = clk.t.Add(31 * time.Second)
	if _, ok := s.Take(ctx, "a@b.c"); ok {
		t.Fatal("entry should expire per the injected clock")
	}
}

func TestKey(t *testing.T) {
	if got := Key("  User@Example.COM "); got != "user@example.com" {
		t.Fatalf("Key: got %q", got)
	}
}
