package challenge

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/dropDatabas3/triplog/internal/store/core"
)

// MemoryStore implementa Store sobre go-cache. El janitor de go-cache hace de
// sweep periódico de entries expirados.
type MemoryStore struct {
	c     *gocache.Cache
	ttl   time.Duration
	clock core.Clock
}

// NewMemoryStore crea un store in-process con el TTL dado (DefaultTTL si 0).
// sweepEvery controla la frecuencia del janitor (1m si 0). clock nil usa el
// reloj real.
func NewMemoryStore(ttl, sweepEvery time.Duration, clock core.Clock) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if sweepEvery <= 0 {
		sweepEvery = time.Minute
	}
	if clock == nil {
		clock = core.RealClock{}
	}
	return &MemoryStore{c: gocache.New(ttl, sweepEvery), ttl: ttl, clock: clock}
}

func (m *MemoryStore) Put(_ context.Context, email string, e Entry) error {
	ttl := e.ExpiresAt.Sub(m.clock.Now())
	if ttl <= 0 {
		ttl = m.ttl
	}
	// Set pisa cualquier entry anterior del mismo email (supersede).
	m.c.Set(Key(email), e, ttl)
	return nil
}

func (m *MemoryStore) Take(_ context.Context, email string) (*Entry, bool) {
	v, ok := m.c.Get(Key(email))
	if !ok {
		return nil, false
	}
	e, ok := v.(Entry)
	if !ok {
		return nil, false
	}
	// go-cache expira contra el reloj de pared; la comparación que manda es
	// contra el reloj inyectado.
	if !m.clock.Now().Before(e.ExpiresAt) {
		m.c.Delete(Key(email))
		return nil, false
	}
	return &e, true
}

func (m *MemoryStore) Clear(_ context.Context, email string) error {
	m.c.Delete(Key(email))
	return nil
}
