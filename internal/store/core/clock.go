package core

import "time"

// Clock abstrae el reloj de pared para poder testear TTLs y expiraciones
// de forma determinística.
type Clock interface {
	Now() time.Time
}

// RealClock usa time.Now (UTC).
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now().UTC() }

// FixedClock retorna siempre el mismo instante. Solo para tests.
type FixedClock struct{ T time.Time }

func (c FixedClock) Now() time.Time { return c.T }
