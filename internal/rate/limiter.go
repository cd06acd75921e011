// Package rate implementa el rate limiting de los endpoints de autenticación:
// ventana fija por clave de cliente, con backend memory (single instance) o
// Redis (multi instance).
package rate

import (
	"context"
	"time"
)

// Defaults para endpoints de auth: 10 requests por minuto por cliente.
const (
	DefaultWindow = time.Minute
	DefaultMax    = 10
)

type Result struct {
	Allowed     bool
	Remaining   int64
	RetryAfter  time.Duration
	WindowTTL   time.Duration
	CurrentHits int64
}

type Limiter interface {
	Allow(ctx context.Context, key string) (Result, error)
}
