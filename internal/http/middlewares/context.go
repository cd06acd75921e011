package middlewares

import (
	"context"

	"github.com/dropDatabas3/triplog/internal/session"
)

// =================================================================================
// CONTEXT KEYS
// =================================================================================

type ctxKey string

const (
	// ctxClaimsKey guarda los claims de sesión validados
	ctxClaimsKey ctxKey = "claims"
	// ctxRequestIDKey guarda el request ID
	ctxRequestIDKey ctxKey = "request_id"
)

// WithClaims inyecta los claims de sesión en el contexto
func WithClaims(ctx context.Context, c *session.Claims) context.Context {
	return context.WithValue(ctx, ctxClaimsKey, c)
}

// setRequestID inyecta el request ID en el contexto (interno)
func setRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ctxRequestIDKey, requestID)
}

// GetClaims obtiene los claims de sesión del contexto.
// Retorna nil si no hay claims (token no validado o middleware no aplicado).
func GetClaims(ctx context.Context) *session.Claims {
	if v := ctx.Value(ctxClaimsKey); v != nil {
		if c, ok := v.(*session.Claims); ok {
			return c
		}
	}
	return nil
}

// MustGetClaims obtiene los claims o hace panic.
// Usar solo en rutas donde el middleware de sesión SIEMPRE se aplica.
func MustGetClaims(ctx context.Context) *session.Claims {
	c := GetClaims(ctx)
	if c == nil {
		panic("middlewares: no claims in context")
	}
	return c
}

// GetRequestID obtiene el request ID del contexto.
// Retorna cadena vacía si no hay request ID.
func GetRequestID(ctx context.Context) string {
	if v := ctx.Value(ctxRequestIDKey); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
