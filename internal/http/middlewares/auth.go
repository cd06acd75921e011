package middlewares

import (
	"net/http"
	"strings"

	"github.com/dropDatabas3/triplog/internal/http/errors"
	"github.com/dropDatabas3/triplog/internal/session"
)

// RequireSession valida el bearer token de sesión y deja los claims en el
// contexto. Sin token o con token inválido corta con 401.
func RequireSession(issuer *session.Issuer) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := bearerToken(r)
			if raw == "" {
				errors.WriteError(w, errors.ErrTokenMissing)
				return
			}
			claims, err := issuer.Verify(raw)
			if err != nil {
				errors.WriteError(w, errors.ErrTokenInvalid)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}

// RequireAdmin corta con 403 si la sesión no pertenece a un admin.
// Asume RequireSession aplicado antes en la cadena.
func RequireAdmin() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := GetClaims(r.Context())
			if claims == nil {
				errors.WriteError(w, errors.ErrTokenMissing)
				return
			}
			if !claims.IsAdmin {
				errors.WriteError(w, errors.ErrAdminOnly)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if h == "" {
		return ""
	}
	parts := strings.SplitN(h, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
