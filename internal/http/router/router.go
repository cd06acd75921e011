// Package router arma el árbol de rutas de la API sobre chi.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	accessctrl "github.com/dropDatabas3/triplog/internal/http/controllers/access"
	authctrl "github.com/dropDatabas3/triplog/internal/http/controllers/auth"
	healthctrl "github.com/dropDatabas3/triplog/internal/http/controllers/health"
	invitesctrl "github.com/dropDatabas3/triplog/internal/http/controllers/invites"
	recoveryctrl "github.com/dropDatabas3/triplog/internal/http/controllers/recovery"
	mw "github.com/dropDatabas3/triplog/internal/http/middlewares"
	"github.com/dropDatabas3/triplog/internal/rate"
	"github.com/dropDatabas3/triplog/internal/session"
)

// Deps contiene todo lo que el router necesita para armar el árbol.
type Deps struct {
	Ceremonies *authctrl.CeremoniesController
	Passkeys   *authctrl.PasskeysController
	Recovery   *recoveryctrl.Controller
	Invites    *invitesctrl.Controller
	Access     *accessctrl.Controller
	Health     *healthctrl.Controller

	Sessions   *session.Issuer
	Limiter    rate.Limiter
	TrustProxy bool
}

// New construye el handler raíz con la cadena de middlewares completa:
// Recover → RequestLog → SecurityHeaders, y por grupo NoStore + RateLimit
// (ceremonias) o sesión/admin (rutas protegidas).
func New(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(mw.WithRecover())
	r.Use(mw.WithRequestLog())
	r.Use(mw.WithSecurityHeaders())

	rateLimited := mw.WithRateLimit(mw.RateLimitConfig{
		Limiter: deps.Limiter,
		IP:      mw.ClientIPConfig{TrustProxy: deps.TrustProxy},
	})
	requireSession := mw.RequireSession(deps.Sessions)
	requireAdmin := mw.RequireAdmin()

	r.Route("/api", func(r chi.Router) {
		// Ceremonias públicas: sin cache y con rate limit por IP.
		r.Group(func(r chi.Router) {
			r.Use(mw.WithNoStore())
			r.Use(rateLimited)

			r.Post("/auth/register/options", deps.Ceremonies.RegisterOptions)
			r.Post("/auth/register/verify", deps.Ceremonies.RegisterVerify)
			r.Post("/auth/login/options", deps.Ceremonies.LoginOptions)
			r.Post("/auth/login/verify", deps.Ceremonies.LoginVerify)

			r.Post("/auth/recovery/request", deps.Recovery.Request)
			r.Post("/auth/recovery/verify", deps.Recovery.Verify)

			r.Get("/invites/validate/{code}", deps.Invites.Validate)
		})

		// Rutas con sesión.
		r.Group(func(r chi.Router) {
			r.Use(mw.WithNoStore())
			r.Use(requireSession)

			r.Post("/auth/passkeys/options", deps.Passkeys.Options)
			r.Post("/auth/passkeys/verify", deps.Passkeys.Verify)
			r.Get("/auth/passkeys", deps.Passkeys.List)
			r.Delete("/auth/passkeys/{credID}", deps.Passkeys.Delete)
			r.Get("/auth/me", deps.Passkeys.Me)
		})

		// Rutas admin.
		r.Group(func(r chi.Router) {
			r.Use(requireSession)
			r.Use(requireAdmin)

			r.Post("/invites", deps.Invites.Create)
			r.Get("/invites", deps.Invites.List)
			r.Delete("/invites/{id}", deps.Invites.Revoke)

			r.Post("/trips/{tripID}/access", deps.Access.Grant)
			r.Get("/trips/{tripID}/access", deps.Access.List)
			r.Put("/access/{id}", deps.Access.Update)
			r.Delete("/access/{id}", deps.Access.Revoke)
		})
	})

	r.Get("/healthz", deps.Health.Healthz)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	return r
}
