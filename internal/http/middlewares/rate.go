package middlewares

import (
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dropDatabas3/triplog/internal/http/errors"
	"github.com/dropDatabas3/triplog/internal/metrics"
	"github.com/dropDatabas3/triplog/internal/observability/logger"
	"github.com/dropDatabas3/triplog/internal/rate"
)

// ClientIPConfig controla cómo se resuelve la IP del cliente.
type ClientIPConfig struct {
	// TrustProxy: leer la IP de X-Forwarded-For (primer hop). Si está activo
	// y el header falta, el request se rechaza: un fallback silencioso a
	// RemoteAddr permitiría spoofear la clave de rate limiting.
	TrustProxy bool
}

// ClientIP resuelve la IP del cliente según la config.
// Retorna "" si TrustProxy está activo y el header no vino.
func ClientIP(r *http.Request, cfg ClientIPConfig) string {
	if cfg.TrustProxy {
		xf := r.Header.Get("X-Forwarded-For")
		if xf == "" {
			return ""
		}
		parts := strings.Split(xf, ",")
		return strings.TrimSpace(parts[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil {
		return host
	}
	return r.RemoteAddr
}

// RateLimitConfig configura el middleware de rate limiting.
type RateLimitConfig struct {
	Limiter rate.Limiter
	IP      ClientIPConfig
}

// WithRateLimit limita los intentos por cliente en los endpoints de ceremonia.
// La clave es la IP del cliente: suficiente para frenar fuerza bruta online
// sin castigar a un usuario legítimo detrás de otra IP.
func WithRateLimit(cfg RateLimitConfig) Middleware {
	if cfg.Limiter == nil {
		return func(next http.Handler) http.Handler { return next }
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := ClientIP(r, cfg.IP)
			if ip == "" {
				errors.WriteError(w, errors.ErrBadRequest.WithDetail("client address unavailable"))
				return
			}

			res, err := cfg.Limiter.Allow(r.Context(), ip)
			if err != nil {
				// El limiter caído no tumba la autenticación
				logger.From(r.Context()).Warn("rate limiter error",
					logger.Op("rate"), logger.Err(err))
				next.ServeHTTP(w, r)
				return
			}

			if !res.Allowed {
				metrics.RateLimited.Inc()
				if res.RetryAfter > 0 {
					w.Header().Set("Retry-After", strconv.Itoa(int(res.RetryAfter.Seconds())))
				}
				if res.WindowTTL > 0 {
					resetAt := time.Now().Add(res.WindowTTL).Unix()
					w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(resetAt, 10))
				}
				errors.WriteError(w, errors.ErrRateLimited)
				return
			}

			w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", res.Remaining))
			next.ServeHTTP(w, r)
		})
	}
}
