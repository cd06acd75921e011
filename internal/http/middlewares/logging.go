package middlewares

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/dropDatabas3/triplog/internal/metrics"
	"github.com/dropDatabas3/triplog/internal/observability/logger"
)

// statusWriter captura el status code escrito por el handler.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// WithRequestLog asigna un request ID, propaga un logger enriquecido en el
// contexto y loguea cada request al completarse.
func WithRequestLog() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			reqID := r.Header.Get("X-Request-Id")
			if reqID == "" {
				reqID = uuid.NewString()
			}
			w.Header().Set("X-Request-Id", reqID)

			ctx := setRequestID(r.Context(), reqID)
			log := logger.From(ctx).With(logger.RequestID(reqID))
			ctx = logger.ToContext(ctx, log)

			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(sw, r.WithContext(ctx))

			dur := time.Since(start)
			path := routePattern(r)
			log.Info("request",
				logger.Method(r.Method),
				logger.Path(path),
				logger.Status(sw.status),
				logger.Duration(dur),
			)
			metrics.HTTPDuration.WithLabelValues(
				path, r.Method, strconv.Itoa(sw.status),
			).Observe(dur.Seconds())
		})
	}
}

// routePattern resuelve el patrón de ruta de chi una vez ruteado el request
// ("/api/invites/validate/{code}" y no el path concreto). Los códigos de
// invitación viajan en la URL: no pueden terminar en logs ni en labels de
// /metrics, y de paso la cardinalidad del histograma queda acotada al árbol
// de rutas.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}
