package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Métricas de autenticación. Paquete standalone para evitar ciclos de import
// entre services y HTTP.

var (
	AuthAttempts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "auth_attempts_total",
		Help: "Intentos de autenticación por flujo y resultado",
	}, []string{"flow", "result"}) // flow: register|login|recovery|invite_validate ; result: ok|fail

	RateLimited = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "auth_rate_limited_total",
		Help: "Requests rechazados por rate limiting",
	})

	HTTPDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Latencia de requests HTTP",
		Buckets: prometheus.DefBuckets,
	}, []string{"path", "method", "status"})
)

// Register registra las métricas en el registry dado (default si nil).
func Register(reg prometheus.Registerer) error {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	for _, c := range []prometheus.Collector{AuthAttempts, RateLimited, HTTPDuration} {
		if err := reg.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				return err
			}
		}
	}
	return nil
}
