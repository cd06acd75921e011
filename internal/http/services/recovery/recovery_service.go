// Package recovery implementa la emisión y el canje de códigos de recuperación
// de cuenta. Anti-enumeración: el request hace siempre el mismo trabajo y
// siempre responde éxito; el verify colapsa sus fallos en un genérico, salvo
// el lockout que sí se informa.
package recovery

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dropDatabas3/triplog/internal/challenge"
	"github.com/dropDatabas3/triplog/internal/metrics"
	"github.com/dropDatabas3/triplog/internal/notify"
	"github.com/dropDatabas3/triplog/internal/observability/logger"
	"github.com/dropDatabas3/triplog/internal/security/codehash"
	"github.com/dropDatabas3/triplog/internal/security/token"
	"github.com/dropDatabas3/triplog/internal/store/core"
)

// DefaultTTL de un código de recovery.
const DefaultTTL = 15 * time.Minute

// DefaultMaxAttempts antes de bloquear el token permanentemente.
const DefaultMaxAttempts = 5

var (
	// ErrInvalid cubre email desconocido, token inexistente, expirado y
	// código incorrecto ya sin intentos de distinción.
	ErrInvalid = errors.New("recovery: invalid or expired code")

	// ErrLocked: el token se bloqueó por intentos fallidos acumulados.
	// Hace falta solicitar un código nuevo.
	ErrLocked = errors.New("recovery: token locked")
)

// AttemptsError es un código incorrecto con intentos todavía disponibles.
type AttemptsError struct {
	Remaining int
}

func (e *AttemptsError) Error() string {
	return fmt.Sprintf("recovery: wrong code, %d attempts remaining", e.Remaining)
}

// Service expone el flujo de recovery.
type Service interface {
	// Request emite y envía un código. Siempre retorna nil salvo fallo de
	// infraestructura: que el email exista o no es inobservable.
	Request(ctx context.Context, email string) error

	// Verify canjea un código. Éxito = token consumido y TODAS las passkeys
	// de la identidad borradas (fuerza re-registro).
	Verify(ctx context.Context, email, code string) error
}

// Deps contiene las dependencias del servicio.
type Deps struct {
	Repo   core.Repository
	Sender notify.Sender
	Clock  core.Clock

	TTL         time.Duration
	MaxAttempts int

	// Sleep permite inyectar el delay aleatorio en tests (default time.Sleep).
	Sleep func(time.Duration)
}

type service struct {
	deps Deps
}

func NewService(deps Deps) Service {
	if deps.Clock == nil {
		deps.Clock = core.RealClock{}
	}
	if deps.TTL <= 0 {
		deps.TTL = DefaultTTL
	}
	if deps.MaxAttempts <= 0 {
		deps.MaxAttempts = DefaultMaxAttempts
	}
	if deps.Sleep == nil {
		deps.Sleep = time.Sleep
	}
	return &service{deps: deps}
}

func (s *service) Request(ctx context.Context, email string) error {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("recovery"),
		logger.Op("Request"),
	)

	email = challenge.Key(email)

	// El trabajo de generar y hashear se hace SIEMPRE, exista o no la
	// cuenta, para que el timing no delate nada.
	code, err := token.GenerateRecoveryCode()
	if err != nil {
		return err
	}
	hash, err := codehash.Hash(codehash.Default, code)
	if err != nil {
		return err
	}
	expiresAt := s.deps.Clock.Now().Add(s.deps.TTL)

	ident, lookupErr := s.deps.Repo.GetIdentityByEmail(ctx, email)
	if lookupErr == nil {
		t := &core.RecoveryToken{
			ID:         uuid.NewString(),
			IdentityID: ident.ID,
			CodeHash:   hash,
			ExpiresAt:  expiresAt,
		}
		if err := s.deps.Repo.CreateRecoveryToken(ctx, t); err != nil {
			log.Error("recovery token persist failed", logger.Err(err))
		} else if s.deps.Sender != nil {
			if err := s.deps.Sender.Send(email,
				"Recuperación de cuenta",
				recoveryHTML(code), recoveryText(code)); err != nil {
				// Nunca se propaga: la respuesta es success igual.
				log.Error("recovery delivery failed", logger.Err(err))
			}
		}
	} else if !errors.Is(lookupErr, core.ErrNotFound) {
		log.Error("identity lookup failed", logger.Err(lookupErr))
	}

	// Jitter chico para aplanar cualquier diferencia residual de timing.
	s.deps.Sleep(time.Duration(50+rand.Intn(150)) * time.Millisecond)

	metrics.AuthAttempts.WithLabelValues("recovery_request", "ok").Inc()
	return nil
}

func (s *service) Verify(ctx context.Context, email, code string) error {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("recovery"),
		logger.Op("Verify"),
	)

	email = challenge.Key(email)
	code = strings.TrimSpace(code)
	if email == "" || code == "" {
		return ErrInvalid
	}

	ident, err := s.deps.Repo.GetIdentityByEmail(ctx, email)
	if err != nil {
		metrics.AuthAttempts.WithLabelValues("recovery", "fail").Inc()
		return ErrInvalid
	}

	tok, err := s.deps.Repo.GetLatestRecoveryToken(ctx, ident.ID)
	if err != nil {
		metrics.AuthAttempts.WithLabelValues("recovery", "fail").Inc()
		return ErrInvalid
	}
	if tok.LockedAt != nil {
		// El lock es permanente: ni el código correcto lo destraba.
		metrics.AuthAttempts.WithLabelValues("recovery", "fail").Inc()
		return ErrLocked
	}

	if !codehash.Verify(code, tok.CodeHash) {
		attempts, locked, err := s.deps.Repo.FailRecoveryAttempt(ctx, tok.ID, s.deps.MaxAttempts)
		if err != nil {
			return err
		}
		metrics.AuthAttempts.WithLabelValues("recovery", "fail").Inc()
		if locked {
			log.Warn("recovery token locked after failed attempts",
				logger.UserID(ident.ID), logger.Int("attempts", attempts))
			return ErrLocked
		}
		return &AttemptsError{Remaining: s.deps.MaxAttempts - attempts}
	}

	// Claim atómico: exactamente un caller concurrente gana. El claim borra
	// todas las passkeys en la misma transacción.
	if err := s.deps.Repo.ClaimRecoveryToken(ctx, tok.ID); err != nil {
		if errors.Is(err, core.ErrConflict) {
			metrics.AuthAttempts.WithLabelValues("recovery", "fail").Inc()
			return ErrInvalid
		}
		return err
	}

	metrics.AuthAttempts.WithLabelValues("recovery", "ok").Inc()
	log.Info("account recovered, passkeys cleared", logger.UserID(ident.ID))
	return nil
}

func recoveryHTML(code string) string {
	return fmt.Sprintf(
		"<p>Tu código de recuperación es:</p><p><strong>%s</strong></p><p>Expira en 15 minutos. Si no lo pediste, ignorá este mensaje.</p>",
		code)
}

func recoveryText(code string) string {
	return fmt.Sprintf("Tu código de recuperación es: %s\nExpira en 15 minutos. Si no lo pediste, ignorá este mensaje.\n", code)
}
