// Command triplog levanta el server de autenticación y acceso.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	rdb "github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/dropDatabas3/triplog/internal/challenge"
	"github.com/dropDatabas3/triplog/internal/config"
	accessctrl "github.com/dropDatabas3/triplog/internal/http/controllers/access"
	authctrl "github.com/dropDatabas3/triplog/internal/http/controllers/auth"
	healthctrl "github.com/dropDatabas3/triplog/internal/http/controllers/health"
	invitesctrl "github.com/dropDatabas3/triplog/internal/http/controllers/invites"
	recoveryctrl "github.com/dropDatabas3/triplog/internal/http/controllers/recovery"
	"github.com/dropDatabas3/triplog/internal/http/router"
	accesssvc "github.com/dropDatabas3/triplog/internal/http/services/access"
	authsvc "github.com/dropDatabas3/triplog/internal/http/services/auth"
	invitessvc "github.com/dropDatabas3/triplog/internal/http/services/invites"
	recoverysvc "github.com/dropDatabas3/triplog/internal/http/services/recovery"
	"github.com/dropDatabas3/triplog/internal/metrics"
	"github.com/dropDatabas3/triplog/internal/notify"
	"github.com/dropDatabas3/triplog/internal/observability/logger"
	"github.com/dropDatabas3/triplog/internal/passkey"
	"github.com/dropDatabas3/triplog/internal/rate"
	"github.com/dropDatabas3/triplog/internal/session"
	"github.com/dropDatabas3/triplog/internal/store/core"
	"github.com/dropDatabas3/triplog/internal/store/memory"
	"github.com/dropDatabas3/triplog/internal/store/pg"
)

func main() {
	_ = godotenv.Load()

	var configPath string
	flag.StringVar(&configPath, "config", os.Getenv("CONFIG_PATH"), "ruta al config YAML")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.L().Fatal("config load failed", logger.Err(err))
	}

	logger.Init(logger.Config{
		Env:         cfg.App.Env,
		Level:       cfg.App.LogLevel,
		ServiceName: "triplog",
	})
	defer func() { _ = logger.Sync() }()
	log := logger.L()

	// Config de auth inválida es fatal: servir degradado sería peor.
	if err := cfg.Validate(); err != nil {
		log.Fatal("invalid configuration", logger.Err(err))
	}

	if err := metrics.Register(nil); err != nil {
		log.Fatal("metrics registration failed", logger.Err(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	clock := core.RealClock{}

	// ─── Storage ───

	var repo core.Repository
	switch cfg.Storage.Driver {
	case "memory":
		log.Warn("using in-memory storage, data will not survive restarts")
		repo = memory.New(clock)
	default:
		pgStore, err := pg.New(ctx, cfg.Storage.DSN, pg.Config{
			MaxConns:        int32(cfg.Storage.Postgres.MaxConns),
			MinConns:        int32(cfg.Storage.Postgres.MinConns),
			ConnMaxLifetime: config.Duration(cfg.Storage.Postgres.ConnMaxLifetime, 30*time.Minute),
		}, clock)
		if err != nil {
			log.Fatal("storage init failed", logger.Err(err))
		}
		repo = pgStore
	}
	defer repo.Close()

	// ─── Challenge store + rate limiter ───

	challengeTTL := config.Duration(cfg.Auth.ChallengeTTL, challenge.DefaultTTL)
	rateWindow := config.Duration(cfg.Auth.RateWindow, rate.DefaultWindow)

	var challenges challenge.Store
	var limiter rate.Limiter
	switch cfg.Cache.Kind {
	case "redis":
		client := rdb.NewClient(&rdb.Options{Addr: cfg.Cache.Redis.Addr, DB: cfg.Cache.Redis.DB})
		challenges = challenge.NewRedisStore(client, cfg.Cache.Redis.Prefix+"chal:", challengeTTL)
		limiter = rate.NewRedisLimiter(client, cfg.Cache.Redis.Prefix+"rl:", cfg.Auth.RateMax, rateWindow)
		log.Info("redis cache backend ready", logger.String("addr", cfg.Cache.Redis.Addr))
	default:
		memStore := challenge.NewMemoryStore(challengeTTL, challengeTTL, nil)
		memLimiter := rate.NewMemoryLimiter(cfg.Auth.RateMax, rateWindow)
		defer memLimiter.Stop()
		challenges = memStore
		limiter = memLimiter
		log.Info("memory cache backend ready (single instance only)")
	}

	// ─── Verifier + sesión + notifier ───

	verifier, err := passkey.NewVerifier(cfg.WebAuthn)
	if err != nil {
		log.Fatal("webauthn init failed", logger.Err(err))
	}

	issuer, err := session.NewIssuer(cfg.Session.Issuer, cfg.Session.Secret,
		config.Duration(cfg.Session.TTL, session.DefaultTTL))
	if err != nil {
		log.Fatal("session issuer init failed", logger.Err(err))
	}

	var sender notify.Sender
	if cfg.SMTP.Host != "" {
		sender = notify.NewSMTPSender(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.From, cfg.SMTP.User, cfg.SMTP.Pass)
	} else {
		log.Warn("smtp not configured, recovery codes will be logged")
		sender = notify.LogSender{}
	}

	// ─── Services + controllers ───

	authService := authsvc.NewService(authsvc.Deps{
		Repo:         repo,
		Challenges:   challenges,
		Verifier:     verifier,
		Sessions:     issuer,
		Clock:        clock,
		ChallengeTTL: challengeTTL,
	})
	recoveryService := recoverysvc.NewService(recoverysvc.Deps{
		Repo:        repo,
		Sender:      sender,
		Clock:       clock,
		TTL:         config.Duration(cfg.Auth.Recovery.TTL, recoverysvc.DefaultTTL),
		MaxAttempts: cfg.Auth.Recovery.MaxAttempts,
	})
	invitesService := invitessvc.NewService(invitessvc.Deps{
		Repo:  repo,
		Clock: clock,
		TTL:   config.Duration(cfg.Auth.Invite.TTL, invitessvc.DefaultTTL),
	})
	accessService := accesssvc.NewService(accesssvc.Deps{Repo: repo, Clock: clock})

	handler := router.New(router.Deps{
		Ceremonies: authctrl.NewCeremoniesController(authService),
		Passkeys:   authctrl.NewPasskeysController(authService),
		Recovery:   recoveryctrl.NewController(recoveryService),
		Invites:    invitesctrl.NewController(invitesService),
		Access:     accessctrl.NewController(accessService),
		Health:     healthctrl.NewController(repo),
		Sessions:   issuer,
		Limiter:    limiter,
		TrustProxy: cfg.Server.TrustProxy,
	})

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("server listening", logger.String("addr", cfg.Server.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Fatal("server exited", logger.Err(err))
	}
	log.Info("shutdown complete")
}
