// Package config carga la configuración del server: YAML + overrides por
// variables de entorno. La config faltante que invalida la autenticación
// (relying party, secreto de sesión) es fatal al arranque.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dropDatabas3/triplog/internal/passkey"
)

type Config struct {
	App struct {
		// dev | prod
		Env string `yaml:"env"`
		// debug | info | warn | error
		LogLevel string `yaml:"log_level"`
	} `yaml:"app"`

	Server struct {
		Addr string `yaml:"addr"`
		// TrustProxy: si el server corre detrás de un reverse proxy confiable,
		// la IP del cliente se lee de X-Forwarded-For. Si está activo y el
		// header falta, el request se rechaza (fail closed): un fallback
		// silencioso a RemoteAddr sería un vector de spoofing.
		TrustProxy bool `yaml:"trust_proxy"`
	} `yaml:"server"`

	Storage struct {
		// driver: "postgres" | "memory"
		Driver   string `yaml:"driver"`
		DSN      string `yaml:"dsn"`
		Postgres struct {
			MaxConns        int    `yaml:"max_conns"`
			MinConns        int    `yaml:"min_conns"`
			ConnMaxLifetime string `yaml:"conn_max_lifetime"`
		} `yaml:"postgres"`
	} `yaml:"storage"`

	// Cache: backend del challenge store y del rate limiter.
	// "memory" (instancia única) o "redis" (multi instancia).
	Cache struct {
		Kind  string `yaml:"kind"`
		Redis struct {
			Addr   string `yaml:"addr"`
			DB     int    `yaml:"db"`
			Prefix string `yaml:"prefix"`
		} `yaml:"redis"`
	} `yaml:"cache"`

	WebAuthn passkey.Config `yaml:"webauthn"`

	Session struct {
		Issuer string `yaml:"issuer"`
		Secret string `yaml:"secret"`
		TTL    string `yaml:"ttl"`
	} `yaml:"session"`

	Auth struct {
		ChallengeTTL string `yaml:"challenge_ttl"`
		RateMax      int    `yaml:"rate_max"`
		RateWindow   string `yaml:"rate_window"`
		Recovery     struct {
			TTL         string `yaml:"ttl"`
			MaxAttempts int    `yaml:"max_attempts"`
		} `yaml:"recovery"`
		Invite struct {
			TTL string `yaml:"ttl"`
		} `yaml:"invite"`
	} `yaml:"auth"`

	SMTP struct {
		Host string `yaml:"host"`
		Port int    `yaml:"port"`
		From string `yaml:"from"`
		User string `yaml:"user"`
		Pass string `yaml:"pass"`
		// tls: "starttls" | "implicit" | "none"
		TLS string `yaml:"tls"`
	} `yaml:"smtp"`
}

// Load lee el YAML (si path != "") y aplica overrides de entorno.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(b, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}
	cfg.applyEnv()
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyEnv() {
	set := func(dst *string, key string) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			*dst = v
		}
	}
	set(&c.App.Env, "APP_ENV")
	set(&c.App.LogLevel, "LOG_LEVEL")
	set(&c.Server.Addr, "SERVER_ADDR")
	set(&c.Storage.Driver, "STORAGE_DRIVER")
	set(&c.Storage.DSN, "DATABASE_URL")
	set(&c.Cache.Kind, "CACHE_KIND")
	set(&c.Cache.Redis.Addr, "REDIS_ADDR")
	set(&c.WebAuthn.RPID, "RP_ID")
	set(&c.WebAuthn.RPDisplayName, "RP_DISPLAY_NAME")
	set(&c.WebAuthn.RPOrigin, "RP_ORIGIN")
	set(&c.Session.Secret, "SESSION_SECRET")
	set(&c.SMTP.Host, "SMTP_HOST")
	set(&c.SMTP.From, "SMTP_FROM")
	set(&c.SMTP.User, "SMTP_USER")
	set(&c.SMTP.Pass, "SMTP_PASS")

	if v := os.Getenv("SMTP_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.SMTP.Port = n
		}
	}
	if v := os.Getenv("TRUST_PROXY"); v != "" {
		c.Server.TrustProxy = v == "1" || strings.EqualFold(v, "true")
	}
}

func (c *Config) applyDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = "postgres"
	}
	if c.Cache.Kind == "" {
		c.Cache.Kind = "memory"
	}
	if c.Auth.RateMax == 0 {
		c.Auth.RateMax = 10
	}
	if c.Auth.Recovery.MaxAttempts == 0 {
		c.Auth.Recovery.MaxAttempts = 5
	}
	if c.Session.Issuer == "" {
		c.Session.Issuer = "triplog"
	}
}

// Validate chequea las condiciones fatales de arranque.
func (c *Config) Validate() error {
	if err := c.WebAuthn.Validate(); err != nil {
		return err
	}
	if len(c.Session.Secret) < 32 {
		return fmt.Errorf("config: session.secret must be at least 32 bytes")
	}
	if c.Storage.Driver == "postgres" && c.Storage.DSN == "" {
		return fmt.Errorf("config: storage.dsn is required for the postgres driver")
	}
	if c.Cache.Kind == "redis" && c.Cache.Redis.Addr == "" {
		return fmt.Errorf("config: cache.redis.addr is required for the redis cache")
	}
	return nil
}

// Duration parsea un campo duration con default para el campo vacío o inválido.
func Duration(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return def
	}
	return d
}
