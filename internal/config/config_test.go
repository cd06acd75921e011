package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeYAML(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load err: %v", err)
	}
	if cfg.Server.Addr != ":8080" {
		t.Fatalf("addr = %s", cfg.Server.Addr)
	}
	if cfg.Storage.Driver != "postgres" || cfg.Cache.Kind != "memory" {
		t.Fatalf("driver = %s, cache = %s", cfg.Storage.Driver, cfg.Cache.Kind)
	}
	if cfg.Auth.RateMax != 10 || cfg.Auth.Recovery.MaxAttempts != 5 {
		t.Fatalf("rate defaults: %d / %d", cfg.Auth.RateMax, cfg.Auth.Recovery.MaxAttempts)
	}
	if cfg.Session.Issuer != "triplog" {
		t.Fatalf("issuer = %s", cfg.Session.Issuer)
	}
}

func TestLoad_YAMLAndEnvOverride(t *testing.T) {
	path := writeYAML(t, `
app:
  env: prod
server:
  addr: ":9000"
webauthn:
  rp_id: trips.example.com
  rp_display_name: Triplog
  rp_origin: https://trips.example.com
session:
  secret: 0123456789abcdef0123456789abcdef
storage:
  driver: memory
`)

	// El entorno pisa al YAML.
	t.Setenv("SERVER_ADDR", ":7070")
	t.Setenv("TRUST_PROXY", "true")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load err: %v", err)
	}
	if cfg.App.Env != "prod" {
		t.Fatalf("env = %s", cfg.App.Env)
	}
	if cfg.Server.Addr != ":7070" {
		t.Fatalf("addr = %s, want the env override", cfg.Server.Addr)
	}
	if !cfg.Server.TrustProxy {
		t.Fatal("TRUST_PROXY=true should enable trust_proxy")
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate err: %v", err)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load("/no/such/config.yaml"); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestValidate_FatalConditions(t *testing.T) {
	base := func() *Config {
		cfg, _ := Load("")
		cfg.WebAuthn.RPID = "example.com"
		cfg.WebAuthn.RPDisplayName = "Triplog"
		cfg.WebAuthn.RPOrigin = "https://example.com"
		cfg.Session.Secret = "0123456789abcdef0123456789abcdef"
		cfg.Storage.Driver = "memory"
		return cfg
	}

	if err := base().Validate(); err != nil {
		t.Fatalf("base config should validate: %v", err)
	}

	cfg := base()
	cfg.WebAuthn.RPID = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("missing rp_id should be fatal")
	}

	cfg = base()
	cfg.Session.Secret = "corto"
	if err := cfg.Validate(); err == nil {
		t.Fatal("short session secret should be fatal")
	}

	cfg = base()
	cfg.Storage.Driver = "postgres"
	cfg.Storage.DSN = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("postgres without dsn should be fatal")
	}

	cfg = base()
	cfg.Cache.Kind = "redis"
	if err := cfg.Validate(); err == nil {
		t.Fatal("redis cache without addr should be fatal")
	}
}

func TestDuration(t *testing.T) {
	if d := Duration("", time.Minute); d != time.Minute {
		t.Fatalf("empty: %v", d)
	}
	if d := Duration("90s", time.Minute); d != 90*time.Second {
		t.Fatalf("parsed: %v", d)
	}
	if d := Duration("no-parse", time.Minute); d != time.Minute {
		t.Fatalf("invalid: %v", d)
	}
}
