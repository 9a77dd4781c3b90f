package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "feed.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadAppliesFileOverDefaults(t *testing.T) {
	path := writeConfig(t, `
auth:
  secret_key: file-secret
feed:
  default_limit: 20
  max_limit: 40
redis:
  profile_ttl: 1m
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Feed.DefaultLimit != 20 || cfg.Feed.MaxLimit != 40 {
		t.Fatalf("unexpected feed config: %+v", cfg.Feed)
	}
	if cfg.Redis.ProfileTTL != time.Minute {
		t.Fatalf("expected profile ttl 1m, got %v", cfg.Redis.ProfileTTL)
	}
	if cfg.Store.Driver != "sqlite" || cfg.HTTP.Addr != "0.0.0.0:8000" {
		t.Fatalf("expected defaults to survive, got %+v %+v", cfg.Store, cfg.HTTP)
	}
}

func TestLoadEnvironmentOverridesFile(t *testing.T) {
	path := writeConfig(t, "auth:\n  secret_key: file-secret\n")
	t.Setenv("SECRET_KEY", "env-secret")
	t.Setenv("STORE", "cassandra")
	t.Setenv("DB", "cassandra")
	t.Setenv("DBPORT", "9042")
	t.Setenv("REDIS_HOST", "redis")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Auth.SecretKey != "env-secret" {
		t.Fatalf("expected env secret, got %q", cfg.Auth.SecretKey)
	}
	if cfg.Store.Driver != "cassandra" || cfg.Store.CassandraHost != "cassandra" || cfg.Store.CassandraPort != "9042" {
		t.Fatalf("unexpected store config: %+v", cfg.Store)
	}
	if !cfg.Redis.Enabled() {
		t.Fatalf("expected redis to be enabled")
	}
}

func TestLoadRejectsMissingSecret(t *testing.T) {
	t.Setenv("SECRET_KEY", "")

	if _, err := Load(""); err == nil {
		t.Fatalf("expected an error without a secret key")
	}
}

func TestValidateRejectsBadLimits(t *testing.T) {
	cfg := Default()
	cfg.Auth.SecretKey = "s"
	cfg.Feed.DefaultLimit = 60

	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected default_limit above max_limit to fail")
	}
}

func TestValidateRejectsUnknownDriver(t *testing.T) {
	cfg := Default()
	cfg.Auth.SecretKey = "s"
	cfg.Store.Driver = "mongo"

	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected unknown driver to fail")
	}
}
