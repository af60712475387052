package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadYAML(t *testing.T) {
	path := writeConfig(t, `
server:
  port: "9090"
log:
  level: debug
redis:
  addr: localhost:6379
  db: 2
  ttl: 5m
catalog:
  ttl: 30s
  dir: ./games
games:
  default_delay: 1500ms
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != "9090" || cfg.Log.Level != "debug" {
		t.Fatalf("unexpected server/log config %+v", cfg)
	}
	if cfg.Redis.Addr != "localhost:6379" || cfg.Redis.DB != 2 {
		t.Fatalf("unexpected redis config %+v", cfg.Redis)
	}
	if cfg.Catalog.Dir != "./games" {
		t.Fatalf("unexpected catalog dir %q", cfg.Catalog.Dir)
	}
	if got := DurationOr(cfg.Games.DefaultDelay, time.Second); got != 1500*time.Millisecond {
		t.Fatalf("unexpected default delay %s", got)
	}
}

func TestEnvOverridesYAML(t *testing.T) {
	path := writeConfig(t, "redis:\n  addr: yaml:6379\n")
	t.Setenv("KORA_REDIS_ADDR", "env:6379")
	t.Setenv("KORA_POSTGRES_URL", "postgres://kora@localhost/kora")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Redis.Addr != "env:6379" {
		t.Fatalf("expected env override, got %q", cfg.Redis.Addr)
	}
	if cfg.Postgres.URL != "postgres://kora@localhost/kora" {
		t.Fatalf("unexpected postgres url %q", cfg.Postgres.URL)
	}
}

func TestLoadMissingFileUsesEnv(t *testing.T) {
	t.Setenv("KORA_PORT", "7000")
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != "7000" {
		t.Fatalf("expected port from env, got %q", cfg.Server.Port)
	}
}

func TestLoadEnvError(t *testing.T) {
	t.Setenv("KORA_REDIS_DB", "not-an-int")
	_, err := Load("")
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "parse env:") {
		t.Fatalf("expected parse env prefix, got %v", err)
	}
}

func TestDurationOr(t *testing.T) {
	if got := DurationOr("", time.Minute); got != time.Minute {
		t.Fatalf("empty: got %s", got)
	}
	if got := DurationOr("bogus", time.Minute); got != time.Minute {
		t.Fatalf("invalid: got %s", got)
	}
	if got := DurationOr("2s", time.Minute); got != 2*time.Second {
		t.Fatalf("valid: got %s", got)
	}
}
