package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap/zaptest"

	"github.com/eugenenazirov/confstore/internal/environment"
	"github.com/eugenenazirov/confstore/internal/store"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"PORT", "CONFIG_DIR", "CONFIG_STRICT", "CONFIG_ENABLE_SCRIPTS", "LOG_LEVEL", "RATE_LIMIT_RPS", "RATE_LIMIT_BURST"} {
		t.Setenv(key, "")
	}
}

func writeYAML(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "confstore.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(nil)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Port != defaultPort {
		t.Fatalf("expected default port %s, got %s", defaultPort, cfg.Port)
	}
	if cfg.ConfigDir != defaultConfigDir {
		t.Fatalf("expected default config dir, got %s", cfg.ConfigDir)
	}
	if cfg.EnvVariable != environment.DefaultVariable {
		t.Fatalf("expected default env variable, got %s", cfg.EnvVariable)
	}
	if !cfg.EnableScripts || cfg.EnableYAML || cfg.Strict {
		t.Fatalf("unexpected loader defaults: %+v", cfg)
	}
	if cfg.ShutdownGracePeriod != 10*time.Second {
		t.Fatalf("unexpected shutdown grace period: %s", cfg.ShutdownGracePeriod)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9000")
	t.Setenv("CONFIG_DIR", "/etc/app")
	t.Setenv("CONFIG_STRICT", "true")
	t.Setenv("CONFIG_ENABLE_SCRIPTS", "false")
	t.Setenv("RATE_LIMIT_BURST", "not-a-number")

	cfg, err := Load(nil)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Port != "9000" || cfg.ConfigDir != "/etc/app" {
		t.Fatalf("expected env overrides, got port=%s dir=%s", cfg.Port, cfg.ConfigDir)
	}
	if !cfg.Strict || cfg.EnableScripts {
		t.Fatalf("expected strict and scripts disabled, got %+v", cfg)
	}
	if cfg.RateLimitBurst != defaultRateLimitBurst {
		t.Fatalf("invalid burst must be ignored, got %d", cfg.RateLimitBurst)
	}
}

func TestLoadPrecedence(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9000")
	t.Setenv("CONFIG_DIR", "/from/env")

	path := writeYAML(t, `
port: "9100"
config_dir: /from/yaml
environment: stage
enable_yaml: true
ignore: ["*.example.json"]
scripts:
  enabled: false
rate_limit:
  rps: 0
shutdown_grace_period: 2s
`)
	dir := "/from/cli"
	cfg, err := Load(&CLIOverrides{ConfigFile: path, ConfigDir: &dir})
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Port != "9100" {
		t.Fatalf("YAML must override env, got port %s", cfg.Port)
	}
	if cfg.ConfigDir != "/from/cli" {
		t.Fatalf("CLI must override YAML, got dir %s", cfg.ConfigDir)
	}
	if cfg.Environment != environment.Stage || !cfg.EnableYAML || cfg.EnableScripts {
		t.Fatalf("unexpected YAML settings: %+v", cfg)
	}
	if cfg.RateLimitRPS != 0 {
		t.Fatalf("explicit zero rps must be kept, got %v", cfg.RateLimitRPS)
	}
	if cfg.ShutdownGracePeriod != 2*time.Second {
		t.Fatalf("unexpected grace period %s", cfg.ShutdownGracePeriod)
	}
	if len(cfg.Ignore) != 1 || cfg.Ignore[0] != "*.example.json" {
		t.Fatalf("unexpected ignore patterns %v", cfg.Ignore)
	}
}

func TestLoadReportsAllDurationErrors(t *testing.T) {
	clearEnv(t)
	path := writeYAML(t, "write_timeout: soon\nidle_timeout: later\n")

	_, err := Load(&CLIOverrides{ConfigFile: path})
	if err == nil {
		t.Fatalf("expected error for malformed durations")
	}
	if !strings.Contains(err.Error(), "write_timeout") || !strings.Contains(err.Error(), "idle_timeout") {
		t.Fatalf("expected both durations to be reported, got %v", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	clearEnv(t)

	if _, err := Load(&CLIOverrides{ConfigFile: filepath.Join(t.TempDir(), "missing.yaml")}); err == nil {
		t.Fatalf("expected error for missing config file")
	}
}

func TestValidateConfig(t *testing.T) {
	cfg := defaultConfig()
	cfg.ConfigDir = " "
	cfg.RateLimitRPS = -1
	cfg.LogLevel = "loud"
	cfg.ScriptInterpreter = ""

	err := validateConfig(cfg)
	if got := len(multierr.Errors(err)); got != 4 {
		t.Fatalf("expected 4 validation errors, got %d: %v", got, err)
	}

	if err := validateConfig(defaultConfig()); err != nil {
		t.Fatalf("defaults must be valid: %v", err)
	}
}

func TestActiveEnvironment(t *testing.T) {
	cfg := defaultConfig()
	cfg.EnvVariable = "CONFSTORE_TEST_ENV"
	t.Setenv("CONFSTORE_TEST_ENV", "acc")

	if got := cfg.ActiveEnvironment(); got != environment.Acc {
		t.Fatalf("expected acc from process variable, got %s", got)
	}

	cfg.Environment = environment.Prod
	if got := cfg.ActiveEnvironment(); got != environment.Prod {
		t.Fatalf("explicit environment must win, got %s", got)
	}
}

func TestStoreOptions(t *testing.T) {
	files := fstest.MapFS{
		"db.prod.json":    {Data: []byte(`{"host": "prod-db"}`)},
		"db.json":         {Data: []byte(`{"host": "local"}`)},
		"cache.yml":       {Data: []byte("ttl: 30\n")},
		"run.sh":          {Data: []byte("echo '{}'")},
		"db.example.json": {Data: []byte(`{`)},
	}

	cfg := defaultConfig()
	cfg.Environment = environment.Prod
	cfg.EnableYAML = true
	cfg.EnableScripts = false
	cfg.Ignore = []string{"*.example.json"}

	_, err := store.Create(t.Context(), "conf", cfg.StoreOptions(zaptest.NewLogger(t), store.WithFS(files))...)
	if err == nil {
		t.Fatalf("expected disabled scripts to reject run.sh")
	}

	delete(files, "run.sh")
	s, err := store.Create(t.Context(), "conf", cfg.StoreOptions(zaptest.NewLogger(t), store.WithFS(files))...)
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if s.Environment() != environment.Prod {
		t.Fatalf("expected prod environment, got %s", s.Environment())
	}
	// db.prod.json sorts after db.json and wins.
	if got := s.Get("db.host", nil); got != "prod-db" {
		t.Fatalf("expected prod-db, got %v", got)
	}
	if got := s.Get("cache.ttl", nil); got != 30 {
		t.Fatalf("expected yml loader to be registered, got %v", got)
	}
}
