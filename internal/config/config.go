package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/eugenenazirov/confstore/internal/environment"
	"github.com/eugenenazirov/confstore/internal/store"
)

const (
	defaultPort           = "8080"
	defaultConfigDir      = "config"
	defaultLogLevel       = "info"
	defaultRateLimitRPS   = 25.0
	defaultRateLimitBurst = 50
)

// Config aggregates runtime configuration resolved from multiple sources.
// Precedence: CLI flags > YAML config > Environment variables > Defaults
type Config struct {
	Port                 string
	ConfigDir            string
	Environment          environment.Name
	EnvVariable          string
	Strict               bool
	EnableScripts        bool
	ScriptInterpreter    string
	EnableYAML           bool
	Ignore               []string
	LogLevel             string
	ShutdownGracePeriod  time.Duration
	ReadHeaderTimeout    time.Duration
	WriteTimeout         time.Duration
	IdleTimeout          time.Duration
	EnableRequestLogging bool
	RateLimitRPS         float64
	RateLimitBurst       int
}

// yamlConfig represents the YAML configuration file structure.
type yamlConfig struct {
	Port                 string        `yaml:"port"`
	ConfigDir            string        `yaml:"config_dir"`
	Environment          string        `yaml:"environment"`
	EnvVariable          string        `yaml:"env_variable"`
	Strict               *bool         `yaml:"strict"`
	Scripts              yamlScripts   `yaml:"scripts"`
	EnableYAML           *bool         `yaml:"enable_yaml"`
	Ignore               []string      `yaml:"ignore"`
	LogLevel             string        `yaml:"log_level"`
	ShutdownGracePeriod  string        `yaml:"shutdown_grace_period"`
	ReadHeaderTimeout    string        `yaml:"read_header_timeout"`
	WriteTimeout         string        `yaml:"write_timeout"`
	IdleTimeout          string        `yaml:"idle_timeout"`
	EnableRequestLogging *bool         `yaml:"enable_request_logging"`
	RateLimit            yamlRateLimit `yaml:"rate_limit"`
}

// yamlScripts represents the executable configuration section in YAML.
type yamlScripts struct {
	Enabled     *bool  `yaml:"enabled"`
	Interpreter string `yaml:"interpreter"`
}

// yamlRateLimit represents the rate limit section in YAML.
type yamlRateLimit struct {
	RPS   *float64 `yaml:"rps"`
	Burst *int     `yaml:"burst"`
}

// CLIOverrides holds command-line flag overrides.
type CLIOverrides struct {
	ConfigFile     string
	Port           *string
	ConfigDir      *string
	Environment    *string
	Strict         *bool
	EnableScripts  *bool
	EnableYAML     *bool
	LogLevel       *string
	RateLimitRPS   *float64
	RateLimitBurst *int
}

// Load extracts configuration from multiple sources with precedence:
// CLI flags > YAML config > Environment variables > Defaults
func Load(overrides *CLIOverrides) (Config, error) {
	cfg := defaultConfig()

	// Apply environment variables (lowest explicit source)
	applyEnvConfig(&cfg)

	// Load from YAML file if specified
	if overrides != nil && overrides.ConfigFile != "" {
		yamlCfg, err := loadFromFile(overrides.ConfigFile)
		if err != nil {
			return Config{}, fmt.Errorf("load YAML config: %w", err)
		}
		if err := applyYAMLConfig(&cfg, yamlCfg); err != nil {
			return Config{}, fmt.Errorf("apply YAML config: %w", err)
		}
	}

	// Apply CLI overrides (highest precedence)
	if overrides != nil {
		applyCLIOverrides(&cfg, overrides)
	}

	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// defaultConfig returns a Config with default values.
func defaultConfig() Config {
	return Config{
		Port:                 defaultPort,
		ConfigDir:            defaultConfigDir,
		EnvVariable:          environment.DefaultVariable,
		EnableScripts:        true,
		ScriptInterpreter:    store.DefaultInterpreter,
		LogLevel:             defaultLogLevel,
		ShutdownGracePeriod:  10 * time.Second,
		ReadHeaderTimeout:    5 * time.Second,
		WriteTimeout:         15 * time.Second,
		IdleTimeout:          60 * time.Second,
		EnableRequestLogging: true,
		RateLimitRPS:         defaultRateLimitRPS,
		RateLimitBurst:       defaultRateLimitBurst,
	}
}

// loadFromFile loads configuration from a YAML file.
func loadFromFile(path string) (*yamlConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	var yamlCfg yamlConfig
	if err := yaml.Unmarshal(data, &yamlCfg); err != nil {
		return nil, fmt.Errorf("parse YAML: %w", err)
	}

	return &yamlCfg, nil
}

// applyYAMLConfig applies YAML configuration to the Config struct.
// Malformed durations are reported together.
func applyYAMLConfig(cfg *Config, yamlCfg *yamlConfig) error {
	if yamlCfg.Port != "" {
		cfg.Port = yamlCfg.Port
	}
	if yamlCfg.ConfigDir != "" {
		cfg.ConfigDir = yamlCfg.ConfigDir
	}
	if yamlCfg.Environment != "" {
		cfg.Environment = environment.Name(yamlCfg.Environment)
	}
	if yamlCfg.EnvVariable != "" {
		cfg.EnvVariable = yamlCfg.EnvVariable
	}
	if yamlCfg.Strict != nil {
		cfg.Strict = *yamlCfg.Strict
	}
	if yamlCfg.Scripts.Enabled != nil {
		cfg.EnableScripts = *yamlCfg.Scripts.Enabled
	}
	if yamlCfg.Scripts.Interpreter != "" {
		cfg.ScriptInterpreter = yamlCfg.Scripts.Interpreter
	}
	if yamlCfg.EnableYAML != nil {
		cfg.EnableYAML = *yamlCfg.EnableYAML
	}
	if len(yamlCfg.Ignore) > 0 {
		cfg.Ignore = yamlCfg.Ignore
	}
	if yamlCfg.LogLevel != "" {
		cfg.LogLevel = yamlCfg.LogLevel
	}
	if yamlCfg.EnableRequestLogging != nil {
		cfg.EnableRequestLogging = *yamlCfg.EnableRequestLogging
	}
	if yamlCfg.RateLimit.RPS != nil {
		cfg.RateLimitRPS = *yamlCfg.RateLimit.RPS
	}
	if yamlCfg.RateLimit.Burst != nil {
		cfg.RateLimitBurst = *yamlCfg.RateLimit.Burst
	}

	var errs error
	for _, d := range []struct {
		key    string
		raw    string
		target *time.Duration
	}{
		{"shutdown_grace_period", yamlCfg.ShutdownGracePeriod, &cfg.ShutdownGracePeriod},
		{"read_header_timeout", yamlCfg.ReadHeaderTimeout, &cfg.ReadHeaderTimeout},
		{"write_timeout", yamlCfg.WriteTimeout, &cfg.WriteTimeout},
		{"idle_timeout", yamlCfg.IdleTimeout, &cfg.IdleTimeout},
	} {
		if d.raw == "" {
			continue
		}
		value, err := time.ParseDuration(d.raw)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", d.key, err))
			continue
		}
		*d.target = value
	}
	return errs
}

// applyEnvConfig applies environment variable configuration.
func applyEnvConfig(cfg *Config) {
	if port := strings.TrimSpace(os.Getenv("PORT")); port != "" {
		cfg.Port = port
	}

	if dir := strings.TrimSpace(os.Getenv("CONFIG_DIR")); dir != "" {
		cfg.ConfigDir = dir
	}

	if strict := strings.TrimSpace(os.Getenv("CONFIG_STRICT")); strict != "" {
		if value, err := strconv.ParseBool(strict); err == nil {
			cfg.Strict = value
		}
	}

	if scripts := strings.TrimSpace(os.Getenv("CONFIG_ENABLE_SCRIPTS")); scripts != "" {
		if value, err := strconv.ParseBool(scripts); err == nil {
			cfg.EnableScripts = value
		}
	}

	if level := strings.TrimSpace(os.Getenv("LOG_LEVEL")); level != "" {
		cfg.LogLevel = level
	}

	if rps := strings.TrimSpace(os.Getenv("RATE_LIMIT_RPS")); rps != "" {
		if value, err := strconv.ParseFloat(rps, 64); err == nil && value >= 0 {
			cfg.RateLimitRPS = value
		}
	}

	if burst := strings.TrimSpace(os.Getenv("RATE_LIMIT_BURST")); burst != "" {
		if value, err := strconv.Atoi(burst); err == nil && value >= 0 {
			cfg.RateLimitBurst = value
		}
	}
}

// applyCLIOverrides applies command-line flag overrides.
func applyCLIOverrides(cfg *Config, overrides *CLIOverrides) {
	if overrides.Port != nil && *overrides.Port != "" {
		cfg.Port = *overrides.Port
	}
	if overrides.ConfigDir != nil && *overrides.ConfigDir != "" {
		cfg.ConfigDir = *overrides.ConfigDir
	}
	if overrides.Environment != nil && *overrides.Environment != "" {
		cfg.Environment = environment.Name(*overrides.Environment)
	}
	if overrides.Strict != nil {
		cfg.Strict = *overrides.Strict
	}
	if overrides.EnableScripts != nil {
		cfg.EnableScripts = *overrides.EnableScripts
	}
	if overrides.EnableYAML != nil {
		cfg.EnableYAML = *overrides.EnableYAML
	}
	if overrides.LogLevel != nil && *overrides.LogLevel != "" {
		cfg.LogLevel = *overrides.LogLevel
	}
	if overrides.RateLimitRPS != nil && *overrides.RateLimitRPS >= 0 {
		cfg.RateLimitRPS = *overrides.RateLimitRPS
	}
	if overrides.RateLimitBurst != nil && *overrides.RateLimitBurst >= 0 {
		cfg.RateLimitBurst = *overrides.RateLimitBurst
	}
}

// validateConfig validates the final configuration and reports every violation.
func validateConfig(cfg Config) error {
	var errs error
	if strings.TrimSpace(cfg.ConfigDir) == "" {
		errs = multierr.Append(errs, errors.New("config directory cannot be empty"))
	}
	if cfg.RateLimitRPS < 0 {
		errs = multierr.Append(errs, errors.New("RATE_LIMIT_RPS must be >= 0"))
	}
	if cfg.RateLimitBurst < 0 {
		errs = multierr.Append(errs, errors.New("RATE_LIMIT_BURST must be >= 0"))
	}
	if _, err := zap.ParseAtomicLevel(cfg.LogLevel); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("invalid log level %q", cfg.LogLevel))
	}
	if cfg.EnableScripts && len(strings.Fields(cfg.ScriptInterpreter)) == 0 {
		errs = multierr.Append(errs, errors.New("script interpreter cannot be empty when scripts are enabled"))
	}
	return errs
}

// Resolver returns the environment resolver described by the configuration.
func (c Config) Resolver() *environment.Resolver {
	return environment.NewResolver(environment.WithVariable(c.EnvVariable))
}

// ActiveEnvironment returns the explicitly configured environment or, when
// none is set, the one named by the process variable.
func (c Config) ActiveEnvironment() environment.Name {
	if c.Environment != "" {
		return c.Environment
	}
	return c.Resolver().Active()
}

// StoreOptions translates the configuration into store options. The active
// environment is resolved once here and fixed for the store's lifetime.
func (c Config) StoreOptions(logger *zap.Logger, extra ...store.Option) []store.Option {
	opts := []store.Option{
		store.WithEnvironment(c.ActiveEnvironment()),
		store.WithStrict(c.Strict),
		store.WithLogger(logger),
	}
	if c.EnableScripts {
		opts = append(opts, store.WithLoader(store.ScriptExtension, store.NewExecLoader(strings.Fields(c.ScriptInterpreter)...)))
	} else {
		opts = append(opts, store.WithLoader(store.ScriptExtension, store.DisabledLoader{}))
	}
	if c.EnableYAML {
		opts = append(opts,
			store.WithLoader("yaml", store.YAMLLoader{}),
			store.WithLoader("yml", store.YAMLLoader{}),
		)
	}
	if len(c.Ignore) > 0 {
		opts = append(opts, store.WithIgnore(c.Ignore...))
	}
	return append(opts, extra...)
}
