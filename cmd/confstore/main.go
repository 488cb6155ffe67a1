package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"go.uber.org/zap"

	"github.com/eugenenazirov/confstore/internal/config"
	"github.com/eugenenazirov/confstore/internal/logging"
)

var signalNotify = signal.Notify

func main() {
	kingpinApp := kingpin.New("confstore", "Environment-aware configuration store - loads a config directory and serves dotted-path lookups")
	configFile := kingpinApp.Flag("config", "Path to YAML service configuration file").String()
	dir := kingpinApp.Flag("dir", "Directory holding configuration files").Short('d').String()
	env := kingpinApp.Flag("env", "Active environment, overriding the process variable").Short('e').String()
	logLevel := kingpinApp.Flag("log-level", "Log level (debug, info, warn, error)").String()

	var strictSet, scriptsSet, yamlSet bool
	strict := kingpinApp.Flag("strict", "Fail when two files resolve to the same logical name").IsSetByUser(&strictSet).Bool()
	scripts := kingpinApp.Flag("scripts", "Allow executable configuration files").IsSetByUser(&scriptsSet).Bool()
	enableYAML := kingpinApp.Flag("yaml", "Load .yaml and .yml files").IsSetByUser(&yamlSet).Bool()

	getCmd := kingpinApp.Command("get", "Print the value at a dotted path")
	getPath := getCmd.Arg("path", "Dotted path, e.g. db.primary.host").Required().String()
	var defaultSet bool
	getDefault := getCmd.Flag("default", "Value printed when the path is missing").IsSetByUser(&defaultSet).String()
	getFormat := getCmd.Flag("format", "Output format").Default(formatJSON).Enum(formatJSON, formatYAML)

	envCmd := kingpinApp.Command("env", "Print the active environment")

	dumpCmd := kingpinApp.Command("dump", "Write every loaded value to a file")
	dumpOut := dumpCmd.Flag("out", "Destination file, replaced atomically").Short('o').Required().String()
	dumpFormat := dumpCmd.Flag("format", "Output format").Default(formatJSON).Enum(formatJSON, formatYAML)

	serveCmd := kingpinApp.Command("serve", "Serve the configuration over a read-only HTTP API")
	port := serveCmd.Flag("port", "HTTP port exposed by the service").String()
	rateLimitRPSFlag := serveCmd.Flag("rate-limit-rps", "Requests per second allowed (set 0 to disable)").Default("-1").Float64()
	rateLimitBurstFlag := serveCmd.Flag("rate-limit-burst", "Burst capacity for rate limiter (set 0 to disable)").Default("-1").Int()

	command := kingpin.MustParse(kingpinApp.Parse(os.Args[1:]))

	overrides := &config.CLIOverrides{
		ConfigFile:     *configFile,
		ConfigDir:      dir,
		Environment:    env,
		LogLevel:       logLevel,
		Port:           port,
		RateLimitRPS:   rateLimitRPSFlag,
		RateLimitBurst: rateLimitBurstFlag,
	}
	if strictSet {
		overrides.Strict = strict
	}
	if scriptsSet {
		overrides.EnableScripts = scripts
	}
	if yamlSet {
		overrides.EnableYAML = enableYAML
	}

	cfg, err := config.Load(overrides)
	if err != nil {
		kingpinApp.Fatalf("failed to load configuration: %v", err)
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		kingpinApp.Fatalf("failed to initialize logger: %v", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	ctx := context.Background()
	switch command {
	case getCmd.FullCommand():
		var def *string
		if defaultSet {
			def = getDefault
		}
		err = runGet(ctx, cfg, logger, os.Stdout, *getPath, def, *getFormat)
	case envCmd.FullCommand():
		err = runEnv(cfg, os.Stdout)
	case dumpCmd.FullCommand():
		err = runDump(ctx, cfg, logger, *dumpOut, *dumpFormat)
	case serveCmd.FullCommand():
		err = runServe(ctx, cfg, logger)
	}
	if err != nil {
		logger.Error("command failed", zap.String("command", command), zap.Error(err))
		_ = logger.Sync()
		fmt.Fprintf(os.Stderr, "confstore: %v\n", err)
		os.Exit(1)
	}
}

func shutdown(server *http.Server, timeout time.Duration, logger *zap.Logger) {
	quit := make(chan os.Signal, 1)
	signalNotify(quit, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	<-quit
	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Warn("graceful shutdown failed", zap.Error(err))
		if closeErr := server.Close(); closeErr != nil {
			logger.Error("forced close failed", zap.Error(closeErr))
		}
	}
}
