package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/google/renameio/v2"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/eugenenazirov/confstore/internal/application"
	"github.com/eugenenazirov/confstore/internal/config"
	"github.com/eugenenazirov/confstore/internal/environment"
)

const (
	formatJSON = "json"
	formatYAML = "yaml"
)

var errPathNotFound = errors.New("no configuration value at path")

func runGet(ctx context.Context, cfg config.Config, logger *zap.Logger, w io.Writer, path string, def *string, format string) error {
	s, err := application.LoadStore(ctx, cfg, logger)
	if err != nil {
		return err
	}

	value, found := s.Lookup(path)
	if !found {
		if def == nil {
			return fmt.Errorf("%w %q", errPathNotFound, path)
		}
		value = *def
	}
	return encode(w, value, format)
}

func runEnv(cfg config.Config, w io.Writer) error {
	active := cfg.ActiveEnvironment()
	_, err := fmt.Fprintf(w, "environment: %s\nsupported: %t\nvariable: %s\n",
		active, environment.IsSupported(active), cfg.EnvVariable)
	return err
}

func runDump(ctx context.Context, cfg config.Config, logger *zap.Logger, out, format string) error {
	s, err := application.LoadStore(ctx, cfg, logger)
	if err != nil {
		return err
	}

	pendingFile, err := renameio.NewPendingFile(out)
	if err != nil {
		return fmt.Errorf("create pending dump file: %w", err)
	}
	defer func() {
		if err := pendingFile.Cleanup(); err != nil {
			logger.Debug("cleanup pending dump file", zap.Error(err))
		}
	}()

	if err := encode(pendingFile, s.Snapshot(), format); err != nil {
		return fmt.Errorf("write dump: %w", err)
	}
	if err := pendingFile.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("atomically replace dump file: %w", err)
	}

	logger.Info("configuration dumped",
		zap.String("out", out),
		zap.String("environment", string(s.Environment())),
		zap.Int("entries", len(s.Names())),
	)
	return nil
}

func runServe(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	app, err := application.New(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initialize application: %w", err)
	}
	if err := app.Start(); err != nil {
		return fmt.Errorf("start server: %w", err)
	}

	shutdown(app.Server(), cfg.ShutdownGracePeriod, logger)
	return nil
}

func encode(w io.Writer, value any, format string) error {
	switch format {
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(value); err != nil {
			return err
		}
		return enc.Close()
	case formatJSON, "":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(value)
	default:
		return fmt.Errorf("unsupported format %q", format)
	}
}
