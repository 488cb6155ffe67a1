package application

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/eugenenazirov/confstore/internal/api"
	"github.com/eugenenazirov/confstore/internal/config"
	"github.com/eugenenazirov/confstore/internal/metrics"
	"github.com/eugenenazirov/confstore/internal/store"
)

// App encapsulates the application dependencies and HTTP server.
type App struct {
	store   *store.Store
	metrics *metrics.Metrics
	handler *api.Handler
	router  http.Handler
	logger  *zap.Logger
	server  *http.Server
}

// LoadStore creates and loads the configuration store described by cfg.
func LoadStore(ctx context.Context, cfg config.Config, logger *zap.Logger, opts ...store.Option) (*store.Store, error) {
	s, err := store.Create(ctx, cfg.ConfigDir, cfg.StoreOptions(logger, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("load configuration from %s: %w", cfg.ConfigDir, err)
	}
	return s, nil
}

// New loads the configuration store and initializes the HTTP read API.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	m := metrics.New()

	s, err := LoadStore(ctx, cfg, logger, store.WithObserver(m))
	if err != nil {
		return nil, err
	}
	m.SetEntries(len(s.Names()))

	handler := api.NewHandler(s, api.WithLookupObserver(m))
	apiRouter := api.NewRouter(handler, logger,
		api.WithLogging(cfg.EnableRequestLogging),
		api.WithRateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst),
		api.WithMetricsHandler(m.Handler()),
	)

	return &App{
		store:   s,
		metrics: m,
		handler: handler,
		router:  apiRouter,
		logger:  logger,
		server:  NewServer(cfg, apiRouter),
	}, nil
}

// NewServer creates and configures an HTTP server from the provided configuration.
func NewServer(cfg config.Config, handler http.Handler) *http.Server {
	addr := cfg.Port
	if !strings.Contains(addr, ":") {
		addr = ":" + addr
	}

	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
	}
}

// Start binds the listener and serves HTTP in a goroutine. Bind failures are
// returned to the caller.
func (a *App) Start() error {
	ln, err := net.Listen("tcp", a.server.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", a.server.Addr, err)
	}
	a.server.Addr = ln.Addr().String()
	a.logger.Info("server listening",
		zap.String("addr", a.server.Addr),
		zap.String("environment", string(a.store.Environment())),
	)

	go func() {
		if err := a.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("server error", zap.Error(err))
		}
	}()
	return nil
}

// Server returns the HTTP server instance for shutdown handling.
func (a *App) Server() *http.Server {
	return a.server
}

// Store returns the loaded configuration store.
func (a *App) Store() *store.Store {
	return a.store
}
