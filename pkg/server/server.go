// Package server assembles the agentdesk server from its components.
//
// It lives in pkg/ so that other binaries (the CLI, embedding desktop
// shells) can build the same server:
//
//	srv, err := server.New(ctx)
//	if err != nil { ... }
//	err = srv.ListenAndServe(ctx) // returns after ctx is done and shutdown completes
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/agentoven/agentdesk/internal/api"
	"github.com/agentoven/agentdesk/internal/api/handlers"
	"github.com/agentoven/agentdesk/internal/catalog"
	"github.com/agentoven/agentdesk/internal/config"
	"github.com/agentoven/agentdesk/internal/credentials"
	"github.com/agentoven/agentdesk/internal/executor"
	"github.com/agentoven/agentdesk/internal/orchestrator"
	"github.com/agentoven/agentdesk/internal/router"
	"github.com/agentoven/agentdesk/internal/telemetry"
	"github.com/agentoven/agentdesk/internal/tools"
)

// Server holds the initialized agentdesk components.
type Server struct {
	// Handler is the HTTP handler with all routes and middleware.
	Handler http.Handler

	Catalog      *catalog.Catalog
	Credentials  *credentials.Store
	Router       *router.Router
	Tools        *tools.Registry
	Executor     *executor.Executor
	Orchestrator *orchestrator.Orchestrator

	Config *config.Config

	shutdownTelemetry func(context.Context) error
}

// New initializes the server from environment configuration.
func New(ctx context.Context) (*Server, error) {
	return NewWithConfig(ctx, config.Load())
}

// NewWithConfig initializes every component and starts the agent pool.
func NewWithConfig(ctx context.Context, cfg *config.Config) (*Server, error) {
	if err := cfg.CheckExposure(); err != nil {
		return nil, fmt.Errorf("%w (host %q)", err, cfg.Host)
	}

	shutdown, err := telemetry.Init(cfg.Telemetry, cfg.Version)
	if err != nil {
		return nil, fmt.Errorf("init telemetry: %w", err)
	}

	cat, err := BuildCatalog(cfg)
	if err != nil {
		return nil, err
	}
	providers, modelCount := cat.Count()
	log.Info().Int("providers", providers).Int("models", modelCount).Msg("✅ Provider catalog loaded")

	creds := credentials.NewStore()
	if cfg.Providers.SeedFromEnv {
		if n := creds.SeedFromEnv(cat.ListProviders(), os.LookupEnv); n > 0 {
			log.Info().Int("count", n).Msg("✅ Credentials seeded from environment")
		}
	}

	rt := router.New(cat,
		router.WithCredentials(creds),
		router.WithRequestsPerMinute(cfg.Providers.RequestsPerMin),
		router.WithHTTPClient(&http.Client{Timeout: cfg.Providers.HTTPTimeout}),
	)

	reg, err := BuildTools(cfg)
	if err != nil {
		return nil, err
	}
	log.Info().Int("tools", len(reg.List())).Msg("✅ Tool registry initialized")

	exec := executor.NewExecutor(rt, reg)
	defaultProvider, defaultModel := defaultTarget(cat, cfg)
	suite := router.NewSuiteRunner(rt, creds, cfg.Providers.SuiteDelay)
	orch := orchestrator.New(orchestrator.Config{Agents: cfg.Agents.PoolSize},
		exec.Handlers(executor.TaskOptions{
			DefaultProvider: defaultProvider,
			DefaultModel:    defaultModel,
			Suite:           suite,
			Pairs:           func() []router.Pair { return router.DefaultPairs(cat, creds) },
		})...,
	)
	if err := orch.Start(ctx); err != nil {
		return nil, fmt.Errorf("start orchestrator: %w", err)
	}

	h := handlers.New(cat, rt, creds, reg, exec, orch)
	return &Server{
		Handler:           api.NewRouter(cfg, h),
		Catalog:           cat,
		Credentials:       creds,
		Router:            rt,
		Tools:             reg,
		Executor:          exec,
		Orchestrator:      orch,
		Config:            cfg,
		shutdownTelemetry: shutdown,
	}, nil
}

// BuildCatalog loads the provider catalogue and applies base URL overrides.
func BuildCatalog(cfg *config.Config) (*catalog.Catalog, error) {
	cat, err := catalog.LoadFile(cfg.Providers.CatalogFile)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	var ids []string
	for _, p := range cat.ListProviders() {
		ids = append(ids, p.ID)
	}
	if overrides := config.BaseURLOverrides(ids); len(overrides) > 0 {
		cat = cat.WithBaseURLs(overrides)
	}
	return cat, nil
}

// BuildTools creates a registry holding the built-in tools for the
// configured workspace.
func BuildTools(cfg *config.Config) (*tools.Registry, error) {
	level, err := tools.ParseGuardLevel(cfg.Tools.GuardLevel)
	if err != nil {
		return nil, fmt.Errorf("guard level: %w", err)
	}
	reg := tools.NewRegistry(tools.WithBatchDelay(cfg.Tools.BatchDelay))
	_, err = tools.RegisterBuiltins(reg, tools.Options{
		WorkspaceRoot:  cfg.Workspace.Root,
		TestCommand:    cfg.Tools.TestCommand,
		SearchEndpoint: cfg.Tools.SearchEndpoint,
		CommandTimeout: cfg.Tools.CommandTimeout,
		GuardLevel:     level,
		MCPServers:     tools.ParseMCPServers(cfg.Tools.MCPServers),
	})
	if err != nil {
		return nil, fmt.Errorf("register tools: %w", err)
	}
	return reg, nil
}

// defaultTarget resolves the provider/model used by prompt-driven background
// tasks. An unknown provider disables them rather than failing startup.
func defaultTarget(cat *catalog.Catalog, cfg *config.Config) (string, string) {
	providerID, modelID := cfg.Providers.DefaultProvider, cfg.Providers.DefaultModel
	if providerID == "" {
		return "", ""
	}
	if modelID == "" {
		m, err := cat.DefaultModel(providerID)
		if err != nil {
			log.Warn().Err(err).Str("provider", providerID).Msg("Default provider not in catalog; prompt tasks disabled")
			return "", ""
		}
		modelID = m.ID
	}
	return providerID, modelID
}

// ShutdownTimeout bounds graceful shutdown once the serve context is done.
var ShutdownTimeout = 15 * time.Second

// ListenAndServe listens on the configured address and serves until ctx is
// done, then shuts the HTTP server and every component down.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.Config.Addr())
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	return s.Serve(ctx, ln)
}

// Serve is ListenAndServe on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	// WriteTimeout stays unset: task event streams and slow provider calls
	// outlive any fixed write deadline.
	httpServer := &http.Server{
		Handler:           s.Handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- httpServer.Serve(ln) }()

	log.Info().
		Str("addr", ln.Addr().String()).
		Str("workspace", s.Config.Workspace.Root).
		Bool("api_keys", s.Config.APIKeys != "").
		Msg("🔥 agentdesk is ready")

	var serveErr error
	select {
	case serveErr = <-errCh:
		if errors.Is(serveErr, http.ErrServerClosed) {
			serveErr = nil
		}
	case <-ctx.Done():
		log.Info().Msg("Shutting down gracefully...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), ShutdownTimeout)
	defer cancel()
	var errs []error
	if serveErr != nil {
		errs = append(errs, serveErr)
	}
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("http shutdown: %w", err))
	}
	if err := s.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Shutdown waits for in-flight background tasks and flushes telemetry.
func (s *Server) Shutdown(ctx context.Context) error {
	var errs []error
	if err := s.Orchestrator.Stop(ctx); err != nil {
		errs = append(errs, err)
	}
	if s.shutdownTelemetry != nil {
		if err := s.shutdownTelemetry(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown telemetry: %w", err))
		}
	}
	return errors.Join(errs...)
}
