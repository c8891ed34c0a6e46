// agentdesk server: the HTTP backend of the agent workspace.
//
// It provides:
//   - Provider catalogue, credential store and chat routing
//   - Workspace tools (search, edit, run, MCP, guardrails)
//   - @mention parsing and the assist pipeline
//   - Background agents with live task events (SSE)
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/agentoven/agentdesk/internal/config"
	"github.com/agentoven/agentdesk/pkg/server"
)

func main() {
	cfg := config.Load()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(level)
	}

	log.Info().Msg("agentdesk server starting...")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv, err := server.NewWithConfig(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize server")
	}
	if err := srv.ListenAndServe(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server failed")
	}
}
