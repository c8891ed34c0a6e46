package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/agentoven/agentdesk/internal/config"
	"github.com/agentoven/agentdesk/pkg/server"
)

func serveCmd() *cobra.Command {
	var (
		host      string
		port      int
		workspace string
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the agentdesk HTTP server",
		Long: "Run the agentdesk HTTP server. It listens on loopback by default; " +
			"binding another address requires AGENTDESK_API_KEYS.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			if cmd.Flags().Changed("host") {
				cfg.Host = host
			}
			if cmd.Flags().Changed("port") {
				cfg.Port = port
			}
			if workspace != "" {
				cfg.Workspace.Root = workspace
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			srv, err := server.NewWithConfig(ctx, cfg)
			if err != nil {
				return err
			}
			return srv.ListenAndServe(ctx)
		},
	}
	cmd.Flags().StringVar(&host, "host", "127.0.0.1", "listen host (overrides AGENTDESK_HOST)")
	cmd.Flags().IntVarP(&port, "port", "p", 8080, "listen port (overrides AGENTDESK_PORT)")
	cmd.Flags().StringVarP(&workspace, "workspace", "w", "", "workspace root (overrides AGENTDESK_WORKSPACE)")
	return cmd
}
