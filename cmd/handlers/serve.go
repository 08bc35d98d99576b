package handlers

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"gazette/internal/auth"
	"gazette/internal/billing"
	"gazette/internal/logger"
	"gazette/internal/persistence"
	"gazette/internal/server"
)

// NewServeCmd creates the serve command for starting the HTTP API.
func NewServeCmd() *cobra.Command {
	var (
		port int
		host string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the gazette HTTP API server",
		Long: `Start the gazette API server.

The server provides:
  • Newsletter browsing endpoints backed by Postgres
  • Account registration, login, and deletion
  • Stripe subscription checkout and webhook handling
  • Health check endpoint

Generation runs separately ('gazette run' or 'gazette schedule'); the server
only reads what the pipeline persisted.

Examples:
  # Start on the configured port (default 8080)
  gazette serve

  # Start on a custom port
  gazette serve --port 3000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if port != 0 {
				cfg.Server.Port = port
			}
			if host != "" {
				cfg.Server.Host = host
			}

			db, err := persistence.NewPostgresDB(cfg.Database.URL)
			if err != nil {
				return err
			}
			defer db.Close()

			billingProvider, err := billing.NewStripeProvider(cfg.Billing.Stripe)
			if err != nil {
				return err
			}

			tokens, err := auth.NewTokenIssuer(cfg.Auth)
			if err != nil {
				return err
			}

			srv := server.New(db, billingProvider, tokens, cfg.Server)

			errCh := make(chan error, 1)
			go func() {
				errCh <- srv.Start()
			}()

			quit := make(chan os.Signal, 1)
			signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

			select {
			case err := <-errCh:
				return err
			case <-quit:
			}

			logger.Info("Shutting down HTTP server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "HTTP server port (default from config: 8080)")
	cmd.Flags().StringVar(&host, "host", "", "HTTP server host (default from config: 0.0.0.0)")

	return cmd
}
