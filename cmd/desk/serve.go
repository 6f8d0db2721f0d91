package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/eddiefleurent/options_desk/internal/dashboard"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the dashboard API until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			desk, err := a.openDesk(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			if a.cfg.Dashboard.AuthToken == "" {
				a.logger.Warn("dashboard.auth_token is empty; sync endpoints are disabled")
			}
			srv := dashboard.NewServer(dashboard.Config{
				Port:      a.cfg.Dashboard.Port,
				AuthToken: a.cfg.Dashboard.AuthToken,
			}, desk, a.logger)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() {
				errCh <- srv.Start()
			}()

			select {
			case err := <-errCh:
				if !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			case <-ctx.Done():
			}

			a.logger.Info("Shutdown signal received, stopping dashboard...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				return err
			}
			a.logger.Info("Dashboard stopped")
			return nil
		},
	}
}
