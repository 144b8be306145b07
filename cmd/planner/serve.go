package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/Veraticus/moneyplanner/internal/api"
)

const shutdownTimeout = 15 * time.Second

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the JSON HTTP API",
		Long: `Serve the planner API. Callers identify themselves with the X-User-Id
header; in dev mode requests without one act as user.default_id.`,
		RunE: runServe,
	}
	cmd.Flags().String("addr", "", "listen address (default: server.addr)")
	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	addr := a.cfg.Server.Addr
	if flagAddr, _ := cmd.Flags().GetString("addr"); flagAddr != "" {
		addr = flagAddr
	}

	srv := api.NewServer(addr, a.planner, api.Options{
		DefaultUser:    a.cfg.User.DefaultID,
		AllowedOrigins: a.cfg.Server.AllowedOrigins,
		DevMode:        a.cfg.DevMode,
		PlaidEnv:       a.cfg.Plaid.Environment,
	})

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Starting API server",
			"addr", addr,
			"dev_mode", a.cfg.DevMode,
			"plaid_configured", a.cfg.Plaid.Configured())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	slog.Info("API server stopped")
	return nil
}
