// Package serve implements the HTTP server command.
package serve

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	cmdcommon "github.com/teamignite/pricewatch/cmd/common"
	"github.com/teamignite/pricewatch/internal/api"
)

const (
	errorChannelBufferSize = 1
	defaultShutdownTimeout = 30 * time.Second
)

// Command returns the serve command for use in the root command.
func Command() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API for triggering and inspecting runs",
		Long: `Starts the HTTP server. Runs can be triggered with POST /api/v1/runs and
inspected with GET /api/v1/runs/:id; /healthz reports store connectivity.
The server runs until interrupted with Ctrl+C.`,
		RunE: runServe,
	}
}

// runServe executes the serve command.
func runServe(cmd *cobra.Command, _ []string) error {
	deps, err := cmdcommon.NewCommandDeps()
	if err != nil {
		return fmt.Errorf("failed to initialize dependencies: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := cmdcommon.CreateStore(ctx, deps)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := store.Close(context.Background()); closeErr != nil {
			deps.Logger.Warn("failed to close store", "error", closeErr.Error())
		}
	}()

	run := cmdcommon.BuildRunner(deps, store)
	runs := api.NewRunsHandler(ctx, run, store, deps.Config.Scraper.ProductURLs, deps.Logger)
	router := api.NewRouter(runs, store, deps.Logger, deps.Config.App.Debug)
	server := api.NewServer(deps.Config.Server.Address, router)

	deps.Logger.Info("starting HTTP server", "addr", deps.Config.Server.Address)
	errChan := make(chan error, errorChannelBufferSize)
	go func() {
		if serveErr := server.ListenAndServe(); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			errChan <- serveErr
		}
	}()

	select {
	case serverErr := <-errChan:
		deps.Logger.Error("server error", "error", serverErr.Error())
		return fmt.Errorf("server error: %w", serverErr)
	case <-ctx.Done():
		return shutdownServer(deps, server)
	}
}

// shutdownServer performs graceful shutdown of the HTTP server.
func shutdownServer(deps cmdcommon.CommandDeps, server *http.Server) error {
	deps.Logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		deps.Logger.Error("failed to stop server", "error", err.Error())
		return fmt.Errorf("failed to stop server: %w", err)
	}

	deps.Logger.Info("server stopped")
	return nil
}
