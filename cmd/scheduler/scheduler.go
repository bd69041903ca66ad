// Package scheduler implements the periodic scrape command.
package scheduler

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	cmdcommon "github.com/teamignite/pricewatch/cmd/common"
	"github.com/teamignite/pricewatch/internal/scheduler"
)

// Command returns the scheduler command for use in the root command.
func Command() *cobra.Command {
	return &cobra.Command{
		Use:   "scheduler",
		Short: "Run scrape passes on the configured cron schedule",
		Long: `Starts the scheduler and runs the scrape pipeline on the configured cron
schedule until interrupted with Ctrl+C. A tick that fires while a previous
run is still active is skipped via the run lock.`,
		RunE: runScheduler,
	}
}

// runScheduler executes the scheduler command.
func runScheduler(cmd *cobra.Command, _ []string) error {
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

	urls := deps.Config.Scraper.ProductURLs
	if len(urls) == 0 {
		deps.Logger.Warn("no product URLs configured, scheduled runs will be empty")
	}

	run := cmdcommon.BuildRunner(deps, store)
	svc := scheduler.NewService(deps.Config.Scheduler.Cron, func(runCtx context.Context) {
		run.Run(runCtx, urls, nil)
	}, deps.Logger)

	if err := svc.Start(ctx); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}

	deps.Logger.Info("scheduler running, waiting for interrupt")
	<-ctx.Done()

	deps.Logger.Info("shutdown signal received")
	if err := svc.Stop(); err != nil {
		return fmt.Errorf("failed to stop scheduler: %w", err)
	}

	deps.Logger.Info("scheduler stopped")
	return nil
}
