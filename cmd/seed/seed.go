// Package seed implements the command that seeds the alert settings
// singleton with its defaults.
package seed

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	cmdcommon "github.com/teamignite/pricewatch/cmd/common"
)

// Command returns the seed command for use in the root command.
func Command() *cobra.Command {
	return &cobra.Command{
		Use:   "seed-settings",
		Short: "Seed the alert settings document with defaults",
		Long: `Writes the default alert settings document to the store. Existing
settings are overwritten with the defaults; admins adjust thresholds by
editing the document afterwards.`,
		RunE: runSeed,
	}
}

// runSeed executes the seed command.
func runSeed(cmd *cobra.Command, _ []string) error {
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

	if err := store.SeedAlertSettings(ctx); err != nil {
		return fmt.Errorf("failed to seed alert settings: %w", err)
	}
	return nil
}
