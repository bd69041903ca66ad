// Package scrape implements the one-shot scrape run command.
package scrape

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	cmdcommon "github.com/teamignite/pricewatch/cmd/common"
	"github.com/teamignite/pricewatch/internal/runner"
)

// Command returns the scrape command for use in the root command.
func Command() *cobra.Command {
	var urls []string

	cmd := &cobra.Command{
		Use:   "scrape",
		Short: "Run one scrape pass over the configured product URLs",
		Long: `Runs the full scrape pipeline once: fetch every configured product page,
extract product data, persist snapshots and price history, and raise alerts.
When another run already holds the run lock this command exits cleanly
without scraping.

The --url flag can be repeated to scrape a specific set of pages instead of
the configured list.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runScrape(cmd, urls)
		},
	}

	cmd.Flags().StringArrayVar(&urls, "url", nil,
		"product URL to scrape (repeatable; overrides the configured list)")

	return cmd
}

// runScrape executes one scrape run.
func runScrape(cmd *cobra.Command, urlOverride []string) error {
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
		if closeErr := store.Close(ctx); closeErr != nil {
			deps.Logger.Warn("failed to close store", "error", closeErr.Error())
		}
	}()

	urls := deps.Config.Scraper.ProductURLs
	if len(urlOverride) > 0 {
		urls = urlOverride
	}
	if len(urls) == 0 {
		deps.Logger.Warn("no product URLs configured, nothing to scrape")
		return nil
	}

	run := cmdcommon.BuildRunner(deps, store)
	summary := run.Run(ctx, urls, func(processed, total int, lastASIN string) {
		deps.Logger.Debug("scrape progress",
			"processed", processed,
			"total", total,
			"last_asin", lastASIN,
		)
	})

	switch summary.Outcome {
	case runner.OutcomeLocked:
		// Expected under overlapping triggers; not an error.
		return nil
	case runner.OutcomeError:
		return fmt.Errorf("scrape run %s failed: %w", summary.RunID, summary.Err)
	default:
		return nil
	}
}
