package common

import (
	"context"
	"fmt"

	"github.com/teamignite/pricewatch/internal/alerts"
	"github.com/teamignite/pricewatch/internal/extractor"
	"github.com/teamignite/pricewatch/internal/fetcher"
	"github.com/teamignite/pricewatch/internal/runner"
	"github.com/teamignite/pricewatch/internal/scraper"
	"github.com/teamignite/pricewatch/internal/storage"
)

// CreateStore connects to the document store and ensures indexes.
func CreateStore(ctx context.Context, deps CommandDeps) (*storage.Store, error) {
	store, err := storage.New(ctx, deps.Config.Mongo, deps.Logger)
	if err != nil {
		return nil, fmt.Errorf("create store: %w", err)
	}
	return store, nil
}

// BuildRunner wires the full scrape pipeline onto the store: fetcher,
// extractor, batch orchestrator, alert notifier, and the run coordinator.
func BuildRunner(deps CommandDeps, store *storage.Store) *runner.Runner {
	scraperCfg := deps.Config.Scraper

	fetch := fetcher.New(fetcher.Config{
		MaxAttempts:    scraperCfg.MaxAttempts,
		BaseDelay:      scraperCfg.RetryBaseDelay,
		RequestTimeout: scraperCfg.RequestTimeout,
		UserAgents:     scraperCfg.UserAgents,
		BlockMarkers:   scraperCfg.BlockMarkers,
	}, deps.Logger)

	batch := scraper.NewBatch(fetch, extractor.New(), scraperCfg.Workers, deps.Logger)
	notifier := alerts.NewNotifier(store, deps.Config.Alerts, deps.Logger)

	return runner.New(store, batch, notifier, deps.Logger)
}
