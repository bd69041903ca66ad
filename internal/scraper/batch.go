// Package scraper orchestrates fetching and extracting a batch of product
// URLs across a bounded worker pool.
package scraper

import (
	"context"
	"fmt"

	"github.com/teamignite/pricewatch/internal/domain"
	"github.com/teamignite/pricewatch/internal/fetcher"
	"github.com/teamignite/pricewatch/internal/logger"
)

// Fetcher retrieves a single page.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*fetcher.Result, error)
}

// Extractor parses fetched content into a snapshot.
type Extractor interface {
	Extract(body []byte, finalURL string) (*domain.ProductSnapshot, error)
}

// ProgressFunc is invoked after each item completes, success or failure.
// lastASIN is empty when the completed item failed.
type ProgressFunc func(processed, total int, lastASIN string)

// Item correlates one input URL with its outcome.
type Item struct {
	URL      string
	Snapshot *domain.ProductSnapshot
	Err      error
}

// BatchResult aggregates a batch run.
type BatchResult struct {
	Items     []Item
	Processed int
	Total     int
}

// Snapshots returns the successfully extracted snapshots in input order.
func (r *BatchResult) Snapshots() []*domain.ProductSnapshot {
	snaps := make([]*domain.ProductSnapshot, 0, len(r.Items))
	for i := range r.Items {
		if r.Items[i].Snapshot != nil {
			snaps = append(snaps, r.Items[i].Snapshot)
		}
	}
	return snaps
}

// Batch runs fetch+extract over URL batches with bounded parallelism.
type Batch struct {
	fetcher   Fetcher
	extractor Extractor
	workers   int
	log       logger.Interface
}

// NewBatch creates a batch orchestrator.
func NewBatch(f Fetcher, e Extractor, workers int, log logger.Interface) *Batch {
	if workers <= 0 {
		workers = 1
	}
	return &Batch{fetcher: f, extractor: e, workers: workers, log: log}
}

// Run processes all URLs and returns when every item has completed. One
// item's failure never aborts the batch; result collection happens on the
// calling goroutine, so Items needs no locking.
func (b *Batch) Run(ctx context.Context, urls []string, progress ProgressFunc) *BatchResult {
	result := &BatchResult{
		Items: make([]Item, len(urls)),
		Total: len(urls),
	}

	sem := make(chan struct{}, b.workers)
	done := make(chan int)

	for i, url := range urls {
		go func(i int, url string) {
			sem <- struct{}{}
			defer func() { <-sem }()

			result.Items[i] = b.processItem(ctx, url)
			done <- i
		}(i, url)
	}

	for range urls {
		i := <-done
		result.Processed++

		item := &result.Items[i]
		if item.Err != nil {
			b.log.Warn("product scrape failed", "url", item.URL, "error", item.Err.Error())
		} else {
			b.log.Info("product scraped",
				"asin", item.Snapshot.ASIN,
				"title", truncate(item.Snapshot.Title, 35),
				"price", item.Snapshot.Price,
			)
		}

		b.reportProgress(progress, result.Processed, result.Total, item)
	}

	return result
}

// processItem fetches and extracts one URL. Panics are converted into item
// failures so a malformed page can never take down the batch.
func (b *Batch) processItem(ctx context.Context, url string) (item Item) {
	item.URL = url

	defer func() {
		if r := recover(); r != nil {
			item.Snapshot = nil
			item.Err = fmt.Errorf("panic processing %s: %v", url, r)
		}
	}()

	res, err := b.fetcher.Fetch(ctx, url)
	if err != nil {
		item.Err = fmt.Errorf("fetch: %w", err)
		return item
	}

	snap, err := b.extractor.Extract(res.Body, res.FinalURL)
	if err != nil {
		item.Err = fmt.Errorf("extract: %w", err)
		return item
	}

	item.Snapshot = snap
	return item
}

// reportProgress invokes the progress callback, swallowing panics.
// Progress reporting must never affect scrape correctness.
func (b *Batch) reportProgress(progress ProgressFunc, processed, total int, item *Item) {
	if progress == nil {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			b.log.Debug("progress callback panicked", "recovered", fmt.Sprintf("%v", r))
		}
	}()

	lastASIN := ""
	if item.Snapshot != nil {
		lastASIN = item.Snapshot.ASIN
	}
	progress(processed, total, lastASIN)
}

// truncate shortens s for log output.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
