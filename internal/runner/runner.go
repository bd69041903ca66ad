// Package runner coordinates the scrape run lifecycle: lock acquisition,
// run recording, batch execution, persistence, alerting, and finalization.
package runner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/teamignite/pricewatch/internal/alerts"
	"github.com/teamignite/pricewatch/internal/domain"
	"github.com/teamignite/pricewatch/internal/logger"
	"github.com/teamignite/pricewatch/internal/scraper"
	"github.com/teamignite/pricewatch/internal/storage"
)

// Outcome classifies a run invocation. Locked is an expected outcome for
// overlapping triggers, not an error.
type Outcome string

const (
	OutcomeOK     Outcome = "ok"
	OutcomeLocked Outcome = "locked"
	OutcomeError  Outcome = "error"
)

// Store is the persistence surface the runner depends on.
type Store interface {
	AcquireRunLock(ctx context.Context, runID string) error
	ReleaseRunLock(ctx context.Context, runID string) error
	CreateRunRecord(ctx context.Context, record *domain.RunRecord) error
	FinalizeRunRecord(ctx context.Context, runID, status string, stats storage.RunStats, runErr error) error
	GetProduct(ctx context.Context, asin string) (*domain.ProductRecord, error)
	UpsertProduct(ctx context.Context, snap *domain.ProductSnapshot) error
	AppendPriceHistory(ctx context.Context, entries []domain.PriceHistoryEntry) (int, error)
	GetAlertSettings(ctx context.Context) (*domain.AlertSettings, error)
}

// Batch executes fetch+extract over a URL list.
type Batch interface {
	Run(ctx context.Context, urls []string, progress scraper.ProgressFunc) *scraper.BatchResult
}

// AlertSink records and delivers alerts.
type AlertSink interface {
	RecordAndNotify(ctx context.Context, alert *domain.Alert) bool
}

// Summary is the result of one run invocation.
type Summary struct {
	RunID           string
	Outcome         Outcome
	Processed       int
	Total           int
	ProductsScraped int
	HistoryInserted int
	AlertsRaised    int
	Duration        time.Duration
	Err             error
}

// Runner owns the run lifecycle.
type Runner struct {
	store    Store
	batch    Batch
	notifier AlertSink
	log      logger.Interface
	now      func() time.Time
}

// New creates a runner.
func New(store Store, batch Batch, notifier AlertSink, log logger.Interface) *Runner {
	return &Runner{
		store:    store,
		batch:    batch,
		notifier: notifier,
		log:      log,
		now:      time.Now,
	}
}

// Run performs one full scrape run over the given URLs. At most one run is
// active system-wide: when another run holds the lock this invocation
// returns OutcomeLocked without touching any state.
func (r *Runner) Run(ctx context.Context, urls []string, progress scraper.ProgressFunc) Summary {
	runID := uuid.NewString()
	log := r.log.With("run_id", runID)
	started := r.now()

	if err := r.begin(ctx, runID, started, len(urls), log); err != nil {
		if errors.Is(err, storage.ErrLockHeld) {
			log.Info("another run is already active, skipping")
			return Summary{RunID: runID, Outcome: OutcomeLocked}
		}
		return Summary{RunID: runID, Outcome: OutcomeError, Err: err}
	}

	return r.finish(ctx, runID, started, urls, progress, log)
}

// Start acquires the run lock and creates the run record synchronously, then
// executes the rest of the run on a new goroutine. It returns the run ID on
// success and storage.ErrLockHeld when another run is active. The done
// callback, when non-nil, receives the summary after the run completes.
//
// ctx must outlive the run; callers triggering from a request handler pass a
// server-scoped context, not the request's.
func (r *Runner) Start(ctx context.Context, urls []string, progress scraper.ProgressFunc, done func(Summary)) (string, error) {
	runID := uuid.NewString()
	log := r.log.With("run_id", runID)
	started := r.now()

	if err := r.begin(ctx, runID, started, len(urls), log); err != nil {
		return "", err
	}

	go func() {
		summary := r.finish(ctx, runID, started, urls, progress, log)
		if done != nil {
			done(summary)
		}
	}()

	return runID, nil
}

// begin acquires the lock and records the run as running. On record failure
// the freshly acquired lock is released so the failure does not block the
// next trigger.
func (r *Runner) begin(ctx context.Context, runID string, started time.Time, urlCount int, log logger.Interface) error {
	if err := r.store.AcquireRunLock(ctx, runID); err != nil {
		if !errors.Is(err, storage.ErrLockHeld) {
			log.Error("failed to acquire run lock", "error", err.Error())
		}
		return err
	}

	record := &domain.RunRecord{
		RunID:     runID,
		StartedAt: started.UTC(),
		Status:    domain.RunStatusRunning,
	}
	if err := r.store.CreateRunRecord(ctx, record); err != nil {
		log.Error("failed to create run record", "error", err.Error())
		if relErr := r.store.ReleaseRunLock(ctx, runID); relErr != nil {
			log.Error("failed to release run lock", "error", relErr.Error())
		}
		return err
	}

	log.Info("run started", "products", urlCount)
	return nil
}

// finish executes the run body and always releases the lock this run
// acquired, success or failure.
func (r *Runner) finish(
	ctx context.Context,
	runID string,
	started time.Time,
	urls []string,
	progress scraper.ProgressFunc,
	log logger.Interface,
) Summary {
	defer func() {
		if err := r.store.ReleaseRunLock(ctx, runID); err != nil {
			log.Error("failed to release run lock", "error", err.Error())
		}
	}()

	summary, runErr := r.execute(ctx, runID, urls, progress, log)
	summary.RunID = runID
	summary.Duration = r.now().Sub(started)

	status := domain.RunStatusSuccess
	if runErr != nil {
		status = domain.RunStatusFailed
		summary.Outcome = OutcomeError
		summary.Err = runErr
	} else {
		summary.Outcome = OutcomeOK
	}

	stats := storage.RunStats{
		ProductsScraped:      summary.ProductsScraped,
		PriceHistoryInserted: summary.HistoryInserted,
	}
	if err := r.store.FinalizeRunRecord(ctx, runID, status, stats, runErr); err != nil {
		log.Error("failed to finalize run record", "error", err.Error())
	}

	log.Info("run finished",
		"status", status,
		"products_scraped", summary.ProductsScraped,
		"history_inserted", summary.HistoryInserted,
		"alerts_raised", summary.AlertsRaised,
		"duration", summary.Duration.String(),
	)

	return summary
}

// execute runs the batch and persists its results. A panic anywhere in the
// pipeline is converted into a failed run instead of crashing the process.
func (r *Runner) execute(
	ctx context.Context,
	runID string,
	urls []string,
	progress scraper.ProgressFunc,
	log logger.Interface,
) (summary Summary, runErr error) {
	defer func() {
		if rec := recover(); rec != nil {
			runErr = fmt.Errorf("run %s panicked: %v", runID, rec)
		}
	}()

	result := r.batch.Run(ctx, urls, progress)
	summary.Processed = result.Processed
	summary.Total = result.Total

	settings, err := r.store.GetAlertSettings(ctx)
	if err != nil {
		log.Warn("failed to load alert settings, alerts disabled for this run", "error", err.Error())
		settings = nil
	}

	entries := make([]domain.PriceHistoryEntry, 0, len(result.Items))

	for _, snap := range result.Snapshots() {
		prev, err := r.store.GetProduct(ctx, snap.ASIN)
		if err != nil {
			log.Warn("failed to load existing product", "asin", snap.ASIN, "error", err.Error())
			prev = nil
		}

		if err := r.store.UpsertProduct(ctx, snap); err != nil {
			log.Error("failed to upsert product, skipping", "asin", snap.ASIN, "error", err.Error())
			continue
		}

		summary.ProductsScraped++
		entries = append(entries, domain.HistoryEntryFromSnapshot(snap))

		if alert := alerts.Evaluate(prev, snap, settings, r.now().UTC()); alert != nil {
			log.Info("alert triggered",
				"asin", alert.ASIN,
				"reason", alert.TriggerReason,
				"percent_change", alert.PercentChange,
			)
			if r.notifier.RecordAndNotify(ctx, alert) {
				summary.AlertsRaised++
			}
		}
	}

	// History writes are best-effort: a partial insert keeps its count and
	// never fails the run.
	inserted, err := r.store.AppendPriceHistory(ctx, entries)
	summary.HistoryInserted = inserted
	if err != nil {
		log.Warn("price history append incomplete", "inserted", inserted, "error", err.Error())
	}

	return summary, nil
}
