package domain

import (
	"time"
)

// Run record statuses.
const (
	RunStatusRunning = "running"
	RunStatusSuccess = "success"
	RunStatusFailed  = "failed"
)

// RunLockID is the fixed key of the run lock singleton document.
const RunLockID = "scraper_run"

// RunLockTTL is how long a lock document survives before the store expires
// it, recovering from crashed holders. A run outliving the TTL loses lock
// protection mid-flight; there is no renewal.
const RunLockTTL = time.Hour

// RunLock is the singleton document used for cross-process mutual exclusion.
type RunLock struct {
	ID       string    `bson:"_id" json:"id"`
	RunID    string    `bson:"run_id" json:"run_id"`
	LockedAt time.Time `bson:"locked_at" json:"locked_at"`
}

// RunRecord tracks the lifecycle and statistics of a single scrape run.
type RunRecord struct {
	RunID                string     `bson:"run_id" json:"run_id"`
	StartedAt            time.Time  `bson:"started_at" json:"started_at"`
	FinishedAt           *time.Time `bson:"finished_at,omitempty" json:"finished_at,omitempty"`
	Status               string     `bson:"status" json:"status"`
	ProductsScraped      int        `bson:"products_scraped" json:"products_scraped"`
	PriceHistoryInserted int        `bson:"price_history_inserted" json:"price_history_inserted"`
	DurationSeconds      float64    `bson:"duration_seconds" json:"duration_seconds"`
	Error                string     `bson:"error,omitempty" json:"error,omitempty"`
}
