package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"sync"

	"github.com/gin-gonic/gin"

	"github.com/teamignite/pricewatch/internal/domain"
	"github.com/teamignite/pricewatch/internal/logger"
	"github.com/teamignite/pricewatch/internal/runner"
	"github.com/teamignite/pricewatch/internal/scraper"
	"github.com/teamignite/pricewatch/internal/storage"
)

const defaultListLimit = 20

// RunStarter launches scrape runs in the background.
type RunStarter interface {
	Start(ctx context.Context, urls []string, progress scraper.ProgressFunc, done func(runner.Summary)) (string, error)
}

// RunStore reads run records.
type RunStore interface {
	GetRunRecord(ctx context.Context, runID string) (*domain.RunRecord, error)
	ListRunRecords(ctx context.Context, limit int) ([]domain.RunRecord, error)
}

// runProgress tracks in-flight counters for one active run. Guarded by the
// handler mutex.
type runProgress struct {
	processed int
	total     int
	lastASIN  string
	finished  bool
}

// RunsHandler handles run-related HTTP requests.
type RunsHandler struct {
	starter RunStarter
	store   RunStore
	urls    []string
	runCtx  context.Context
	log     logger.Interface

	mu     sync.Mutex
	active map[string]*runProgress
}

// NewRunsHandler creates a runs handler. runCtx is the lifetime context for
// background runs; it must outlive individual requests.
func NewRunsHandler(
	runCtx context.Context,
	starter RunStarter,
	store RunStore,
	urls []string,
	log logger.Interface,
) *RunsHandler {
	return &RunsHandler{
		starter: starter,
		store:   store,
		urls:    urls,
		runCtx:  runCtx,
		log:     log,
		active:  make(map[string]*runProgress),
	}
}

// triggerRequest is the optional POST body; urls overrides the configured
// product list for this run only.
type triggerRequest struct {
	URLs []string `json:"urls"`
}

// TriggerRun handles POST /api/v1/runs. The run executes in the background;
// the response carries the run ID to poll. An already active run yields 409.
func (h *RunsHandler) TriggerRun(c *gin.Context) {
	urls := h.urls
	if c.Request.ContentLength > 0 {
		var req triggerRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "invalid request: " + err.Error(),
			})
			return
		}
		if len(req.URLs) > 0 {
			urls = req.URLs
		}
	}

	state := &runProgress{}

	progress := func(processed, total int, lastASIN string) {
		h.mu.Lock()
		defer h.mu.Unlock()
		state.processed = processed
		state.total = total
		if lastASIN != "" {
			state.lastASIN = lastASIN
		}
	}

	done := func(s runner.Summary) {
		h.mu.Lock()
		defer h.mu.Unlock()
		state.finished = true
		delete(h.active, s.RunID)
	}

	runID, err := h.starter.Start(h.runCtx, urls, progress, done)
	if err != nil {
		if errors.Is(err, storage.ErrLockHeld) {
			c.JSON(http.StatusConflict, gin.H{
				"error": "a run is already in progress",
			})
			return
		}
		h.log.Error("failed to start run", "error", err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "failed to start run",
		})
		return
	}

	// The run can complete before Start returns; only track it while active.
	h.mu.Lock()
	if !state.finished {
		h.active[runID] = state
	}
	h.mu.Unlock()

	c.JSON(http.StatusAccepted, gin.H{
		"run_id": runID,
		"status": domain.RunStatusRunning,
	})
}

// GetRun handles GET /api/v1/runs/:id.
func (h *RunsHandler) GetRun(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid run ID"})
		return
	}

	record, err := h.store.GetRunRecord(c.Request.Context(), id)
	if err != nil {
		h.log.Error("failed to load run record", "run_id", id, "error", err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to retrieve run"})
		return
	}
	if record == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "run not found"})
		return
	}

	resp := gin.H{"run": record}
	if p := h.progressFor(id); p != nil {
		resp["progress"] = p
	}
	c.JSON(http.StatusOK, resp)
}

// ListRuns handles GET /api/v1/runs.
func (h *RunsHandler) ListRuns(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultListLimit)))
	if err != nil || limit <= 0 {
		limit = defaultListLimit
	}

	records, err := h.store.ListRunRecords(c.Request.Context(), limit)
	if err != nil {
		h.log.Error("failed to list run records", "error", err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to retrieve runs"})
		return
	}
	if records == nil {
		records = []domain.RunRecord{}
	}

	c.JSON(http.StatusOK, gin.H{
		"runs":  records,
		"total": len(records),
	})
}

// progressFor returns the live counters of an active run, or nil.
func (h *RunsHandler) progressFor(runID string) gin.H {
	h.mu.Lock()
	defer h.mu.Unlock()

	state, ok := h.active[runID]
	if !ok {
		return nil
	}
	return gin.H{
		"processed": state.processed,
		"total":     state.total,
		"last_asin": state.lastASIN,
	}
}
