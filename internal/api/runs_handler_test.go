package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teamignite/pricewatch/internal/api"
	"github.com/teamignite/pricewatch/internal/domain"
	"github.com/teamignite/pricewatch/internal/logger"
	"github.com/teamignite/pricewatch/internal/runner"
	"github.com/teamignite/pricewatch/internal/scraper"
	"github.com/teamignite/pricewatch/internal/storage"
)

// fakeStarter simulates the runner: it reports progress synchronously and
// leaves the run active until release is called.
type fakeStarter struct {
	runID    string
	startErr error
	progress []int
	urls     []string
	release  func()
}

func (f *fakeStarter) Start(
	_ context.Context,
	urls []string,
	progress scraper.ProgressFunc,
	done func(runner.Summary),
) (string, error) {
	f.urls = urls
	if f.startErr != nil {
		return "", f.startErr
	}
	for _, p := range f.progress {
		progress(p, len(f.progress), "B000000001")
	}
	f.release = func() { done(runner.Summary{RunID: f.runID}) }
	return f.runID, nil
}

type fakeRunStore struct {
	records map[string]*domain.RunRecord
	listErr error
}

func (f *fakeRunStore) GetRunRecord(_ context.Context, runID string) (*domain.RunRecord, error) {
	return f.records[runID], nil
}

func (f *fakeRunStore) ListRunRecords(_ context.Context, limit int) ([]domain.RunRecord, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	records := make([]domain.RunRecord, 0, len(f.records))
	for _, r := range f.records {
		if len(records) == limit {
			break
		}
		records = append(records, *r)
	}
	return records, nil
}

type fakePinger struct {
	err error
}

func (f *fakePinger) Ping(context.Context) error { return f.err }

func newTestRouter(starter api.RunStarter, store api.RunStore, pinger api.Pinger) http.Handler {
	handler := api.NewRunsHandler(context.Background(), starter, store, []string{"u1"}, logger.NewNoop())
	return api.NewRouter(handler, pinger, logger.NewNoop(), false)
}

func doRequest(t *testing.T, router http.Handler, method, path string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	req := httptest.NewRequest(method, path, http.NoBody)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var body map[string]any
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	}
	return rec, body
}

func TestTriggerRun_Accepted(t *testing.T) {
	t.Parallel()

	starter := &fakeStarter{runID: "run-1"}
	router := newTestRouter(starter, &fakeRunStore{}, &fakePinger{})

	rec, body := doRequest(t, router, http.MethodPost, "/api/v1/runs")

	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, "run-1", body["run_id"])
	assert.Equal(t, domain.RunStatusRunning, body["status"])
}

func TestTriggerRun_BodyOverridesURLs(t *testing.T) {
	t.Parallel()

	starter := &fakeStarter{runID: "run-1"}
	router := newTestRouter(starter, &fakeRunStore{}, &fakePinger{})

	body := strings.NewReader(`{"urls": ["https://www.amazon.in/dp/B0OVERRIDE"]}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/runs", body)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, []string{"https://www.amazon.in/dp/B0OVERRIDE"}, starter.urls)
}

func TestTriggerRun_MalformedBody(t *testing.T) {
	t.Parallel()

	router := newTestRouter(&fakeStarter{runID: "run-1"}, &fakeRunStore{}, &fakePinger{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/runs", strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTriggerRun_ConflictWhenLocked(t *testing.T) {
	t.Parallel()

	starter := &fakeStarter{startErr: storage.ErrLockHeld}
	router := newTestRouter(starter, &fakeRunStore{}, &fakePinger{})

	rec, body := doRequest(t, router, http.MethodPost, "/api/v1/runs")

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, body["error"], "already in progress")
}

func TestTriggerRun_StartError(t *testing.T) {
	t.Parallel()

	starter := &fakeStarter{startErr: errors.New("store down")}
	router := newTestRouter(starter, &fakeRunStore{}, &fakePinger{})

	rec, _ := doRequest(t, router, http.MethodPost, "/api/v1/runs")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestGetRun_IncludesProgressWhileActive(t *testing.T) {
	t.Parallel()

	starter := &fakeStarter{runID: "run-1", progress: []int{1, 2}}
	store := &fakeRunStore{records: map[string]*domain.RunRecord{
		"run-1": {RunID: "run-1", Status: domain.RunStatusRunning, StartedAt: time.Now().UTC()},
	}}
	router := newTestRouter(starter, store, &fakePinger{})

	rec, _ := doRequest(t, router, http.MethodPost, "/api/v1/runs")
	require.Equal(t, http.StatusAccepted, rec.Code)

	rec, body := doRequest(t, router, http.MethodGet, "/api/v1/runs/run-1")
	require.Equal(t, http.StatusOK, rec.Code)

	progress, ok := body["progress"].(map[string]any)
	require.True(t, ok, "active run must expose progress")
	assert.Equal(t, float64(2), progress["processed"])
	assert.Equal(t, "B000000001", progress["last_asin"])

	// Once the run completes its progress entry is gone.
	starter.release()
	rec, body = doRequest(t, router, http.MethodGet, "/api/v1/runs/run-1")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, body, "progress")
}

func TestGetRun_NotFound(t *testing.T) {
	t.Parallel()

	router := newTestRouter(&fakeStarter{}, &fakeRunStore{}, &fakePinger{})
	rec, _ := doRequest(t, router, http.MethodGet, "/api/v1/runs/unknown")

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListRuns(t *testing.T) {
	t.Parallel()

	store := &fakeRunStore{records: map[string]*domain.RunRecord{
		"run-1": {RunID: "run-1", Status: domain.RunStatusSuccess},
		"run-2": {RunID: "run-2", Status: domain.RunStatusFailed},
	}}
	router := newTestRouter(&fakeStarter{}, store, &fakePinger{})

	rec, body := doRequest(t, router, http.MethodGet, "/api/v1/runs")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(2), body["total"])
}

func TestHealthz(t *testing.T) {
	t.Parallel()

	router := newTestRouter(&fakeStarter{}, &fakeRunStore{}, &fakePinger{})
	rec, body := doRequest(t, router, http.MethodGet, "/healthz")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", body["status"])
}

func TestHealthz_StoreDown(t *testing.T) {
	t.Parallel()

	router := newTestRouter(&fakeStarter{}, &fakeRunStore{}, &fakePinger{err: errors.New("no reachable servers")})
	rec, body := doRequest(t, router, http.MethodGet, "/healthz")

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "unavailable", body["status"])
}
