package alerts_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/teamignite/pricewatch/internal/alerts"
	"github.com/teamignite/pricewatch/internal/config"
	"github.com/teamignite/pricewatch/internal/domain"
	"github.com/teamignite/pricewatch/internal/logger"
)

// fakeAlertStore records calls in memory.
type fakeAlertStore struct {
	mu        sync.Mutex
	inserted  []*domain.Alert
	notified  map[bson.ObjectID][]string
	insertErr error
}

func newFakeAlertStore() *fakeAlertStore {
	return &fakeAlertStore{notified: make(map[bson.ObjectID][]string)}
}

func (f *fakeAlertStore) InsertAlert(_ context.Context, alert *domain.Alert) (bson.ObjectID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.insertErr != nil {
		return bson.NilObjectID, f.insertErr
	}
	f.inserted = append(f.inserted, alert)
	return bson.NewObjectID(), nil
}

func (f *fakeAlertStore) MarkAlertNotified(_ context.Context, id bson.ObjectID, channel string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.notified[id] = append(f.notified[id], channel)
	return nil
}

func testAlert() *domain.Alert {
	price := 1000.0
	scraped := 750.0
	return &domain.Alert{
		ASIN:          "B0ABCD1234",
		Title:         "Acme Headphones",
		CurrentPrice:  &price,
		ScrapedPrice:  &scraped,
		PercentChange: 25.0,
		TriggerReason: domain.TriggerPercent,
		URL:           "https://www.amazon.in/dp/B0ABCD1234",
	}
}

func newNotifier(store alerts.AlertStore, webhookURL string) *alerts.Notifier {
	return alerts.NewNotifier(store, config.AlertsConfig{
		WebhookURL:     webhookURL,
		WebhookTimeout: 2 * time.Second,
	}, logger.NewNoop())
}

func TestRecordAndNotify_DeliverySuccess(t *testing.T) {
	t.Parallel()

	var payload struct {
		Text string `json:"text"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	store := newFakeAlertStore()
	ok := newNotifier(store, srv.URL).RecordAndNotify(context.Background(), testAlert())

	assert.True(t, ok)
	require.Len(t, store.inserted, 1)
	assert.Equal(t, domain.AlertStatusOpen, store.inserted[0].Status)
	assert.False(t, store.inserted[0].TriggeredAt.IsZero())

	assert.Contains(t, payload.Text, "B0ABCD1234")
	assert.Contains(t, payload.Text, "Acme Headphones")
	assert.Contains(t, payload.Text, "25.0%")

	require.Len(t, store.notified, 1)
	for _, channels := range store.notified {
		assert.Equal(t, []string{alerts.ChannelSlack}, channels)
	}
}

func TestRecordAndNotify_WebhookErrorKeepsAlertRecorded(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	store := newFakeAlertStore()
	ok := newNotifier(store, srv.URL).RecordAndNotify(context.Background(), testAlert())

	assert.True(t, ok, "delivery failure must not fail the record step")
	require.Len(t, store.inserted, 1)
	assert.Empty(t, store.notified, "failed delivery must not mark any channel")
}

func TestRecordAndNotify_NoWebhookConfigured(t *testing.T) {
	t.Parallel()

	store := newFakeAlertStore()
	ok := newNotifier(store, "").RecordAndNotify(context.Background(), testAlert())

	assert.True(t, ok)
	require.Len(t, store.inserted, 1)
	assert.Empty(t, store.notified)
}

func TestRecordAndNotify_WebhookUnreachable(t *testing.T) {
	t.Parallel()

	store := newFakeAlertStore()
	// Reserved TEST-NET address: the connection fails fast.
	ok := newNotifier(store, "http://192.0.2.1:9/webhook").RecordAndNotify(context.Background(), testAlert())

	assert.True(t, ok)
	require.Len(t, store.inserted, 1)
	assert.Empty(t, store.notified)
}

func TestRecordAndNotify_InsertFailureReported(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	store := newFakeAlertStore()
	store.insertErr = errors.New("write failed")

	ok := newNotifier(store, srv.URL).RecordAndNotify(context.Background(), testAlert())

	assert.False(t, ok)
	assert.Empty(t, store.notified, "unrecorded alert must not be marked notified")
}

func TestRecordAndNotify_MissingPricesRendered(t *testing.T) {
	t.Parallel()

	var body string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload struct {
			Text string `json:"text"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		body = payload.Text
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	alert := testAlert()
	alert.CurrentPrice = nil
	alert.ScrapedPrice = nil
	alert.TriggerReason = domain.TriggerAvailability

	store := newFakeAlertStore()
	newNotifier(store, srv.URL).RecordAndNotify(context.Background(), alert)

	assert.True(t, strings.Contains(body, "N/A"), "missing prices should render as N/A, got %q", body)
}
