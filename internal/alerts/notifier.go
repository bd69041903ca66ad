package alerts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/teamignite/pricewatch/internal/config"
	"github.com/teamignite/pricewatch/internal/domain"
	"github.com/teamignite/pricewatch/internal/logger"
)

// ChannelSlack is the only delivery channel currently implemented.
const ChannelSlack = "slack"

// AlertStore persists alerts and their delivery state.
type AlertStore interface {
	InsertAlert(ctx context.Context, alert *domain.Alert) (bson.ObjectID, error)
	MarkAlertNotified(ctx context.Context, id bson.ObjectID, channel string) error
}

// Notifier records alerts and posts them to a Slack-style webhook.
// Delivery failure never rolls back the recorded alert and never fails
// the run.
type Notifier struct {
	store      AlertStore
	webhookURL string
	client     *http.Client
	log        logger.Interface
}

// NewNotifier creates a notifier.
func NewNotifier(store AlertStore, cfg config.AlertsConfig, log logger.Interface) *Notifier {
	return &Notifier{
		store:      store,
		webhookURL: cfg.WebhookURL,
		client:     &http.Client{Timeout: cfg.WebhookTimeout},
		log:        log,
	}
}

// RecordAndNotify inserts the alert, then attempts webhook delivery. On
// successful delivery the channel is appended to notified_channels. Returns
// whether the alert was recorded.
func (n *Notifier) RecordAndNotify(ctx context.Context, alert *domain.Alert) bool {
	if alert.TriggeredAt.IsZero() {
		alert.TriggeredAt = time.Now().UTC()
	}
	if alert.Status == "" {
		alert.Status = domain.AlertStatusOpen
	}
	if alert.NotifiedChannels == nil {
		alert.NotifiedChannels = []string{}
	}

	id, insertErr := n.store.InsertAlert(ctx, alert)
	if insertErr != nil {
		n.log.Error("failed to record alert", "asin", alert.ASIN, "error", insertErr.Error())
	}

	if n.deliver(ctx, alert) && insertErr == nil {
		if err := n.store.MarkAlertNotified(ctx, id, ChannelSlack); err != nil {
			n.log.Debug("failed to mark alert notified", "asin", alert.ASIN, "error", err.Error())
		}
	}

	return insertErr == nil
}

// deliver posts the alert text to the webhook. Reports delivery success.
func (n *Notifier) deliver(ctx context.Context, alert *domain.Alert) bool {
	if n.webhookURL == "" {
		n.log.Warn("no webhook configured, skipping alert delivery", "asin", alert.ASIN)
		return false
	}

	payload, err := json.Marshal(map[string]string{"text": formatAlertText(alert)})
	if err != nil {
		n.log.Error("failed to encode alert payload", "asin", alert.ASIN, "error", err.Error())
		return false
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(payload))
	if err != nil {
		n.log.Error("failed to build webhook request", "error", err.Error())
		return false
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		n.log.Warn("webhook delivery failed", "asin", alert.ASIN, "error", err.Error())
		return false
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= http.StatusBadRequest {
		n.log.Warn("webhook returned error status", "asin", alert.ASIN, "status", resp.StatusCode)
		return false
	}

	n.log.Info("alert delivered", "asin", alert.ASIN, "channel", ChannelSlack, "status", resp.StatusCode)
	return true
}

// formatAlertText renders the short webhook message.
func formatAlertText(alert *domain.Alert) string {
	return fmt.Sprintf("*Price Alert* %s (%s)\nCurrent: %s -> Scraped: %s (%.1f%%)\n%s",
		alert.Title,
		alert.ASIN,
		formatPrice(alert.CurrentPrice),
		formatPrice(alert.ScrapedPrice),
		alert.PercentChange,
		alert.URL,
	)
}

// formatPrice renders a possibly missing price.
func formatPrice(p *float64) string {
	if p == nil {
		return "N/A"
	}
	return fmt.Sprintf("%.2f", *p)
}
