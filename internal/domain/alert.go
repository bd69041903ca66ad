package domain

import (
	"time"
)

// Alert trigger reasons, in evaluation priority order.
const (
	TriggerPercent      = "percent"
	TriggerAbsolute     = "absolute"
	TriggerAvailability = "availability"
)

// Alert statuses. Acknowledgement happens through an external API.
const (
	AlertStatusOpen         = "open"
	AlertStatusAcknowledged = "acknowledged"
)

// Alert represents a triggered price or availability alert.
type Alert struct {
	ASIN             string    `bson:"asin" json:"asin"`
	Title            string    `bson:"title" json:"title"`
	CurrentPrice     *float64  `bson:"current_price" json:"current_price"`
	ScrapedPrice     *float64  `bson:"scraped_price" json:"scraped_price"`
	PercentChange    float64   `bson:"percent_change" json:"percent_change"`
	AbsoluteChange   float64   `bson:"absolute_change" json:"absolute_change"`
	TriggerReason    string    `bson:"trigger_reason" json:"trigger_reason"`
	URL              string    `bson:"url" json:"url"`
	TriggeredAt      time.Time `bson:"triggered_at" json:"triggered_at"`
	Status           string    `bson:"status" json:"status"`
	NotifiedChannels []string  `bson:"notified_channels" json:"notified_channels"`
}

// NotifyChannels selects delivery channels for alerts.
type NotifyChannels struct {
	Slack bool `bson:"slack" json:"slack"`
	Email bool `bson:"email" json:"email"`
}

// QuietHours is a configured suppression window. It is carried in settings
// but intentionally not enforced by the alert engine.
type QuietHours struct {
	Start string `bson:"start" json:"start"`
	End   string `bson:"end" json:"end"`
}

// AlertSettingsID is the fixed key of the alert settings singleton.
const AlertSettingsID = "global"

// AlertSettings is the singleton alert configuration, admin-writable and
// read-only to the scraper.
type AlertSettings struct {
	ID                string         `bson:"_id" json:"id"`
	Enabled           bool           `bson:"enabled" json:"enabled"`
	NotifyChannels    NotifyChannels `bson:"notify_channels" json:"notify_channels"`
	ThresholdPercent  float64        `bson:"threshold_percent" json:"threshold_percent"`
	ThresholdAbsolute float64        `bson:"threshold_absolute" json:"threshold_absolute"`
	MinPriceForAlert  float64        `bson:"min_price_for_alert" json:"min_price_for_alert"`
	QuietHours        *QuietHours    `bson:"quiet_hours" json:"quiet_hours"`
}

// DefaultAlertSettings returns the seeded defaults used when the singleton
// has not been created yet.
func DefaultAlertSettings() *AlertSettings {
	return &AlertSettings{
		ID:                AlertSettingsID,
		Enabled:           true,
		NotifyChannels:    NotifyChannels{Slack: true, Email: false},
		ThresholdPercent:  20.0,
		ThresholdAbsolute: 500.0,
		MinPriceForAlert:  100.0,
		QuietHours:        nil,
	}
}
