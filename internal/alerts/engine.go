// Package alerts decides when a price or availability change warrants an
// alert, records alerts, and delivers them to the configured webhook.
package alerts

import (
	"math"
	"time"

	"github.com/teamignite/pricewatch/internal/domain"
)

const percentMultiplier = 100

// Evaluate compares the persisted record against a fresh snapshot under the
// given settings. It returns the alert to raise, or nil.
//
// The reference price is the admin-owned top-level price when present, else
// the previously scraped one. Trigger priority, first match wins: percent
// threshold, absolute threshold (gated by the minimum price), availability
// change.
func Evaluate(prev *domain.ProductRecord, snap *domain.ProductSnapshot, settings *domain.AlertSettings, now time.Time) *domain.Alert {
	if settings == nil || !settings.Enabled {
		return nil
	}
	if prev == nil {
		// First observation: nothing to compare against.
		return nil
	}
	if suppressed(settings, now) {
		return nil
	}

	ref := prev.ReferencePrice()
	scraped := snap.Price

	var percentChange, absoluteChange float64
	comparable := ref != nil && scraped != nil && *ref != 0
	if comparable {
		percentChange = (*ref - *scraped) / *ref * percentMultiplier
		absoluteChange = math.Abs(*ref - *scraped)
	}

	var reason string
	switch {
	case comparable && math.Abs(percentChange) >= settings.ThresholdPercent:
		reason = domain.TriggerPercent
	case comparable && absoluteChange >= settings.ThresholdAbsolute &&
		math.Max(*ref, *scraped) >= settings.MinPriceForAlert:
		reason = domain.TriggerAbsolute
	case prev.Availability != snap.Availability:
		reason = domain.TriggerAvailability
	default:
		return nil
	}

	return &domain.Alert{
		ASIN:             snap.ASIN,
		Title:            snap.Title,
		CurrentPrice:     ref,
		ScrapedPrice:     scraped,
		PercentChange:    percentChange,
		AbsoluteChange:   absoluteChange,
		TriggerReason:    reason,
		URL:              snap.URL,
		TriggeredAt:      now,
		Status:           domain.AlertStatusOpen,
		NotifiedChannels: []string{},
	}
}

// suppressed is the quiet-hours hook. The window is carried in settings but
// intentionally not enforced; the hook exists so the schema and interface
// are in place.
func suppressed(_ *domain.AlertSettings, _ time.Time) bool {
	return false
}
