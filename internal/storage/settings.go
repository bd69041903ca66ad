package storage

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/teamignite/pricewatch/internal/domain"
)

// GetAlertSettings reads the admin-writable settings singleton. When the
// singleton has not been seeded yet, the built-in defaults are returned.
func (s *Store) GetAlertSettings(ctx context.Context) (*domain.AlertSettings, error) {
	var settings domain.AlertSettings

	err := s.alertSettings.FindOne(ctx, bson.D{{Key: "_id", Value: domain.AlertSettingsID}}).Decode(&settings)
	if errors.Is(err, mongo.ErrNoDocuments) {
		s.log.Debug("alert settings not seeded, using defaults")
		return domain.DefaultAlertSettings(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("get alert settings: %w", err)
	}
	return &settings, nil
}

// SeedAlertSettings upserts the settings singleton with the defaults.
func (s *Store) SeedAlertSettings(ctx context.Context) error {
	defaults := domain.DefaultAlertSettings()

	_, err := s.alertSettings.UpdateOne(ctx,
		bson.D{{Key: "_id", Value: domain.AlertSettingsID}},
		bson.D{{Key: "$set", Value: defaults}},
		options.UpdateOne().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("seed alert settings: %w", err)
	}

	s.log.Info("alert settings seeded",
		"threshold_percent", defaults.ThresholdPercent,
		"threshold_absolute", defaults.ThresholdAbsolute,
		"min_price_for_alert", defaults.MinPriceForAlert,
	)
	return nil
}
