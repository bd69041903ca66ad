package storage

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/teamignite/pricewatch/internal/domain"
)

// InsertAlert records a triggered alert and returns its document id.
func (s *Store) InsertAlert(ctx context.Context, alert *domain.Alert) (bson.ObjectID, error) {
	res, err := s.alerts.InsertOne(ctx, alert)
	if err != nil {
		return bson.NilObjectID, fmt.Errorf("insert alert for %s: %w", alert.ASIN, err)
	}

	id, ok := res.InsertedID.(bson.ObjectID)
	if !ok {
		return bson.NilObjectID, fmt.Errorf("unexpected alert id type %T", res.InsertedID)
	}
	return id, nil
}

// MarkAlertNotified appends a delivered channel to the alert's
// notified_channels list.
func (s *Store) MarkAlertNotified(ctx context.Context, id bson.ObjectID, channel string) error {
	_, err := s.alerts.UpdateOne(ctx,
		bson.D{{Key: "_id", Value: id}},
		bson.D{{Key: "$push", Value: bson.D{{Key: "notified_channels", Value: channel}}}},
	)
	if err != nil {
		return fmt.Errorf("mark alert notified: %w", err)
	}
	return nil
}
