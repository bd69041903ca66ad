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

// UpsertProduct writes a scraped snapshot. On first sight of an ASIN the
// full record is created with both top-level fields and scraper.last. After
// that the scraper only touches the metadata whitelist and scraper.last:
// the top-level numeric fields belong to the admin API and are never
// overwritten here. Both cases are a single atomic update, so a concurrent
// admin edit cannot be clobbered.
func (s *Store) UpsertProduct(ctx context.Context, snap *domain.ProductSnapshot) error {
	filter := bson.D{{Key: "asin", Value: snap.ASIN}}
	update := upsertProductUpdate(snap)

	if _, err := s.products.UpdateOne(ctx, filter, update, options.UpdateOne().SetUpsert(true)); err != nil {
		return fmt.Errorf("upsert product %s: %w", snap.ASIN, err)
	}
	return nil
}

// upsertProductUpdate builds the field-ownership-preserving update document.
func upsertProductUpdate(snap *domain.ProductSnapshot) bson.D {
	return bson.D{
		{Key: "$set", Value: bson.D{
			{Key: "title", Value: snap.Title},
			{Key: "url", Value: snap.URL},
			{Key: "category", Value: snap.Category},
			{Key: "availability", Value: snap.Availability},
			{Key: "image_url", Value: snap.ImageURL},
			{Key: "scraper.last", Value: domain.ObservationFromSnapshot(snap)},
		}},
		{Key: "$setOnInsert", Value: bson.D{
			{Key: "asin", Value: snap.ASIN},
			{Key: "price", Value: snap.Price},
			{Key: "original_price", Value: snap.OriginalPrice},
			{Key: "discount_percent", Value: snap.DiscountPercent},
			{Key: "rating", Value: snap.Rating},
			{Key: "reviews_count", Value: snap.ReviewsCount},
			{Key: "scraped_at", Value: snap.ScrapedAt},
		}},
	}
}

// GetProduct returns the persisted record for an ASIN, or nil when the
// product has not been seen before.
func (s *Store) GetProduct(ctx context.Context, asin string) (*domain.ProductRecord, error) {
	var record domain.ProductRecord

	err := s.products.FindOne(ctx, bson.D{{Key: "asin", Value: asin}}).Decode(&record)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get product %s: %w", asin, err)
	}
	return &record, nil
}
