package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/teamignite/pricewatch/internal/domain"
)

// CreateRunRecord inserts a run record in the running state.
func (s *Store) CreateRunRecord(ctx context.Context, record *domain.RunRecord) error {
	if _, err := s.runRecords.InsertOne(ctx, record); err != nil {
		return fmt.Errorf("create run record %s: %w", record.RunID, err)
	}
	return nil
}

// RunStats carries the final statistics of a run.
type RunStats struct {
	ProductsScraped      int
	PriceHistoryInserted int
}

// FinalizeRunRecord marks a run as finished with its statistics, and the
// error message when it failed.
func (s *Store) FinalizeRunRecord(ctx context.Context, runID, status string, stats RunStats, runErr error) error {
	now := time.Now().UTC()

	set := bson.D{
		{Key: "status", Value: status},
		{Key: "finished_at", Value: now},
		{Key: "products_scraped", Value: stats.ProductsScraped},
		{Key: "price_history_inserted", Value: stats.PriceHistoryInserted},
	}
	if runErr != nil {
		set = append(set, bson.E{Key: "error", Value: runErr.Error()})
	}

	var record domain.RunRecord
	err := s.runRecords.FindOne(ctx, bson.D{{Key: "run_id", Value: runID}}).Decode(&record)
	if err != nil {
		return fmt.Errorf("finalize run record %s: %w", runID, err)
	}
	set = append(set, bson.E{Key: "duration_seconds", Value: now.Sub(record.StartedAt).Seconds()})

	if _, err := s.runRecords.UpdateOne(ctx,
		bson.D{{Key: "run_id", Value: runID}},
		bson.D{{Key: "$set", Value: set}},
	); err != nil {
		return fmt.Errorf("finalize run record %s: %w", runID, err)
	}
	return nil
}

// GetRunRecord returns a run record by id, or nil when unknown.
func (s *Store) GetRunRecord(ctx context.Context, runID string) (*domain.RunRecord, error) {
	var record domain.RunRecord

	err := s.runRecords.FindOne(ctx, bson.D{{Key: "run_id", Value: runID}}).Decode(&record)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get run record %s: %w", runID, err)
	}
	return &record, nil
}

// ListRunRecords returns the most recent run records, newest first.
func (s *Store) ListRunRecords(ctx context.Context, limit int) ([]domain.RunRecord, error) {
	cursor, err := s.runRecords.Find(ctx,
		bson.D{},
		options.Find().SetSort(bson.D{{Key: "started_at", Value: -1}}).SetLimit(int64(limit)),
	)
	if err != nil {
		return nil, fmt.Errorf("list run records: %w", err)
	}

	var records []domain.RunRecord
	if err := cursor.All(ctx, &records); err != nil {
		return nil, fmt.Errorf("decode run records: %w", err)
	}
	return records, nil
}
