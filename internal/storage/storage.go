// Package storage implements the document store layer: products, price
// history, alerts, alert settings, the run lock, and run records.
package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"

	"github.com/teamignite/pricewatch/internal/config"
	"github.com/teamignite/pricewatch/internal/domain"
	"github.com/teamignite/pricewatch/internal/logger"
)

// Collection names.
const (
	collProducts      = "products"
	collPriceHistory  = "price_history"
	collAlerts        = "alerts"
	collAlertSettings = "alert_settings"
	collRunLock       = "run_lock"
	collRunRecords    = "run_records"
)

// connectTimeout bounds the initial connectivity check.
const connectTimeout = 10 * time.Second

var (
	// ErrLockHeld is returned when the run lock is already held.
	ErrLockHeld = errors.New("run lock already held")

	// ErrLockNotHeld is returned when releasing a lock the caller does not hold.
	ErrLockNotHeld = errors.New("run lock not held by this run")
)

// Store wraps the MongoDB client and collection handles. It is constructed
// once and injected into every component that persists state.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
	log    logger.Interface

	products      *mongo.Collection
	priceHistory  *mongo.Collection
	alerts        *mongo.Collection
	alertSettings *mongo.Collection
	runLock       *mongo.Collection
	runRecords    *mongo.Collection
}

// New connects to the store, verifies connectivity, and ensures indexes.
// A connection failure here is fatal to the process: no work may begin
// against an unusable store.
func New(ctx context.Context, cfg config.MongoConfig, log logger.Interface) (*Store, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("connect to mongodb: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}

	db := client.Database(cfg.Database)
	s := &Store{
		client:        client,
		db:            db,
		log:           log,
		products:      db.Collection(collProducts),
		priceHistory:  db.Collection(collPriceHistory),
		alerts:        db.Collection(collAlerts),
		alertSettings: db.Collection(collAlertSettings),
		runLock:       db.Collection(collRunLock),
		runRecords:    db.Collection(collRunRecords),
	}

	if err := s.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ensure indexes: %w", err)
	}

	log.Info("document store connected",
		"database", cfg.Database,
		"collections", []string{
			collProducts, collPriceHistory, collAlerts,
			collAlertSettings, collRunLock, collRunRecords,
		},
	)

	return s, nil
}

// ensureIndexes creates the indexes the pipeline relies on: asin uniqueness
// for upserts, the history sort order, and the lock TTL that clears stale
// locks from crashed runs.
func (s *Store) ensureIndexes(ctx context.Context) error {
	if _, err := s.products.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "asin", Value: 1}},
		Options: options.Index().SetUnique(true),
	}); err != nil {
		return fmt.Errorf("products asin index: %w", err)
	}

	if _, err := s.priceHistory.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "asin", Value: 1}, {Key: "scraped_at", Value: 1}},
	}); err != nil {
		return fmt.Errorf("price_history index: %w", err)
	}

	if _, err := s.runLock.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "locked_at", Value: 1}},
		Options: options.Index().SetExpireAfterSeconds(int32(domain.RunLockTTL.Seconds())),
	}); err != nil {
		return fmt.Errorf("run_lock ttl index: %w", err)
	}

	if _, err := s.runRecords.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "run_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	}); err != nil {
		return fmt.Errorf("run_records run_id index: %w", err)
	}

	return nil
}

// Ping verifies store connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

// Close disconnects from the store.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
