package storage

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/teamignite/pricewatch/internal/domain"
)

// AcquireRunLock attempts an atomic insert of the singleton lock document.
// The unique _id acts as the compare-and-swap: for two concurrent calls
// with distinct run ids, at most one insert succeeds. A pre-existing lock
// yields ErrLockHeld, which is an expected outcome, not a failure. The TTL
// index on locked_at clears stale locks from crashed holders.
func (s *Store) AcquireRunLock(ctx context.Context, runID string) error {
	lock := domain.RunLock{
		ID:       domain.RunLockID,
		RunID:    runID,
		LockedAt: time.Now().UTC(),
	}

	_, err := s.runLock.InsertOne(ctx, lock)
	if mongo.IsDuplicateKeyError(err) {
		return ErrLockHeld
	}
	if err != nil {
		return fmt.Errorf("acquire run lock: %w", err)
	}
	return nil
}

// ReleaseRunLock deletes the lock document only when its run_id matches the
// caller's: a run can never release a lock it does not hold.
func (s *Store) ReleaseRunLock(ctx context.Context, runID string) error {
	res, err := s.runLock.DeleteOne(ctx, bson.D{
		{Key: "_id", Value: domain.RunLockID},
		{Key: "run_id", Value: runID},
	})
	if err != nil {
		return fmt.Errorf("release run lock: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrLockNotHeld
	}
	return nil
}
