package storage

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/teamignite/pricewatch/internal/domain"
)

// AppendPriceHistory batch-inserts history rows with an unordered write, so
// one malformed entry does not block insertion of the rest. It returns the
// number of rows actually inserted; a partial failure is reported alongside
// the partial count, and callers treat it as non-fatal.
func (s *Store) AppendPriceHistory(ctx context.Context, entries []domain.PriceHistoryEntry) (int, error) {
	if len(entries) == 0 {
		return 0, nil
	}

	docs := make([]any, len(entries))
	for i := range entries {
		docs[i] = entries[i]
	}

	res, err := s.priceHistory.InsertMany(ctx, docs, options.InsertMany().SetOrdered(false))

	inserted := 0
	if res != nil {
		inserted = len(res.InsertedIDs)
	}

	if err != nil {
		s.log.Warn("price history batch partially failed",
			"attempted", len(entries),
			"inserted", inserted,
			"error", err.Error(),
		)
		return inserted, fmt.Errorf("insert price history: %w", err)
	}

	return inserted, nil
}
