package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/teamignite/pricewatch/internal/domain"
)

func testSnapshot() *domain.ProductSnapshot {
	price := 1999.0
	original := 2999.0
	rating := 4.3

	return &domain.ProductSnapshot{
		ASIN:            "B0ABCD1234",
		Title:           "Acme Headphones",
		URL:             "https://www.amazon.in/dp/B0ABCD1234",
		Category:        "Electronics > Audio",
		Availability:    "In Stock",
		ImageURL:        "https://img.example.com/p.jpg",
		Price:           &price,
		OriginalPrice:   &original,
		DiscountPercent: 33.34,
		Rating:          &rating,
		ReviewsCount:    1234,
		ScrapedAt:       time.Date(2026, 8, 23, 12, 0, 0, 0, time.UTC),
	}
}

// The scraper's update may only $set whitelisted metadata and scraper.last;
// the admin-owned numeric fields must appear only under $setOnInsert.
func TestUpsertProductUpdate_FieldOwnership(t *testing.T) {
	t.Parallel()

	update := upsertProductUpdate(testSnapshot())
	require.Len(t, update, 2)

	set := asKeySet(t, update, "$set")
	setOnInsert := asKeySet(t, update, "$setOnInsert")

	for _, key := range []string{"title", "url", "category", "availability", "image_url", "scraper.last"} {
		assert.Contains(t, set, key)
	}
	for _, key := range []string{"price", "original_price", "discount_percent", "rating", "reviews_count"} {
		assert.NotContains(t, set, key, "admin-owned field %q must not be in $set", key)
		assert.Contains(t, setOnInsert, key)
	}
	assert.NotContains(t, set, "asin")
	assert.Contains(t, setOnInsert, "asin")
}

func TestUpsertProductUpdate_ObservationCarriesNumerics(t *testing.T) {
	t.Parallel()

	snap := testSnapshot()
	update := upsertProductUpdate(snap)

	setDoc := findOperator(t, update, "$set")
	var obs domain.Observation
	found := false
	for _, e := range setDoc {
		if e.Key == "scraper.last" {
			var ok bool
			obs, ok = e.Value.(domain.Observation)
			require.True(t, ok, "scraper.last should hold an Observation")
			found = true
		}
	}
	require.True(t, found)

	assert.Equal(t, snap.Price, obs.Price)
	assert.Equal(t, snap.OriginalPrice, obs.OriginalPrice)
	assert.Equal(t, snap.DiscountPercent, obs.DiscountPercent)
	assert.Equal(t, snap.Rating, obs.Rating)
	assert.Equal(t, snap.ReviewsCount, obs.ReviewsCount)
	assert.Equal(t, snap.ScrapedAt, obs.ScrapedAt)
}

func findOperator(t *testing.T, update bson.D, op string) bson.D {
	t.Helper()

	for _, e := range update {
		if e.Key == op {
			doc, ok := e.Value.(bson.D)
			require.True(t, ok, "%s should hold a bson.D", op)
			return doc
		}
	}
	t.Fatalf("operator %s not found in update", op)
	return nil
}

func asKeySet(t *testing.T, update bson.D, op string) map[string]struct{} {
	t.Helper()

	doc := findOperator(t, update, op)
	keys := make(map[string]struct{}, len(doc))
	for _, e := range doc {
		keys[e.Key] = struct{}{}
	}
	return keys
}
