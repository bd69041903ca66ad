// Package domain provides domain models used across the application.
package domain

import (
	"time"
)

// ProductSnapshot is the normalized result of scraping a single product page.
// It is constructed only by the extractor.
type ProductSnapshot struct {
	ASIN            string    `bson:"asin" json:"asin"`
	Title           string    `bson:"title" json:"title"`
	URL             string    `bson:"url" json:"url"`
	Category        string    `bson:"category" json:"category"`
	Availability    string    `bson:"availability" json:"availability"`
	ImageURL        string    `bson:"image_url" json:"image_url"`
	Price           *float64  `bson:"price" json:"price"`
	OriginalPrice   *float64  `bson:"original_price" json:"original_price"`
	DiscountPercent float64   `bson:"discount_percent" json:"discount_percent"`
	Rating          *float64  `bson:"rating" json:"rating"`
	ReviewsCount    int       `bson:"reviews_count" json:"reviews_count"`
	ScrapedAt       time.Time `bson:"scraped_at" json:"scraped_at"`
}

// Observation holds the most recent scraper-observed numeric fields.
// It is the only part of a product record the scraper overwrites after
// the record exists; the matching top-level fields belong to the admin API.
type Observation struct {
	Price           *float64  `bson:"price" json:"price"`
	OriginalPrice   *float64  `bson:"original_price" json:"original_price"`
	DiscountPercent float64   `bson:"discount_percent" json:"discount_percent"`
	Rating          *float64  `bson:"rating" json:"rating"`
	ReviewsCount    int       `bson:"reviews_count" json:"reviews_count"`
	ScrapedAt       time.Time `bson:"scraped_at" json:"scraped_at"`
}

// ObservationFromSnapshot maps a snapshot's numeric fields into an Observation.
func ObservationFromSnapshot(snap *ProductSnapshot) Observation {
	return Observation{
		Price:           snap.Price,
		OriginalPrice:   snap.OriginalPrice,
		DiscountPercent: snap.DiscountPercent,
		Rating:          snap.Rating,
		ReviewsCount:    snap.ReviewsCount,
		ScrapedAt:       snap.ScrapedAt,
	}
}

// ScraperState nests the latest observation under the product record.
type ScraperState struct {
	Last Observation `bson:"last" json:"last"`
}

// ProductRecord is the persisted shape of a tracked product.
// Top-level numeric fields (price, original_price, discount_percent, rating,
// reviews_count) are admin-owned once the record exists.
type ProductRecord struct {
	ASIN            string       `bson:"asin" json:"asin"`
	Title           string       `bson:"title" json:"title"`
	URL             string       `bson:"url" json:"url"`
	Category        string       `bson:"category" json:"category"`
	Availability    string       `bson:"availability" json:"availability"`
	ImageURL        string       `bson:"image_url" json:"image_url"`
	Price           *float64     `bson:"price" json:"price"`
	OriginalPrice   *float64     `bson:"original_price" json:"original_price"`
	DiscountPercent float64      `bson:"discount_percent" json:"discount_percent"`
	Rating          *float64     `bson:"rating" json:"rating"`
	ReviewsCount    int          `bson:"reviews_count" json:"reviews_count"`
	ScrapedAt       time.Time    `bson:"scraped_at" json:"scraped_at"`
	Scraper         ScraperState `bson:"scraper" json:"scraper"`
}

// ReferencePrice returns the price an alert comparison should use:
// the admin-owned top-level price when set, else the last scraped price.
func (r *ProductRecord) ReferencePrice() *float64 {
	if r.Price != nil {
		return r.Price
	}
	return r.Scraper.Last.Price
}

// PriceHistoryEntry is one append-only price observation.
type PriceHistoryEntry struct {
	ASIN            string    `bson:"asin" json:"asin"`
	Price           *float64  `bson:"price" json:"price"`
	OriginalPrice   *float64  `bson:"original_price" json:"original_price"`
	DiscountPercent float64   `bson:"discount_percent" json:"discount_percent"`
	ScrapedAt       time.Time `bson:"scraped_at" json:"scraped_at"`
}

// HistoryEntryFromSnapshot maps a snapshot into its price history row.
func HistoryEntryFromSnapshot(snap *ProductSnapshot) PriceHistoryEntry {
	return PriceHistoryEntry{
		ASIN:            snap.ASIN,
		Price:           snap.Price,
		OriginalPrice:   snap.OriginalPrice,
		DiscountPercent: snap.DiscountPercent,
		ScrapedAt:       snap.ScrapedAt,
	}
}
