// Package extractor parses fetched product pages into normalized snapshots
// using goquery.
package extractor

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/teamignite/pricewatch/internal/domain"
)

// ErrNoASIN is returned when no product identifier can be resolved from the
// final URL. The record is discarded entirely; nothing is persisted for it.
var ErrNoASIN = errors.New("no ASIN in final URL")

// asinPattern matches the 10-character product identifier in a product URL.
// The identifier is always taken from the final, post-redirect URL: short
// links carry no identifier until resolved.
var asinPattern = regexp.MustCompile(`(?i)/(?:dp|d|gp/product)/([A-Z0-9]{10})`)

// nonNumeric strips currency symbols and grouping separators from prices.
var nonNumeric = regexp.MustCompile(`[^\d.]`)

// digitsOnly keeps only digits, for review counts.
var digitsOnly = regexp.MustCompile(`[^\d]`)

// fieldUnknown is the placeholder for text fields that could not be extracted.
const fieldUnknown = "N/A"

const discountPrecision = 100 // two decimal places

// Extractor parses raw page content into ProductSnapshots.
type Extractor struct {
	now func() time.Time
}

// New creates an extractor using the real clock.
func New() *Extractor {
	return &Extractor{now: time.Now}
}

// NewWithClock creates an extractor with an injected clock for tests.
func NewWithClock(now func() time.Time) *Extractor {
	return &Extractor{now: now}
}

// Extract parses HTML into a ProductSnapshot. Individual field failures
// degrade to defaults; only a missing identifier fails the whole record.
func (e *Extractor) Extract(body []byte, finalURL string) (*domain.ProductSnapshot, error) {
	asin, ok := ASINFromURL(finalURL)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoASIN, finalURL)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	price := extractPrice(doc)
	originalPrice := extractOriginalPrice(doc, price)

	return &domain.ProductSnapshot{
		ASIN:            asin,
		Title:           extractTitle(doc),
		URL:             finalURL,
		Category:        extractCategory(doc),
		Availability:    extractAvailability(doc),
		ImageURL:        extractImageURL(doc),
		Price:           price,
		OriginalPrice:   originalPrice,
		DiscountPercent: discountPercent(originalPrice, price),
		Rating:          extractRating(doc),
		ReviewsCount:    extractReviewsCount(doc),
		ScrapedAt:       e.now().UTC(),
	}, nil
}

// ASINFromURL resolves the product identifier from a URL, uppercased.
func ASINFromURL(rawURL string) (string, bool) {
	m := asinPattern.FindStringSubmatch(rawURL)
	if m == nil {
		return "", false
	}
	return strings.ToUpper(m[1]), true
}

// cleanPrice parses a price string, stripping currency and separators.
func cleanPrice(s string) *float64 {
	if s == "" {
		return nil
	}

	cleaned := nonNumeric.ReplaceAllString(s, "")
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return nil
	}
	return &v
}

// extractTitle reads the product title, with an h1 fallback.
func extractTitle(doc *goquery.Document) string {
	if title := strings.TrimSpace(doc.Find("span#productTitle").First().Text()); title != "" {
		return title
	}
	if title := strings.TrimSpace(doc.Find("h1#title").First().Text()); title != "" {
		return title
	}
	return fieldUnknown
}

// extractPrice resolves the current price: the consolidated price node
// first, then reconstruction from separate whole and fraction nodes.
func extractPrice(doc *goquery.Document) *float64 {
	if offscreen := doc.Find("span.a-price > span.a-offscreen").First(); offscreen.Length() > 0 {
		if p := cleanPrice(offscreen.Text()); p != nil {
			return p
		}
	}

	whole := doc.Find("span.a-price-whole").First()
	if whole.Length() == 0 {
		return nil
	}

	priceStr := strings.TrimSpace(whole.Text())
	if frac := doc.Find("span.a-price-fraction").First(); frac.Length() > 0 {
		priceStr = priceStr + "." + strings.TrimSpace(frac.Text())
	}

	return cleanPrice(priceStr)
}

// extractOriginalPrice reads the strike-through MRP node, defaulting to the
// current price when absent.
func extractOriginalPrice(doc *goquery.Document, price *float64) *float64 {
	if mrp := doc.Find("span.a-text-price > span.a-offscreen").First(); mrp.Length() > 0 {
		if p := cleanPrice(mrp.Text()); p != nil {
			return p
		}
	}
	return price
}

// discountPercent computes the discount only when the original price is
// strictly greater than the current one; it is never negative.
func discountPercent(original, price *float64) float64 {
	if original == nil || price == nil || *original <= *price {
		return 0.0
	}
	pct := (*original - *price) / *original * 100
	return math.Round(pct*discountPrecision) / discountPrecision
}

// extractRating parses the leading number of the rating alt text.
func extractRating(doc *goquery.Document) *float64 {
	text := strings.TrimSpace(doc.Find("span.a-icon-alt").First().Text())
	if text == "" {
		return nil
	}

	parts := strings.Fields(text)
	if len(parts) == 0 {
		return nil
	}

	v, err := strconv.ParseFloat(parts[0], 64)
	if err != nil {
		return nil
	}
	return &v
}

// extractReviewsCount parses the review count node, e.g. "1,234 ratings".
func extractReviewsCount(doc *goquery.Document) int {
	text := strings.TrimSpace(doc.Find("span#acrCustomerReviewText").First().Text())
	if text == "" {
		return 0
	}

	parts := strings.Fields(text)
	if len(parts) == 0 {
		return 0
	}

	count, err := strconv.Atoi(digitsOnly.ReplaceAllString(parts[0], ""))
	if err != nil {
		return 0
	}
	return count
}

// extractCategory joins the breadcrumb trail with " > ".
func extractCategory(doc *goquery.Document) string {
	var categories []string
	doc.Find("div#wayfinding-breadcrumbs li a").Each(func(_ int, s *goquery.Selection) {
		if text := strings.TrimSpace(s.Text()); text != "" {
			categories = append(categories, text)
		}
	})

	if len(categories) == 0 {
		return fieldUnknown
	}
	return strings.Join(categories, " > ")
}

// extractAvailability normalizes the availability text. Pages without an
// availability node are treated as in stock.
func extractAvailability(doc *goquery.Document) string {
	text := strings.TrimSpace(doc.Find("div#availability span").First().Text())
	if text == "" {
		return "In Stock"
	}

	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "out of stock") || strings.Contains(lower, "unavailable"):
		return "Out of Stock"
	case strings.Contains(lower, "in stock"):
		return "In Stock"
	default:
		return text
	}
}

// extractImageURL reads the main landing image source.
func extractImageURL(doc *goquery.Document) string {
	if src, exists := doc.Find("div#imgTagWrapperId img#landingImage").First().Attr("src"); exists && src != "" {
		return src
	}
	return fieldUnknown
}
