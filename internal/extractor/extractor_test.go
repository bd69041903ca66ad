package extractor_test

import (
	"errors"
	"testing"
	"time"

	"github.com/teamignite/pricewatch/internal/extractor"
)

const testFinalURL = "https://www.amazon.in/dp/B0ABCD1234"

// fullProductHTML is a complete product page with every field present.
const fullProductHTML = `<!DOCTYPE html>
<html>
<body>
  <span id="productTitle"> Acme Wireless Headphones, Black </span>
  <div id="wayfinding-breadcrumbs">
    <ul>
      <li><a>Electronics</a></li>
      <li><a>Audio</a></li>
      <li><a>Headphones</a></li>
    </ul>
  </div>
  <span class="a-price"><span class="a-offscreen">₹1,999.00</span></span>
  <span class="a-text-price"><span class="a-offscreen">₹2,999.00</span></span>
  <span class="a-icon-alt">4.3 out of 5 stars</span>
  <span id="acrCustomerReviewText">1,234 ratings</span>
  <div id="availability"><span> In stock </span></div>
  <div id="imgTagWrapperId"><img id="landingImage" src="https://img.example.com/p.jpg"></div>
</body>
</html>`

// fractionPriceHTML has no consolidated price node, only whole+fraction parts.
const fractionPriceHTML = `<!DOCTYPE html>
<html>
<body>
  <span id="productTitle">Budget Mouse</span>
  <span class="a-price-whole">499</span>
  <span class="a-price-fraction">50</span>
</body>
</html>`

// noPriceHTML has a title but no price nodes at all.
const noPriceHTML = `<!DOCTYPE html>
<html>
<body>
  <span id="productTitle">Mystery Item</span>
</body>
</html>`

// outOfStockHTML reports the product as unavailable.
const outOfStockHTML = `<!DOCTYPE html>
<html>
<body>
  <span id="productTitle">Sold Out Gadget</span>
  <div id="availability"><span>Currently unavailable.</span></div>
</body>
</html>`

// h1TitleHTML has no span title, only the h1 fallback.
const h1TitleHTML = `<!DOCTYPE html>
<html>
<body>
  <h1 id="title">Fallback Title Product</h1>
</body>
</html>`

func newExtractor(t *testing.T) *extractor.Extractor {
	t.Helper()

	fixed := time.Date(2026, 8, 23, 12, 0, 0, 0, time.UTC)
	return extractor.NewWithClock(func() time.Time { return fixed })
}

func TestExtract_FullProduct(t *testing.T) {
	t.Parallel()

	snap, err := newExtractor(t).Extract([]byte(fullProductHTML), testFinalURL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if snap.ASIN != "B0ABCD1234" {
		t.Errorf("ASIN: expected B0ABCD1234, got %q", snap.ASIN)
	}
	if snap.Title != "Acme Wireless Headphones, Black" {
		t.Errorf("Title: got %q", snap.Title)
	}
	if snap.Category != "Electronics > Audio > Headphones" {
		t.Errorf("Category: got %q", snap.Category)
	}
	if snap.Availability != "In Stock" {
		t.Errorf("Availability: got %q", snap.Availability)
	}
	if snap.ImageURL != "https://img.example.com/p.jpg" {
		t.Errorf("ImageURL: got %q", snap.ImageURL)
	}
	if snap.Price == nil || *snap.Price != 1999.00 {
		t.Errorf("Price: got %v", snap.Price)
	}
	if snap.OriginalPrice == nil || *snap.OriginalPrice != 2999.00 {
		t.Errorf("OriginalPrice: got %v", snap.OriginalPrice)
	}
	// round((2999-1999)/2999*100, 2) = 33.34
	if snap.DiscountPercent != 33.34 {
		t.Errorf("DiscountPercent: expected 33.34, got %v", snap.DiscountPercent)
	}
	if snap.Rating == nil || *snap.Rating != 4.3 {
		t.Errorf("Rating: got %v", snap.Rating)
	}
	if snap.ReviewsCount != 1234 {
		t.Errorf("ReviewsCount: expected 1234, got %d", snap.ReviewsCount)
	}
	if snap.URL != testFinalURL {
		t.Errorf("URL: got %q", snap.URL)
	}
}

func TestExtract_ASINFromFinalURLNotInput(t *testing.T) {
	t.Parallel()

	// The final URL decides the identifier; lowercase identifiers are uppercased.
	snap, err := newExtractor(t).Extract([]byte(noPriceHTML), "https://www.amazon.in/gp/product/b0xyz98765?ref=share")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if snap.ASIN != "B0XYZ98765" {
		t.Errorf("ASIN: expected B0XYZ98765, got %q", snap.ASIN)
	}
}

func TestExtract_NoASINFailsClosed(t *testing.T) {
	t.Parallel()

	_, err := newExtractor(t).Extract([]byte(fullProductHTML), "https://www.amazon.in/deal-of-the-day")
	if !errors.Is(err, extractor.ErrNoASIN) {
		t.Fatalf("expected ErrNoASIN, got %v", err)
	}
}

func TestExtract_PriceFromWholeAndFraction(t *testing.T) {
	t.Parallel()

	snap, err := newExtractor(t).Extract([]byte(fractionPriceHTML), testFinalURL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if snap.Price == nil || *snap.Price != 499.50 {
		t.Errorf("Price: expected 499.50, got %v", snap.Price)
	}
	// No MRP node: original price defaults to the current price.
	if snap.OriginalPrice == nil || *snap.OriginalPrice != 499.50 {
		t.Errorf("OriginalPrice: expected 499.50, got %v", snap.OriginalPrice)
	}
	if snap.DiscountPercent != 0.0 {
		t.Errorf("DiscountPercent: expected 0.0, got %v", snap.DiscountPercent)
	}
}

func TestExtract_MissingFieldsDegradeToDefaults(t *testing.T) {
	t.Parallel()

	snap, err := newExtractor(t).Extract([]byte(noPriceHTML), testFinalURL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if snap.Price != nil {
		t.Errorf("Price: expected nil, got %v", snap.Price)
	}
	if snap.OriginalPrice != nil {
		t.Errorf("OriginalPrice: expected nil, got %v", snap.OriginalPrice)
	}
	if snap.DiscountPercent != 0.0 {
		t.Errorf("DiscountPercent: expected 0.0, got %v", snap.DiscountPercent)
	}
	if snap.Rating != nil {
		t.Errorf("Rating: expected nil, got %v", snap.Rating)
	}
	if snap.ReviewsCount != 0 {
		t.Errorf("ReviewsCount: expected 0, got %d", snap.ReviewsCount)
	}
	if snap.Availability != "In Stock" {
		t.Errorf("Availability: expected default In Stock, got %q", snap.Availability)
	}
	if snap.Category != "N/A" {
		t.Errorf("Category: expected N/A, got %q", snap.Category)
	}
}

func TestExtract_OutOfStock(t *testing.T) {
	t.Parallel()

	snap, err := newExtractor(t).Extract([]byte(outOfStockHTML), testFinalURL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if snap.Availability != "Out of Stock" {
		t.Errorf("Availability: expected Out of Stock, got %q", snap.Availability)
	}
}

func TestExtract_TitleFallbackToH1(t *testing.T) {
	t.Parallel()

	snap, err := newExtractor(t).Extract([]byte(h1TitleHTML), testFinalURL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if snap.Title != "Fallback Title Product" {
		t.Errorf("Title: got %q", snap.Title)
	}
}

func TestASINFromURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		url  string
		want string
		ok   bool
	}{
		{"dp path", "https://www.amazon.in/dp/B0ABCD1234", "B0ABCD1234", true},
		{"short d path", "https://amzn.in/d/B0ABCD1234", "B0ABCD1234", true},
		{"gp product path", "https://www.amazon.in/gp/product/B0ABCD1234/ref=x", "B0ABCD1234", true},
		{"lowercase uppercased", "https://www.amazon.in/dp/b0abcd1234", "B0ABCD1234", true},
		{"no identifier", "https://www.amazon.in/s?k=headphones", "", false},
		{"too short", "https://www.amazon.in/dp/B0ABC", "", false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, ok := extractor.ASINFromURL(tt.url)
			if ok != tt.ok || got != tt.want {
				t.Errorf("ASINFromURL(%q) = (%q, %v), want (%q, %v)", tt.url, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestDiscountPercent_Bounds(t *testing.T) {
	t.Parallel()

	// Discount must never be negative even when MRP is below current price.
	html := `<html><body>
	  <span class="a-price"><span class="a-offscreen">₹500.00</span></span>
	  <span class="a-text-price"><span class="a-offscreen">₹400.00</span></span>
	</body></html>`

	snap, err := newExtractor(t).Extract([]byte(html), testFinalURL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if snap.DiscountPercent != 0.0 {
		t.Errorf("DiscountPercent: expected 0.0 when original < price, got %v", snap.DiscountPercent)
	}
}
