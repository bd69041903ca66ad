// Package fetcher retrieves product pages over HTTP with bounded retries,
// exponential backoff, and a rotating identity header.
package fetcher

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"time"

	"github.com/teamignite/pricewatch/internal/logger"
)

// maxResponseBodyBytes limits the size of fetched page responses.
const maxResponseBodyBytes = 10 * 1024 * 1024 // 10 MB

// Connection pool sizing for the shared HTTP client.
const (
	poolMaxIdleConns        = 10
	poolMaxIdleConnsPerHost = 10
)

var (
	// ErrBlocked is returned when a response body contains a known
	// bot-block marker, whatever the status code was.
	ErrBlocked = errors.New("block page detected")

	// ErrHTTPStatus is returned for non-transient, non-success statuses.
	ErrHTTPStatus = errors.New("unexpected http status")
)

// transientStatuses are retried with backoff; everything else fails fast.
var transientStatuses = map[int]bool{
	http.StatusTooManyRequests:     true,
	http.StatusInternalServerError: true,
	http.StatusBadGateway:          true,
	http.StatusServiceUnavailable:  true,
	http.StatusGatewayTimeout:      true,
}

// Result is a successfully fetched page.
type Result struct {
	Body       []byte
	FinalURL   string
	StatusCode int
}

// Config holds fetcher settings.
type Config struct {
	MaxAttempts    int
	BaseDelay      time.Duration
	RequestTimeout time.Duration
	UserAgents     []string
	BlockMarkers   []string
}

// Fetcher fetches pages using a pooled HTTP client. It holds no mutable
// shared state beyond the client itself and is safe for concurrent use.
type Fetcher struct {
	client *http.Client
	cfg    Config
	log    logger.Interface
}

// New creates a fetcher with a pooled transport.
func New(cfg Config, log logger.Interface) *Fetcher {
	transport := &http.Transport{
		MaxIdleConns:        poolMaxIdleConns,
		MaxIdleConnsPerHost: poolMaxIdleConnsPerHost,
	}

	return &Fetcher{
		client: &http.Client{Transport: transport},
		cfg:    cfg,
		log:    log,
	}
}

// Fetch retrieves the page at rawURL, following redirects. Transient
// statuses and block pages are retried up to MaxAttempts with exponential
// backoff; other failures return immediately.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*Result, error) {
	var lastErr error

	for attempt := 1; attempt <= f.cfg.MaxAttempts; attempt++ {
		res, retryable, err := f.attempt(ctx, rawURL)
		if err == nil {
			return res, nil
		}

		lastErr = err
		if !retryable {
			return nil, err
		}

		if attempt < f.cfg.MaxAttempts {
			delay := f.cfg.BaseDelay * (1 << (attempt - 1))
			f.log.Warn("fetch attempt failed, retrying",
				"url", rawURL,
				"attempt", attempt,
				"delay", delay.String(),
				"error", err.Error(),
			)

			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return nil, fmt.Errorf("fetch failed after %d attempts: %w", f.cfg.MaxAttempts, lastErr)
}

// attempt performs one timeout-bounded request. The second return value
// reports whether the failure may be retried.
func (f *Fetcher) attempt(ctx context.Context, rawURL string) (res *Result, retryable bool, err error) {
	attemptCtx, cancel := context.WithTimeout(ctx, f.cfg.RequestTimeout)
	defer cancel()

	req, reqErr := http.NewRequestWithContext(attemptCtx, http.MethodGet, rawURL, http.NoBody)
	if reqErr != nil {
		return nil, false, fmt.Errorf("create request: %w", reqErr)
	}
	f.setHeaders(req)

	resp, doErr := f.client.Do(req)
	if doErr != nil {
		// Connection errors and timeouts are transient.
		return nil, true, fmt.Errorf("http fetch: %w", doErr)
	}
	defer resp.Body.Close()

	body, readErr := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodyBytes))
	if readErr != nil {
		return nil, true, fmt.Errorf("read response body: %w", readErr)
	}

	finalURL := rawURL
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}

	// A block page is a failure regardless of status code. Rotating the
	// identity header on the next attempt sometimes gets past it.
	if marker := f.blockMarker(body); marker != "" {
		return nil, true, fmt.Errorf("%w (marker %q, resolved to %s)", ErrBlocked, marker, finalURL)
	}

	switch {
	case resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices:
		return &Result{Body: body, FinalURL: finalURL, StatusCode: resp.StatusCode}, false, nil
	case transientStatuses[resp.StatusCode]:
		return nil, true, fmt.Errorf("%w %d", ErrHTTPStatus, resp.StatusCode)
	default:
		return nil, false, fmt.Errorf("%w %d", ErrHTTPStatus, resp.StatusCode)
	}
}

// setHeaders applies a randomized identity plus the standard browser headers.
func (f *Fetcher) setHeaders(req *http.Request) {
	if len(f.cfg.UserAgents) > 0 {
		req.Header.Set("User-Agent", f.cfg.UserAgents[rand.Intn(len(f.cfg.UserAgents))])
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-IN,en;q=0.9")
	req.Header.Set("Referer", "https://www.amazon.in/")
}

// blockMarker returns the first configured marker found in the body.
func (f *Fetcher) blockMarker(body []byte) string {
	for _, marker := range f.cfg.BlockMarkers {
		if bytes.Contains(body, []byte(marker)) {
			return marker
		}
	}
	return ""
}
