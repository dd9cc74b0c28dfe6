package feed

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

var (
	// ErrEmptyBody is returned when the feed responds with no content.
	ErrEmptyBody = errors.New("feed returned empty body")
	// ErrNoProducts is returned by callers when a parsed feed has no products.
	ErrNoProducts = errors.New("no products found in feed")
)

// DefaultTimeout bounds a single feed request.
const DefaultTimeout = 30 * time.Second

// Fetcher retrieves the raw feed document.
type Fetcher struct {
	client *resty.Client
}

// FetcherConfig holds configuration for the feed fetcher.
type FetcherConfig struct {
	Timeout   time.Duration
	UserAgent string
}

// NewFetcher creates a new Fetcher.
// Parameters:
//   - cfg: timeout and user agent; zero timeout uses DefaultTimeout.
//
// Returns:
//   - *Fetcher: fetcher with a single-attempt HTTP client.
func NewFetcher(cfg *FetcherConfig) *Fetcher {
	timeout := DefaultTimeout
	userAgent := ""
	if cfg != nil {
		if cfg.Timeout > 0 {
			timeout = cfg.Timeout
		}
		userAgent = cfg.UserAgent
	}

	client := resty.New()
	client.SetTimeout(timeout)
	client.SetRetryCount(0)
	if userAgent != "" {
		client.SetHeader("User-Agent", userAgent)
	}

	return &Fetcher{client: client}
}

// Fetch performs one GET of url and returns the body.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - url: feed location.
//
// Returns:
//   - []byte: raw feed payload.
//   - error: transport failure, non-2xx status, or ErrEmptyBody.
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	resp, err := f.client.R().
		SetContext(ctx).
		Get(url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed: %w", err)
	}

	if resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
		return nil, fmt.Errorf("feed returned HTTP %d", resp.StatusCode())
	}

	body := resp.Body()
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, ErrEmptyBody
	}
	return body, nil
}
