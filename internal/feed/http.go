package feed

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/thruflo/taskdeck/internal/task"
)

// maxFeedBytes bounds the size of a feed response body.
const maxFeedBytes = 32 << 20

// HTTPSource fetches the feed with a GET request. Every request carries a
// t=<unix millis> query parameter so intermediaries never serve a cached
// copy.
type HTTPSource struct {
	url        string
	httpClient *http.Client
	now        func() time.Time
}

// HTTPOption configures an HTTPSource.
type HTTPOption func(*HTTPSource)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) HTTPOption {
	return func(s *HTTPSource) {
		s.httpClient = client
	}
}

// WithClock sets the clock used for the cache-busting parameter.
func WithClock(now func() time.Time) HTTPOption {
	return func(s *HTTPSource) {
		s.now = now
	}
}

// NewHTTPSource creates a source for the feed at rawURL.
func NewHTTPSource(rawURL string, opts ...HTTPOption) *HTTPSource {
	s := &HTTPSource{
		url:        rawURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// URL returns the configured feed URL.
func (s *HTTPSource) URL() string {
	return s.url
}

// Fetch retrieves and decodes the feed.
func (s *HTTPSource) Fetch(ctx context.Context) (*task.Feed, error) {
	u, err := url.Parse(s.url)
	if err != nil {
		return nil, fmt.Errorf("invalid feed url: %w", err)
	}
	q := u.Query()
	q.Set("t", strconv.FormatInt(s.now().UnixMilli(), 10))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &StatusError{Code: resp.StatusCode, Status: resp.Status}
	}

	return task.Decode(io.LimitReader(resp.Body, maxFeedBytes))
}
