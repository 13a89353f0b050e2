// Package camera acquires the images lane inference and the status panels
// work from: the bridge traffic camera, the ATIS delay sign and the queue
// map. All of them are plain HTTP image URLs refreshed upstream roughly once
// a minute.
package camera

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/ironsheep/lionsgate-lanes/internal/imaging"
	"github.com/ironsheep/lionsgate-lanes/internal/timeutil"
)

// ErrUnavailable wraps every failure to produce an image. Callers treat it
// as "no bitmap" and fall back to the time rule.
var ErrUnavailable = errors.New("image unavailable")

// DefaultMaxBytes caps a single download. Camera JPEGs are well under 1MB.
const DefaultMaxBytes = 8 << 20

// Source produces one decoded frame per call.
type Source interface {
	Fetch(ctx context.Context) (image.Image, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context) (image.Image, error)

// Fetch calls f(ctx).
func (f SourceFunc) Fetch(ctx context.Context) (image.Image, error) { return f(ctx) }

// HTTPClient is the subset of *http.Client used here.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// HTTPSource fetches an image URL, appending a millisecond timestamp query
// parameter so intermediate caches never serve a stale frame.
type HTTPSource struct {
	url      string
	client   HTTPClient
	clock    timeutil.Clock
	maxBytes int64
}

// Option configures an HTTPSource.
type Option func(*HTTPSource)

// WithClient replaces the default HTTP client.
func WithClient(c HTTPClient) Option {
	return func(s *HTTPSource) { s.client = c }
}

// WithClock sets the clock used for cache-busting timestamps.
func WithClock(c timeutil.Clock) Option {
	return func(s *HTTPSource) { s.clock = c }
}

// WithMaxBytes limits the accepted response size.
func WithMaxBytes(n int64) Option {
	return func(s *HTTPSource) { s.maxBytes = n }
}

// NewHTTPSource creates a source for rawURL. Deadlines come from the
// context passed to Fetch, not from the client.
func NewHTTPSource(rawURL string, opts ...Option) *HTTPSource {
	s := &HTTPSource{
		url:      rawURL,
		client:   http.DefaultClient,
		clock:    timeutil.RealClock{},
		maxBytes: DefaultMaxBytes,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// URL returns the configured URL without the cache-busting parameter.
func (s *HTTPSource) URL() string { return s.url }

// Fetch downloads and decodes the image.
func (s *HTTPSource) Fetch(ctx context.Context) (image.Image, error) {
	data, err := s.FetchBytes(ctx)
	if err != nil {
		return nil, err
	}
	img, err := imaging.DecodeBytes(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrUnavailable, s.url, err)
	}
	return img, nil
}

// FetchBytes downloads the raw image bytes without decoding them.
func (s *HTTPSource) FetchBytes(ctx context.Context) ([]byte, error) {
	target, err := CacheBust(s.url, s.clock.Now())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %w", ErrUnavailable, err)
	}
	req.Header.Set("Accept", "image/*")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrUnavailable, s.url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("%w: %s: status %d", ErrUnavailable, s.url, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, s.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: read body: %w", ErrUnavailable, s.url, err)
	}
	if int64(len(data)) > s.maxBytes {
		return nil, fmt.Errorf("%w: %s: body exceeds %d bytes", ErrUnavailable, s.url, s.maxBytes)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: %s: empty body", ErrUnavailable, s.url)
	}
	return data, nil
}

// CacheBust returns rawURL with t=<unix millis> set in its query.
func CacheBust(rawURL string, now time.Time) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("invalid image URL %q: %w", rawURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("unsupported image URL scheme %q", u.Scheme)
	}
	q := u.Query()
	q.Set("t", strconv.FormatInt(now.UnixMilli(), 10))
	u.RawQuery = q.Encode()
	return u.String(), nil
}
