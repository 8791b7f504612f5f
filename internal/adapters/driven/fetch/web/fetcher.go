// Package web provides an HTTP fetcher with per-host rate limiting.
package web

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
	"github.com/custodia-labs/sercha-ingest/internal/core/ports/driven"
)

// Ensure Fetcher implements the interface.
var _ driven.Fetcher = (*Fetcher)(nil)

// Default configuration values.
const (
	DefaultUserAgent    = "sercha-ingest/1.0"
	DefaultTimeout      = 30 * time.Second
	DefaultMaxBodyBytes = 20 << 20
)

// HTTPStatusError is a non-2xx response.
type HTTPStatusError struct {
	URL        string
	StatusCode int
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("fetch %s: HTTP %d", e.URL, e.StatusCode)
}

// Unwrap lets callers match domain.ErrFetchFailed, or domain.ErrNotFound
// for 404 and domain.ErrRateLimited for 429.
func (e *HTTPStatusError) Unwrap() []error {
	switch e.StatusCode {
	case http.StatusNotFound:
		return []error{domain.ErrFetchFailed, domain.ErrNotFound}
	case http.StatusTooManyRequests:
		return []error{domain.ErrFetchFailed, domain.ErrRateLimited}
	default:
		return []error{domain.ErrFetchFailed}
	}
}

// Config holds fetcher configuration.
type Config struct {
	// UserAgent is sent with every request.
	UserAgent string

	// Timeout bounds each request including the body read.
	Timeout time.Duration

	// RequestsPerSecond limits requests per host. Zero disables limiting.
	RequestsPerSecond float64

	// MaxBodyBytes caps the body read; longer bodies fail the fetch.
	MaxBodyBytes int64

	// Client replaces the default HTTP client.
	Client *http.Client
}

// Fetcher retrieves http(s) URLs.
type Fetcher struct {
	client       *http.Client
	userAgent    string
	maxBodyBytes int64
	perSecond    float64

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// New creates a fetcher.
func New(cfg Config) *Fetcher {
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = DefaultMaxBodyBytes
	}
	client := cfg.Client
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	return &Fetcher{
		client:       client,
		userAgent:    cfg.UserAgent,
		maxBodyBytes: cfg.MaxBodyBytes,
		perSecond:    cfg.RequestsPerSecond,
		limiters:     make(map[string]*rate.Limiter),
	}
}

func (f *Fetcher) limiter(host string) *rate.Limiter {
	f.mu.Lock()
	defer f.mu.Unlock()

	l, ok := f.limiters[host]
	if !ok {
		limit := rate.Inf
		if f.perSecond > 0 {
			limit = rate.Limit(f.perSecond)
		}
		l = rate.NewLimiter(limit, 1)
		f.limiters[host] = l
	}
	return l
}

// Fetch retrieves rawURL, following redirects.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*driven.FetchResult, error) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: not an http(s) url: %q", domain.ErrInvalidInput, rawURL)
	}

	if err := f.limiter(strings.ToLower(u.Host)).Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrFetchFailed, err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,text/plain,text/markdown,*/*;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrFetchFailed, rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &HTTPStatusError{URL: rawURL, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodyBytes+1))
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: read %s: %v", domain.ErrFetchFailed, rawURL, err)
	}
	if int64(len(body)) > f.maxBodyBytes {
		return nil, fmt.Errorf("%w: %s: body exceeds %d bytes", domain.ErrFetchFailed, rawURL, f.maxBodyBytes)
	}
	if len(body) == 0 {
		return nil, fmt.Errorf("%w: %s", domain.ErrEmptyBody, rawURL)
	}

	return &driven.FetchResult{
		URL:         resp.Request.URL.String(),
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
		StatusCode:  resp.StatusCode,
	}, nil
}
