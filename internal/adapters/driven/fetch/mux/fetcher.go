// Package mux routes fetches to a fetcher by URL scheme.
package mux

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
	"github.com/custodia-labs/sercha-ingest/internal/core/ports/driven"
)

// Ensure Fetcher implements the interface.
var _ driven.Fetcher = (*Fetcher)(nil)

// Fetcher dispatches on the URL scheme.
type Fetcher struct {
	routes map[string]driven.Fetcher
}

// New creates an empty router.
func New() *Fetcher {
	return &Fetcher{routes: make(map[string]driven.Fetcher)}
}

// Handle routes the given schemes to f. A nil f is ignored.
func (m *Fetcher) Handle(f driven.Fetcher, schemes ...string) *Fetcher {
	if f == nil {
		return m
	}
	for _, s := range schemes {
		m.routes[strings.ToLower(s)] = f
	}
	return m
}

// Fetch forwards to the fetcher registered for the scheme.
func (m *Fetcher) Fetch(ctx context.Context, rawURL string) (*driven.FetchResult, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	f, ok := m.routes[strings.ToLower(u.Scheme)]
	if !ok {
		return nil, fmt.Errorf("%w: no fetcher for scheme %q", domain.ErrUnsupportedType, u.Scheme)
	}
	return f.Fetch(ctx, rawURL)
}
