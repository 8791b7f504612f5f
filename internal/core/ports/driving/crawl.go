package driving

import (
	"context"

	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
)

// CrawlSeed is a starting point for a crawl.
type CrawlSeed struct {
	// Resource is the URL or file to start from.
	Resource domain.Resource

	// SourceType is an optional hint; empty means infer from the location.
	SourceType domain.SourceType

	// Title is an optional title for the seed page.
	Title string

	// Scope is an optional CSS selector restricting HTML extraction.
	Scope string
}

// Crawler discovers and parses resources into pages.
type Crawler interface {
	// Crawl traverses from a single seed and returns the pages found,
	// in visit order. Per-resource failures are logged and skipped.
	Crawl(ctx context.Context, seed CrawlSeed, opts domain.CrawlOptions) ([]domain.Page, error)

	// CrawlMany crawls each seed independently and concatenates the results.
	CrawlMany(ctx context.Context, seeds []CrawlSeed, opts domain.CrawlOptions) ([]domain.Page, error)
}
