package driven

import (
	"context"

	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
)

// FetchResult is a retrieved resource.
type FetchResult struct {
	// URL is the final location after redirects.
	URL string

	// ContentType is the reported MIME type.
	ContentType string

	// Body is the raw content. Never empty on success.
	Body []byte

	// StatusCode is the transport status, 0 when not applicable.
	StatusCode int
}

// Fetcher retrieves resource bytes.
type Fetcher interface {
	// Fetch retrieves url. An empty body is an error (domain.ErrEmptyBody).
	Fetch(ctx context.Context, url string) (*FetchResult, error)
}

// ExtractRequest asks the extraction service to parse a document.
type ExtractRequest struct {
	// Kind is the extractor route: pdf, word or csv.
	Kind string

	// URL is the document location the service downloads.
	URL string

	// TruncateBytesAmount is passed through to the service.
	TruncateBytesAmount int
}

// Extractor is the out-of-process document extraction service.
type Extractor interface {
	// Extract returns the pages the service produced.
	// Non-2xx or success=false yields domain.ErrExtractionFailed.
	Extract(ctx context.Context, req ExtractRequest) ([]domain.Page, error)
}
