package driven

import (
	"context"

	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
)

// ParseInput is everything a parser may need to produce pages.
type ParseInput struct {
	// Source is the resource location (URL or file:// name).
	Source string

	// SourceType is the declared or inferred type.
	SourceType domain.SourceType

	// Title is a caller-supplied title, used when the content has none.
	Title string

	// Scope is an optional CSS selector restricting HTML extraction.
	Scope string

	// Body holds the raw bytes. Nil means the parser must obtain the
	// content itself from Source (URL-only parsers).
	Body []byte

	// ContentType is the MIME type reported by the fetcher, if any.
	ContentType string

	// TruncateBytesAmount is forwarded to remote extraction.
	TruncateBytesAmount int
}

// HasBody returns true if raw bytes were supplied.
func (in ParseInput) HasBody() bool {
	return in.Body != nil
}

// Parser turns one resource into pages.
// Each parser handles one or more source types.
type Parser interface {
	// Name identifies the parser in logs.
	Name() string

	// SourceTypes returns the source types this parser handles.
	SourceTypes() []domain.SourceType

	// Priority returns the selection priority (higher = preferred).
	// URL-only parsers that call external services should return 90-100.
	// Byte parsers should return 50-89.
	// Fallback parsers should return 1-9.
	Priority() int

	// Accepts reports whether the parser can handle this input shape,
	// e.g. a URL-only parser rejects inputs that carry a body.
	Accepts(in ParseInput) bool

	// Parse extracts pages. It never returns a page with binary content.
	Parse(ctx context.Context, in ParseInput) ([]domain.Page, error)
}

// ParserRegistry selects the parser for a resource.
// Parsers are keyed by source type and ordered by priority.
type ParserRegistry interface {
	// Register adds a parser under each of its source types.
	Register(p Parser)

	// Resolve returns the highest-priority parser that accepts in.
	// Returns domain.ErrUnsupportedType when none does.
	Resolve(in ParseInput) (Parser, error)

	// SourceTypes returns the types with at least one parser.
	SourceTypes() []domain.SourceType
}

// LinkExtractor finds anchor targets in an HTML document.
type LinkExtractor interface {
	// ExtractLinks returns absolute http(s) links in document order,
	// resolved against baseURL with fragments removed.
	ExtractLinks(body []byte, baseURL string) ([]domain.Link, error)
}
