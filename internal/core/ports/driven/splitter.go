package driven

import "github.com/custodia-labs/sercha-ingest/internal/core/domain"

// Splitter cuts text into ordered, overlapping pieces.
type Splitter interface {
	SplitText(text string) ([]string, error)
}

// SplitterFactory builds a splitter for a method and window.
// Construction failures are setup errors (domain.ErrInvalidConfig).
type SplitterFactory interface {
	NewSplitter(method domain.SplitterMethod, chunkSize, chunkOverlap int) (Splitter, error)
}
