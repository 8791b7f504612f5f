package domain

import (
	"fmt"
	"time"
)

// Crawl defaults.
const (
	DefaultMaxDepth = 3
	DefaultMaxPages = 1
)

// Preparation defaults.
const (
	// DefaultTruncateBytes keeps the full-document content metadata under
	// Pinecone's 40KB per-record metadata ceiling with room for other keys.
	DefaultTruncateBytes = 36000
	DefaultChunkSize     = 1000
	DefaultChunkOverlap  = 200
)

// DefaultUpsertBatchSize is the number of records per upsert request.
const DefaultUpsertBatchSize = 25

// CrawlOptions bounds a crawl.
type CrawlOptions struct {
	// MaxDepth is the maximum number of link hops from the seed.
	MaxDepth int `json:"maxDepth"`

	// MaxPages caps the pages returned by a traversal.
	MaxPages int `json:"maxPages"`

	// TruncateBytesAmount is forwarded to the extraction service.
	TruncateBytesAmount int `json:"truncateBytesAmount"`

	// ExcludeURLTypes lists path suffixes to skip (e.g. ".pdf").
	ExcludeURLTypes []string `json:"excludeUrlTypes,omitempty"`

	// ExcludeURLDomains lists hostnames to skip, subdomains included.
	ExcludeURLDomains []string `json:"excludeUrlDomains,omitempty"`

	// SameHostOnly restricts discovered links to the seed's host.
	SameHostOnly bool `json:"sameHostOnly,omitempty"`

	// RequestTimeout bounds each fetch. Zero means no extra deadline.
	RequestTimeout time.Duration `json:"-"`
}

// DefaultCrawlOptions returns the crawl bounds used when none are given.
func DefaultCrawlOptions() CrawlOptions {
	return CrawlOptions{
		MaxDepth:            DefaultMaxDepth,
		MaxPages:            DefaultMaxPages,
		TruncateBytesAmount: DefaultTruncateBytes,
		RequestTimeout:      30 * time.Second,
	}
}

// Normalize fills zero numeric fields with defaults.
func (o CrawlOptions) Normalize() CrawlOptions {
	if o.MaxDepth < 0 {
		o.MaxDepth = 0
	}
	if o.MaxPages <= 0 {
		o.MaxPages = DefaultMaxPages
	}
	if o.TruncateBytesAmount <= 0 {
		o.TruncateBytesAmount = DefaultTruncateBytes
	}
	return o
}

// SplitterMethod selects the text splitter used by the preparer.
type SplitterMethod string

// Available splitter methods.
const (
	// SplitterRecursive splits on a character window with fallback separators.
	SplitterRecursive SplitterMethod = "recursive"

	// SplitterMarkdown splits along markdown structure first.
	SplitterMarkdown SplitterMethod = "markdown"

	// SplitterWindow cuts fixed-size rune windows with no separator logic.
	SplitterWindow SplitterMethod = "window"
)

// IsValid returns true if the splitter method is recognised.
func (m SplitterMethod) IsValid() bool {
	switch m {
	case SplitterRecursive, SplitterMarkdown, SplitterWindow:
		return true
	default:
		return false
	}
}

// PrepareOptions controls how a page becomes chunks.
type PrepareOptions struct {
	TruncateBytesAmount int            `json:"truncateBytesAmount"`
	SplitContent        bool           `json:"splitContent"`
	SplitterMethod      SplitterMethod `json:"splitterMethod"`
	ChunkSize           int            `json:"chunkSize"`
	ChunkOverlap        int            `json:"chunkOverlap"`
	AppendDescription   bool           `json:"appendDescription"`
	ApplyHash           bool           `json:"applyHash"`
}

// DefaultPrepareOptions returns the preparation defaults.
func DefaultPrepareOptions() PrepareOptions {
	return PrepareOptions{
		TruncateBytesAmount: DefaultTruncateBytes,
		SplitContent:        true,
		SplitterMethod:      SplitterRecursive,
		ChunkSize:           DefaultChunkSize,
		ChunkOverlap:        DefaultChunkOverlap,
		AppendDescription:   true,
		ApplyHash:           true,
	}
}

// Validate reports impossible splitter settings as ErrInvalidConfig.
func (o PrepareOptions) Validate() error {
	if !o.SplitContent {
		return nil
	}
	if !o.SplitterMethod.IsValid() {
		return fmt.Errorf("%w: unknown splitter method %q", ErrInvalidConfig, o.SplitterMethod)
	}
	if o.ChunkSize <= 0 {
		return fmt.Errorf("%w: chunk size must be positive, got %d", ErrInvalidConfig, o.ChunkSize)
	}
	if o.ChunkOverlap < 0 || o.ChunkOverlap >= o.ChunkSize {
		return fmt.Errorf("%w: chunk overlap %d must be in [0, %d)", ErrInvalidConfig, o.ChunkOverlap, o.ChunkSize)
	}
	return nil
}

// UpsertOptions controls the batch upserter.
type UpsertOptions struct {
	// BatchSize is the number of records per upsert call.
	BatchSize int

	// Concurrency is the number of batches in flight.
	Concurrency int

	// BatchTimeout bounds each upsert call. Zero means no extra deadline.
	BatchTimeout time.Duration
}

// DefaultUpsertOptions returns the upsert defaults.
func DefaultUpsertOptions() UpsertOptions {
	return UpsertOptions{
		BatchSize:    DefaultUpsertBatchSize,
		Concurrency:  4,
		BatchTimeout: 60 * time.Second,
	}
}
