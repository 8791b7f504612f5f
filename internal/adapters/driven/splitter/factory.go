package splitter

import (
	"fmt"

	"github.com/tmc/langchaingo/textsplitter"

	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
	"github.com/custodia-labs/sercha-ingest/internal/core/ports/driven"
)

// Ensure Factory implements the interface.
var _ driven.SplitterFactory = Factory{}

// Factory builds splitters by method.
type Factory struct{}

// NewFactory returns the splitter factory.
func NewFactory() Factory {
	return Factory{}
}

// NewSplitter returns a splitter for method with the given window.
func (Factory) NewSplitter(method domain.SplitterMethod, chunkSize, chunkOverlap int) (driven.Splitter, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("%w: chunk size must be positive, got %d", domain.ErrInvalidConfig, chunkSize)
	}
	if chunkOverlap < 0 || chunkOverlap >= chunkSize {
		return nil, fmt.Errorf("%w: chunk overlap %d must be in [0, %d)", domain.ErrInvalidConfig, chunkOverlap, chunkSize)
	}

	opts := []textsplitter.Option{
		textsplitter.WithChunkSize(chunkSize),
		textsplitter.WithChunkOverlap(chunkOverlap),
	}
	switch method {
	case domain.SplitterRecursive, "":
		return textsplitter.NewRecursiveCharacter(opts...), nil
	case domain.SplitterMarkdown:
		return textsplitter.NewMarkdownTextSplitter(opts...), nil
	case domain.SplitterWindow:
		return NewWindow(WithChunkSize(chunkSize), WithOverlap(chunkOverlap)), nil
	default:
		return nil, fmt.Errorf("%w: unknown splitter method %q", domain.ErrInvalidConfig, method)
	}
}
