// Package plaintext provides a parser for plain text resources.
package plaintext

import (
	"context"
	"fmt"
	"strings"

	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
	"github.com/custodia-labs/sercha-ingest/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-ingest/internal/parsers"
)

// Ensure Parser implements the interface.
var _ driven.Parser = (*Parser)(nil)

// Parser passes text through unchanged apart from line endings.
type Parser struct{}

// New creates a new plain text parser.
func New() *Parser {
	return &Parser{}
}

// Name identifies the parser in logs.
func (p *Parser) Name() string { return "plaintext" }

// SourceTypes returns the source types this parser handles.
func (p *Parser) SourceTypes() []domain.SourceType {
	return []domain.SourceType{domain.SourceTypeTXT}
}

// Priority returns the selection priority.
func (p *Parser) Priority() int {
	return 50
}

// Accepts requires fetched bytes.
func (p *Parser) Accepts(in driven.ParseInput) bool {
	return in.HasBody()
}

// Parse returns the body as one page titled after its source.
func (p *Parser) Parse(_ context.Context, in driven.ParseInput) ([]domain.Page, error) {
	if len(in.Body) == 0 {
		return nil, domain.ErrInvalidInput
	}
	if parsers.IsBinary(in.Body) {
		return nil, fmt.Errorf("%w: %s is not text", domain.ErrInvalidInput, in.Source)
	}

	content := strings.TrimSpace(parsers.NormalizeNewlines(string(in.Body)))
	if content == "" {
		return nil, domain.ErrEmptyBody
	}
	return []domain.Page{parsers.NewPage(in, "", content, "text")}, nil
}
