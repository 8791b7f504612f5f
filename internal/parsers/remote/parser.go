// Package remote provides a parser that delegates document extraction to
// the out-of-process extraction service.
package remote

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

// kinds maps source types to extractor routes.
var kinds = map[domain.SourceType]string{
	domain.SourceTypePDF:  "pdf",
	domain.SourceTypeDOCX: "word",
	domain.SourceTypeCSV:  "csv",
}

// Parser sends document URLs to the extraction service.
type Parser struct {
	extractor driven.Extractor
}

// New creates a remote parser. A nil extractor makes the parser decline
// every input, so in-process parsers take over.
func New(extractor driven.Extractor) *Parser {
	return &Parser{extractor: extractor}
}

// Name identifies the parser in logs.
func (p *Parser) Name() string { return "remote" }

// SourceTypes returns the source types this parser handles.
func (p *Parser) SourceTypes() []domain.SourceType {
	return []domain.SourceType{domain.SourceTypePDF, domain.SourceTypeDOCX, domain.SourceTypeCSV}
}

// Priority returns the selection priority.
func (p *Parser) Priority() int {
	return 90
}

// Accepts takes http(s) URLs without a body.
func (p *Parser) Accepts(in driven.ParseInput) bool {
	if p.extractor == nil || in.HasBody() {
		return false
	}
	return strings.HasPrefix(in.Source, "http://") || strings.HasPrefix(in.Source, "https://")
}

// Parse asks the service for pages and fills in what it left out.
func (p *Parser) Parse(ctx context.Context, in driven.ParseInput) ([]domain.Page, error) {
	if in.Source == "" {
		return nil, domain.ErrInvalidInput
	}
	kind, ok := kinds[in.SourceType]
	if !ok {
		return nil, fmt.Errorf("%w: remote extraction of %s", domain.ErrUnsupportedType, in.SourceType)
	}
	if p.extractor == nil {
		return nil, fmt.Errorf("%w: extraction service not configured", domain.ErrExtractionFailed)
	}

	pages, err := p.extractor.Extract(ctx, driven.ExtractRequest{
		Kind:                kind,
		URL:                 in.Source,
		TruncateBytesAmount: in.TruncateBytesAmount,
	})
	if err != nil {
		return nil, err
	}

	out := make([]domain.Page, 0, len(pages))
	for _, page := range pages {
		if strings.TrimSpace(page.Content) == "" {
			continue
		}
		if page.Source == "" {
			page.Source = in.Source
		}
		if page.SourceType == "" {
			page.SourceType = in.SourceType
		}
		if in.Title != "" {
			page.Title = in.Title
		} else if page.Title == "" {
			page.Title = parsers.TitleFromSource(in.Source)
		}
		if page.Metadata == nil {
			page.Metadata = map[string]any{}
		}
		page.Metadata["format"] = in.SourceType.String()
		out = append(out, page)
	}
	return out, nil
}
