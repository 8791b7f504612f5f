// Package pdf provides an in-process parser for PDF bytes. It serves
// local files and acts as the fallback when no extraction service is
// configured.
package pdf

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
	"github.com/custodia-labs/sercha-ingest/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-ingest/internal/logger"
	"github.com/custodia-labs/sercha-ingest/internal/parsers"
)

// Ensure Parser implements the interface.
var _ driven.Parser = (*Parser)(nil)

// maxTitleLen bounds a first line used as the title.
const maxTitleLen = 200

// Parser extracts plain text page by page.
type Parser struct{}

// New creates a new PDF parser.
func New() *Parser {
	return &Parser{}
}

// Name identifies the parser in logs.
func (p *Parser) Name() string { return "pdf" }

// SourceTypes returns the source types this parser handles.
func (p *Parser) SourceTypes() []domain.SourceType {
	return []domain.SourceType{domain.SourceTypePDF}
}

// Priority returns the selection priority.
func (p *Parser) Priority() int {
	return 50
}

// Accepts requires the document bytes.
func (p *Parser) Accepts(in driven.ParseInput) bool {
	return in.HasBody()
}

// Parse returns one page holding the text of every PDF page. A PDF page
// that fails to decode is skipped; a document with no text at all is an
// error.
func (p *Parser) Parse(ctx context.Context, in driven.ParseInput) (pages []domain.Page, err error) {
	if len(in.Body) == 0 {
		return nil, domain.ErrInvalidInput
	}
	// The reader panics on some malformed cross-reference tables.
	defer func() {
		if r := recover(); r != nil {
			pages, err = nil, fmt.Errorf("%w: malformed pdf %s: %v", domain.ErrInvalidInput, in.Source, r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(in.Body), int64(len(in.Body)))
	if err != nil {
		return nil, fmt.Errorf("%w: open pdf: %w", domain.ErrInvalidInput, err)
	}

	var texts []string
	numPages := reader.NumPage()
	for i := 1; i <= numPages; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			logger.Debug("pdf: page %d of %s: %v", i, in.Source, err)
			continue
		}
		if text = strings.TrimSpace(parsers.NormalizeNewlines(text)); text != "" {
			texts = append(texts, text)
		}
	}

	content := strings.Join(texts, "\n\n")
	if content == "" {
		return nil, fmt.Errorf("%w: no text layer in %s", domain.ErrEmptyBody, in.Source)
	}

	page := parsers.NewPage(in, extractTitle(content), content, "pdf")
	page.Metadata["pages"] = numPages
	return []domain.Page{page}, nil
}

// extractTitle uses the first short non-empty line.
func extractTitle(content string) string {
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line != "" && len(line) <= maxTitleLen {
			return line
		}
	}
	return ""
}
