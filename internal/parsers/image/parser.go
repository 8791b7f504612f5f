// Package image provides a parser that extracts text from images with a
// vision model.
package image

import (
	"context"
	"fmt"
	"mime"
	"net/http"
	"path"
	"strings"

	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
	"github.com/custodia-labs/sercha-ingest/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-ingest/internal/parsers"
)

// Ensure Parser implements the interface.
var _ driven.Parser = (*Parser)(nil)

// Recognizer returns the text visible in an image.
type Recognizer interface {
	Recognize(ctx context.Context, data []byte, mimeType string) (string, error)
}

// Parser produces one page per image.
type Parser struct {
	recognizer Recognizer
}

// New creates an image parser. A nil recognizer declines all input.
func New(recognizer Recognizer) *Parser {
	return &Parser{recognizer: recognizer}
}

// Name identifies the parser in logs.
func (p *Parser) Name() string { return "image" }

// SourceTypes returns the source types this parser handles.
func (p *Parser) SourceTypes() []domain.SourceType {
	return []domain.SourceType{domain.SourceTypeImage}
}

// Priority returns the selection priority.
func (p *Parser) Priority() int {
	return 60
}

// Accepts requires the image bytes and a configured recognizer.
func (p *Parser) Accepts(in driven.ParseInput) bool {
	return p.recognizer != nil && in.HasBody()
}

// Parse runs OCR on the body.
func (p *Parser) Parse(ctx context.Context, in driven.ParseInput) ([]domain.Page, error) {
	if len(in.Body) == 0 {
		return nil, domain.ErrInvalidInput
	}
	if p.recognizer == nil {
		return nil, fmt.Errorf("%w: no recognizer configured", domain.ErrUnsupportedType)
	}

	mimeType := detectMIME(in)
	if !strings.HasPrefix(mimeType, "image/") {
		return nil, fmt.Errorf("%w: %s is %s, not an image", domain.ErrInvalidInput, in.Source, mimeType)
	}

	text, err := p.recognizer.Recognize(ctx, in.Body, mimeType)
	if err != nil {
		return nil, fmt.Errorf("recognize %s: %w", in.Source, err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%w: no text found in %s", domain.ErrEmptyBody, in.Source)
	}

	page := parsers.NewPage(in, "", text, "ocr")
	page.Metadata["mime_type"] = mimeType
	return []domain.Page{page}, nil
}

// detectMIME prefers the declared type, then the file extension, then
// content sniffing.
func detectMIME(in driven.ParseInput) string {
	if mt, _, err := mime.ParseMediaType(in.ContentType); err == nil && strings.HasPrefix(mt, "image/") {
		return mt
	}
	source := in.Source
	if i := strings.IndexAny(source, "?#"); i >= 0 {
		source = source[:i]
	}
	if mt := mime.TypeByExtension(strings.ToLower(path.Ext(source))); strings.HasPrefix(mt, "image/") {
		mt, _, _ = strings.Cut(mt, ";")
		return mt
	}
	mt, _, _ := strings.Cut(http.DetectContentType(in.Body), ";")
	return mt
}
