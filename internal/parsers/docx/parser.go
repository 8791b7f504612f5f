// Package docx provides an in-process parser for Word documents.
package docx

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/nguyenthenguyen/docx"

	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
	"github.com/custodia-labs/sercha-ingest/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-ingest/internal/parsers"
)

// Ensure Parser implements the interface.
var _ driven.Parser = (*Parser)(nil)

// Parser extracts paragraph text from word/document.xml.
type Parser struct{}

// New creates a new DOCX parser.
func New() *Parser {
	return &Parser{}
}

// Name identifies the parser in logs.
func (p *Parser) Name() string { return "docx" }

// SourceTypes returns the source types this parser handles.
func (p *Parser) SourceTypes() []domain.SourceType {
	return []domain.SourceType{domain.SourceTypeDOCX}
}

// Priority returns the selection priority.
func (p *Parser) Priority() int {
	return 50
}

// Accepts requires the document bytes.
func (p *Parser) Accepts(in driven.ParseInput) bool {
	return in.HasBody()
}

// Parse returns one page with one line per paragraph.
func (p *Parser) Parse(_ context.Context, in driven.ParseInput) ([]domain.Page, error) {
	if len(in.Body) == 0 {
		return nil, domain.ErrInvalidInput
	}

	doc, err := docx.ReadDocxFromMemory(bytes.NewReader(in.Body), int64(len(in.Body)))
	if err != nil {
		return nil, fmt.Errorf("%w: open docx: %w", domain.ErrInvalidInput, err)
	}
	defer doc.Close()

	paragraphs, err := paragraphText(doc.Editable().GetContent())
	if err != nil {
		return nil, fmt.Errorf("%w: document.xml: %w", domain.ErrInvalidInput, err)
	}
	content := strings.Join(paragraphs, "\n")
	if content == "" {
		return nil, fmt.Errorf("%w: no text in %s", domain.ErrEmptyBody, in.Source)
	}

	title := ""
	if len(paragraphs) > 0 && len(paragraphs[0]) <= 200 {
		title = paragraphs[0]
	}
	page := parsers.NewPage(in, title, content, "docx")
	page.Metadata["paragraphs"] = len(paragraphs)
	return []domain.Page{page}, nil
}

// paragraphText walks the document XML and returns the non-empty
// paragraphs. Tabs and breaks inside a paragraph become spaces.
func paragraphText(documentXML string) ([]string, error) {
	dec := xml.NewDecoder(strings.NewReader(documentXML))

	var (
		paragraphs []string
		current    strings.Builder
		inText     bool
	)
	flush := func() {
		if s := strings.Join(strings.Fields(current.String()), " "); s != "" {
			paragraphs = append(paragraphs, s)
		}
		current.Reset()
	}

	for {
		tok, err := dec.Token()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab", "br", "cr":
				current.WriteByte(' ')
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				flush()
			}
		case xml.CharData:
			if inText {
				current.Write(t)
			}
		}
	}
	flush()
	return paragraphs, nil
}
