package html

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"

	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
	"github.com/custodia-labs/sercha-ingest/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-ingest/internal/logger"
	"github.com/custodia-labs/sercha-ingest/internal/parsers"
)

// Ensure Parser implements the interface.
var _ driven.Parser = (*Parser)(nil)

// noise is removed before conversion.
const noise = "script, style, noscript, svg, iframe, nav, footer, template, form"

var multiNewlines = regexp.MustCompile(`\n{3,}`)

// Parser converts HTML documents to markdown pages.
type Parser struct {
	converter *md.Converter
}

// New creates a new HTML parser.
func New() *Parser {
	converter := md.NewConverter("", true, nil)
	// Anchors keep their text only; the crawler reads links from the raw body.
	converter.AddRules(md.Rule{
		Filter: []string{"a"},
		Replacement: func(content string, _ *goquery.Selection, _ *md.Options) *string {
			return md.String(content)
		},
	})
	return &Parser{converter: converter}
}

// Name identifies the parser in logs.
func (p *Parser) Name() string { return "html" }

// SourceTypes returns the source types this parser handles.
func (p *Parser) SourceTypes() []domain.SourceType {
	return []domain.SourceType{domain.SourceTypeWeb}
}

// Priority returns the selection priority.
func (p *Parser) Priority() int {
	return 50
}

// Accepts requires fetched bytes.
func (p *Parser) Accepts(in driven.ParseInput) bool {
	return in.HasBody()
}

// Parse converts the body to markdown. When in.Scope is a CSS selector
// matching part of the document only that part is converted; a selector
// matching nothing falls back to <body>.
func (p *Parser) Parse(_ context.Context, in driven.ParseInput) ([]domain.Page, error) {
	if len(bytes.TrimSpace(in.Body)) == 0 {
		return nil, domain.ErrInvalidInput
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(in.Body))
	if err != nil {
		return nil, fmt.Errorf("%w: parse html: %w", domain.ErrInvalidInput, err)
	}

	title := extractTitle(doc)
	description := extractDescription(doc)
	language, _ := doc.Find("html").Attr("lang")

	root := doc.Find("body")
	if in.Scope != "" {
		if scoped := doc.Find(in.Scope); scoped.Length() > 0 {
			root = scoped
		} else {
			logger.Debug("html: scope %q matched nothing in %s, using body", in.Scope, in.Source)
		}
	}
	if root.Length() == 0 {
		root = doc.Selection
	}
	root.Find(noise).Remove()

	var sb strings.Builder
	root.Each(func(_ int, s *goquery.Selection) {
		if sb.Len() > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(p.converter.Convert(s))
	})
	content := cleanMarkdown(sb.String())
	if content == "" {
		return nil, fmt.Errorf("%w: no text in %s", domain.ErrEmptyBody, in.Source)
	}

	page := parsers.NewPage(in, title, content, "html")
	page.Description = description
	if language != "" {
		page.Metadata["language"] = strings.TrimSpace(language)
	}
	return []domain.Page{page}, nil
}

// extractTitle reads <title>, then og:title, then the first h1.
func extractTitle(doc *goquery.Document) string {
	if t := strings.TrimSpace(doc.Find("head title").First().Text()); t != "" {
		return t
	}
	if t, ok := doc.Find(`meta[property="og:title"]`).Attr("content"); ok && strings.TrimSpace(t) != "" {
		return strings.TrimSpace(t)
	}
	return strings.TrimSpace(doc.Find("h1").First().Text())
}

func extractDescription(doc *goquery.Document) string {
	for _, sel := range []string{`meta[name="description"]`, `meta[property="og:description"]`} {
		if d, ok := doc.Find(sel).Attr("content"); ok && strings.TrimSpace(d) != "" {
			return strings.TrimSpace(d)
		}
	}
	return ""
}

// cleanMarkdown trims trailing spaces and collapses blank runs.
func cleanMarkdown(s string) string {
	lines := strings.Split(parsers.NormalizeNewlines(s), "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	s = strings.Join(lines, "\n")
	s = multiNewlines.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}
