// Package markdown provides a parser for markdown and MDX resources.
package markdown

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
	"gopkg.in/yaml.v3"

	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
	"github.com/custodia-labs/sercha-ingest/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-ingest/internal/logger"
	"github.com/custodia-labs/sercha-ingest/internal/parsers"
)

// Ensure Parser implements the interface.
var _ driven.Parser = (*Parser)(nil)

// Parser keeps markdown text as is, minus front matter, and lifts the
// title and description out of front matter or the first H1.
type Parser struct {
	md goldmark.Markdown
}

// New creates a new markdown parser.
func New() *Parser {
	return &Parser{md: goldmark.New()}
}

// Name identifies the parser in logs.
func (p *Parser) Name() string { return "markdown" }

// SourceTypes returns the source types this parser handles.
func (p *Parser) SourceTypes() []domain.SourceType {
	return []domain.SourceType{domain.SourceTypeMD}
}

// Priority returns the selection priority.
func (p *Parser) Priority() int {
	return 50
}

// Accepts requires fetched bytes.
func (p *Parser) Accepts(in driven.ParseInput) bool {
	return in.HasBody()
}

// Parse returns one page. Scalar front matter keys other than title and
// description are copied into page metadata.
func (p *Parser) Parse(_ context.Context, in driven.ParseInput) ([]domain.Page, error) {
	if len(in.Body) == 0 {
		return nil, domain.ErrInvalidInput
	}
	if parsers.IsBinary(in.Body) {
		return nil, fmt.Errorf("%w: %s is not text", domain.ErrInvalidInput, in.Source)
	}

	src := parsers.NormalizeNewlines(string(in.Body))
	front, body := splitFrontMatter(src)

	var fm map[string]any
	if front != "" {
		if err := yaml.Unmarshal([]byte(front), &fm); err != nil {
			// Malformed front matter is kept as content.
			logger.Debug("markdown: front matter in %s not parsed: %v", in.Source, err)
			fm = nil
			body = src
		}
	}

	content := strings.TrimSpace(body)
	if content == "" {
		return nil, domain.ErrEmptyBody
	}

	title := stringValue(fm, "title")
	if title == "" {
		title = p.firstHeading([]byte(content))
	}

	page := parsers.NewPage(in, title, content, "markdown")
	page.Description = stringValue(fm, "description")
	for k, v := range fm {
		if k == "title" || k == "description" {
			continue
		}
		switch v.(type) {
		case string, bool, int, int64, float64:
			page.Metadata[k] = v
		}
	}
	return []domain.Page{page}, nil
}

// splitFrontMatter separates a leading "---" fenced block.
func splitFrontMatter(src string) (front, body string) {
	if !strings.HasPrefix(src, "---\n") {
		return "", src
	}
	rest := src[len("---\n"):]
	end := strings.Index(rest, "\n---")
	if end < 0 {
		return "", src
	}
	front = rest[:end]
	body = rest[end+len("\n---"):]
	if nl := strings.IndexByte(body, '\n'); nl >= 0 {
		body = body[nl+1:]
	} else {
		body = ""
	}
	return front, body
}

// firstHeading returns the text of the first level-1 heading.
func (p *Parser) firstHeading(src []byte) string {
	doc := p.md.Parser().Parse(text.NewReader(src))

	var title string
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		h, ok := n.(*ast.Heading)
		if !ok || h.Level != 1 {
			return ast.WalkContinue, nil
		}
		title = strings.TrimSpace(inlineText(h, src))
		return ast.WalkStop, nil
	})
	return title
}

func inlineText(n ast.Node, src []byte) string {
	var buf bytes.Buffer
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch t := c.(type) {
		case *ast.Text:
			buf.Write(t.Segment.Value(src))
			if t.SoftLineBreak() {
				buf.WriteByte(' ')
			}
		case *ast.String:
			buf.Write(t.Value)
		}
		return ast.WalkContinue, nil
	})
	return buf.String()
}

func stringValue(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return strings.TrimSpace(s)
}
