// Package csv provides an in-process parser that renders CSV files as
// markdown tables.
package csv

import (
	"bytes"
	"context"
	encsv "encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
	"github.com/custodia-labs/sercha-ingest/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-ingest/internal/parsers"
)

// Ensure Parser implements the interface.
var _ driven.Parser = (*Parser)(nil)

// Parser renders the first record as the table header.
type Parser struct{}

// New creates a new CSV parser.
func New() *Parser {
	return &Parser{}
}

// Name identifies the parser in logs.
func (p *Parser) Name() string { return "csv" }

// SourceTypes returns the source types this parser handles.
func (p *Parser) SourceTypes() []domain.SourceType {
	return []domain.SourceType{domain.SourceTypeCSV}
}

// Priority returns the selection priority.
func (p *Parser) Priority() int {
	return 50
}

// Accepts requires the file bytes.
func (p *Parser) Accepts(in driven.ParseInput) bool {
	return in.HasBody()
}

// Parse returns one page holding a markdown table. Ragged rows are
// padded to the header width.
func (p *Parser) Parse(_ context.Context, in driven.ParseInput) ([]domain.Page, error) {
	if len(in.Body) == 0 {
		return nil, domain.ErrInvalidInput
	}
	if parsers.IsBinary(in.Body) {
		return nil, fmt.Errorf("%w: %s is not text", domain.ErrInvalidInput, in.Source)
	}

	r := encsv.NewReader(bytes.NewReader(bytes.TrimPrefix(in.Body, []byte("\xef\xbb\xbf"))))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	var rows [][]string
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: csv: %w", domain.ErrInvalidInput, err)
		}
		rows = append(rows, rec)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: no rows in %s", domain.ErrEmptyBody, in.Source)
	}

	page := parsers.NewPage(in, "", renderTable(rows), "csv")
	page.Metadata["rows"] = len(rows) - 1
	page.Metadata["columns"] = len(rows[0])
	return []domain.Page{page}, nil
}

func renderTable(rows [][]string) string {
	width := 0
	for _, row := range rows {
		width = max(width, len(row))
	}

	var sb strings.Builder
	writeRow := func(cells []string) {
		sb.WriteString("|")
		for i := range width {
			cell := ""
			if i < len(cells) {
				cell = escapeCell(cells[i])
			}
			sb.WriteString(" ")
			sb.WriteString(cell)
			sb.WriteString(" |")
		}
		sb.WriteString("\n")
	}

	writeRow(rows[0])
	sb.WriteString("|")
	sb.WriteString(strings.Repeat(" --- |", width))
	sb.WriteString("\n")
	for _, row := range rows[1:] {
		writeRow(row)
	}
	return strings.TrimRight(sb.String(), "\n")
}

func escapeCell(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, "|", `\|`)
	s = strings.ReplaceAll(s, "\r\n", " ")
	return strings.ReplaceAll(s, "\n", " ")
}
