// Package audio provides a parser that turns audio files into transcripts
// through an OpenAI-compatible transcription API.
package audio

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

// Transcriber converts audio bytes to text.
type Transcriber interface {
	Transcribe(ctx context.Context, filename string, data []byte) (string, error)
}

// Parser produces one page per audio file.
type Parser struct {
	transcriber Transcriber
}

// New creates an audio parser. A nil transcriber declines all input.
func New(transcriber Transcriber) *Parser {
	return &Parser{transcriber: transcriber}
}

// Name identifies the parser in logs.
func (p *Parser) Name() string { return "audio" }

// SourceTypes returns the source types this parser handles.
func (p *Parser) SourceTypes() []domain.SourceType {
	return []domain.SourceType{domain.SourceTypeAudio}
}

// Priority returns the selection priority.
func (p *Parser) Priority() int {
	return 60
}

// Accepts requires the audio bytes and a configured transcriber.
func (p *Parser) Accepts(in driven.ParseInput) bool {
	return p.transcriber != nil && in.HasBody()
}

// Parse transcribes the body.
func (p *Parser) Parse(ctx context.Context, in driven.ParseInput) ([]domain.Page, error) {
	if len(in.Body) == 0 {
		return nil, domain.ErrInvalidInput
	}
	if p.transcriber == nil {
		return nil, fmt.Errorf("%w: no transcriber configured", domain.ErrUnsupportedType)
	}

	transcript, err := p.transcriber.Transcribe(ctx, filename(in.Source), in.Body)
	if err != nil {
		return nil, fmt.Errorf("transcribe %s: %w", in.Source, err)
	}
	transcript = strings.TrimSpace(transcript)
	if transcript == "" {
		return nil, fmt.Errorf("%w: empty transcript for %s", domain.ErrEmptyBody, in.Source)
	}

	page := parsers.NewPage(in, "", transcript, "transcript")
	page.Metadata["bytes"] = len(in.Body)
	return []domain.Page{page}, nil
}

// filename is the last path element of source, used for the upload.
func filename(source string) string {
	source = strings.TrimPrefix(source, "file://")
	if i := strings.IndexAny(source, "?#"); i >= 0 {
		source = source[:i]
	}
	if i := strings.LastIndex(source, "/"); i >= 0 {
		source = source[i+1:]
	}
	if source == "" {
		return "audio"
	}
	return source
}
