package services

import (
	"fmt"
	"path"
	"strings"

	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
	"github.com/custodia-labs/sercha-ingest/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-ingest/internal/logger"
)

// Preparer turns pages into chunks: truncate once, then split.
type Preparer struct {
	splitters driven.SplitterFactory
}

// NewPreparer creates a preparer using the given splitter factory.
func NewPreparer(splitters driven.SplitterFactory) *Preparer {
	return &Preparer{splitters: splitters}
}

// Prepare converts one page into chunks.
//
// The description is folded into the text, the result is truncated to
// opts.TruncateBytesAmount, and the truncated text is either returned as
// one chunk or split. Every chunk carries the truncated full text under
// the "content" key for citation, its position under "loc" and, when
// opts.ApplyHash is set, the hash of its own text.
func (p *Preparer) Prepare(page domain.Page, opts domain.PrepareOptions) ([]domain.Chunk, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	text := page.Content
	if opts.AppendDescription && page.Description != "" {
		text = text + "\n" + page.Description
	}
	text = domain.TruncateBytes(text, opts.TruncateBytesAmount)
	if strings.TrimSpace(text) == "" {
		logger.Debug("prepare: %s has no content", page.Source)
		return nil, nil
	}

	base := domain.CopyMetadata(page.Metadata)
	base[domain.MetaTitle] = page.Title
	base[domain.MetaDocumentName] = documentName(page)
	base[domain.MetaSource] = page.Source
	base[domain.MetaSourceType] = page.SourceType.String()
	base[domain.MetaContent] = text
	if page.Description != "" {
		base[domain.MetaDescription] = page.Description
	}

	if !opts.SplitContent {
		return []domain.Chunk{newChunk(text, base, 0, 1, lineCount(text), opts.ApplyHash)}, nil
	}

	if p.splitters == nil {
		return nil, fmt.Errorf("%w: splitter factory not configured", domain.ErrInvalidConfig)
	}
	splitter, err := p.splitters.NewSplitter(opts.SplitterMethod, opts.ChunkSize, opts.ChunkOverlap)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidConfig, err)
	}
	parts, err := splitter.SplitText(text)
	if err != nil {
		return nil, fmt.Errorf("split %s: %w", page.Source, err)
	}

	chunks := make([]domain.Chunk, 0, len(parts))
	prevStart, searchFrom, fromLine := 0, 0, 1
	for i, part := range parts {
		if strings.TrimSpace(part) == "" {
			continue
		}
		// Splitters may trim whitespace, so locate each part rather than
		// accumulating lengths.
		if start := locate(text, part, searchFrom, prevStart); start >= 0 {
			fromLine = 1 + strings.Count(text[:start], "\n")
			prevStart = start
			searchFrom = min(len(text), start+max(1, len(part)-opts.ChunkOverlap))
		}
		toLine := fromLine + strings.Count(part, "\n")
		chunks = append(chunks, newChunk(part, base, i, fromLine, toLine, opts.ApplyHash))
	}
	return chunks, nil
}

// PrepareAll prepares every page. The first setup error aborts.
func (p *Preparer) PrepareAll(pages []domain.Page, opts domain.PrepareOptions) ([]domain.Chunk, error) {
	var chunks []domain.Chunk
	for _, page := range pages {
		pc, err := p.Prepare(page, opts)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, pc...)
	}
	return chunks, nil
}

func newChunk(text string, base map[string]any, index, from, to int, applyHash bool) domain.Chunk {
	meta := domain.CopyMetadata(base)
	meta[domain.MetaLoc] = map[string]any{
		"index": index,
		"lines": map[string]any{"from": from, "to": to},
	}
	if applyHash {
		meta[domain.MetaHash] = domain.ContentHash(text)
	}
	return domain.Chunk{PageContent: text, Metadata: meta}
}

// locate finds part in text at or after from, falling back to the first
// match after the previous chunk's start.
func locate(text, part string, from, prevStart int) int {
	if idx := strings.Index(text[from:], part); idx >= 0 {
		return from + idx
	}
	if prevStart+1 <= len(text) {
		if idx := strings.Index(text[prevStart+1:], part); idx >= 0 {
			return prevStart + 1 + idx
		}
	}
	return -1
}

func lineCount(text string) int {
	return 1 + strings.Count(text, "\n")
}

// documentName is the page title, or the last path element of its source.
func documentName(page domain.Page) string {
	if page.Title != "" {
		return page.Title
	}
	src := strings.TrimRight(page.Source, "/")
	if i := strings.IndexAny(src, "?#"); i >= 0 {
		src = src[:i]
	}
	name := path.Base(src)
	if name == "." || name == "/" || strings.HasSuffix(src, ":") {
		return page.Source
	}
	return name
}
