package services

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
	"github.com/custodia-labs/sercha-ingest/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-ingest/internal/logger"
)

// DefaultEmbedConcurrency bounds in-flight provider calls.
const DefaultEmbedConcurrency = 8

// Embedder turns chunks into vector records via an embedding service.
type Embedder struct {
	service     driven.EmbeddingService
	concurrency int
	description string
}

// EmbedderOption configures an Embedder.
type EmbedderOption func(*Embedder)

// WithEmbedConcurrency sets the number of concurrent provider calls.
func WithEmbedConcurrency(n int) EmbedderOption {
	return func(e *Embedder) {
		if n > 0 {
			e.concurrency = n
		}
	}
}

// WithDescription prefixes every embedded text with a fixed description,
// e.g. a corpus label.
func WithDescription(description string) EmbedderOption {
	return func(e *Embedder) {
		e.description = strings.TrimSpace(description)
	}
}

// NewEmbedder creates an embedder over the given service.
func NewEmbedder(service driven.EmbeddingService, opts ...EmbedderOption) *Embedder {
	e := &Embedder{
		service:     service,
		concurrency: DefaultEmbedConcurrency,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// EmbedChunk embeds one chunk. The record ID is the chunk hash, computed
// from the chunk text when the preparer did not attach one. Provider
// errors are returned, never replaced by a placeholder vector.
func (e *Embedder) EmbedChunk(ctx context.Context, chunk domain.Chunk) (domain.VectorRecord, error) {
	if e.service == nil {
		return domain.VectorRecord{}, domain.ErrEmbeddingUnavailable
	}

	text := strings.ReplaceAll(chunk.PageContent, "\r\n", " ")
	text = strings.ReplaceAll(text, "\n", " ")
	if e.description != "" {
		text = e.description + " " + text
	}

	values, err := e.service.Embed(ctx, text)
	if err != nil {
		return domain.VectorRecord{}, fmt.Errorf("embed chunk: %w", err)
	}
	if len(values) == 0 {
		return domain.VectorRecord{}, fmt.Errorf("embed chunk: %w: empty vector", domain.ErrEmbeddingUnavailable)
	}

	id := chunk.Hash()
	if id == "" {
		id = domain.ContentHash(chunk.PageContent)
	}
	return domain.VectorRecord{
		ID:       id,
		Values:   values,
		Metadata: domain.FlattenMetadata(chunk.Metadata),
	}, nil
}

// EmbedAll embeds chunks concurrently and returns records in input order.
// The first failure cancels the remaining calls and is returned.
func (e *Embedder) EmbedAll(ctx context.Context, chunks []domain.Chunk) ([]domain.VectorRecord, error) {
	if e.service == nil {
		return nil, domain.ErrEmbeddingUnavailable
	}

	records := make([]domain.VectorRecord, len(chunks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)

	for i, chunk := range chunks {
		g.Go(func() error {
			rec, err := e.EmbedChunk(gctx, chunk)
			if err != nil {
				return fmt.Errorf("chunk %d of %v: %w", i, chunk.Metadata[domain.MetaSource], err)
			}
			records[i] = rec
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	logger.Debug("embed: %d records with %s", len(records), e.service.ModelName())
	return records, nil
}
