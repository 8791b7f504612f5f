package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
	"github.com/custodia-labs/sercha-ingest/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-ingest/internal/core/ports/driving"
)

// Ensure QueryService implements the interface.
var _ driving.QueryService = (*QueryService)(nil)

// DefaultTopK is used when a query does not ask for a count.
const DefaultTopK = 5

// QueryService embeds query text and asks the vector index for the
// nearest records. Results are returned in the index's order; no
// re-ranking is applied.
type QueryService struct {
	embedding        driven.EmbeddingService
	index            driven.VectorIndex
	defaultNamespace string
}

// NewQueryService creates a query service.
func NewQueryService(embedding driven.EmbeddingService, index driven.VectorIndex, defaultNamespace string) *QueryService {
	return &QueryService{
		embedding:        embedding,
		index:            index,
		defaultNamespace: defaultNamespace,
	}
}

// Query returns up to topK matches for text in namespace.
func (s *QueryService) Query(
	ctx context.Context,
	namespace, text string,
	topK int,
	filter map[string]any,
) ([]domain.QueryMatch, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%w: empty query", domain.ErrInvalidInput)
	}
	if s.embedding == nil {
		return nil, domain.ErrEmbeddingUnavailable
	}
	if s.index == nil {
		return nil, domain.ErrVectorIndexUnavailable
	}
	if namespace == "" {
		namespace = s.defaultNamespace
	}
	if topK <= 0 {
		topK = DefaultTopK
	}

	vector, err := s.embedding.Embed(ctx, strings.ReplaceAll(text, "\n", " "))
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	ns, err := s.index.Namespace(namespace)
	if err != nil {
		return nil, fmt.Errorf("open namespace %q: %w", namespace, err)
	}
	matches, err := ns.Query(ctx, domain.QueryRequest{
		Vector:          vector,
		TopK:            topK,
		Filter:          filter,
		IncludeMetadata: true,
	})
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	return matches, nil
}
