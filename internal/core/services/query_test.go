package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
)

func TestQueryService_Query(t *testing.T) {
	index := newMockIndex(3)
	index.matches = []domain.QueryMatch{
		{ID: "b", Score: 0.9},
		{ID: "a", Score: 0.7},
	}
	svc := NewQueryService(&mockEmbedding{dims: 3}, index, "default")

	matches, err := svc.Query(context.Background(), "", "how do I\ninstall it", 0, map[string]any{"sourceType": "web"})
	require.NoError(t, err)

	assert.Equal(t, index.matches, matches)
	assert.Equal(t, DefaultTopK, index.lastQuery.TopK)
	assert.True(t, index.lastQuery.IncludeMetadata)
	assert.Len(t, index.lastQuery.Vector, 3)
	assert.Equal(t, "web", index.lastQuery.Filter["sourceType"])
}

func TestQueryService_TopK(t *testing.T) {
	index := newMockIndex(3)
	svc := NewQueryService(&mockEmbedding{dims: 3}, index, "default")

	_, err := svc.Query(context.Background(), "docs", "query", 12, nil)
	require.NoError(t, err)
	assert.Equal(t, 12, index.lastQuery.TopK)
}

func TestQueryService_Errors(t *testing.T) {
	index := newMockIndex(3)

	_, err := NewQueryService(&mockEmbedding{dims: 3}, index, "default").Query(context.Background(), "", "  ", 5, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = NewQueryService(nil, index, "default").Query(context.Background(), "", "q", 5, nil)
	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)

	_, err = NewQueryService(&mockEmbedding{dims: 3}, nil, "default").Query(context.Background(), "", "q", 5, nil)
	assert.ErrorIs(t, err, domain.ErrVectorIndexUnavailable)

	_, err = NewQueryService(&mockEmbedding{dims: 3, failOn: "q"}, index, "default").Query(context.Background(), "", "q", 5, nil)
	assert.ErrorContains(t, err, "embed query")

	index.nsErr = errors.New("gone")
	_, err = NewQueryService(&mockEmbedding{dims: 3}, index, "default").Query(context.Background(), "", "q", 5, nil)
	assert.ErrorContains(t, err, "gone")
}
