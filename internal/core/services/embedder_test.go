package services

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
)

func testChunk(text string) domain.Chunk {
	return domain.Chunk{
		PageContent: text,
		Metadata: map[string]any{
			domain.MetaSource: "https://example.com",
			domain.MetaHash:   domain.ContentHash(text),
			domain.MetaLoc:    map[string]any{"index": 0},
		},
	}
}

func TestEmbedder_EmbedChunk(t *testing.T) {
	svc := &mockEmbedding{dims: 4}
	e := NewEmbedder(svc)

	chunk := testChunk("first line\nsecond line\r\nthird")
	rec, err := e.EmbedChunk(context.Background(), chunk)
	require.NoError(t, err)

	assert.Equal(t, []string{"first line second line third"}, svc.texts)
	assert.Equal(t, domain.ContentHash(chunk.PageContent), rec.ID)
	assert.Len(t, rec.Values, 4)
	assert.Equal(t, `{"index":0}`, rec.Metadata[domain.MetaLoc])
	assert.Equal(t, "https://example.com", rec.Metadata[domain.MetaSource])
}

func TestEmbedder_IDWithoutHash(t *testing.T) {
	e := NewEmbedder(&mockEmbedding{dims: 2})
	rec, err := e.EmbedChunk(context.Background(), domain.Chunk{PageContent: "no hash"})
	require.NoError(t, err)
	assert.Equal(t, domain.ContentHash("no hash"), rec.ID)
}

func TestEmbedder_Description(t *testing.T) {
	svc := &mockEmbedding{dims: 2}
	e := NewEmbedder(svc, WithDescription(" Product docs "))
	_, err := e.EmbedChunk(context.Background(), testChunk("install steps"))
	require.NoError(t, err)
	assert.Equal(t, []string{"Product docs install steps"}, svc.texts)
}

func TestEmbedder_ProviderErrorPropagates(t *testing.T) {
	e := NewEmbedder(&mockEmbedding{dims: 2, failOn: "boom"})
	_, err := e.EmbedChunk(context.Background(), testChunk("boom"))
	assert.ErrorContains(t, err, "provider unavailable")
}

func TestEmbedder_Unavailable(t *testing.T) {
	e := NewEmbedder(nil)
	_, err := e.EmbedChunk(context.Background(), testChunk("x"))
	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
	_, err = e.EmbedAll(context.Background(), []domain.Chunk{testChunk("x")})
	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
}

func TestEmbedder_EmbedAllKeepsOrder(t *testing.T) {
	e := NewEmbedder(&mockEmbedding{dims: 3}, WithEmbedConcurrency(4))

	chunks := make([]domain.Chunk, 50)
	for i := range chunks {
		chunks[i] = testChunk(fmt.Sprintf("chunk number %d", i))
	}
	records, err := e.EmbedAll(context.Background(), chunks)
	require.NoError(t, err)
	require.Len(t, records, 50)
	for i, rec := range records {
		assert.Equal(t, chunks[i].Hash(), rec.ID)
	}
}

func TestEmbedder_EmbedAllFailsWhole(t *testing.T) {
	e := NewEmbedder(&mockEmbedding{dims: 3, failOn: "bad"})
	chunks := []domain.Chunk{testChunk("good"), testChunk("bad"), testChunk("good again")}

	records, err := e.EmbedAll(context.Background(), chunks)
	require.Error(t, err)
	assert.Nil(t, records)
	assert.Contains(t, err.Error(), "chunk 1")
}
