package chromem

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
)

func newIndex(t *testing.T) *Index {
	t.Helper()
	idx, err := New(Config{})
	require.NoError(t, err)
	return idx
}

func TestNamespace_UpsertAndQuery(t *testing.T) {
	idx := newIndex(t)
	ns, err := idx.Namespace("docs")
	require.NoError(t, err)

	err = ns.Upsert(context.Background(), []domain.VectorRecord{
		{ID: "a", Values: []float32{1, 0, 0}, Metadata: map[string]any{"source": "https://a.test", "content": "alpha", "loc": `{"index":0}`}},
		{ID: "b", Values: []float32{0, 1, 0}, Metadata: map[string]any{"source": "https://b.test", "content": "beta"}},
		{ID: "c", Values: []float32{0.9, 0.1, 0}, Metadata: map[string]any{"source": "https://a.test", "content": "gamma"}},
	})
	require.NoError(t, err)

	matches, err := ns.Query(context.Background(), domain.QueryRequest{
		Vector:          []float32{1, 0, 0},
		TopK:            2,
		IncludeMetadata: true,
	})
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "a", matches[0].ID)
	assert.Equal(t, "c", matches[1].ID)
	assert.InDelta(t, 1.0, matches[0].Score, 1e-5)
	assert.Equal(t, "alpha", matches[0].Metadata["content"])
	assert.Equal(t, `{"index":0}`, matches[0].Metadata["loc"])
}

func TestNamespace_QueryClampsAndFilters(t *testing.T) {
	idx := newIndex(t)
	ns, err := idx.Namespace("")
	require.NoError(t, err)

	require.NoError(t, ns.Upsert(context.Background(), []domain.VectorRecord{
		{ID: "a", Values: []float32{1, 0}, Metadata: map[string]any{"sourceType": "web"}},
		{ID: "b", Values: []float32{0, 1}, Metadata: map[string]any{"sourceType": "pdf"}},
	}))

	matches, err := ns.Query(context.Background(), domain.QueryRequest{Vector: []float32{1, 0}, TopK: 10})
	require.NoError(t, err)
	assert.Len(t, matches, 2)
	assert.Nil(t, matches[0].Metadata)

	matches, err = ns.Query(context.Background(), domain.QueryRequest{
		Vector: []float32{1, 0},
		TopK:   2,
		Filter: map[string]any{"sourceType": "pdf"},
	})
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "b", matches[0].ID)
}

func TestNamespace_EmptyQuery(t *testing.T) {
	ns, err := newIndex(t).Namespace("empty")
	require.NoError(t, err)

	matches, err := ns.Query(context.Background(), domain.QueryRequest{Vector: []float32{1}, TopK: 3})
	require.NoError(t, err)
	assert.Empty(t, matches)

	_, err = ns.Query(context.Background(), domain.QueryRequest{TopK: 3})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestNamespace_DimensionMismatch(t *testing.T) {
	idx := newIndex(t)
	ns, err := idx.Namespace("docs")
	require.NoError(t, err)

	require.NoError(t, ns.Upsert(context.Background(), []domain.VectorRecord{{ID: "a", Values: []float32{1, 0, 0}}}))

	err = ns.Upsert(context.Background(), []domain.VectorRecord{{ID: "b", Values: []float32{1, 0}}})
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)

	err = ns.Upsert(context.Background(), []domain.VectorRecord{
		{ID: "c", Values: []float32{1, 0, 0}},
		{ID: "d", Values: []float32{1, 0}},
	})
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)

	// Other namespaces are independent.
	other, err := idx.Namespace("other")
	require.NoError(t, err)
	assert.NoError(t, other.Upsert(context.Background(), []domain.VectorRecord{{ID: "x", Values: []float32{1, 0}}}))
}

func TestNamespace_UpsertOverwrites(t *testing.T) {
	ns, err := newIndex(t).Namespace("docs")
	require.NoError(t, err)

	rec := domain.VectorRecord{ID: "a", Values: []float32{1, 0}, Metadata: map[string]any{"v": 1}}
	require.NoError(t, ns.Upsert(context.Background(), []domain.VectorRecord{rec}))
	rec.Metadata = map[string]any{"v": 2}
	require.NoError(t, ns.Upsert(context.Background(), []domain.VectorRecord{rec}))

	matches, err := ns.Query(context.Background(), domain.QueryRequest{Vector: []float32{1, 0}, TopK: 5, IncludeMetadata: true})
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "2", matches[0].Metadata["v"])
}

func TestPersistentIndex(t *testing.T) {
	dir := t.TempDir()
	idx, err := New(Config{Path: dir})
	require.NoError(t, err)
	ns, err := idx.Namespace("docs")
	require.NoError(t, err)
	require.NoError(t, ns.Upsert(context.Background(), []domain.VectorRecord{{ID: "a", Values: []float32{0, 1}}}))

	reopened, err := New(Config{Path: dir})
	require.NoError(t, err)
	ns, err = reopened.Namespace("docs")
	require.NoError(t, err)
	matches, err := ns.Query(context.Background(), domain.QueryRequest{Vector: []float32{0, 1}, TopK: 1})
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "a", matches[0].ID)
}

func TestPersistentIndex_DimensionSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	idx, err := New(Config{Path: dir})
	require.NoError(t, err)
	ns, err := idx.Namespace("docs")
	require.NoError(t, err)
	require.NoError(t, ns.Upsert(context.Background(), []domain.VectorRecord{{ID: "a", Values: []float32{1, 0, 0}}}))

	reopened, err := New(Config{Path: dir})
	require.NoError(t, err)
	ns, err = reopened.Namespace("docs")
	require.NoError(t, err)

	err = ns.Upsert(context.Background(), []domain.VectorRecord{{ID: "b", Values: []float32{1, 0, 0, 0}}})
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)

	require.NoError(t, ns.Upsert(context.Background(), []domain.VectorRecord{{ID: "c", Values: []float32{0, 1, 0}}}))
	matches, err := ns.Query(context.Background(), domain.QueryRequest{Vector: []float32{1, 0, 0}, TopK: 5})
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "a", matches[0].ID)
}

func TestPersistentIndex_CorruptDimensions(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, dimsFile), []byte("{"), 0o600))

	_, err := New(Config{Path: dir})
	assert.Error(t, err)
}

func TestStringify(t *testing.T) {
	got := stringify(map[string]any{
		"s": "x", "b": true, "i": 3, "f": 0.5, "n": nil, "l": []string{"a"},
	})
	assert.Equal(t, map[string]string{"s": "x", "b": "true", "i": "3", "f": "0.5", "l": `["a"]`}, got)
}
