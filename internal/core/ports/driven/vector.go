package driven

import (
	"context"

	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
)

// VectorIndex is an external nearest-neighbour store partitioned into
// namespaces.
type VectorIndex interface {
	// Namespace returns a handle for the named partition.
	// An empty name selects the index's default namespace.
	Namespace(name string) (VectorNamespace, error)

	// Close releases resources.
	Close() error
}

// VectorNamespace is one partition of a vector index.
type VectorNamespace interface {
	// Upsert writes records, overwriting existing IDs.
	Upsert(ctx context.Context, records []domain.VectorRecord) error

	// Query returns the nearest records to req.Vector.
	Query(ctx context.Context, req domain.QueryRequest) ([]domain.QueryMatch, error)
}
