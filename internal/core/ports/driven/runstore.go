package driven

import (
	"context"

	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
)

// RunStore persists ingest run summaries.
type RunStore interface {
	// Save creates or replaces a run by ID.
	Save(ctx context.Context, run domain.RunRecord) error

	// Get returns a run by ID, or domain.ErrNotFound.
	Get(ctx context.Context, id string) (*domain.RunRecord, error)

	// List returns up to limit runs, newest first. A limit of zero or
	// less returns all runs.
	List(ctx context.Context, limit int) ([]domain.RunRecord, error)
}
