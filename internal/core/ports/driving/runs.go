package driving

import (
	"context"

	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
)

// RunHistory lists past ingest runs.
type RunHistory interface {
	List(ctx context.Context, limit int) ([]domain.RunRecord, error)
	Get(ctx context.Context, id string) (*domain.RunRecord, error)
}
