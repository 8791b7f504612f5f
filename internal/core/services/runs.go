package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
	"github.com/custodia-labs/sercha-ingest/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-ingest/internal/core/ports/driving"
)

// Ensure RunHistoryService implements the interface.
var _ driving.RunHistory = (*RunHistoryService)(nil)

// DefaultRunLimit is how many runs List returns when no limit is given.
const DefaultRunLimit = 20

// RunHistoryService reads recorded ingest runs.
type RunHistoryService struct {
	store driven.RunStore
}

// NewRunHistoryService creates a run history over store.
func NewRunHistoryService(store driven.RunStore) *RunHistoryService {
	return &RunHistoryService{store: store}
}

// List returns the most recent runs, newest first.
func (s *RunHistoryService) List(ctx context.Context, limit int) ([]domain.RunRecord, error) {
	if s.store == nil {
		return nil, fmt.Errorf("%w: run history disabled", domain.ErrInvalidConfig)
	}
	if limit <= 0 {
		limit = DefaultRunLimit
	}
	runs, err := s.store.List(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return runs, nil
}

// Get returns one run. Unknown IDs return domain.ErrNotFound.
func (s *RunHistoryService) Get(ctx context.Context, id string) (*domain.RunRecord, error) {
	if s.store == nil {
		return nil, fmt.Errorf("%w: run history disabled", domain.ErrInvalidConfig)
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("%w: empty run id", domain.ErrInvalidInput)
	}
	return s.store.Get(ctx, id)
}
