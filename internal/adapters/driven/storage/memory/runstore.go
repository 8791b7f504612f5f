// Package memory provides in-memory implementations of driven stores,
// used when nothing should outlive the process.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
	"github.com/custodia-labs/sercha-ingest/internal/core/ports/driven"
)

// Ensure RunStore implements the interface.
var _ driven.RunStore = (*RunStore)(nil)

// DefaultCapacity is how many runs a RunStore keeps.
const DefaultCapacity = 100

// RunStore keeps the most recent runs in memory.
type RunStore struct {
	mu       sync.RWMutex
	runs     map[string]domain.RunRecord
	capacity int
}

// NewRunStore creates a store holding up to capacity runs. The oldest
// run by start time is evicted first.
func NewRunStore(capacity int) *RunStore {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &RunStore{
		runs:     make(map[string]domain.RunRecord),
		capacity: capacity,
	}
}

// Save stores or replaces a run.
func (s *RunStore) Save(_ context.Context, run domain.RunRecord) error {
	if run.ID == "" {
		return domain.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[run.ID] = run
	for len(s.runs) > s.capacity {
		s.evictOldest()
	}
	return nil
}

// Get retrieves a run by ID.
func (s *RunStore) Get(_ context.Context, id string) (*domain.RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	run, ok := s.runs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &run, nil
}

// List returns up to limit runs, newest first.
func (s *RunStore) List(_ context.Context, limit int) ([]domain.RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	runs := make([]domain.RunRecord, 0, len(s.runs))
	for _, r := range s.runs {
		runs = append(runs, r)
	}
	sortNewestFirst(runs)
	if limit > 0 && len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}

// evictOldest must be called with the lock held.
func (s *RunStore) evictOldest() {
	var oldest *domain.RunRecord
	for id := range s.runs {
		r := s.runs[id]
		if oldest == nil || r.StartedAt.Before(oldest.StartedAt) {
			oldest = &r
		}
	}
	if oldest != nil {
		delete(s.runs, oldest.ID)
	}
}

func sortNewestFirst(runs []domain.RunRecord) {
	sort.Slice(runs, func(i, j int) bool {
		if runs[i].StartedAt.Equal(runs[j].StartedAt) {
			return runs[i].ID > runs[j].ID
		}
		return runs[i].StartedAt.After(runs[j].StartedAt)
	})
}
