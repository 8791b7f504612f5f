package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
	"github.com/custodia-labs/sercha-ingest/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-ingest/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-ingest/internal/logger"
)

// Ensure IngestService implements the interface.
var _ driving.IngestService = (*IngestService)(nil)

// IngestService runs crawl, prepare, embed and upsert for a set of seeds.
type IngestService struct {
	crawler  driving.Crawler
	preparer *Preparer
	embedder *Embedder
	upserter *Upserter
	index    driven.VectorIndex

	defaultNamespace string
	defaultPrepare   domain.PrepareOptions

	runs driven.RunStore
}

// NewIngestService creates an ingest service. defaultNamespace and
// defaultPrepare apply when a request leaves them empty.
func NewIngestService(
	crawler driving.Crawler,
	preparer *Preparer,
	embedder *Embedder,
	upserter *Upserter,
	index driven.VectorIndex,
	defaultNamespace string,
	defaultPrepare domain.PrepareOptions,
) *IngestService {
	return &IngestService{
		crawler:          crawler,
		preparer:         preparer,
		embedder:         embedder,
		upserter:         upserter,
		index:            index,
		defaultNamespace: defaultNamespace,
		defaultPrepare:   defaultPrepare,
	}
}

// WithRunStore records a summary of every run in store.
func (s *IngestService) WithRunStore(store driven.RunStore) *IngestService {
	s.runs = store
	return s
}

// Ingest runs the pipeline once.
//
// Every seed is validated before the crawl starts; one invalid seed fails
// the call with nothing fetched or recorded. Crawl failures only shrink
// the page set. Preparation and embedding
// failures abort the run before anything is written, so the index never
// receives a partial document with missing vectors. Upsert batch
// failures are reported in the result and do not fail the call.
func (s *IngestService) Ingest(ctx context.Context, req driving.IngestRequest) (*driving.IngestResult, error) {
	if len(req.Seeds) == 0 {
		return nil, fmt.Errorf("%w: no seeds", domain.ErrInvalidInput)
	}
	if err := ValidateSeeds(req.Seeds); err != nil {
		return nil, err
	}
	if s.index == nil {
		return nil, domain.ErrVectorIndexUnavailable
	}

	started := time.Now()
	result := &driving.IngestResult{
		RunID:     uuid.New().String(),
		Namespace: req.Namespace,
	}
	if result.Namespace == "" {
		result.Namespace = s.defaultNamespace
	}
	prepare := req.Prepare
	if prepare == (domain.PrepareOptions{}) {
		prepare = s.defaultPrepare
	}

	logger.Info("ingest %s: %d seeds into namespace %q", result.RunID, len(req.Seeds), result.Namespace)

	err := s.run(ctx, req, prepare, result)
	result.Duration = time.Since(started)
	s.record(req, result, started, err)
	if err != nil {
		return nil, err
	}

	logger.Info("ingest %s: %d pages, %d chunks, %d/%d records upserted in %s",
		result.RunID, result.Pages, result.Chunks, result.Report.Upserted(), result.Records,
		result.Duration.Round(time.Millisecond))
	return result, nil
}

func (s *IngestService) run(ctx context.Context, req driving.IngestRequest, prepare domain.PrepareOptions, result *driving.IngestResult) error {
	// 1. Crawl
	pages, err := s.crawler.CrawlMany(ctx, req.Seeds, req.Crawl)
	if err != nil {
		return fmt.Errorf("crawl: %w", err)
	}
	result.Pages = len(pages)
	if len(pages) == 0 {
		logger.Warn("ingest %s: no pages crawled", result.RunID)
		return nil
	}

	// 2. Prepare
	chunks, err := s.preparer.PrepareAll(pages, prepare)
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	result.Chunks = len(chunks)

	// 3. Embed
	records, err := s.embedder.EmbedAll(ctx, chunks)
	if err != nil {
		return fmt.Errorf("embed (nothing upserted): %w", err)
	}
	result.Records = len(records)

	// 4. Upsert
	report, err := s.upserter.ChunkedUpsert(ctx, s.index, records, result.Namespace)
	if err != nil {
		return fmt.Errorf("upsert: %w", err)
	}
	result.Report = report
	return nil
}

// record stores the run summary. Store failures are logged only.
func (s *IngestService) record(req driving.IngestRequest, result *driving.IngestResult, started time.Time, runErr error) {
	if s.runs == nil {
		return
	}
	seeds := make([]string, len(req.Seeds))
	for i, seed := range req.Seeds {
		seeds[i] = seed.Resource.Location()
	}
	run := domain.RunRecord{
		ID:            result.RunID,
		Namespace:     result.Namespace,
		Seeds:         seeds,
		StartedAt:     started.UTC(),
		EndedAt:       started.Add(result.Duration).UTC(),
		Pages:         result.Pages,
		Chunks:        result.Chunks,
		Records:       result.Records,
		Upserted:      result.Report.Upserted(),
		FailedBatches: len(result.Report.Failed()),
	}
	if runErr != nil {
		run.Error = runErr.Error()
	}

	// The run's context may already be cancelled.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.runs.Save(ctx, run); err != nil {
		logger.Warn("ingest %s: record run: %v", result.RunID, err)
	}
}
