package driving

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
)

// IngestRequest describes one ingestion run.
type IngestRequest struct {
	Seeds     []CrawlSeed
	Namespace string
	Crawl     domain.CrawlOptions
	Prepare   domain.PrepareOptions
}

// BatchResult is the outcome of one upsert batch.
type BatchResult struct {
	// Index is the batch position, starting at 0.
	Index int

	// Size is the number of records in the batch.
	Size int

	// Err is nil when the batch was written.
	Err error
}

// UpsertReport collects every batch outcome of a chunked upsert.
type UpsertReport struct {
	Batches []BatchResult
}

// Upserted returns the number of records in successful batches.
func (r UpsertReport) Upserted() int {
	n := 0
	for _, b := range r.Batches {
		if b.Err == nil {
			n += b.Size
		}
	}
	return n
}

// Failed returns the failed batches.
func (r UpsertReport) Failed() []BatchResult {
	var failed []BatchResult
	for _, b := range r.Batches {
		if b.Err != nil {
			failed = append(failed, b)
		}
	}
	return failed
}

// OK returns true when every batch succeeded.
func (r UpsertReport) OK() bool {
	return len(r.Failed()) == 0
}

// Err joins the batch errors, or returns nil when all succeeded.
func (r UpsertReport) Err() error {
	var errs []error
	for _, b := range r.Failed() {
		errs = append(errs, fmt.Errorf("batch %d: %w", b.Index, b.Err))
	}
	return errors.Join(errs...)
}

// IngestResult summarises an ingestion run.
type IngestResult struct {
	RunID     string
	Namespace string
	Pages     int
	Chunks    int
	Records   int
	Report    UpsertReport
	Duration  time.Duration
}

// IngestService runs crawl, prepare, embed and upsert end to end.
type IngestService interface {
	// Ingest runs the pipeline. Embedding and setup failures abort the run
	// before anything is written; upsert batch failures are reported in
	// the result.
	Ingest(ctx context.Context, req IngestRequest) (*IngestResult, error)
}

// QueryService embeds a query and looks up its nearest records.
type QueryService interface {
	Query(ctx context.Context, namespace, text string, topK int, filter map[string]any) ([]domain.QueryMatch, error)
}
