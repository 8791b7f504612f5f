package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/panjf2000/ants/v2"

	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
	"github.com/custodia-labs/sercha-ingest/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-ingest/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-ingest/internal/logger"
)

// Upserter writes vector records to an index in fixed-size batches.
type Upserter struct {
	opts domain.UpsertOptions
}

// NewUpserter creates an upserter. Zero options fall back to defaults.
func NewUpserter(opts domain.UpsertOptions) *Upserter {
	defaults := domain.DefaultUpsertOptions()
	if opts.BatchSize <= 0 {
		opts.BatchSize = defaults.BatchSize
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = defaults.Concurrency
	}
	return &Upserter{opts: opts}
}

// Options returns the effective options.
func (u *Upserter) Options() domain.UpsertOptions {
	return u.opts
}

// ChunkedUpsert partitions records into contiguous batches and submits
// every batch to a bounded worker pool. It waits for all batches to
// settle: a failed batch is logged and recorded, and never cancels its
// siblings. Only setup failures are returned as an error.
func (u *Upserter) ChunkedUpsert(
	ctx context.Context,
	index driven.VectorIndex,
	records []domain.VectorRecord,
	namespace string,
) (driving.UpsertReport, error) {
	if index == nil {
		return driving.UpsertReport{}, domain.ErrVectorIndexUnavailable
	}
	ns, err := index.Namespace(namespace)
	if err != nil {
		return driving.UpsertReport{}, fmt.Errorf("open namespace %q: %w", namespace, err)
	}

	batches := partition(records, u.opts.BatchSize)
	report := driving.UpsertReport{Batches: make([]driving.BatchResult, len(batches))}
	if len(batches) == 0 {
		return report, nil
	}

	pool, err := ants.NewPool(min(u.opts.Concurrency, len(batches)))
	if err != nil {
		return driving.UpsertReport{}, fmt.Errorf("create upsert pool: %w", err)
	}
	defer pool.Release()

	var wg sync.WaitGroup
	for i, batch := range batches {
		report.Batches[i] = driving.BatchResult{Index: i, Size: len(batch)}
		wg.Add(1)
		task := func() {
			defer wg.Done()
			report.Batches[i].Err = u.upsertBatch(ctx, ns, batch)
			if report.Batches[i].Err != nil {
				logger.Warn("upsert: batch %d (%d records) failed: %v", i, len(batch), report.Batches[i].Err)
			}
		}
		if err := pool.Submit(task); err != nil {
			wg.Done()
			report.Batches[i].Err = fmt.Errorf("submit batch: %w", err)
			logger.Warn("upsert: batch %d not submitted: %v", i, err)
		}
	}
	wg.Wait()

	logger.Info("upsert: %d/%d records written in %d batches (%d failed)",
		report.Upserted(), len(records), len(batches), len(report.Failed()))
	return report, nil
}

// upsertBatch runs one batch under its own deadline. A panic in the
// index client is reported as that batch's failure.
func (u *Upserter) upsertBatch(ctx context.Context, ns driven.VectorNamespace, batch []domain.VectorRecord) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("upsert panicked: %v", r)
		}
	}()

	if u.opts.BatchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, u.opts.BatchTimeout)
		defer cancel()
	}
	return ns.Upsert(ctx, batch)
}

// partition splits records into contiguous slices of at most size.
func partition(records []domain.VectorRecord, size int) [][]domain.VectorRecord {
	if size <= 0 {
		size = domain.DefaultUpsertBatchSize
	}
	batches := make([][]domain.VectorRecord, 0, (len(records)+size-1)/size)
	for start := 0; start < len(records); start += size {
		end := min(start+size, len(records))
		batches = append(batches, records[start:end])
	}
	return batches
}
