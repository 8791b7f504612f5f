package domain

import "errors"

// Domain errors represent pipeline failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedType indicates no parser or fetcher handles the resource.
	ErrUnsupportedType = errors.New("unsupported type")

	// ErrInvalidConfig indicates a setup failure such as an impossible
	// splitter configuration. It aborts the whole run.
	ErrInvalidConfig = errors.New("invalid configuration")

	// Fetch Errors.

	// ErrFetchFailed indicates a resource could not be retrieved.
	ErrFetchFailed = errors.New("fetch failed")

	// ErrEmptyBody indicates a resource was retrieved but had no content.
	ErrEmptyBody = errors.New("empty body")

	// ErrExtractionFailed indicates the out-of-process extractor returned
	// a non-2xx status or reported success=false.
	ErrExtractionFailed = errors.New("extraction failed")

	// ErrRateLimited indicates an upstream API rate limit was exceeded.
	ErrRateLimited = errors.New("rate limited")

	// Embedding and Vector Errors.

	// ErrEmbeddingUnavailable indicates the embedding service is not configured.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrVectorIndexUnavailable indicates the vector index is not configured.
	ErrVectorIndexUnavailable = errors.New("vector index unavailable")

	// ErrDimensionMismatch indicates a vector length differs from the
	// dimension the index expects.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
)
