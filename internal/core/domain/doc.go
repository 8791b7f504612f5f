// Package domain defines the core entities of the ingestion pipeline.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Resource: A crawl target (URL or in-memory file)
//   - QueueItem: A resource waiting in the crawl queue
//   - Page: The normalised result of parsing one resource
//   - Chunk: A bounded slice of a page ready for embedding
//   - VectorRecord: An embedded chunk as written to a vector index
//   - RunRecord: The stored summary of one ingest run
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
