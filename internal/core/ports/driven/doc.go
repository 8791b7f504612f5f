// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the pipeline to function:
//
//   - Fetcher: Retrieves resource bytes (HTTP, S3)
//   - Parser: Turns one resource into pages
//   - ParserRegistry: Selects the parser for a resource
//   - SplitterFactory: Builds text splitters for the preparer
//   - EmbeddingService: Generates vector embeddings
//   - VectorIndex: Stores and queries vector records
//
// # Optional Interfaces
//
// These can be nil - the affected source types are skipped:
//
//   - Extractor: Out-of-process PDF/Word/CSV extraction for URL resources
//   - ConfigStore: Persistent settings (defaults apply without it)
//   - RunStore: Ingest run history (runs go unrecorded without it)
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter or parser package
package driven
