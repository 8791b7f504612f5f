// Package services implements the ingestion pipeline.
//
// Crawler discovers and parses resources into pages, Preparer truncates
// and splits pages into chunks, Embedder turns chunks into vector records
// and Upserter writes those records to a vector index in batches.
// IngestService wires the four stages together.
//
// Services depend only on driven ports; adapters are injected by the
// composition root in the CLI.
package services
