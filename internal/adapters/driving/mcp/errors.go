// Package mcp exposes crawl, ingest and query as Model Context Protocol
// tools so AI assistants can feed and search the vector index.
package mcp

import "errors"

// ErrMissingCrawler is returned when the crawler is not provided.
var ErrMissingCrawler = errors.New("mcp: crawler is required")
