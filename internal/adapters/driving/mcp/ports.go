package mcp

import (
	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
	"github.com/custodia-labs/sercha-ingest/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the MCP server.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Crawler discovers and parses resources.
	Crawler driving.Crawler

	// Ingest runs the full pipeline. The ingest tool is omitted when nil.
	Ingest driving.IngestService

	// Query searches a namespace. The query tool is omitted when nil.
	Query driving.QueryService

	// Settings backs the settings resource. Optional.
	Settings driving.SettingsService

	// Runs backs the runs resource. Optional.
	Runs driving.RunHistory

	// CrawlDefaults fills crawl bounds the caller leaves out.
	CrawlDefaults domain.CrawlOptions

	// SourceTypes lists the types a parser is registered for. Optional.
	SourceTypes func() []domain.SourceType
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p.Crawler == nil {
		return ErrMissingCrawler
	}
	return nil
}
