package mcp

import (
	"context"

	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
	"github.com/custodia-labs/sercha-ingest/internal/core/ports/driving"
)

// mockCrawler is a mock implementation of driving.Crawler.
type mockCrawler struct {
	pages    []domain.Page
	err      error
	lastSeed driving.CrawlSeed
	lastOpts domain.CrawlOptions
}

func (m *mockCrawler) Crawl(_ context.Context, seed driving.CrawlSeed, opts domain.CrawlOptions) ([]domain.Page, error) {
	m.lastSeed = seed
	m.lastOpts = opts
	return m.pages, m.err
}

func (m *mockCrawler) CrawlMany(ctx context.Context, seeds []driving.CrawlSeed, opts domain.CrawlOptions) ([]domain.Page, error) {
	var all []domain.Page
	for _, s := range seeds {
		pages, err := m.Crawl(ctx, s, opts)
		if err != nil {
			return nil, err
		}
		all = append(all, pages...)
	}
	return all, nil
}

// mockIngestService is a mock implementation of driving.IngestService.
type mockIngestService struct {
	result  *driving.IngestResult
	err     error
	lastReq driving.IngestRequest
}

func (m *mockIngestService) Ingest(_ context.Context, req driving.IngestRequest) (*driving.IngestResult, error) {
	m.lastReq = req
	return m.result, m.err
}

// mockQueryService is a mock implementation of driving.QueryService.
type mockQueryService struct {
	matches  []domain.QueryMatch
	err      error
	lastTopK int
}

func (m *mockQueryService) Query(_ context.Context, _, _ string, topK int, _ map[string]any) ([]domain.QueryMatch, error) {
	m.lastTopK = topK
	return m.matches, m.err
}

// mockSettingsService is a mock implementation of driving.SettingsService.
type mockSettingsService struct {
	settings domain.Settings
}

func (m *mockSettingsService) Get() (*domain.Settings, error) {
	s := m.settings
	return &s, nil
}

func (m *mockSettingsService) Set(string, any) error { return nil }

func (m *mockSettingsService) Validate(*domain.Settings) error { return nil }

// mockRunHistory is a mock implementation of driving.RunHistory.
type mockRunHistory struct {
	runs      []domain.RunRecord
	err       error
	lastLimit int
}

func (m *mockRunHistory) List(_ context.Context, limit int) ([]domain.RunRecord, error) {
	m.lastLimit = limit
	return m.runs, m.err
}

func (m *mockRunHistory) Get(context.Context, string) (*domain.RunRecord, error) {
	return nil, domain.ErrNotFound
}
