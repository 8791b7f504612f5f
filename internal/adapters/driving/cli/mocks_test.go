package cli

import (
	"bytes"
	"context"
	"errors"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
	"github.com/custodia-labs/sercha-ingest/internal/core/ports/driving"
)

type mockCrawler struct {
	pages []domain.Page
	err   error

	seeds []driving.CrawlSeed
	opts  domain.CrawlOptions
}

func (m *mockCrawler) Crawl(_ context.Context, seed driving.CrawlSeed, opts domain.CrawlOptions) ([]domain.Page, error) {
	m.seeds = append(m.seeds, seed)
	m.opts = opts
	return m.pages, m.err
}

func (m *mockCrawler) CrawlMany(ctx context.Context, seeds []driving.CrawlSeed, opts domain.CrawlOptions) ([]domain.Page, error) {
	var all []domain.Page
	for _, s := range seeds {
		pages, err := m.Crawl(ctx, s, opts)
		if err != nil {
			return all, err
		}
		all = append(all, pages...)
	}
	return all, nil
}

type mockIngestService struct {
	result *driving.IngestResult
	err    error

	requests []driving.IngestRequest
}

func (m *mockIngestService) Ingest(_ context.Context, req driving.IngestRequest) (*driving.IngestResult, error) {
	m.requests = append(m.requests, req)
	if m.err != nil {
		return nil, m.err
	}
	if m.result != nil {
		return m.result, nil
	}
	return &driving.IngestResult{
		RunID:     "run-1",
		Namespace: req.Namespace,
		Pages:     len(req.Seeds),
		Chunks:    2,
		Records:   2,
		Report:    driving.UpsertReport{Batches: []driving.BatchResult{{Index: 0, Size: 2}}},
		Duration:  1500 * time.Millisecond,
	}, nil
}

type mockQueryService struct {
	matches []domain.QueryMatch
	err     error

	namespace string
	text      string
	topK      int
	filter    map[string]any
}

func (m *mockQueryService) Query(_ context.Context, namespace, text string, topK int, filter map[string]any) ([]domain.QueryMatch, error) {
	m.namespace, m.text, m.topK, m.filter = namespace, text, topK, filter
	return m.matches, m.err
}

type mockRunHistory struct {
	runs []domain.RunRecord
	err  error

	limit int
}

func (m *mockRunHistory) List(_ context.Context, limit int) ([]domain.RunRecord, error) {
	m.limit = limit
	return m.runs, m.err
}

func (m *mockRunHistory) Get(_ context.Context, id string) (*domain.RunRecord, error) {
	if m.err != nil {
		return nil, m.err
	}
	for i := range m.runs {
		if m.runs[i].ID == id {
			r := m.runs[i]
			return &r, nil
		}
	}
	return nil, domain.ErrNotFound
}

type mockSettingsService struct {
	settings    domain.Settings
	validateErr error
	setErr      error

	values map[string]any
}

func newMockSettingsService() *mockSettingsService {
	return &mockSettingsService{
		settings: domain.DefaultSettings(),
		values:   make(map[string]any),
	}
}

func (m *mockSettingsService) Get() (*domain.Settings, error) {
	s := m.settings
	return &s, nil
}

func (m *mockSettingsService) Set(key string, value any) error {
	if m.setErr != nil {
		return m.setErr
	}
	m.values[key] = value
	return nil
}

func (m *mockSettingsService) Validate(_ *domain.Settings) error {
	return m.validateErr
}

// testServices holds the mocks served by the test builder.
type testServices struct {
	crawler  *mockCrawler
	ingest   *mockIngestService
	query    *mockQueryService
	runs     *mockRunHistory
	settings *mockSettingsService

	needs    []Needs
	buildErr error
	check    func(ctx context.Context, s *domain.Settings) error
	closed   int
}

// setupTestServices installs a builder returning mocks and restores the
// previous one on cleanup.
func setupTestServices() (*testServices, func()) {
	ts := &testServices{
		crawler:  &mockCrawler{},
		ingest:   &mockIngestService{},
		query:    &mockQueryService{},
		runs:     &mockRunHistory{},
		settings: newMockSettingsService(),
	}
	original := buildServices
	SetBuilder(func(_ context.Context, _ string, needs Needs) (*Services, error) {
		ts.needs = append(ts.needs, needs)
		if ts.buildErr != nil {
			err := ts.buildErr
			ts.buildErr = nil
			return nil, err
		}
		cfg := ts.settings.settings
		svc := &Services{
			Settings:    ts.settings,
			Config:      &cfg,
			Crawler:     ts.crawler,
			SourceTypes: domain.AllSourceTypes,
			Check:       ts.check,
			Close:       func() { ts.closed++ },
		}
		if needs >= NeedIndex {
			svc.Ingest = ts.ingest
			svc.Query = ts.query
		}
		if needs == NeedRuns || needs == NeedIndex {
			svc.Runs = ts.runs
		}
		return svc, nil
	})
	return ts, func() { buildServices = original }
}

// executeCommand runs the root command with args and returns its output.
// Flags are reset afterwards since cobra keeps values between runs.
func executeCommand(args ...string) (string, error) {
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	defer func() {
		rootCmd.SetArgs(nil)
		resetFlags(rootCmd)
	}()

	err := rootCmd.Execute()
	return buf.String(), err
}

func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

var errBoom = errors.New("boom")
