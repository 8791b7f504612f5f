package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
	"github.com/custodia-labs/sercha-ingest/internal/core/ports/driven"
)

// --- Fetcher ---

type mockFetcher struct {
	mu      sync.Mutex
	pages   map[string]*driven.FetchResult
	errs    map[string]error
	fetched []string
}

func newMockFetcher() *mockFetcher {
	return &mockFetcher{
		pages: make(map[string]*driven.FetchResult),
		errs:  make(map[string]error),
	}
}

func (m *mockFetcher) serve(url, contentType, body string) {
	m.pages[url] = &driven.FetchResult{URL: url, ContentType: contentType, Body: []byte(body), StatusCode: 200}
}

func (m *mockFetcher) html(url, body string) {
	m.serve(url, "text/html; charset=utf-8", body)
}

func (m *mockFetcher) Fetch(_ context.Context, url string) (*driven.FetchResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fetched = append(m.fetched, url)
	if err, ok := m.errs[url]; ok {
		return nil, err
	}
	if res, ok := m.pages[url]; ok {
		return res, nil
	}
	return nil, fmt.Errorf("%w: 404 %s", domain.ErrFetchFailed, url)
}

func (m *mockFetcher) fetchCount(prefix string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, u := range m.fetched {
		if strings.HasPrefix(u, prefix) {
			n++
		}
	}
	return n
}

// --- Link extractor ---

type mockLinks map[string][]domain.Link

func (m mockLinks) ExtractLinks(_ []byte, baseURL string) ([]domain.Link, error) {
	return m[baseURL], nil
}

func linksTo(urls ...string) []domain.Link {
	links := make([]domain.Link, len(urls))
	for i, u := range urls {
		links[i] = domain.Link{URL: u, Text: fmt.Sprintf("link %d", i)}
	}
	return links
}

// --- Parsers ---

// stubParser echoes the body as content, or serves URL-only inputs
// when urlOnly is set.
type stubParser struct {
	name     string
	types    []domain.SourceType
	urlOnly  bool
	priority int
	err      error
	pages    int

	mu    sync.Mutex
	calls []driven.ParseInput
}

func (p *stubParser) Name() string                     { return p.name }
func (p *stubParser) SourceTypes() []domain.SourceType { return p.types }
func (p *stubParser) Priority() int                    { return p.priority }

func (p *stubParser) Accepts(in driven.ParseInput) bool {
	return p.urlOnly != in.HasBody()
}

func (p *stubParser) Parse(_ context.Context, in driven.ParseInput) ([]domain.Page, error) {
	p.mu.Lock()
	p.calls = append(p.calls, in)
	p.mu.Unlock()
	if p.err != nil {
		return nil, p.err
	}
	n := p.pages
	if n == 0 {
		n = 1
	}
	pages := make([]domain.Page, n)
	for i := range pages {
		content := string(in.Body)
		if !in.HasBody() {
			content = "extracted " + in.Source
		}
		pages[i] = domain.Page{
			Source:     in.Source,
			SourceType: in.SourceType,
			Title:      in.Title,
			Content:    content,
		}
	}
	return pages, nil
}

func (p *stubParser) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.calls)
}

// stubRegistry is a minimal priority registry for service tests.
type stubRegistry struct {
	parsers map[domain.SourceType][]driven.Parser
}

func newStubRegistry(parsers ...driven.Parser) *stubRegistry {
	r := &stubRegistry{parsers: make(map[domain.SourceType][]driven.Parser)}
	for _, p := range parsers {
		r.Register(p)
	}
	return r
}

func (r *stubRegistry) Register(p driven.Parser) {
	for _, st := range p.SourceTypes() {
		r.parsers[st] = append(r.parsers[st], p)
		sort.SliceStable(r.parsers[st], func(i, j int) bool {
			return r.parsers[st][i].Priority() > r.parsers[st][j].Priority()
		})
	}
}

func (r *stubRegistry) Resolve(in driven.ParseInput) (driven.Parser, error) {
	for _, p := range r.parsers[in.SourceType] {
		if p.Accepts(in) {
			return p, nil
		}
	}
	return nil, domain.ErrUnsupportedType
}

func (r *stubRegistry) SourceTypes() []domain.SourceType {
	types := make([]domain.SourceType, 0, len(r.parsers))
	for st := range r.parsers {
		types = append(types, st)
	}
	return types
}

// --- Splitter ---

// windowSplitter cuts fixed byte windows so chunk boundaries are exact.
type windowSplitter struct {
	size, overlap int
}

func (w windowSplitter) SplitText(text string) ([]string, error) {
	var parts []string
	for start := 0; start < len(text); start += w.size - w.overlap {
		end := min(start+w.size, len(text))
		parts = append(parts, text[start:end])
		if end == len(text) {
			break
		}
	}
	return parts, nil
}

type windowFactory struct {
	err error
}

func (f windowFactory) NewSplitter(_ domain.SplitterMethod, size, overlap int) (driven.Splitter, error) {
	if f.err != nil {
		return nil, f.err
	}
	return windowSplitter{size: size, overlap: overlap}, nil
}

// --- Embedding ---

type mockEmbedding struct {
	mu     sync.Mutex
	dims   int
	failOn string
	texts  []string
	delay  time.Duration
}

func (m *mockEmbedding) Embed(ctx context.Context, text string) ([]float32, error) {
	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	m.mu.Lock()
	m.texts = append(m.texts, text)
	m.mu.Unlock()
	if m.failOn != "" && strings.Contains(text, m.failOn) {
		return nil, errors.New("provider unavailable")
	}
	vec := make([]float32, m.dims)
	for i := range vec {
		vec[i] = float32(len(text) + i)
	}
	return vec, nil
}

func (m *mockEmbedding) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := m.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (m *mockEmbedding) Dimensions() int              { return m.dims }
func (m *mockEmbedding) ModelName() string            { return "mock-embed" }
func (m *mockEmbedding) Ping(_ context.Context) error { return nil }
func (m *mockEmbedding) Close() error                 { return nil }

// --- Vector index ---

// mockIndex rejects batches whose vectors do not match dims.
type mockIndex struct {
	mu         sync.Mutex
	dims       int
	nsErr      error
	panicOn    string
	namespaces map[string]map[string]domain.VectorRecord
	matches    []domain.QueryMatch
	lastQuery  domain.QueryRequest
}

func newMockIndex(dims int) *mockIndex {
	return &mockIndex{dims: dims, namespaces: make(map[string]map[string]domain.VectorRecord)}
}

func (m *mockIndex) Namespace(name string) (driven.VectorNamespace, error) {
	if m.nsErr != nil {
		return nil, m.nsErr
	}
	return &mockNamespace{index: m, name: name}, nil
}

func (m *mockIndex) Close() error { return nil }

func (m *mockIndex) count(ns string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.namespaces[ns])
}

type mockNamespace struct {
	index *mockIndex
	name  string
}

func (n *mockNamespace) Upsert(_ context.Context, records []domain.VectorRecord) error {
	for _, r := range records {
		if n.index.panicOn != "" && r.ID == n.index.panicOn {
			panic("client bug")
		}
		if len(r.Values) != n.index.dims {
			return fmt.Errorf("%w: record %s has %d values, want %d",
				domain.ErrDimensionMismatch, r.ID, len(r.Values), n.index.dims)
		}
	}
	n.index.mu.Lock()
	defer n.index.mu.Unlock()
	if n.index.namespaces[n.name] == nil {
		n.index.namespaces[n.name] = make(map[string]domain.VectorRecord)
	}
	for _, r := range records {
		n.index.namespaces[n.name][r.ID] = r
	}
	return nil
}

func (n *mockNamespace) Query(_ context.Context, req domain.QueryRequest) ([]domain.QueryMatch, error) {
	n.index.mu.Lock()
	defer n.index.mu.Unlock()
	n.index.lastQuery = req
	return n.index.matches, nil
}

// --- Config store ---

type mockConfigStore struct {
	values map[string]any
	saved  int
}

func newMockConfigStore(values map[string]any) *mockConfigStore {
	if values == nil {
		values = make(map[string]any)
	}
	return &mockConfigStore{values: values}
}

func (m *mockConfigStore) Get(key string) (any, bool) {
	v, ok := m.values[key]
	return v, ok
}

func (m *mockConfigStore) GetString(key string) string {
	s, _ := m.values[key].(string)
	return s
}

func (m *mockConfigStore) GetInt(key string) int {
	switch v := m.values[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	default:
		return 0
	}
}

func (m *mockConfigStore) GetFloat(key string) float64 {
	switch v := m.values[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	default:
		return 0
	}
}

func (m *mockConfigStore) GetBool(key string) bool {
	b, _ := m.values[key].(bool)
	return b
}

func (m *mockConfigStore) GetDuration(key string) time.Duration {
	d, _ := time.ParseDuration(m.GetString(key))
	return d
}

func (m *mockConfigStore) GetStringSlice(key string) []string {
	s, _ := m.values[key].([]string)
	return s
}

func (m *mockConfigStore) Set(key string, value any) error {
	m.values[key] = value
	return nil
}

func (m *mockConfigStore) Save() error {
	m.saved++
	return nil
}

func (m *mockConfigStore) Load() error  { return nil }
func (m *mockConfigStore) Path() string { return "/tmp/config.toml" }

// Compile-time checks.
var (
	_ driven.Fetcher          = (*mockFetcher)(nil)
	_ driven.LinkExtractor    = mockLinks(nil)
	_ driven.Parser           = (*stubParser)(nil)
	_ driven.ParserRegistry   = (*stubRegistry)(nil)
	_ driven.SplitterFactory  = windowFactory{}
	_ driven.EmbeddingService = (*mockEmbedding)(nil)
	_ driven.VectorIndex      = (*mockIndex)(nil)
	_ driven.ConfigStore      = (*mockConfigStore)(nil)
)

// --- Run store ---

type mockRunStore struct {
	mu   sync.Mutex
	runs []domain.RunRecord
	err  error
}

func (m *mockRunStore) Save(_ context.Context, run domain.RunRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.runs = append(m.runs, run)
	return nil
}

func (m *mockRunStore) Get(_ context.Context, id string) (*domain.RunRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.runs {
		if r.ID == id {
			return &r, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockRunStore) List(_ context.Context, limit int) ([]domain.RunRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	out := make([]domain.RunRecord, 0, len(m.runs))
	for i := len(m.runs) - 1; i >= 0 && (limit <= 0 || len(out) < limit); i-- {
		out = append(out, m.runs[i])
	}
	return out, nil
}
