package manifest

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
)

const sample = `
namespace: handbook
schedule: "0 3 * * *"
crawl:
  max_depth: 2
  max_pages: 50
  same_host_only: true
  request_timeout: 10s
prepare:
  splitter: markdown
  chunk_size: 500
  chunk_overlap: 50
seeds:
  - url: https://example.com/docs
    title: Docs
    scope: main
  - path: notes/setup.md
  - url: https://example.com/report
    source_type: word
`

func writeManifest(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "seeds.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "notes"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes", "setup.md"), []byte("# Setup\n\nRun it."), 0o600))

	m, err := Load(writeManifest(t, dir, sample))
	require.NoError(t, err)

	assert.Equal(t, "handbook", m.Namespace)
	assert.Equal(t, "0 3 * * *", m.Schedule)
	require.Len(t, m.Seeds, 3)

	req, err := m.Request(domain.DefaultCrawlOptions(), domain.DefaultPrepareOptions())
	require.NoError(t, err)

	assert.Equal(t, "handbook", req.Namespace)
	require.Len(t, req.Seeds, 3)

	assert.Equal(t, "https://example.com/docs", req.Seeds[0].Resource.URL)
	assert.Equal(t, "Docs", req.Seeds[0].Title)
	assert.Equal(t, "main", req.Seeds[0].Scope)

	require.True(t, req.Seeds[1].Resource.IsFile())
	assert.Equal(t, "setup.md", req.Seeds[1].Resource.File.Name)
	assert.Equal(t, "# Setup\n\nRun it.", string(req.Seeds[1].Resource.File.Data))

	assert.Equal(t, domain.SourceTypeDOCX, req.Seeds[2].SourceType)

	assert.Equal(t, 2, req.Crawl.MaxDepth)
	assert.Equal(t, 50, req.Crawl.MaxPages)
	assert.True(t, req.Crawl.SameHostOnly)
	assert.Equal(t, 10*time.Second, req.Crawl.RequestTimeout)
	assert.Equal(t, domain.DefaultTruncateBytes, req.Crawl.TruncateBytesAmount)

	assert.Equal(t, domain.SplitterMarkdown, req.Prepare.SplitterMethod)
	assert.Equal(t, 500, req.Prepare.ChunkSize)
	assert.Equal(t, 50, req.Prepare.ChunkOverlap)
	assert.True(t, req.Prepare.ApplyHash)
}

func TestRequest_NoOverridesKeepsDefaults(t *testing.T) {
	m, err := Parse([]byte("seeds:\n  - url: https://example.com\n"), "")
	require.NoError(t, err)

	crawl := domain.DefaultCrawlOptions()
	prepare := domain.DefaultPrepareOptions()
	req, err := m.Request(crawl, prepare)

	require.NoError(t, err)
	assert.Equal(t, crawl, req.Crawl)
	assert.Equal(t, prepare, req.Prepare)
	assert.Empty(t, req.Namespace)
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"not yaml", "seeds: [unclosed"},
		{"no seeds", "namespace: x\n"},
		{"url and path", "seeds:\n  - url: https://a.com\n    path: a.md\n"},
		{"neither url nor path", "seeds:\n  - title: nothing\n"},
		{"unknown type", "seeds:\n  - url: https://a.com\n    source_type: spreadsheet\n"},
		{"bad schedule", "schedule: every day\nseeds:\n  - url: https://a.com\n"},
		{"bad timeout", "crawl:\n  request_timeout: soon\nseeds:\n  - url: https://a.com\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.content), "")

			assert.ErrorIs(t, err, domain.ErrInvalidConfig)
		})
	}
}

func TestRequest_MissingFile(t *testing.T) {
	m, err := Parse([]byte("seeds:\n  - path: nope.md\n"), t.TempDir())
	require.NoError(t, err)

	_, err = m.Request(domain.DefaultCrawlOptions(), domain.DefaultPrepareOptions())

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestFileResource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.PDF")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4"), 0o600))

	res, err := FileResource(path)

	require.NoError(t, err)
	require.True(t, res.IsFile())
	assert.Equal(t, "report.PDF", res.File.Name)
	assert.Equal(t, "application/pdf", res.File.MIMEType)
}
