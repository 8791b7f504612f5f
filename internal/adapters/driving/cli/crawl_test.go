package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
)

func TestCrawlCmd_Use(t *testing.T) {
	assert.Equal(t, "crawl <url|path>", crawlCmd.Use)
}

func TestCrawlCmd_RequiresExactlyOneArg(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	_, err := executeCommand("crawl")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg(s)")
}

func TestCrawlCmd_Flags(t *testing.T) {
	for _, name := range []string{"json", "source-type", "title", "scope", "max-depth", "max-pages"} {
		assert.NotNil(t, crawlCmd.Flags().Lookup(name), name)
	}
}

func TestCrawlCmd_URL(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	ts.crawler.pages = []domain.Page{
		{Source: "https://example.com", SourceType: domain.SourceTypeWeb, Title: "Example", Content: "Hello world"},
	}

	out, err := executeCommand("crawl", "https://example.com")

	require.NoError(t, err)
	assert.Contains(t, out, "Found 1 page(s)")
	assert.Contains(t, out, "1. Example")
	assert.Contains(t, out, "Source: https://example.com (web)")
	assert.Contains(t, out, "Hello world")

	require.Len(t, ts.crawler.seeds, 1)
	assert.Equal(t, "https://example.com", ts.crawler.seeds[0].Resource.URL)
	assert.Equal(t, domain.DefaultMaxDepth, ts.crawler.opts.MaxDepth)
	assert.Equal(t, []Needs{NeedCrawl}, ts.needs)
	assert.Equal(t, 1, ts.closed)
}

func TestCrawlCmd_FlagsApplied(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()

	_, err := executeCommand("crawl", "https://example.com/docs",
		"--max-depth", "2", "--max-pages", "20",
		"--source-type", "markdown", "--title", "Docs", "--scope", "main")

	require.NoError(t, err)
	require.Len(t, ts.crawler.seeds, 1)
	seed := ts.crawler.seeds[0]
	assert.Equal(t, domain.SourceTypeMD, seed.SourceType)
	assert.Equal(t, "Docs", seed.Title)
	assert.Equal(t, "main", seed.Scope)
	assert.Equal(t, 2, ts.crawler.opts.MaxDepth)
	assert.Equal(t, 20, ts.crawler.opts.MaxPages)
}

func TestCrawlCmd_MaxDepthZero(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()

	_, err := executeCommand("crawl", "https://example.com/docs", "--max-depth", "0")

	require.NoError(t, err)
	assert.Equal(t, 0, ts.crawler.opts.MaxDepth)
}

func TestCrawlCmd_LocalFile(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()

	path := filepath.Join(t.TempDir(), "notes.md")
	require.NoError(t, os.WriteFile(path, []byte("# Notes\n\nbody"), 0o600))

	_, err := executeCommand("crawl", path)

	require.NoError(t, err)
	require.Len(t, ts.crawler.seeds, 1)
	res := ts.crawler.seeds[0].Resource
	require.True(t, res.IsFile())
	assert.Equal(t, "notes.md", res.File.Name)
	assert.Equal(t, "# Notes\n\nbody", string(res.File.Data))
}

func TestCrawlCmd_JSON(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	ts.crawler.pages = []domain.Page{
		{Source: "https://example.com/a", SourceType: domain.SourceTypeWeb, Title: "A", Content: "a"},
		{Source: "https://example.com/b", SourceType: domain.SourceTypeWeb, Title: "B", Content: "b"},
	}

	out, err := executeCommand("crawl", "https://example.com", "--json")

	require.NoError(t, err)
	var pages []domain.Page
	require.NoError(t, json.Unmarshal([]byte(out), &pages))
	require.Len(t, pages, 2)
	assert.Equal(t, "B", pages[1].Title)
}

func TestCrawlCmd_NoPages(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	out, err := executeCommand("crawl", "https://example.com")

	require.NoError(t, err)
	assert.Contains(t, out, "No pages found.")
}

func TestCrawlCmd_Errors(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		crawl   error
		wantErr error
		wantMsg string
	}{
		{
			name:    "unknown source type",
			args:    []string{"crawl", "https://example.com", "--source-type", "exe"},
			wantErr: domain.ErrUnsupportedType,
		},
		{
			name:    "neither file nor URL",
			args:    []string{"crawl", "does-not-exist.txt"},
			wantErr: domain.ErrInvalidInput,
		},
		{
			name:    "crawler error",
			args:    []string{"crawl", "https://example.com"},
			crawl:   errBoom,
			wantErr: errBoom,
			wantMsg: "crawl failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts, cleanup := setupTestServices()
			defer cleanup()
			ts.crawler.err = tt.crawl

			_, err := executeCommand(tt.args...)

			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
			if tt.wantMsg != "" {
				assert.Contains(t, err.Error(), tt.wantMsg)
			}
		})
	}
}

func TestPreviewText(t *testing.T) {
	assert.Equal(t, "a b c", previewText("a\n\n b\tc "))

	long := strings.Repeat("é", previewLength)
	got := previewText(long)
	assert.True(t, strings.HasSuffix(got, "..."))
	assert.LessOrEqual(t, len(got), previewLength+3)
	assert.True(t, strings.HasPrefix(long, strings.TrimSuffix(got, "...")))
}
