package github

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
	"github.com/custodia-labs/sercha-ingest/internal/core/ports/driven"
)

type fakeBlob struct {
	path    string
	content []byte
	size    int
}

func newFakeGitHub(t *testing.T, blobs []fakeBlob) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/repos/acme/widgets", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"name":           "widgets",
			"default_branch": "main",
			"owner":          map[string]any{"login": "acme"},
		})
	})
	mux.HandleFunc("/repos/acme/widgets/git/trees/main", func(w http.ResponseWriter, r *http.Request) {
		entries := []map[string]any{{"path": "docs", "type": "tree", "sha": "dir"}}
		for i, b := range blobs {
			size := b.size
			if size == 0 {
				size = len(b.content)
			}
			entries = append(entries, map[string]any{
				"path": b.path,
				"type": "blob",
				"sha":  shaFor(i),
				"size": size,
			})
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"sha": "root", "tree": entries})
	})
	for i, b := range blobs {
		content := b.content
		mux.HandleFunc("/repos/acme/widgets/git/blobs/"+shaFor(i), func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(map[string]any{
				"encoding": "base64",
				"content":  base64.StdEncoding.EncodeToString(content),
			})
		})
	}
	mux.HandleFunc("/repos/acme/missing", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]any{"message": "Not Found"})
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func shaFor(i int) string {
	return "sha" + string(rune('a'+i))
}

func newTestParser(t *testing.T, srv *httptest.Server, opts Options) *Parser {
	t.Helper()
	client, err := NewClientWithHTTPClient(srv.Client(), srv.URL, 0)
	require.NoError(t, err)
	return New(client, opts)
}

func TestParser_Shape(t *testing.T) {
	p := New(nil, Options{})
	assert.Equal(t, "github", p.Name())
	assert.Equal(t, []domain.SourceType{domain.SourceTypeGitHub}, p.SourceTypes())
	assert.Equal(t, 90, p.Priority())
	assert.False(t, p.Accepts(driven.ParseInput{Source: "https://github.com/acme/widgets"}))
}

func TestParser_Accepts(t *testing.T) {
	srv := newFakeGitHub(t, nil)
	p := newTestParser(t, srv, Options{})

	assert.True(t, p.Accepts(driven.ParseInput{Source: "https://github.com/acme/widgets"}))
	assert.False(t, p.Accepts(driven.ParseInput{Source: "https://github.com/acme"}))
	assert.False(t, p.Accepts(driven.ParseInput{Source: "https://gitlab.com/acme/widgets"}))
	assert.False(t, p.Accepts(driven.ParseInput{Source: "https://github.com/acme/widgets", Body: []byte("x")}))
}

func TestParser_Parse(t *testing.T) {
	srv := newFakeGitHub(t, []fakeBlob{
		{path: "README.md", content: []byte("# Widgets\r\nBuild widgets.")},
		{path: "docs/guide.md", content: []byte("Guide text")},
		{path: "logo.png", content: []byte("\x89PNG")},
		{path: "data.txt", content: []byte("a\x00b")},
		{path: "huge.txt", content: []byte("big"), size: MaxFileSize + 1},
		{path: "empty.txt", content: []byte("   ")},
	})
	p := newTestParser(t, srv, Options{})

	pages, err := p.Parse(context.Background(), driven.ParseInput{
		Source:     "https://github.com/acme/widgets",
		SourceType: domain.SourceTypeGitHub,
	})
	require.NoError(t, err)
	require.Len(t, pages, 2)

	assert.Equal(t, "README.md", pages[0].Title)
	assert.Equal(t, "# Widgets\nBuild widgets.", pages[0].Content)
	assert.Equal(t, "https://github.com/acme/widgets/blob/main/README.md", pages[0].Source)
	assert.Equal(t, domain.SourceTypeGitHub, pages[0].SourceType)
	assert.Equal(t, "acme", pages[0].Metadata["owner"])
	assert.Equal(t, "widgets", pages[0].Metadata["repo"])
	assert.Equal(t, "main", pages[0].Metadata["branch"])
	assert.Equal(t, "shaa", pages[0].Metadata["sha"])

	assert.Equal(t, "docs/guide.md", pages[1].Title)
}

func TestParser_ParseFilters(t *testing.T) {
	blobs := []fakeBlob{
		{path: "README.md", content: []byte("readme")},
		{path: "docs/guide.md", content: []byte("guide")},
		{path: "docs/api.txt", content: []byte("api")},
		{path: "main.go", content: []byte("package main")},
	}

	tests := []struct {
		name   string
		source string
		opts   Options
		want   []string
	}{
		{"include", "https://github.com/acme/widgets", Options{Include: []string{"*.md"}}, []string{"README.md", "docs/guide.md"}},
		{"exclude", "https://github.com/acme/widgets", Options{Exclude: []string{"*.go", "docs/*"}}, []string{"README.md"}},
		{"max files", "https://github.com/acme/widgets", Options{MaxFiles: 2}, []string{"README.md", "docs/guide.md"}},
		{"directory", "https://github.com/acme/widgets/tree/main/docs", Options{}, []string{"docs/guide.md", "docs/api.txt"}},
		{"single file", "https://github.com/acme/widgets/blob/main/main.go", Options{}, []string{"main.go"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newFakeGitHub(t, blobs)
			p := newTestParser(t, srv, tt.opts)

			pages, err := p.Parse(context.Background(), driven.ParseInput{Source: tt.source})
			require.NoError(t, err)

			titles := make([]string, 0, len(pages))
			for _, page := range pages {
				titles = append(titles, page.Title)
			}
			assert.Equal(t, tt.want, titles)
		})
	}
}

func TestParser_ParseErrors(t *testing.T) {
	srv := newFakeGitHub(t, nil)
	p := newTestParser(t, srv, Options{})

	_, err := p.Parse(context.Background(), driven.ParseInput{})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = p.Parse(context.Background(), driven.ParseInput{Source: "https://example.com/x"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = p.Parse(context.Background(), driven.ParseInput{Source: "https://github.com/acme/missing"})
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestParseRepoURL(t *testing.T) {
	tests := []struct {
		raw  string
		want RepoRef
	}{
		{"https://github.com/acme/widgets", RepoRef{Owner: "acme", Repo: "widgets"}},
		{"https://www.github.com/acme/widgets.git", RepoRef{Owner: "acme", Repo: "widgets"}},
		{"https://github.com/acme/widgets/tree/dev/docs/api", RepoRef{Owner: "acme", Repo: "widgets", Ref: "dev", Path: "docs/api"}},
		{"https://github.com/acme/widgets/blob/v1/README.md", RepoRef{Owner: "acme", Repo: "widgets", Ref: "v1", Path: "README.md", IsFile: true}},
		{"https://github.com/acme/widgets/issues/4", RepoRef{Owner: "acme", Repo: "widgets"}},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParseRepoURL(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	for _, raw := range []string{"https://github.com/acme", "https://example.com/acme/widgets", "::"} {
		_, err := ParseRepoURL(raw)
		assert.ErrorIs(t, err, ErrNotRepository, raw)
	}
}

func TestRateLimiter_UpdateFromResponse(t *testing.T) {
	rl := NewRateLimiter(0)
	assert.Equal(t, -1, rl.Remaining())

	resp := &http.Response{Header: http.Header{}}
	resp.Header.Set("X-RateLimit-Remaining", "42")
	resp.Header.Set("X-RateLimit-Limit", "5000")
	resp.Header.Set("X-RateLimit-Reset", "1700000000")
	rl.UpdateFromResponse(resp)

	assert.Equal(t, 42, rl.Remaining())
	assert.Equal(t, 5000, rl.Limit())
	assert.Equal(t, int64(1700000000), rl.ResetTime().Unix())
	assert.NoError(t, rl.Wait(context.Background()))
}

func TestErrors(t *testing.T) {
	rl := &RateLimitError{Limit: 60}
	assert.ErrorIs(t, rl, domain.ErrRateLimited)
	assert.True(t, IsRateLimited(rl))

	apiErr := &APIError{StatusCode: 500, Message: "boom"}
	assert.ErrorIs(t, apiErr, domain.ErrFetchFailed)
	assert.False(t, IsNotFound(apiErr))
	assert.Contains(t, apiErr.Error(), "500")
}
