package markdown

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
	"github.com/custodia-labs/sercha-ingest/internal/core/ports/driven"
)

func mdInput(body string) driven.ParseInput {
	return driven.ParseInput{
		Source:     "https://example.com/docs/setup-guide.md",
		SourceType: domain.SourceTypeMD,
		Body:       []byte(body),
	}
}

func TestParser_Metadata(t *testing.T) {
	p := New()
	assert.Equal(t, "markdown", p.Name())
	assert.Equal(t, []domain.SourceType{domain.SourceTypeMD}, p.SourceTypes())
	assert.True(t, p.Accepts(mdInput("# x")))
}

func TestParse_FrontMatter(t *testing.T) {
	body := "---\ntitle: Setup\ndescription: Local setup steps\nweight: 3\ndraft: false\ntags: [a, b]\n---\n# Heading\n\nRun `make`.\n"

	pages, err := New().Parse(context.Background(), mdInput(body))
	require.NoError(t, err)
	require.Len(t, pages, 1)

	page := pages[0]
	assert.Equal(t, "Setup", page.Title)
	assert.Equal(t, "Local setup steps", page.Description)
	assert.Equal(t, "# Heading\n\nRun `make`.", page.Content)
	assert.Equal(t, 3, page.Metadata["weight"])
	assert.Equal(t, false, page.Metadata["draft"])
	assert.NotContains(t, page.Metadata, "tags")
	assert.Equal(t, "markdown", page.Metadata["format"])
}

func TestParse_TitleFromHeading(t *testing.T) {
	body := "Intro line\n\n## Sub\n\n# The **Real** Title\n\ntext"

	pages, err := New().Parse(context.Background(), mdInput(body))
	require.NoError(t, err)
	assert.Equal(t, "The Real Title", pages[0].Title)
	assert.Empty(t, pages[0].Description)
}

func TestParse_TitleFromSource(t *testing.T) {
	pages, err := New().Parse(context.Background(), mdInput("no headings here\r\nat all"))
	require.NoError(t, err)
	assert.Equal(t, "setup guide", pages[0].Title)
	assert.Equal(t, "no headings here\nat all", pages[0].Content)
}

func TestParse_MalformedFrontMatterKept(t *testing.T) {
	body := "---\ntitle: [unclosed\n---\nbody"

	pages, err := New().Parse(context.Background(), mdInput(body))
	require.NoError(t, err)
	assert.Contains(t, pages[0].Content, "title: [unclosed")
}

func TestParse_Errors(t *testing.T) {
	_, err := New().Parse(context.Background(), mdInput(""))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = New().Parse(context.Background(), mdInput("---\ntitle: Only\n---\n"))
	assert.ErrorIs(t, err, domain.ErrEmptyBody)
}

func TestSplitFrontMatter(t *testing.T) {
	tests := []struct {
		name      string
		src       string
		wantFront string
		wantBody  string
	}{
		{"none", "# Title\n", "", "# Title\n"},
		{"fenced", "---\na: 1\n---\nbody\n", "a: 1", "body\n"},
		{"unterminated", "---\na: 1\nbody", "", "---\na: 1\nbody"},
		{"fence at end", "---\na: 1\n---", "a: 1", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			front, body := splitFrontMatter(tt.src)
			assert.Equal(t, tt.wantFront, front)
			assert.Equal(t, tt.wantBody, body)
		})
	}
}
