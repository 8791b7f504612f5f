package parsers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
	"github.com/custodia-labs/sercha-ingest/internal/core/ports/driven"
)

type fakeParser struct {
	name     string
	types    []domain.SourceType
	priority int
	urlOnly  bool
}

func (p *fakeParser) Name() string                     { return p.name }
func (p *fakeParser) SourceTypes() []domain.SourceType { return p.types }
func (p *fakeParser) Priority() int                    { return p.priority }
func (p *fakeParser) Accepts(in driven.ParseInput) bool {
	return p.urlOnly != in.HasBody()
}
func (p *fakeParser) Parse(_ context.Context, in driven.ParseInput) ([]domain.Page, error) {
	return []domain.Page{{Source: in.Source}}, nil
}

func TestRegistry_ResolveByPriority(t *testing.T) {
	r := NewRegistry()
	low := &fakeParser{name: "low", types: []domain.SourceType{domain.SourceTypePDF}, priority: 50}
	high := &fakeParser{name: "high", types: []domain.SourceType{domain.SourceTypePDF}, priority: 60}
	r.Register(low)
	r.Register(high)

	p, err := r.Resolve(driven.ParseInput{SourceType: domain.SourceTypePDF, Body: []byte("x")})
	require.NoError(t, err)
	assert.Equal(t, "high", p.Name())
}

func TestRegistry_ResolveByShape(t *testing.T) {
	r := NewRegistry()
	remote := &fakeParser{name: "remote", types: []domain.SourceType{domain.SourceTypePDF}, priority: 90, urlOnly: true}
	local := &fakeParser{name: "local", types: []domain.SourceType{domain.SourceTypePDF}, priority: 50}
	r.Register(remote)
	r.Register(local)

	p, err := r.Resolve(driven.ParseInput{SourceType: domain.SourceTypePDF})
	require.NoError(t, err)
	assert.Equal(t, "remote", p.Name())

	p, err = r.Resolve(driven.ParseInput{SourceType: domain.SourceTypePDF, Body: []byte("%PDF")})
	require.NoError(t, err)
	assert.Equal(t, "local", p.Name())
}

func TestRegistry_Unsupported(t *testing.T) {
	r := NewRegistry()
	r.Register(&fakeParser{name: "html", types: []domain.SourceType{domain.SourceTypeWeb}, priority: 50})

	_, err := r.Resolve(driven.ParseInput{SourceType: domain.SourceTypeAudio, Body: []byte("x")})
	assert.ErrorIs(t, err, domain.ErrUnsupportedType)

	_, err = r.Resolve(driven.ParseInput{SourceType: domain.SourceTypeWeb})
	assert.ErrorIs(t, err, domain.ErrUnsupportedType)
}

func TestRegistry_SourceTypes(t *testing.T) {
	r := NewRegistry()
	assert.Empty(t, r.SourceTypes())

	r.Register(&fakeParser{name: "text", types: []domain.SourceType{domain.SourceTypeMD, domain.SourceTypeTXT}})
	r.Register(&fakeParser{name: "html", types: []domain.SourceType{domain.SourceTypeWeb}})

	assert.Equal(t, []domain.SourceType{domain.SourceTypeWeb, domain.SourceTypeMD, domain.SourceTypeTXT}, r.SourceTypes())
	assert.Len(t, r.Parsers(domain.SourceTypeMD), 1)
}

func TestTitleFromSource(t *testing.T) {
	tests := []struct {
		source string
		want   string
	}{
		{"https://example.com", "example.com"},
		{"https://example.com/", "example.com"},
		{"https://example.com/docs/getting_started.html", "getting started"},
		{"https://example.com/blog/my-post/", "my post"},
		{"file://report-2024.pdf", "report 2024"},
		{"/home/user/notes.md", "notes"},
		{"README", "README"},
	}

	for _, tt := range tests {
		t.Run(tt.source, func(t *testing.T) {
			assert.Equal(t, tt.want, TitleFromSource(tt.source))
		})
	}
}

func TestNewPage(t *testing.T) {
	in := driven.ParseInput{
		Source:      "https://example.com/guide.txt",
		SourceType:  domain.SourceTypeTXT,
		ContentType: "text/plain",
	}

	page := NewPage(in, "", "body", "text")
	assert.Equal(t, "guide", page.Title)
	assert.Equal(t, "text", page.Metadata["format"])
	assert.Equal(t, "text/plain", page.Metadata["mime_type"])

	in.Title = "Given"
	page = NewPage(in, "Found", "body", "text")
	assert.Equal(t, "Given", page.Title)
}

func TestIsBinary(t *testing.T) {
	assert.False(t, IsBinary([]byte("plain text, ünïcode")))
	assert.True(t, IsBinary([]byte{'a', 0, 'b'}))
	assert.True(t, IsBinary([]byte{0xff, 0xfe, 0xfd}))
	assert.False(t, IsBinary(nil))
}

func TestNormalizeNewlines(t *testing.T) {
	assert.Equal(t, "a\nb\nc", NormalizeNewlines("a\r\nb\rc"))
}
