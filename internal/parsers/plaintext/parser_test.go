package plaintext

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
	"github.com/custodia-labs/sercha-ingest/internal/core/ports/driven"
)

func TestParser_Metadata(t *testing.T) {
	p := New()
	assert.Equal(t, "plaintext", p.Name())
	assert.Equal(t, []domain.SourceType{domain.SourceTypeTXT}, p.SourceTypes())
	assert.Equal(t, 50, p.Priority())
	assert.False(t, p.Accepts(driven.ParseInput{Source: "https://example.com/a.txt"}))
}

func TestParse(t *testing.T) {
	in := driven.ParseInput{
		Source:     "https://example.com/release_notes.txt",
		SourceType: domain.SourceTypeTXT,
		Body:       []byte("\r\nVersion 2\r\n\r\n- faster\r\n"),
	}

	pages, err := New().Parse(context.Background(), in)
	require.NoError(t, err)
	require.Len(t, pages, 1)
	assert.Equal(t, "Version 2\n\n- faster", pages[0].Content)
	assert.Equal(t, "release notes", pages[0].Title)
	assert.Equal(t, domain.SourceTypeTXT, pages[0].SourceType)
	assert.Equal(t, "text", pages[0].Metadata["format"])
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		body []byte
		want error
	}{
		{"empty", []byte{}, domain.ErrInvalidInput},
		{"nil", nil, domain.ErrInvalidInput},
		{"binary", []byte{0x89, 'P', 'N', 'G', 0, 0}, domain.ErrInvalidInput},
		{"whitespace", []byte(" \n\t "), domain.ErrEmptyBody},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New().Parse(context.Background(), driven.ParseInput{Source: "a.txt", Body: tt.body})
			assert.ErrorIs(t, err, tt.want)
		})
	}
}
