// Package defaults wires the built-in parsers into a registry.
package defaults

import (
	"github.com/custodia-labs/sercha-ingest/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-ingest/internal/parsers"
	"github.com/custodia-labs/sercha-ingest/internal/parsers/audio"
	"github.com/custodia-labs/sercha-ingest/internal/parsers/csv"
	"github.com/custodia-labs/sercha-ingest/internal/parsers/docx"
	"github.com/custodia-labs/sercha-ingest/internal/parsers/github"
	"github.com/custodia-labs/sercha-ingest/internal/parsers/html"
	"github.com/custodia-labs/sercha-ingest/internal/parsers/image"
	"github.com/custodia-labs/sercha-ingest/internal/parsers/markdown"
	"github.com/custodia-labs/sercha-ingest/internal/parsers/pdf"
	"github.com/custodia-labs/sercha-ingest/internal/parsers/plaintext"
	"github.com/custodia-labs/sercha-ingest/internal/parsers/remote"
	"github.com/custodia-labs/sercha-ingest/internal/parsers/youtube"
)

// Dependencies are the collaborators of the parsers that reach outside
// the process. Any of them may be nil; the parser that needs it then
// declines every input.
type Dependencies struct {
	Fetcher       driven.Fetcher
	Extractor     driven.Extractor
	GitHub        *github.Client
	GitHubOptions github.Options
	Transcriber   audio.Transcriber
	Recognizer    image.Recognizer
}

// RegisterDefaults registers all built-in parsers with the registry.
func RegisterDefaults(r *parsers.Registry, deps Dependencies) {
	r.Register(html.New())
	r.Register(plaintext.New())
	r.Register(markdown.New())
	r.Register(pdf.New())
	r.Register(docx.New())
	r.Register(csv.New())
	r.Register(remote.New(deps.Extractor))
	r.Register(audio.New(deps.Transcriber))
	r.Register(image.New(deps.Recognizer))
	r.Register(github.New(deps.GitHub, deps.GitHubOptions))
	r.Register(youtube.New(deps.Fetcher))
}

// NewRegistry returns a registry with the built-in parsers.
func NewRegistry(deps Dependencies) *parsers.Registry {
	r := parsers.NewRegistry()
	RegisterDefaults(r, deps)
	return r
}
