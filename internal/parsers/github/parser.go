package github

import (
	"context"
	"fmt"

	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
	"github.com/custodia-labs/sercha-ingest/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-ingest/internal/logger"
)

// Ensure Parser implements the interface.
var _ driven.Parser = (*Parser)(nil)

// Parser turns a repository URL into one page per text file.
type Parser struct {
	client *Client
	opts   Options
}

// New creates a GitHub parser.
func New(client *Client, opts Options) *Parser {
	return &Parser{client: client, opts: opts}
}

// Name identifies the parser in logs.
func (p *Parser) Name() string { return "github" }

// SourceTypes returns the source types this parser handles.
func (p *Parser) SourceTypes() []domain.SourceType {
	return []domain.SourceType{domain.SourceTypeGitHub}
}

// Priority returns the selection priority.
func (p *Parser) Priority() int {
	return 90
}

// Accepts takes github.com repository URLs without a body.
func (p *Parser) Accepts(in driven.ParseInput) bool {
	if p.client == nil || in.HasBody() {
		return false
	}
	_, err := ParseRepoURL(in.Source)
	return err == nil
}

// Parse walks the repository tree and reads each text file.
func (p *Parser) Parse(ctx context.Context, in driven.ParseInput) ([]domain.Page, error) {
	if in.Source == "" {
		return nil, domain.ErrInvalidInput
	}
	ref, err := ParseRepoURL(in.Source)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}

	branch := ref.Ref
	if branch == "" {
		repo, err := p.client.GetRepository(ctx, ref.Owner, ref.Repo)
		if err != nil {
			return nil, err
		}
		branch = repo.GetDefaultBranch()
		if branch == "" {
			branch = "main"
		}
	}

	files, err := fetchFiles(ctx, p.client, ref, branch, p.opts)
	if err != nil && len(files) == 0 {
		return nil, err
	}
	if err != nil {
		logger.Warn("github: %s/%s walk stopped early: %v", ref.Owner, ref.Repo, err)
	}
	logger.Debug("github: read %d files from %s/%s@%s", len(files), ref.Owner, ref.Repo, branch)

	pages := make([]domain.Page, 0, len(files))
	for _, f := range files {
		pages = append(pages, domain.Page{
			Source:     ref.FileURL(branch, f.Path),
			SourceType: domain.SourceTypeGitHub,
			Title:      f.Path,
			Content:    f.Content,
			Metadata: map[string]any{
				"format": "github",
				"owner":  ref.Owner,
				"repo":   ref.Repo,
				"branch": branch,
				"path":   f.Path,
				"sha":    f.SHA,
				"size":   f.Size,
			},
		})
	}
	return pages, nil
}
