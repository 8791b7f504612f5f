package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
	"github.com/custodia-labs/sercha-ingest/internal/core/ports/driving"
)

// defaultTopK is used when the query tool is called without top_k.
const defaultTopK = 5

// SeedInput names one resource: a URL, or inline file content.
type SeedInput struct {
	URL        string `json:"url,omitempty" jsonschema:"URL to crawl (http, https or s3)"`
	Content    string `json:"content,omitempty" jsonschema:"inline file content, used instead of url"`
	FileName   string `json:"file_name,omitempty" jsonschema:"file name for inline content; its extension picks the parser"`
	SourceType string `json:"source_type,omitempty" jsonschema:"web, pdf, docx, csv, md, txt, audio, image, github or youtube; inferred when empty"`
	Title      string `json:"title,omitempty" jsonschema:"title for the seed page"`
	Scope      string `json:"scope,omitempty" jsonschema:"CSS selector restricting HTML extraction"`
}

// CrawlInput is the input schema for the crawl tool.
type CrawlInput struct {
	URL        string `json:"url,omitempty" jsonschema:"URL to crawl (http, https or s3)"`
	Content    string `json:"content,omitempty" jsonschema:"inline file content, used instead of url"`
	FileName   string `json:"file_name,omitempty" jsonschema:"file name for inline content; its extension picks the parser"`
	SourceType string `json:"source_type,omitempty" jsonschema:"source type; inferred when empty"`
	Title      string `json:"title,omitempty" jsonschema:"title for the seed page"`
	Scope      string `json:"scope,omitempty" jsonschema:"CSS selector restricting HTML extraction"`
	MaxDepth   *int   `json:"max_depth,omitempty" jsonschema:"maximum link hops from the seed; 0 fetches only the seed"`
	MaxPages   int    `json:"max_pages,omitempty" jsonschema:"maximum pages returned"`
}

// PageOutput is one crawled page.
type PageOutput struct {
	Source      string         `json:"source"`
	SourceType  string         `json:"source_type"`
	Title       string         `json:"title"`
	Description string         `json:"description,omitempty"`
	Content     string         `json:"content"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// CrawlOutput is the output schema for the crawl tool.
type CrawlOutput struct {
	Pages []PageOutput `json:"pages"`
	Count int          `json:"count"`
}

// IngestInput is the input schema for the ingest tool.
type IngestInput struct {
	Seeds     []SeedInput `json:"seeds" jsonschema:"resources to ingest"`
	Namespace string      `json:"namespace,omitempty" jsonschema:"target namespace; the configured default when empty"`
	MaxDepth  *int        `json:"max_depth,omitempty" jsonschema:"maximum link hops from each seed; 0 fetches only the seeds"`
	MaxPages  int         `json:"max_pages,omitempty" jsonschema:"maximum pages per seed"`
}

// IngestOutput is the output schema for the ingest tool.
type IngestOutput struct {
	RunID         string   `json:"run_id"`
	Namespace     string   `json:"namespace"`
	Pages         int      `json:"pages"`
	Chunks        int      `json:"chunks"`
	Upserted      int      `json:"upserted"`
	FailedBatches []string `json:"failed_batches,omitempty"`
}

// QueryInput is the input schema for the query tool.
type QueryInput struct {
	Text      string         `json:"text" jsonschema:"natural language query"`
	Namespace string         `json:"namespace,omitempty" jsonschema:"namespace to search"`
	TopK      int            `json:"top_k,omitempty" jsonschema:"number of matches (default 5)"`
	Filter    map[string]any `json:"filter,omitempty" jsonschema:"metadata equality filter"`
}

// MatchOutput is one query match.
type MatchOutput struct {
	ID       string         `json:"id"`
	Score    float64        `json:"score"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// QueryOutput is the output schema for the query tool.
type QueryOutput struct {
	Matches []MatchOutput `json:"matches"`
	Count   int           `json:"count"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "crawl",
		Description: "Crawl a URL or inline file and return the parsed pages without indexing them",
	}, s.handleCrawl)

	if s.ports.Ingest != nil {
		mcp.AddTool(s.server, &mcp.Tool{
			Name:        "ingest",
			Description: "Crawl, chunk, embed and upsert resources into the vector index",
		}, s.handleIngest)
	}

	if s.ports.Query != nil {
		mcp.AddTool(s.server, &mcp.Tool{
			Name:        "query",
			Description: "Search a namespace of the vector index by meaning",
		}, s.handleQuery)
	}
}

func (in SeedInput) seed() (driving.CrawlSeed, error) {
	seed := driving.CrawlSeed{Title: in.Title, Scope: in.Scope}
	if in.SourceType != "" {
		st, err := domain.ParseSourceType(in.SourceType)
		if err != nil {
			return seed, fmt.Errorf("%w: source_type %q", domain.ErrInvalidInput, in.SourceType)
		}
		seed.SourceType = st
	}
	switch {
	case in.Content != "":
		name := in.FileName
		if name == "" {
			name = "inline.txt"
		}
		seed.Resource = domain.FileResource(name, "", []byte(in.Content))
	case in.URL != "":
		seed.Resource = domain.URLResource(in.URL)
	default:
		return seed, fmt.Errorf("%w: url or content is required", domain.ErrInvalidInput)
	}
	return seed, nil
}

func (s *Server) crawlOptions(maxDepth *int, maxPages int) domain.CrawlOptions {
	opts := s.ports.CrawlDefaults
	if maxDepth != nil {
		opts.MaxDepth = *maxDepth
	}
	if maxPages > 0 {
		opts.MaxPages = maxPages
	}
	return opts.Normalize()
}

// handleCrawl handles the crawl tool invocation.
func (s *Server) handleCrawl(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input CrawlInput,
) (*mcp.CallToolResult, CrawlOutput, error) {
	seed, err := SeedInput{
		URL:        input.URL,
		Content:    input.Content,
		FileName:   input.FileName,
		SourceType: input.SourceType,
		Title:      input.Title,
		Scope:      input.Scope,
	}.seed()
	if err != nil {
		return nil, CrawlOutput{}, err
	}

	pages, err := s.ports.Crawler.Crawl(ctx, seed, s.crawlOptions(input.MaxDepth, input.MaxPages))
	if err != nil {
		return nil, CrawlOutput{}, err
	}

	output := CrawlOutput{
		Pages: make([]PageOutput, len(pages)),
		Count: len(pages),
	}
	for i := range pages {
		output.Pages[i] = PageOutput{
			Source:      pages[i].Source,
			SourceType:  pages[i].SourceType.String(),
			Title:       pages[i].Title,
			Description: pages[i].Description,
			Content:     pages[i].Content,
			Metadata:    pages[i].Metadata,
		}
	}
	return nil, output, nil
}

// handleIngest handles the ingest tool invocation.
func (s *Server) handleIngest(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input IngestInput,
) (*mcp.CallToolResult, IngestOutput, error) {
	if len(input.Seeds) == 0 {
		return nil, IngestOutput{}, fmt.Errorf("%w: at least one seed is required", domain.ErrInvalidInput)
	}

	seeds := make([]driving.CrawlSeed, 0, len(input.Seeds))
	for i, in := range input.Seeds {
		seed, err := in.seed()
		if err != nil {
			return nil, IngestOutput{}, fmt.Errorf("seed %d: %w", i, err)
		}
		seeds = append(seeds, seed)
	}

	result, err := s.ports.Ingest.Ingest(ctx, driving.IngestRequest{
		Seeds:     seeds,
		Namespace: input.Namespace,
		Crawl:     s.crawlOptions(input.MaxDepth, input.MaxPages),
	})
	if err != nil {
		return nil, IngestOutput{}, err
	}

	output := IngestOutput{
		RunID:     result.RunID,
		Namespace: result.Namespace,
		Pages:     result.Pages,
		Chunks:    result.Chunks,
		Upserted:  result.Report.Upserted(),
	}
	for _, b := range result.Report.Failed() {
		output.FailedBatches = append(output.FailedBatches, fmt.Sprintf("batch %d (%d records): %v", b.Index, b.Size, b.Err))
	}
	return nil, output, nil
}

// handleQuery handles the query tool invocation.
func (s *Server) handleQuery(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input QueryInput,
) (*mcp.CallToolResult, QueryOutput, error) {
	topK := input.TopK
	if topK <= 0 {
		topK = defaultTopK
	}

	matches, err := s.ports.Query.Query(ctx, input.Namespace, input.Text, topK, input.Filter)
	if err != nil {
		return nil, QueryOutput{}, err
	}

	output := QueryOutput{
		Matches: make([]MatchOutput, len(matches)),
		Count:   len(matches),
	}
	for i, m := range matches {
		output.Matches[i] = MatchOutput{ID: m.ID, Score: m.Score, Metadata: m.Metadata}
	}
	return nil, output, nil
}
