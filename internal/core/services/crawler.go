package services

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"net/url"
	"path"
	"strings"

	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
	"github.com/custodia-labs/sercha-ingest/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-ingest/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-ingest/internal/logger"
)

// Ensure Crawler implements the interface.
var _ driving.Crawler = (*Crawler)(nil)

// Crawler performs bounded breadth-first traversal from seed resources.
// It holds no per-crawl state; every call builds its own crawlState, so
// one Crawler can serve concurrent crawls.
type Crawler struct {
	fetcher  driven.Fetcher
	registry driven.ParserRegistry
	links    driven.LinkExtractor
}

// NewCrawler creates a crawler over a fetcher, a parser registry and a
// link extractor. A nil link extractor disables link discovery.
func NewCrawler(fetcher driven.Fetcher, registry driven.ParserRegistry, links driven.LinkExtractor) *Crawler {
	return &Crawler{
		fetcher:  fetcher,
		registry: registry,
		links:    links,
	}
}

// crawlState is owned by a single traversal and never shared.
type crawlState struct {
	opts     domain.CrawlOptions
	scope    string
	seedHost string
	queue    []domain.QueueItem
	seen     map[string]struct{}
	pages    []domain.Page
}

func (s *crawlState) enqueue(item domain.QueueItem) {
	s.queue = append(s.queue, item)
}

func (s *crawlState) dequeue() domain.QueueItem {
	item := s.queue[0]
	s.queue = s.queue[1:]
	return item
}

func (s *crawlState) isSeen(key string) bool {
	_, ok := s.seen[key]
	return ok
}

func (s *crawlState) markSeen(key string) {
	s.seen[key] = struct{}{}
}

// addPages appends pages without exceeding MaxPages.
func (s *crawlState) addPages(pages []domain.Page) {
	room := s.opts.MaxPages - len(s.pages)
	if room <= 0 {
		return
	}
	if len(pages) > room {
		pages = pages[:room]
	}
	s.pages = append(s.pages, pages...)
}

// Crawl traverses from a single seed. Web, text and markdown URLs go
// through the breadth-first loop; everything else is parsed as a single
// resource. Per-resource failures are logged and skipped.
func (c *Crawler) Crawl(ctx context.Context, seed driving.CrawlSeed, opts domain.CrawlOptions) ([]domain.Page, error) {
	sourceType, err := seedSourceType(seed)
	if err != nil {
		return nil, err
	}
	if c.registry == nil {
		return nil, fmt.Errorf("%w: parser registry not configured", domain.ErrInvalidConfig)
	}
	opts = opts.Normalize()

	if sourceType.IsWebCrawlable() && !seed.Resource.IsFile() {
		return c.crawlWebpage(ctx, seed, sourceType, opts)
	}
	return c.crawlFileOrMarkdown(ctx, seed, sourceType, opts)
}

// seedSourceType checks the seed resource and resolves its source type,
// inferring it from the URL or file name when unset.
func seedSourceType(seed driving.CrawlSeed) (domain.SourceType, error) {
	if err := seed.Resource.Validate(); err != nil {
		return "", err
	}
	sourceType := seed.SourceType
	if sourceType == "" {
		name := seed.Resource.URL
		if seed.Resource.IsFile() {
			name = seed.Resource.File.Name
		}
		sourceType = domain.InferSourceType(name)
	}
	if !sourceType.IsValid() {
		return "", fmt.Errorf("%w: source type %q", domain.ErrUnsupportedType, sourceType)
	}
	return sourceType, nil
}

// ValidateSeeds checks every seed without fetching anything. All invalid
// seeds are reported together.
func ValidateSeeds(seeds []driving.CrawlSeed) error {
	var errs []error
	for _, seed := range seeds {
		if _, err := seedSourceType(seed); err != nil {
			errs = append(errs, fmt.Errorf("seed %s: %w", seed.Resource.Location(), err))
		}
	}
	return errors.Join(errs...)
}

// CrawlMany crawls each seed independently and concatenates the results.
// Invalid seeds are reported together; valid seeds still run.
func (c *Crawler) CrawlMany(ctx context.Context, seeds []driving.CrawlSeed, opts domain.CrawlOptions) ([]domain.Page, error) {
	var (
		all  []domain.Page
		errs []error
	)
	for _, seed := range seeds {
		pages, err := c.Crawl(ctx, seed, opts)
		all = append(all, pages...)
		if err != nil {
			if ctx.Err() != nil {
				return all, ctx.Err()
			}
			errs = append(errs, fmt.Errorf("seed %s: %w", seed.Resource.Location(), err))
		}
	}
	return all, errors.Join(errs...)
}

// crawlWebpage is the breadth-first loop. The queue only grows from HTML
// pages within MaxDepth and the loop stops once MaxPages pages exist.
func (c *Crawler) crawlWebpage(
	ctx context.Context,
	seed driving.CrawlSeed,
	sourceType domain.SourceType,
	opts domain.CrawlOptions,
) ([]domain.Page, error) {
	state := &crawlState{
		opts:  opts,
		scope: seed.Scope,
		seen:  make(map[string]struct{}),
	}
	if u, err := url.Parse(seed.Resource.URL); err == nil {
		state.seedHost = strings.ToLower(u.Hostname())
	}
	state.enqueue(domain.QueueItem{
		Title:      seed.Title,
		Resource:   seed.Resource,
		SourceType: sourceType,
		Depth:      0,
	})

	logger.Section("Crawl")
	for len(state.queue) > 0 && len(state.pages) < opts.MaxPages {
		if err := ctx.Err(); err != nil {
			return state.pages, err
		}

		item := state.dequeue()
		if !item.SourceType.IsWebCrawlable() || item.Depth > opts.MaxDepth {
			continue
		}
		key := normalizeURL(item.Resource.URL)
		if key == "" || state.isSeen(key) {
			continue
		}
		// Marked before fetching: a URL reached twice is fetched once.
		state.markSeen(key)

		pages, links, err := c.visit(ctx, state, item)
		if err != nil {
			if ctx.Err() != nil {
				return state.pages, ctx.Err()
			}
			logger.Warn("crawl: skipping %s: %v", item.Resource.URL, err)
			continue
		}
		logger.Debug("crawl: %s depth=%d pages=%d links=%d", item.Resource.URL, item.Depth, len(pages), len(links))
		state.addPages(pages)

		if item.Depth+1 > opts.MaxDepth {
			continue
		}
		for _, l := range state.admitLinks(links) {
			state.enqueue(domain.QueueItem{
				Title:      l.Text,
				Resource:   domain.URLResource(l.URL),
				SourceType: domain.SourceTypeWeb,
				Depth:      item.Depth + 1,
			})
		}
	}

	logger.Info("crawl: %s produced %d pages (%d urls seen)", seed.Resource.URL, len(state.pages), len(state.seen))
	return state.pages, nil
}

// visit fetches and parses one queue item and returns the links found in
// it when the body was HTML.
func (c *Crawler) visit(ctx context.Context, state *crawlState, item domain.QueueItem) ([]domain.Page, []domain.Link, error) {
	kind := classifyURL(item.Resource.URL, item.SourceType)
	in := driven.ParseInput{
		Source:              item.Resource.URL,
		SourceType:          kind,
		Title:               item.Title,
		Scope:               state.scope,
		TruncateBytesAmount: state.opts.TruncateBytesAmount,
	}

	reqCtx, cancel := withTimeout(ctx, state.opts)
	defer cancel()

	if kind.IsRemoteExtracted() {
		pages, err := c.parseSingle(reqCtx, in)
		return pages, nil, err
	}

	if c.fetcher == nil {
		return nil, nil, fmt.Errorf("%w: fetcher not configured", domain.ErrInvalidConfig)
	}
	res, err := c.fetcher.Fetch(reqCtx, item.Resource.URL)
	if err != nil {
		return nil, nil, err
	}
	if len(res.Body) == 0 {
		return nil, nil, domain.ErrEmptyBody
	}

	in.Body = res.Body
	in.ContentType = res.ContentType
	if kind == domain.SourceTypeWeb {
		in.SourceType = refineByContentType(res.ContentType)
	}

	pages, err := c.parse(reqCtx, in)
	if err != nil {
		return nil, nil, err
	}

	var links []domain.Link
	if in.SourceType == domain.SourceTypeWeb && c.links != nil {
		base := res.URL
		if base == "" {
			base = item.Resource.URL
		}
		links, err = c.links.ExtractLinks(res.Body, base)
		if err != nil {
			logger.Warn("crawl: link extraction failed for %s: %v", base, err)
		}
	}
	return pages, links, nil
}

// crawlFileOrMarkdown handles a single non-traversable resource. URL-only
// parsers (repository walk, transcripts, remote extraction) are tried
// first; otherwise the bytes are fetched, or taken from the blob, and
// parsed in-process.
func (c *Crawler) crawlFileOrMarkdown(
	ctx context.Context,
	seed driving.CrawlSeed,
	sourceType domain.SourceType,
	opts domain.CrawlOptions,
) ([]domain.Page, error) {
	in := driven.ParseInput{
		Source:              seed.Resource.Location(),
		SourceType:          sourceType,
		Title:               seed.Title,
		Scope:               seed.Scope,
		TruncateBytesAmount: opts.TruncateBytesAmount,
	}
	if seed.Resource.IsFile() {
		in.Body = seed.Resource.File.Data
		in.ContentType = seed.Resource.File.MIMEType
		if in.Title == "" {
			in.Title = seed.Resource.File.Name
		}
	}

	reqCtx, cancel := withTimeout(ctx, opts)
	defer cancel()

	pages, err := c.parseSingle(reqCtx, in)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		logger.Warn("crawl: skipping %s: %v", in.Source, err)
		return nil, nil
	}
	logger.Info("crawl: %s produced %d pages", in.Source, len(pages))
	return pages, nil
}

func (c *Crawler) parseSingle(ctx context.Context, in driven.ParseInput) ([]domain.Page, error) {
	if in.HasBody() {
		return c.parse(ctx, in)
	}
	if _, err := c.registry.Resolve(in); err == nil {
		return c.parse(ctx, in)
	} else if !errors.Is(err, domain.ErrUnsupportedType) {
		return nil, err
	}

	if c.fetcher == nil {
		return nil, fmt.Errorf("%w: fetcher not configured", domain.ErrInvalidConfig)
	}
	res, err := c.fetcher.Fetch(ctx, in.Source)
	if err != nil {
		return nil, err
	}
	if len(res.Body) == 0 {
		return nil, domain.ErrEmptyBody
	}
	in.Body = res.Body
	in.ContentType = res.ContentType
	return c.parse(ctx, in)
}

// parse resolves a parser and runs it. A parser that yields no pages is
// treated as a failure so no empty page reaches the result.
func (c *Crawler) parse(ctx context.Context, in driven.ParseInput) ([]domain.Page, error) {
	parser, err := c.registry.Resolve(in)
	if err != nil {
		return nil, err
	}
	pages, err := parser.Parse(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("%s parser: %w", parser.Name(), err)
	}
	if len(pages) == 0 {
		return nil, fmt.Errorf("%s parser: %w", parser.Name(), domain.ErrEmptyBody)
	}
	return pages, nil
}

func withTimeout(ctx context.Context, opts domain.CrawlOptions) (context.Context, context.CancelFunc) {
	if opts.RequestTimeout > 0 {
		return context.WithTimeout(ctx, opts.RequestTimeout)
	}
	return context.WithCancel(ctx)
}

// classifyURL picks the parse strategy for a traversed URL from its path
// suffix. Anything without a known document suffix is HTML.
func classifyURL(raw string, declared domain.SourceType) domain.SourceType {
	u, err := url.Parse(raw)
	if err != nil {
		return declared
	}
	switch strings.ToLower(path.Ext(u.Path)) {
	case ".pdf":
		return domain.SourceTypePDF
	case ".docx":
		return domain.SourceTypeDOCX
	case ".csv":
		return domain.SourceTypeCSV
	case ".txt":
		return domain.SourceTypeTXT
	case ".md", ".mdx":
		return domain.SourceTypeMD
	}
	if declared == domain.SourceTypeTXT || declared == domain.SourceTypeMD {
		return declared
	}
	return domain.SourceTypeWeb
}

// refineByContentType lets a server's declared text type override the
// HTML default for suffix-less URLs.
func refineByContentType(contentType string) domain.SourceType {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return domain.SourceTypeWeb
	}
	switch mediaType {
	case "text/plain":
		return domain.SourceTypeTXT
	case "text/markdown", "text/x-markdown":
		return domain.SourceTypeMD
	default:
		return domain.SourceTypeWeb
	}
}

// normalizeURL returns the dedup key for a URL: lower-cased host plus
// path, with query, fragment and trailing slash dropped. Scheme is
// ignored so http and https variants collapse.
func normalizeURL(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return ""
	}
	return strings.ToLower(u.Host) + strings.TrimRight(u.EscapedPath(), "/")
}
