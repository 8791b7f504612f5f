// Package manifest loads YAML seed manifests.
//
// A manifest names the resources to ingest and, optionally, a cron
// schedule and option overrides:
//
//	namespace: handbook
//	schedule: "0 3 * * *"
//	crawl:
//	  max_depth: 2
//	  max_pages: 50
//	seeds:
//	  - url: https://example.com/docs
//	    scope: main
//	  - path: ./notes/setup.md
//	  - url: https://example.com/report
//	    source_type: pdf
package manifest

import (
	"errors"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
	"github.com/custodia-labs/sercha-ingest/internal/core/ports/driving"
)

// Seed is one manifest entry. Exactly one of URL and Path is set.
type Seed struct {
	URL        string `yaml:"url,omitempty"`
	Path       string `yaml:"path,omitempty"`
	SourceType string `yaml:"source_type,omitempty"`
	Title      string `yaml:"title,omitempty"`
	Scope      string `yaml:"scope,omitempty"`
}

// CrawlOverrides replaces crawl settings for this manifest only.
type CrawlOverrides struct {
	MaxDepth          *int     `yaml:"max_depth,omitempty"`
	MaxPages          *int     `yaml:"max_pages,omitempty"`
	ExcludeURLTypes   []string `yaml:"exclude_url_types,omitempty"`
	ExcludeURLDomains []string `yaml:"exclude_url_domains,omitempty"`
	SameHostOnly      *bool    `yaml:"same_host_only,omitempty"`
	RequestTimeout    string   `yaml:"request_timeout,omitempty"`
}

// PrepareOverrides replaces preparation settings for this manifest only.
type PrepareOverrides struct {
	TruncateBytes     *int    `yaml:"truncate_bytes,omitempty"`
	SplitContent      *bool   `yaml:"split_content,omitempty"`
	Splitter          *string `yaml:"splitter,omitempty"`
	ChunkSize         *int    `yaml:"chunk_size,omitempty"`
	ChunkOverlap      *int    `yaml:"chunk_overlap,omitempty"`
	AppendDescription *bool   `yaml:"append_description,omitempty"`
	ApplyHash         *bool   `yaml:"apply_hash,omitempty"`
}

// Manifest is a parsed seed manifest.
type Manifest struct {
	Namespace string            `yaml:"namespace,omitempty"`
	Schedule  string            `yaml:"schedule,omitempty"`
	Seeds     []Seed            `yaml:"seeds"`
	Crawl     *CrawlOverrides   `yaml:"crawl,omitempty"`
	Prepare   *PrepareOverrides `yaml:"prepare,omitempty"`

	// baseDir resolves relative seed paths.
	baseDir string
}

// Load reads and validates a manifest file. Relative seed paths are
// resolved against the manifest's directory.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	return Parse(data, filepath.Dir(path))
}

// Parse decodes and validates manifest YAML.
func Parse(data []byte, baseDir string) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: manifest: %v", domain.ErrInvalidConfig, err)
	}
	m.baseDir = baseDir
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Validate checks seeds, the schedule and the overrides.
func (m *Manifest) Validate() error {
	if len(m.Seeds) == 0 {
		return fmt.Errorf("%w: manifest has no seeds", domain.ErrInvalidConfig)
	}
	var errs []error
	for i, s := range m.Seeds {
		if err := s.validate(); err != nil {
			errs = append(errs, fmt.Errorf("seed %d: %w", i, err))
		}
	}
	if m.Schedule != "" {
		if _, err := cron.ParseStandard(m.Schedule); err != nil {
			errs = append(errs, fmt.Errorf("%w: schedule %q: %v", domain.ErrInvalidConfig, m.Schedule, err))
		}
	}
	if m.Crawl != nil && m.Crawl.RequestTimeout != "" {
		if _, err := time.ParseDuration(m.Crawl.RequestTimeout); err != nil {
			errs = append(errs, fmt.Errorf("%w: crawl.request_timeout: %v", domain.ErrInvalidConfig, err))
		}
	}
	return errors.Join(errs...)
}

func (s Seed) validate() error {
	if (s.URL == "") == (s.Path == "") {
		return fmt.Errorf("%w: exactly one of url and path is required", domain.ErrInvalidConfig)
	}
	if s.SourceType != "" {
		if _, err := domain.ParseSourceType(s.SourceType); err != nil {
			return fmt.Errorf("%w: %v", domain.ErrInvalidConfig, err)
		}
	}
	return nil
}

// Resolve turns the seed into a crawl seed. Local paths are read into
// in-memory file resources.
func (s Seed) Resolve(baseDir string) (driving.CrawlSeed, error) {
	seed := driving.CrawlSeed{Title: s.Title, Scope: s.Scope}
	if s.SourceType != "" {
		st, err := domain.ParseSourceType(s.SourceType)
		if err != nil {
			return seed, err
		}
		seed.SourceType = st
	}

	if s.URL != "" {
		seed.Resource = domain.URLResource(s.URL)
		return seed, nil
	}

	path := s.Path
	if !filepath.IsAbs(path) && baseDir != "" {
		path = filepath.Join(baseDir, path)
	}
	res, err := FileResource(path)
	if err != nil {
		return seed, err
	}
	seed.Resource = res
	return seed, nil
}

// FileResource reads a local file into a resource.
func FileResource(path string) (domain.Resource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.Resource{}, fmt.Errorf("%w: read %s: %v", domain.ErrInvalidInput, path, err)
	}
	mimeType := mime.TypeByExtension(strings.ToLower(filepath.Ext(path)))
	return domain.FileResource(filepath.Base(path), mimeType, data), nil
}

// CrawlSeeds resolves every seed. Unreadable files fail the whole manifest.
func (m *Manifest) CrawlSeeds() ([]driving.CrawlSeed, error) {
	seeds := make([]driving.CrawlSeed, 0, len(m.Seeds))
	for i, s := range m.Seeds {
		seed, err := s.Resolve(m.baseDir)
		if err != nil {
			return nil, fmt.Errorf("seed %d: %w", i, err)
		}
		seeds = append(seeds, seed)
	}
	return seeds, nil
}

// Request builds an ingest request, applying the overrides on top of
// the given defaults.
func (m *Manifest) Request(crawl domain.CrawlOptions, prepare domain.PrepareOptions) (driving.IngestRequest, error) {
	seeds, err := m.CrawlSeeds()
	if err != nil {
		return driving.IngestRequest{}, err
	}
	return driving.IngestRequest{
		Seeds:     seeds,
		Namespace: m.Namespace,
		Crawl:     m.Crawl.apply(crawl),
		Prepare:   m.Prepare.apply(prepare),
	}, nil
}

func (o *CrawlOverrides) apply(opts domain.CrawlOptions) domain.CrawlOptions {
	if o == nil {
		return opts
	}
	if o.MaxDepth != nil {
		opts.MaxDepth = *o.MaxDepth
	}
	if o.MaxPages != nil {
		opts.MaxPages = *o.MaxPages
	}
	if o.ExcludeURLTypes != nil {
		opts.ExcludeURLTypes = o.ExcludeURLTypes
	}
	if o.ExcludeURLDomains != nil {
		opts.ExcludeURLDomains = o.ExcludeURLDomains
	}
	if o.SameHostOnly != nil {
		opts.SameHostOnly = *o.SameHostOnly
	}
	if d, err := time.ParseDuration(o.RequestTimeout); err == nil {
		opts.RequestTimeout = d
	}
	return opts
}

func (o *PrepareOverrides) apply(opts domain.PrepareOptions) domain.PrepareOptions {
	if o == nil {
		return opts
	}
	if o.TruncateBytes != nil {
		opts.TruncateBytesAmount = *o.TruncateBytes
	}
	if o.SplitContent != nil {
		opts.SplitContent = *o.SplitContent
	}
	if o.Splitter != nil {
		opts.SplitterMethod = domain.SplitterMethod(*o.Splitter)
	}
	if o.ChunkSize != nil {
		opts.ChunkSize = *o.ChunkSize
	}
	if o.ChunkOverlap != nil {
		opts.ChunkOverlap = *o.ChunkOverlap
	}
	if o.AppendDescription != nil {
		opts.AppendDescription = *o.AppendDescription
	}
	if o.ApplyHash != nil {
		opts.ApplyHash = *o.ApplyHash
	}
	return opts
}
