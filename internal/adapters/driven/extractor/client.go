// Package extractor is the HTTP client of the out-of-process document
// extraction service.
package extractor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
	"github.com/custodia-labs/sercha-ingest/internal/core/ports/driven"
)

// Ensure Client implements the interface.
var _ driven.Extractor = (*Client)(nil)

// DefaultTimeout bounds one extraction call. Large PDFs are slow.
const DefaultTimeout = 2 * time.Minute

// Config holds configuration for the extraction client.
type Config struct {
	// BaseURL is the service root; routes are {BaseURL}/extract/{kind}.
	BaseURL string

	// Timeout is the request timeout (default: 2m).
	Timeout time.Duration

	// APIKey is sent as a bearer token when set.
	APIKey string
}

// Client calls the extraction service.
type Client struct {
	client  *http.Client
	baseURL string
	apiKey  string
}

type extractRequest struct {
	URL                 string `json:"url"`
	TruncateBytesAmount int    `json:"truncateBytesAmount,omitempty"`
	SplitContent        bool   `json:"splitContent"`
}

// wirePage accepts both the page shape and the document-loader shape
// (pageContent) some deployments return.
type wirePage struct {
	Source      string         `json:"source"`
	SourceType  string         `json:"sourceType"`
	Title       string         `json:"title"`
	Content     string         `json:"content"`
	PageContent string         `json:"pageContent"`
	Description string         `json:"description"`
	Metadata    map[string]any `json:"metadata"`
}

type extractResponse struct {
	Success bool           `json:"success"`
	Pages   []wirePage     `json:"pages"`
	Meta    map[string]any `json:"meta"`
	Error   string         `json:"error"`
}

// New creates an extraction client.
func New(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, fmt.Errorf("%w: extractor base url is required", domain.ErrInvalidConfig)
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Client{
		client:  &http.Client{Timeout: cfg.Timeout},
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
	}, nil
}

// Extract posts the document URL and returns the service's pages.
func (c *Client) Extract(ctx context.Context, req driven.ExtractRequest) ([]domain.Page, error) {
	if req.URL == "" || req.Kind == "" {
		return nil, domain.ErrInvalidInput
	}

	body, err := json.Marshal(extractRequest{
		URL:                 req.URL,
		TruncateBytesAmount: req.TruncateBytesAmount,
	})
	if err != nil {
		return nil, fmt.Errorf("extractor: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/extract/"+req.Kind, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("extractor: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrExtractionFailed, req.URL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("%w: %s: status %d: %s",
			domain.ErrExtractionFailed, req.URL, resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var out extractResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: %s: decode response: %v", domain.ErrExtractionFailed, req.URL, err)
	}
	if !out.Success {
		reason := out.Error
		if reason == "" {
			reason = "success=false"
		}
		return nil, fmt.Errorf("%w: %s: %s", domain.ErrExtractionFailed, req.URL, reason)
	}

	pages := make([]domain.Page, 0, len(out.Pages))
	for _, wp := range out.Pages {
		content := wp.Content
		if content == "" {
			content = wp.PageContent
		}
		page := domain.Page{
			Source:      wp.Source,
			SourceType:  domain.SourceType(wp.SourceType),
			Title:       wp.Title,
			Content:     content,
			Description: wp.Description,
			Metadata:    wp.Metadata,
		}
		if page.Source == "" {
			page.Source = req.URL
		}
		if !page.SourceType.IsValid() {
			page.SourceType = kindSourceType(req.Kind)
		}
		pages = append(pages, page)
	}
	return pages, nil
}

func kindSourceType(kind string) domain.SourceType {
	if st, err := domain.ParseSourceType(kind); err == nil {
		return st
	}
	return domain.SourceTypeWeb
}
