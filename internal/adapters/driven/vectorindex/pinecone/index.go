// Package pinecone provides a vector index backed by the Pinecone data
// plane REST API.
package pinecone

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

// Ensure Index implements the interface.
var _ driven.VectorIndex = (*Index)(nil)

// Default configuration values.
const (
	DefaultTimeout    = 60 * time.Second
	DefaultAPIVersion = "2025-04"
)

// Config holds configuration for the Pinecone index.
type Config struct {
	// Host is the index host, e.g. https://docs-abc123.svc.aped-4627-b74a.pinecone.io.
	Host string

	// APIKey is the Pinecone API key (required).
	APIKey string

	// Timeout is the request timeout (default: 60s).
	Timeout time.Duration

	// DefaultNamespace is used for an empty namespace name.
	DefaultNamespace string
}

// Index talks to one Pinecone index.
type Index struct {
	client           *http.Client
	host             string
	apiKey           string
	defaultNamespace string
}

// New creates a Pinecone index client.
func New(cfg Config) (*Index, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: pinecone API key is required", domain.ErrInvalidConfig)
	}
	host := strings.TrimRight(strings.TrimSpace(cfg.Host), "/")
	if host == "" {
		return nil, fmt.Errorf("%w: pinecone index host is required", domain.ErrInvalidConfig)
	}
	if !strings.HasPrefix(host, "http://") && !strings.HasPrefix(host, "https://") {
		host = "https://" + host
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Index{
		client:           &http.Client{Timeout: cfg.Timeout},
		host:             host,
		apiKey:           cfg.APIKey,
		defaultNamespace: cfg.DefaultNamespace,
	}, nil
}

// Namespace returns a handle for name. Pinecone creates namespaces on
// first write, so this never fails.
func (i *Index) Namespace(name string) (driven.VectorNamespace, error) {
	if name == "" {
		name = i.defaultNamespace
	}
	return &namespace{index: i, name: name}, nil
}

// Close releases resources.
func (i *Index) Close() error {
	return nil
}

// APIError is a non-2xx Pinecone response.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("pinecone: API returned status %d: %s", e.StatusCode, e.Message)
}

// Unwrap maps 429 to domain.ErrRateLimited and a dimension complaint to
// domain.ErrDimensionMismatch.
func (e *APIError) Unwrap() error {
	switch {
	case e.StatusCode == http.StatusTooManyRequests:
		return domain.ErrRateLimited
	case e.StatusCode == http.StatusBadRequest && strings.Contains(strings.ToLower(e.Message), "dimension"):
		return domain.ErrDimensionMismatch
	default:
		return nil
	}
}

func (i *Index) post(ctx context.Context, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("pinecone: marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, i.host+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("pinecone: create request: %w", err)
	}
	req.Header.Set("Api-Key", i.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Pinecone-API-Version", DefaultAPIVersion)

	resp, err := i.client.Do(req)
	if err != nil {
		return fmt.Errorf("pinecone: send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		var apiErr struct {
			Message string `json:"message"`
		}
		text := strings.TrimSpace(string(msg))
		if json.Unmarshal(msg, &apiErr) == nil && apiErr.Message != "" {
			text = apiErr.Message
		}
		return &APIError{StatusCode: resp.StatusCode, Message: text}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("pinecone: decode response: %w", err)
	}
	return nil
}

type namespace struct {
	index *Index
	name  string
}

type vector struct {
	ID       string         `json:"id"`
	Values   []float32      `json:"values"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

type upsertRequest struct {
	Vectors   []vector `json:"vectors"`
	Namespace string   `json:"namespace,omitempty"`
}

type queryRequest struct {
	Vector          []float32      `json:"vector"`
	TopK            int            `json:"topK"`
	Filter          map[string]any `json:"filter,omitempty"`
	IncludeMetadata bool           `json:"includeMetadata"`
	IncludeValues   bool           `json:"includeValues"`
	Namespace       string         `json:"namespace,omitempty"`
}

type queryResponse struct {
	Matches []struct {
		ID       string         `json:"id"`
		Score    float64        `json:"score"`
		Metadata map[string]any `json:"metadata"`
	} `json:"matches"`
}

// Upsert writes records with POST /vectors/upsert.
func (n *namespace) Upsert(ctx context.Context, records []domain.VectorRecord) error {
	if len(records) == 0 {
		return nil
	}
	vectors := make([]vector, 0, len(records))
	for _, r := range records {
		vectors = append(vectors, vector{ID: r.ID, Values: r.Values, Metadata: domain.FlattenMetadata(r.Metadata)})
	}
	return n.index.post(ctx, "/vectors/upsert", upsertRequest{Vectors: vectors, Namespace: n.name}, nil)
}

// Query runs POST /query. Filter pairs become $eq conditions.
func (n *namespace) Query(ctx context.Context, req domain.QueryRequest) ([]domain.QueryMatch, error) {
	if len(req.Vector) == 0 || req.TopK <= 0 {
		return nil, domain.ErrInvalidInput
	}

	var filter map[string]any
	if len(req.Filter) > 0 {
		filter = make(map[string]any, len(req.Filter))
		for k, v := range req.Filter {
			filter[k] = map[string]any{"$eq": v}
		}
	}

	var out queryResponse
	err := n.index.post(ctx, "/query", queryRequest{
		Vector:          req.Vector,
		TopK:            req.TopK,
		Filter:          filter,
		IncludeMetadata: req.IncludeMetadata,
		Namespace:       n.name,
	}, &out)
	if err != nil {
		return nil, err
	}

	matches := make([]domain.QueryMatch, 0, len(out.Matches))
	for _, m := range out.Matches {
		matches = append(matches, domain.QueryMatch{ID: m.ID, Score: m.Score, Metadata: m.Metadata})
	}
	return matches, nil
}
