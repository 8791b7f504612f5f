// Package chromem provides a vector index backed by an embedded
// chromem-go database, in memory or persisted to a directory.
package chromem

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"sync"

	"github.com/philippgille/chromem-go"

	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
	"github.com/custodia-labs/sercha-ingest/internal/core/ports/driven"
)

// Ensure Index implements the interface.
var _ driven.VectorIndex = (*Index)(nil)

var errNoTextEmbedding = errors.New("chromem: records must carry vectors")

// dimsFile records each namespace's vector dimension next to the
// collections. chromem skips plain files in its directory.
const dimsFile = "dimensions.json"

// noEmbedding stops chromem from calling its default OpenAI embedder.
func noEmbedding(context.Context, string) ([]float32, error) {
	return nil, errNoTextEmbedding
}

// Config holds configuration for the chromem index.
type Config struct {
	// Path persists collections under this directory. Empty keeps them
	// in memory.
	Path string

	// Compress gzips persisted documents.
	Compress bool

	// DefaultNamespace is used for an empty namespace name.
	DefaultNamespace string
}

// Index is a chromem database with one collection per namespace.
type Index struct {
	db               *chromem.DB
	defaultNamespace string
	path             string

	mu   sync.Mutex
	dims map[string]int
}

// New opens or creates the database.
func New(cfg Config) (*Index, error) {
	db := chromem.NewDB()
	if cfg.Path != "" {
		var err error
		db, err = chromem.NewPersistentDB(cfg.Path, cfg.Compress)
		if err != nil {
			return nil, fmt.Errorf("chromem: open %s: %w", cfg.Path, err)
		}
	}
	ns := cfg.DefaultNamespace
	if ns == "" {
		ns = "default"
	}
	dims, err := loadDims(cfg.Path)
	if err != nil {
		return nil, err
	}
	return &Index{db: db, defaultNamespace: ns, path: cfg.Path, dims: dims}, nil
}

// loadDims reads the recorded namespace dimensions of a persistent
// database. A missing file means no namespace has been written yet.
func loadDims(dir string) (map[string]int, error) {
	dims := make(map[string]int)
	if dir == "" {
		return dims, nil
	}
	data, err := os.ReadFile(filepath.Join(dir, dimsFile))
	if errors.Is(err, fs.ErrNotExist) {
		return dims, nil
	}
	if err != nil {
		return nil, fmt.Errorf("chromem: read dimensions: %w", err)
	}
	if err := json.Unmarshal(data, &dims); err != nil {
		return nil, fmt.Errorf("chromem: parse %s: %w", dimsFile, err)
	}
	return dims, nil
}

// saveDims rewrites the dimensions file. Callers hold i.mu.
func (i *Index) saveDims() error {
	if i.path == "" {
		return nil
	}
	data, err := json.Marshal(i.dims)
	if err != nil {
		return err
	}
	target := filepath.Join(i.path, dimsFile)
	tmp := target + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("chromem: write dimensions: %w", err)
	}
	if err := os.Rename(tmp, target); err != nil {
		return fmt.Errorf("chromem: write dimensions: %w", err)
	}
	return nil
}

// Namespace returns the collection for name, creating it if needed.
func (i *Index) Namespace(name string) (driven.VectorNamespace, error) {
	if name == "" {
		name = i.defaultNamespace
	}
	c, err := i.db.GetOrCreateCollection(name, nil, noEmbedding)
	if err != nil {
		return nil, fmt.Errorf("chromem: collection %s: %w", name, err)
	}
	return &namespace{index: i, name: name, collection: c}, nil
}

// Close releases resources. Persistent writes happen on each upsert.
func (i *Index) Close() error {
	return nil
}

// claimDims fixes the namespace dimension on first use and rejects
// vectors of any other length afterwards. Persistent databases keep the
// dimension across reopens.
func (i *Index) claimDims(name string, n int) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	want, ok := i.dims[name]
	if !ok {
		i.dims[name] = n
		if err := i.saveDims(); err != nil {
			delete(i.dims, name)
			return err
		}
		return nil
	}
	if want != n {
		return fmt.Errorf("%w: namespace %s has %d dimensions, got %d", domain.ErrDimensionMismatch, name, want, n)
	}
	return nil
}

type namespace struct {
	index      *Index
	name       string
	collection *chromem.Collection
}

// Upsert writes records. Every vector in the batch must match the
// namespace dimension.
func (n *namespace) Upsert(ctx context.Context, records []domain.VectorRecord) error {
	if len(records) == 0 {
		return nil
	}

	dims := len(records[0].Values)
	if dims == 0 {
		return fmt.Errorf("%w: record %s has no vector", domain.ErrInvalidInput, records[0].ID)
	}
	docs := make([]chromem.Document, 0, len(records))
	for _, r := range records {
		if len(r.Values) != dims {
			return fmt.Errorf("%w: record %s has %d dimensions, batch has %d",
				domain.ErrDimensionMismatch, r.ID, len(r.Values), dims)
		}
		content, _ := r.Metadata[domain.MetaContent].(string)
		docs = append(docs, chromem.Document{
			ID:        r.ID,
			Content:   content,
			Metadata:  stringify(r.Metadata),
			Embedding: r.Values,
		})
	}
	if err := n.index.claimDims(n.name, dims); err != nil {
		return err
	}

	if err := n.collection.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return fmt.Errorf("chromem: upsert into %s: %w", n.name, err)
	}
	return nil
}

// Query returns up to TopK nearest records. TopK is clamped to the
// collection size.
func (n *namespace) Query(ctx context.Context, req domain.QueryRequest) ([]domain.QueryMatch, error) {
	if len(req.Vector) == 0 || req.TopK <= 0 {
		return nil, domain.ErrInvalidInput
	}
	count := n.collection.Count()
	if count == 0 {
		return nil, nil
	}

	var where map[string]string
	if len(req.Filter) > 0 {
		where = stringify(req.Filter)
	}

	results, err := n.collection.QueryEmbedding(ctx, req.Vector, min(req.TopK, count), where, nil)
	if err != nil {
		return nil, fmt.Errorf("chromem: query %s: %w", n.name, err)
	}

	matches := make([]domain.QueryMatch, 0, len(results))
	for _, r := range results {
		m := domain.QueryMatch{ID: r.ID, Score: float64(r.Similarity)}
		if req.IncludeMetadata {
			m.Metadata = make(map[string]any, len(r.Metadata))
			for k, v := range r.Metadata {
				m.Metadata[k] = v
			}
		}
		matches = append(matches, m)
	}
	return matches, nil
}

// stringify converts metadata to chromem's string map. Strings pass
// through, scalars use strconv, anything else is JSON.
func stringify(meta map[string]any) map[string]string {
	out := make(map[string]string, len(meta))
	for k, v := range meta {
		switch val := v.(type) {
		case nil:
		case string:
			out[k] = val
		case bool:
			out[k] = strconv.FormatBool(val)
		case int:
			out[k] = strconv.Itoa(val)
		case int64:
			out[k] = strconv.FormatInt(val, 10)
		case float64:
			out[k] = strconv.FormatFloat(val, 'f', -1, 64)
		default:
			data, err := json.Marshal(val)
			if err != nil {
				out[k] = fmt.Sprint(val)
				continue
			}
			out[k] = string(data)
		}
	}
	return out
}
