// Package pgvector provides a vector index stored in a PostgreSQL table
// with the pgvector extension.
package pgvector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
	"github.com/custodia-labs/sercha-ingest/internal/core/ports/driven"
)

// Ensure Index implements the interface.
var _ driven.VectorIndex = (*Index)(nil)

// DefaultTable is the table used when none is configured.
const DefaultTable = "sercha_vectors"

const connectTimeout = 30 * time.Second

var identRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]{0,62}$`)

// Config holds configuration for the pgvector index.
type Config struct {
	// DSN is a libpq connection string or URL (required).
	DSN string

	// Table holds all namespaces (default: sercha_vectors).
	Table string

	// Dimensions is the vector column size (required).
	Dimensions int

	// DefaultNamespace is used for an empty namespace name.
	DefaultNamespace string
}

// Index stores records in one table keyed by (namespace, id).
type Index struct {
	pool             *pgxpool.Pool
	table            string
	dimensions       int
	defaultNamespace string
}

// New connects, creates the extension and table if needed, and returns
// the index.
func New(ctx context.Context, cfg Config) (*Index, error) {
	idx, err := newIndex(cfg)
	if err != nil {
		return nil, err
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("%w: pgvector dsn: %v", domain.ErrInvalidConfig, err)
	}

	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("pgvector: connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pgvector: ping: %w", err)
	}
	idx.pool = pool

	if err := idx.bootstrap(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return idx, nil
}

func newIndex(cfg Config) (*Index, error) {
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, fmt.Errorf("%w: pgvector dsn is required", domain.ErrInvalidConfig)
	}
	if cfg.Dimensions <= 0 {
		return nil, fmt.Errorf("%w: pgvector dimensions must be positive", domain.ErrInvalidConfig)
	}
	table := cfg.Table
	if table == "" {
		table = DefaultTable
	}
	if !identRe.MatchString(table) {
		return nil, fmt.Errorf("%w: invalid table name %q", domain.ErrInvalidConfig, table)
	}
	ns := cfg.DefaultNamespace
	if ns == "" {
		ns = "default"
	}
	return &Index{table: table, dimensions: cfg.Dimensions, defaultNamespace: ns}, nil
}

func (i *Index) bootstrap(ctx context.Context) error {
	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			namespace TEXT NOT NULL,
			id TEXT NOT NULL,
			embedding vector(%d) NOT NULL,
			metadata JSONB NOT NULL DEFAULT '{}'::jsonb,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			PRIMARY KEY (namespace, id)
		)`, i.table, i.dimensions),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_embedding_idx ON %s USING hnsw (embedding vector_cosine_ops)`, i.table, i.table),
	}
	for _, stmt := range stmts {
		if _, err := i.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("pgvector: bootstrap: %w", err)
		}
	}
	return nil
}

// Namespace returns a handle for name.
func (i *Index) Namespace(name string) (driven.VectorNamespace, error) {
	if name == "" {
		name = i.defaultNamespace
	}
	return &namespace{index: i, name: name}, nil
}

// Close closes the connection pool.
func (i *Index) Close() error {
	if i.pool != nil {
		i.pool.Close()
	}
	return nil
}

func (i *Index) upsertSQL() string {
	return fmt.Sprintf(`INSERT INTO %s (namespace, id, embedding, metadata, updated_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (namespace, id) DO UPDATE
		SET embedding = EXCLUDED.embedding, metadata = EXCLUDED.metadata, updated_at = now()`, i.table)
}

// querySQL orders by cosine distance and returns similarity as 1-distance.
func (i *Index) querySQL(withFilter bool) string {
	where := "namespace = $1"
	if withFilter {
		where += " AND metadata @> $4"
	}
	return fmt.Sprintf(`SELECT id, 1 - (embedding <=> $2) AS score, metadata
		FROM %s
		WHERE %s
		ORDER BY embedding <=> $2
		LIMIT $3`, i.table, where)
}

func (i *Index) checkDims(n int) error {
	if n != i.dimensions {
		return fmt.Errorf("%w: index has %d dimensions, got %d", domain.ErrDimensionMismatch, i.dimensions, n)
	}
	return nil
}

type namespace struct {
	index *Index
	name  string
}

// Upsert writes the batch in one pipelined round trip.
func (n *namespace) Upsert(ctx context.Context, records []domain.VectorRecord) error {
	if len(records) == 0 {
		return nil
	}
	for _, r := range records {
		if err := n.index.checkDims(len(r.Values)); err != nil {
			return fmt.Errorf("record %s: %w", r.ID, err)
		}
	}

	query := n.index.upsertSQL()
	batch := &pgx.Batch{}
	for _, r := range records {
		meta, err := json.Marshal(domain.FlattenMetadata(r.Metadata))
		if err != nil {
			return fmt.Errorf("pgvector: marshal metadata of %s: %w", r.ID, err)
		}
		batch.Queue(query, n.name, r.ID, pgvector.NewVector(r.Values), meta)
	}

	results := n.index.pool.SendBatch(ctx, batch)
	defer results.Close()
	for range records {
		if _, err := results.Exec(); err != nil {
			return mapError(err)
		}
	}
	return nil
}

// Query returns the nearest records by cosine distance.
func (n *namespace) Query(ctx context.Context, req domain.QueryRequest) ([]domain.QueryMatch, error) {
	if len(req.Vector) == 0 || req.TopK <= 0 {
		return nil, domain.ErrInvalidInput
	}
	if err := n.index.checkDims(len(req.Vector)); err != nil {
		return nil, err
	}

	args := []any{n.name, pgvector.NewVector(req.Vector), req.TopK}
	if len(req.Filter) > 0 {
		filter, err := json.Marshal(req.Filter)
		if err != nil {
			return nil, fmt.Errorf("pgvector: marshal filter: %w", err)
		}
		args = append(args, filter)
	}

	rows, err := n.index.pool.Query(ctx, n.index.querySQL(len(req.Filter) > 0), args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var matches []domain.QueryMatch
	for rows.Next() {
		var (
			m    domain.QueryMatch
			meta map[string]any
		)
		if err := rows.Scan(&m.ID, &m.Score, &meta); err != nil {
			return nil, fmt.Errorf("pgvector: scan: %w", err)
		}
		if req.IncludeMetadata {
			m.Metadata = meta
		}
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}
	return matches, nil
}

// mapError turns the server's dimension complaint into
// domain.ErrDimensionMismatch.
func mapError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && strings.Contains(pgErr.Message, "dimensions") {
		return fmt.Errorf("%w: %s", domain.ErrDimensionMismatch, pgErr.Message)
	}
	return fmt.Errorf("pgvector: %w", err)
}
