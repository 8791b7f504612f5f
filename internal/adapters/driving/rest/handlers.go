package rest

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
	"github.com/custodia-labs/sercha-ingest/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-ingest/internal/logger"
)

// maxJSONBytes caps JSON request bodies.
const maxJSONBytes = 1 << 20

// SeedRequest names one URL to crawl.
type SeedRequest struct {
	URL        string `json:"url"`
	SourceType string `json:"sourceType,omitempty"`
	Title      string `json:"title,omitempty"`
	Scope      string `json:"scope,omitempty"`
}

// CrawlRequest is the body of POST /v1/crawl.
type CrawlRequest struct {
	SeedRequest
	// MaxDepth of 0 fetches only the seed; omit it for the default.
	MaxDepth *int `json:"maxDepth,omitempty"`
	MaxPages int  `json:"maxPages,omitempty"`
}

// CrawlResponse lists the parsed pages.
type CrawlResponse struct {
	Pages []domain.Page `json:"pages"`
	Count int           `json:"count"`
}

// IngestRequest is the body of POST /v1/ingest.
type IngestRequest struct {
	Seeds     []SeedRequest          `json:"seeds"`
	Namespace string                 `json:"namespace,omitempty"`
	MaxDepth  *int                   `json:"maxDepth,omitempty"`
	MaxPages  int                    `json:"maxPages,omitempty"`
	Prepare   *domain.PrepareOptions `json:"prepare,omitempty"`
}

// BatchFailure describes one failed upsert batch.
type BatchFailure struct {
	Index int    `json:"index"`
	Size  int    `json:"size"`
	Error string `json:"error"`
}

// IngestResponse summarises an ingest run.
type IngestResponse struct {
	RunID      string         `json:"runId"`
	Namespace  string         `json:"namespace"`
	Pages      int            `json:"pages"`
	Chunks     int            `json:"chunks"`
	Records    int            `json:"records"`
	Upserted   int            `json:"upserted"`
	Failed     []BatchFailure `json:"failed,omitempty"`
	DurationMS int64          `json:"durationMs"`
}

// QueryRequest is the body of POST /v1/query.
type QueryRequest struct {
	Text      string         `json:"text"`
	Namespace string         `json:"namespace,omitempty"`
	TopK      int            `json:"topK,omitempty"`
	Filter    map[string]any `json:"filter,omitempty"`
}

// QueryResponse lists the matches.
type QueryResponse struct {
	Matches []domain.QueryMatch `json:"matches"`
}

// RunsResponse lists recorded ingest runs, newest first.
type RunsResponse struct {
	Runs []domain.RunRecord `json:"runs"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleCrawl(w http.ResponseWriter, r *http.Request) {
	var req CrawlRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	seed, err := req.seed()
	if err != nil {
		writeError(w, err)
		return
	}

	pages, err := s.ports.Crawler.Crawl(r.Context(), seed, s.crawlOptions(req.MaxDepth, req.MaxPages))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, crawlResponse(pages))
}

// handleCrawlUpload parses an uploaded file. Form fields: file,
// source_type, title.
func (s *Server) handleCrawlUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes)
	if err := r.ParseMultipartForm(s.opts.MaxUploadBytes); err != nil {
		writeError(w, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, fmt.Errorf("%w: file field: %v", domain.ErrInvalidInput, err))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, fmt.Errorf("%w: read upload: %v", domain.ErrInvalidInput, err))
		return
	}

	seed := driving.CrawlSeed{
		Resource: domain.FileResource(filepath.Base(header.Filename), header.Header.Get("Content-Type"), data),
		Title:    r.FormValue("title"),
	}
	if st := r.FormValue("source_type"); st != "" {
		seed.SourceType, err = parseSourceType(st)
		if err != nil {
			writeError(w, err)
			return
		}
	}

	pages, err := s.ports.Crawler.Crawl(r.Context(), seed, s.crawlOptions(0, 0))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, crawlResponse(pages))
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	if s.ports.Ingest == nil {
		writeError(w, domain.ErrVectorIndexUnavailable)
		return
	}

	var req IngestRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	if len(req.Seeds) == 0 {
		writeError(w, fmt.Errorf("%w: at least one seed is required", domain.ErrInvalidInput))
		return
	}

	seeds := make([]driving.CrawlSeed, 0, len(req.Seeds))
	for i, sr := range req.Seeds {
		seed, err := sr.seed()
		if err != nil {
			writeError(w, fmt.Errorf("seed %d: %w", i, err))
			return
		}
		seeds = append(seeds, seed)
	}

	in := driving.IngestRequest{
		Seeds:     seeds,
		Namespace: req.Namespace,
		Crawl:     s.crawlOptions(req.MaxDepth, req.MaxPages),
	}
	if req.Prepare != nil {
		if err := req.Prepare.Validate(); err != nil {
			writeError(w, err)
			return
		}
		in.Prepare = *req.Prepare
	}

	result, err := s.ports.Ingest.Ingest(r.Context(), in)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := IngestResponse{
		RunID:      result.RunID,
		Namespace:  result.Namespace,
		Pages:      result.Pages,
		Chunks:     result.Chunks,
		Records:    result.Records,
		Upserted:   result.Report.Upserted(),
		DurationMS: result.Duration.Milliseconds(),
	}
	for _, b := range result.Report.Failed() {
		resp.Failed = append(resp.Failed, BatchFailure{Index: b.Index, Size: b.Size, Error: b.Err.Error()})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	if s.ports.Query == nil {
		writeError(w, domain.ErrVectorIndexUnavailable)
		return
	}

	var req QueryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	matches, err := s.ports.Query.Query(r.Context(), req.Namespace, req.Text, req.TopK, req.Filter)
	if err != nil {
		writeError(w, err)
		return
	}
	if matches == nil {
		matches = []domain.QueryMatch{}
	}
	writeJSON(w, http.StatusOK, QueryResponse{Matches: matches})
}

func (s *Server) handleSettings(w http.ResponseWriter, _ *http.Request) {
	if s.ports.Settings == nil {
		writeError(w, errors.New("settings service not configured"))
		return
	}
	settings, err := s.ports.Settings.Get()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, settings.Redacted())
}

// handleRuns lists runs. Query parameter: limit.
func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	if s.ports.Runs == nil {
		writeError(w, errors.New("run history not configured"))
		return
	}

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, fmt.Errorf("%w: limit %q", domain.ErrInvalidInput, v))
			return
		}
		limit = n
	}

	runs, err := s.ports.Runs.List(r.Context(), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	if runs == nil {
		runs = []domain.RunRecord{}
	}
	writeJSON(w, http.StatusOK, RunsResponse{Runs: runs})
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	if s.ports.Runs == nil {
		writeError(w, errors.New("run history not configured"))
		return
	}
	run, err := s.ports.Runs.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, run)
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

func (sr SeedRequest) seed() (driving.CrawlSeed, error) {
	if sr.URL == "" {
		return driving.CrawlSeed{}, fmt.Errorf("%w: url is required", domain.ErrInvalidInput)
	}
	seed := driving.CrawlSeed{
		Resource: domain.URLResource(sr.URL),
		Title:    sr.Title,
		Scope:    sr.Scope,
	}
	if sr.SourceType != "" {
		st, err := parseSourceType(sr.SourceType)
		if err != nil {
			return seed, err
		}
		seed.SourceType = st
	}
	return seed, nil
}

func parseSourceType(s string) (domain.SourceType, error) {
	st, err := domain.ParseSourceType(s)
	if err != nil {
		return "", fmt.Errorf("%w: source type %q", domain.ErrInvalidInput, s)
	}
	return st, nil
}

func crawlResponse(pages []domain.Page) CrawlResponse {
	if pages == nil {
		pages = []domain.Page{}
	}
	return CrawlResponse{Pages: pages, Count: len(pages)}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: request body: %v", domain.ErrInvalidInput, err)
	}
	return nil
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidInput),
		errors.Is(err, domain.ErrUnsupportedType),
		errors.Is(err, domain.ErrInvalidConfig):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		logger.Error("request failed: %v", err)
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("write response: %v", err)
	}
}
