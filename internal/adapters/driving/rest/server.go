// Package rest serves crawl, ingest, query and run history over a JSON
// HTTP API.
package rest

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
	"github.com/custodia-labs/sercha-ingest/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-ingest/internal/logger"
)

// Ports are the services behind the API. Crawler is required.
type Ports struct {
	Crawler  driving.Crawler
	Ingest   driving.IngestService
	Query    driving.QueryService
	Settings driving.SettingsService
	Runs     driving.RunHistory

	// CrawlDefaults fills crawl bounds a request leaves out.
	CrawlDefaults domain.CrawlOptions
}

// Options configure the HTTP server.
type Options struct {
	// AllowedOrigins for CORS. Empty allows any origin.
	AllowedOrigins []string

	// RequestTimeout bounds each request (default 10m; ingest runs are slow).
	RequestTimeout time.Duration

	// MaxUploadBytes caps multipart uploads (default 50MB).
	MaxUploadBytes int64
}

// ErrMissingCrawler is returned when the crawler is not provided.
var ErrMissingCrawler = errors.New("rest: crawler is required")

// Server wraps the router and its handlers.
type Server struct {
	ports  Ports
	opts   Options
	router chi.Router
}

// NewServer builds and wires all routes.
func NewServer(ports Ports, opts Options) (*Server, error) {
	if ports.Crawler == nil {
		return nil, ErrMissingCrawler
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 10 * time.Minute
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 50 << 20
	}
	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	s := &Server{ports: ports, opts: opts}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(opts.RequestTimeout))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/healthz", s.handleHealth)

	r.Route("/v1", func(api chi.Router) {
		api.Post("/crawl", s.handleCrawl)
		api.Post("/crawl/upload", s.handleCrawlUpload)
		api.Post("/ingest", s.handleIngest)
		api.Post("/query", s.handleQuery)
		api.Get("/settings", s.handleSettings)
		api.Get("/runs", s.handleRuns)
		api.Get("/runs/{id}", s.handleRun)
	})

	s.router = r
	return s, nil
}

// Mount attaches another handler, such as the MCP endpoint, under pattern.
func (s *Server) Mount(pattern string, h http.Handler) {
	s.router.Mount(pattern, h)
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run listens on addr until ctx is cancelled.
func (s *Server) Run(ctx context.Context, addr string) error {
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("http shutdown: %v", err)
		}
	}()

	logger.Info("HTTP server listening on %s", addr)
	err := httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// requestLogger logs each request at debug level.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		logger.Debug("%s %s %d %s [%s]", r.Method, r.URL.Path, ww.Status(), time.Since(start).Round(time.Millisecond),
			middleware.GetReqID(r.Context()))
	})
}
