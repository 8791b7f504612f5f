// Package ai builds the driven adapters named in domain.Settings.
package ai

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/sercha-ingest/internal/adapters/driven/embedding/cache"
	geminiembed "github.com/custodia-labs/sercha-ingest/internal/adapters/driven/embedding/gemini"
	ollamaembed "github.com/custodia-labs/sercha-ingest/internal/adapters/driven/embedding/ollama"
	openaiembed "github.com/custodia-labs/sercha-ingest/internal/adapters/driven/embedding/openai"
	"github.com/custodia-labs/sercha-ingest/internal/adapters/driven/extractor"
	"github.com/custodia-labs/sercha-ingest/internal/adapters/driven/fetch/mux"
	s3fetch "github.com/custodia-labs/sercha-ingest/internal/adapters/driven/fetch/s3"
	"github.com/custodia-labs/sercha-ingest/internal/adapters/driven/fetch/web"
	"github.com/custodia-labs/sercha-ingest/internal/adapters/driven/vectorindex/chromem"
	"github.com/custodia-labs/sercha-ingest/internal/adapters/driven/vectorindex/pgvector"
	"github.com/custodia-labs/sercha-ingest/internal/adapters/driven/vectorindex/pinecone"
	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
	"github.com/custodia-labs/sercha-ingest/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-ingest/internal/logger"
	"github.com/custodia-labs/sercha-ingest/internal/parsers"
	"github.com/custodia-labs/sercha-ingest/internal/parsers/audio"
	"github.com/custodia-labs/sercha-ingest/internal/parsers/defaults"
	"github.com/custodia-labs/sercha-ingest/internal/parsers/github"
	"github.com/custodia-labs/sercha-ingest/internal/parsers/image"
)

// pingTimeout is the maximum time to wait for service connectivity validation.
const pingTimeout = 5 * time.Second

// githubRequestsPerSecond stays well inside the authenticated REST quota.
const githubRequestsPerSecond = 10

// CrawlStack is what a crawl needs: the fetcher and the parser registry.
type CrawlStack struct {
	Fetcher  driven.Fetcher
	Registry *parsers.Registry

	// Warnings lists optional services that could not be set up. Their
	// parsers decline every input.
	Warnings []string
}

// InitResult contains the services an ingest or query run needs.
type InitResult struct {
	CrawlStack
	EmbeddingService driven.EmbeddingService
	VectorIndex      driven.VectorIndex
}

// Close releases all resources held by InitResult.
func (r *InitResult) Close() {
	if r.EmbeddingService != nil {
		if err := r.EmbeddingService.Close(); err != nil {
			logger.Warn("close embedding service: %v", err)
		}
	}
	if r.VectorIndex != nil {
		if err := r.VectorIndex.Close(); err != nil {
			logger.Warn("close vector index: %v", err)
		}
	}
}

// Init builds the crawl stack, the embedding service and the vector
// index. Setup failures of the last two are fatal.
func Init(ctx context.Context, settings *domain.Settings) (*InitResult, error) {
	stack := NewCrawlStack(ctx, settings)

	embedding, err := CreateAndValidateEmbeddingService(ctx, &settings.Embedding)
	if err != nil {
		return nil, err
	}

	index, err := CreateVectorIndex(ctx, &settings.VectorStore)
	if err != nil {
		_ = embedding.Close()
		return nil, err
	}

	return &InitResult{
		CrawlStack:       *stack,
		EmbeddingService: embedding,
		VectorIndex:      index,
	}, nil
}

// NewCrawlStack builds the fetcher and parser registry. Optional
// services that fail to build are reported as warnings.
func NewCrawlStack(ctx context.Context, settings *domain.Settings) *CrawlStack {
	stack := &CrawlStack{}
	warn := func(format string, args ...any) {
		msg := fmt.Sprintf(format, args...)
		logger.Warn("%s", msg)
		stack.Warnings = append(stack.Warnings, msg)
	}

	fetcher, err := CreateFetcher(ctx, settings)
	if err != nil {
		warn("s3 fetcher disabled: %v", err)
	}
	stack.Fetcher = fetcher

	deps := defaults.Dependencies{
		Fetcher: fetcher,
		GitHub:  github.NewClient(ctx, settings.GitHub.Token, githubRequestsPerSecond),
		GitHubOptions: github.Options{
			MaxFiles: settings.GitHub.MaxFiles,
		},
	}

	if settings.Extractor.BaseURL != "" {
		ex, err := CreateExtractor(&settings.Extractor)
		if err != nil {
			warn("extractor disabled: %v", err)
		} else {
			deps.Extractor = ex
		}
	}

	if settings.Media.TranscriptionAPIKey != "" {
		tr, err := CreateTranscriber(&settings.Media)
		if err != nil {
			warn("audio transcription disabled: %v", err)
		} else {
			deps.Transcriber = tr
		}
	}

	if settings.Media.OCRAPIKey != "" {
		rec, err := CreateRecognizer(ctx, &settings.Media)
		if err != nil {
			warn("image recognition disabled: %v", err)
		} else {
			deps.Recognizer = rec
		}
	}

	stack.Registry = defaults.NewRegistry(deps)
	return stack
}

// CreateFetcher routes http(s) to the web fetcher and s3 to the S3
// fetcher. The returned fetcher is usable even when err reports that
// S3 could not be set up.
func CreateFetcher(ctx context.Context, settings *domain.Settings) (driven.Fetcher, error) {
	f := mux.New().Handle(web.New(web.Config{
		UserAgent:         settings.Crawler.UserAgent,
		Timeout:           settings.Crawler.Options.RequestTimeout,
		RequestsPerSecond: settings.Crawler.RequestsPerSecond,
		MaxBodyBytes:      settings.Crawler.MaxBodyBytes,
	}), "http", "https")

	s3f, err := s3fetch.New(ctx, s3fetch.Config{
		Region:          settings.S3.Region,
		AccessKeyID:     settings.S3.AccessKeyID,
		SecretAccessKey: settings.S3.SecretAccessKey,
		Endpoint:        settings.S3.Endpoint,
		MaxBodyBytes:    settings.Crawler.MaxBodyBytes,
	})
	if err != nil {
		return f, err
	}
	return f.Handle(s3f, "s3"), nil
}

// CreateExtractor creates the document extraction client.
func CreateExtractor(settings *domain.ExtractorSettings) (driven.Extractor, error) {
	return extractor.New(extractor.Config{
		BaseURL: settings.BaseURL,
		Timeout: settings.Timeout,
	})
}

// CreateTranscriber creates the audio transcriber.
func CreateTranscriber(settings *domain.MediaSettings) (audio.Transcriber, error) {
	return audio.NewOpenAITranscriber(audio.Config{
		APIKey:  settings.TranscriptionAPIKey,
		BaseURL: settings.TranscriptionBaseURL,
		Model:   settings.TranscriptionModel,
	})
}

// CreateRecognizer creates the image text recognizer.
func CreateRecognizer(ctx context.Context, settings *domain.MediaSettings) (image.Recognizer, error) {
	return image.NewGeminiRecognizer(ctx, settings.OCRAPIKey, settings.OCRModel)
}

// CreateAndValidateEmbeddingService creates an embedding service and validates connectivity.
func CreateAndValidateEmbeddingService(ctx context.Context, settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	svc, err := CreateEmbeddingService(ctx, settings)
	if err != nil {
		return nil, fmt.Errorf("%w: %w. Run 'sercha-ingest settings set embedding.provider <name>' to fix",
			domain.ErrEmbeddingUnavailable, err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := svc.Ping(pingCtx); err != nil {
		_ = svc.Close()
		return nil, fmt.Errorf("%w: service unreachable (%w)", domain.ErrEmbeddingUnavailable, err)
	}

	return svc, nil
}

// CreateEmbeddingService creates the embedding service named by the
// settings, wrapped in a cache when one is configured.
func CreateEmbeddingService(ctx context.Context, settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	if settings == nil {
		return nil, errors.New("no embedding settings")
	}
	if !settings.IsConfigured() {
		return nil, fmt.Errorf("provider %q is not configured", settings.Provider)
	}

	var (
		svc driven.EmbeddingService
		err error
	)
	switch settings.Provider {
	case domain.AIProviderOllama:
		svc = createOllamaEmbedding(settings)
	case domain.AIProviderOpenAI:
		svc, err = createOpenAIEmbedding(settings)
	case domain.AIProviderGemini:
		svc, err = createGeminiEmbedding(ctx, settings)
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", settings.Provider)
	}
	if err != nil {
		return nil, err
	}

	return cache.New(svc, settings.CacheSize, settings.CacheTTL), nil
}

func createOllamaEmbedding(settings *domain.EmbeddingSettings) driven.EmbeddingService {
	dimensions := domain.EmbeddingDimensions()[settings.Model]
	if dimensions == 0 {
		dimensions = ollamaembed.DefaultDimensions
	}

	return ollamaembed.NewEmbeddingService(ollamaembed.Config{
		BaseURL:    settings.BaseURL,
		Model:      settings.Model,
		Dimensions: dimensions,
	})
}

func createOpenAIEmbedding(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	return openaiembed.NewEmbeddingService(openaiembed.Config{
		APIKey:     settings.APIKey,
		BaseURL:    settings.BaseURL,
		Model:      settings.Model,
		Dimensions: domain.EmbeddingDimensions()[settings.Model],
	})
}

func createGeminiEmbedding(ctx context.Context, settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	return geminiembed.NewEmbeddingService(ctx, geminiembed.Config{
		APIKey:  settings.APIKey,
		Model:   settings.Model,
		BaseURL: settings.BaseURL,
	})
}

// CreateVectorIndex opens the vector index named by the settings.
func CreateVectorIndex(ctx context.Context, settings *domain.VectorStoreSettings) (driven.VectorIndex, error) {
	if settings == nil {
		return nil, fmt.Errorf("%w: no vector store settings", domain.ErrVectorIndexUnavailable)
	}

	var (
		index driven.VectorIndex
		err   error
	)
	switch settings.Provider {
	case domain.VectorStoreChromem:
		index, err = chromem.New(chromem.Config{
			Path:             settings.Path,
			Compress:         true,
			DefaultNamespace: settings.Namespace,
		})
	case domain.VectorStorePinecone:
		index, err = pinecone.New(pinecone.Config{
			Host:             settings.Host,
			APIKey:           settings.APIKey,
			DefaultNamespace: settings.Namespace,
		})
	case domain.VectorStorePGVector:
		index, err = pgvector.New(ctx, pgvector.Config{
			DSN:              settings.DSN,
			Table:            settings.Table,
			Dimensions:       settings.Dimensions,
			DefaultNamespace: settings.Namespace,
		})
	default:
		return nil, fmt.Errorf("%w: unsupported vector store %q", domain.ErrInvalidConfig, settings.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrVectorIndexUnavailable, settings.Provider, err)
	}
	return index, nil
}
