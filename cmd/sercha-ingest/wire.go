package main

import (
	"context"
	"fmt"

	"github.com/custodia-labs/sercha-ingest/internal/adapters/driven/ai"
	"github.com/custodia-labs/sercha-ingest/internal/adapters/driven/config/file"
	"github.com/custodia-labs/sercha-ingest/internal/adapters/driven/splitter"
	"github.com/custodia-labs/sercha-ingest/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/sercha-ingest/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/sercha-ingest/internal/adapters/driving/cli"
	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
	"github.com/custodia-labs/sercha-ingest/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-ingest/internal/core/services"
	"github.com/custodia-labs/sercha-ingest/internal/logger"
	"github.com/custodia-labs/sercha-ingest/internal/parsers/html"
)

// buildServices wires adapters into core services, building only what
// needs asks for.
func buildServices(ctx context.Context, configPath string, needs cli.Needs) (*cli.Services, error) {
	store, err := openConfigStore(configPath)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}

	settingsService := services.NewSettingsService(store, nil)
	settings, err := settingsService.Get()
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	svc := &cli.Services{
		Settings: settingsService,
		Config:   settings,
		Check:    checkProviders,
	}
	if needs == cli.NeedSettings {
		return svc, nil
	}

	if needs == cli.NeedRuns {
		runs, closeRuns, err := openRunStore(settings.History)
		if err != nil {
			return nil, err
		}
		svc.Runs = services.NewRunHistoryService(runs)
		svc.Close = closeRuns
		return svc, nil
	}

	if needs == cli.NeedCrawl {
		stack := ai.NewCrawlStack(ctx, settings)
		svc.Crawler = services.NewCrawler(stack.Fetcher, stack.Registry, html.NewLinkExtractor())
		svc.SourceTypes = stack.Registry.SourceTypes
		return svc, nil
	}

	if err := settingsService.Validate(settings); err != nil {
		return nil, err
	}
	result, err := ai.Init(ctx, settings)
	if err != nil {
		return nil, err
	}
	runs, closeRuns, err := openRunStore(settings.History)
	if err != nil {
		result.Close()
		return nil, err
	}

	crawler := services.NewCrawler(result.Fetcher, result.Registry, html.NewLinkExtractor())
	embedder := services.NewEmbedder(result.EmbeddingService,
		services.WithEmbedConcurrency(settings.Embedding.Concurrency),
		services.WithDescription(settings.Embedding.Description),
	)

	svc.Crawler = crawler
	svc.SourceTypes = result.Registry.SourceTypes
	svc.Ingest = services.NewIngestService(
		crawler,
		services.NewPreparer(splitter.NewFactory()),
		embedder,
		services.NewUpserter(settings.VectorStore.Upsert),
		result.VectorIndex,
		settings.VectorStore.Namespace,
		settings.Prepare,
	).WithRunStore(runs)
	svc.Query = services.NewQueryService(result.EmbeddingService, result.VectorIndex, settings.VectorStore.Namespace)
	svc.Runs = services.NewRunHistoryService(runs)
	svc.Close = func() {
		closeRuns()
		result.Close()
	}
	return svc, nil
}

// openRunStore opens the sqlite run history, or an in-memory one when
// history is disabled.
func openRunStore(cfg domain.HistorySettings) (driven.RunStore, func(), error) {
	if !cfg.Enabled {
		return memory.NewRunStore(0), func() {}, nil
	}
	store, err := sqlite.NewStore(cfg.DataDir)
	if err != nil {
		return nil, nil, fmt.Errorf("open run history: %w", err)
	}
	return store, func() {
		if err := store.Close(); err != nil {
			logger.Warn("closing run history: %v", err)
		}
	}, nil
}

func openConfigStore(path string) (*file.ConfigStore, error) {
	if path != "" {
		return file.NewConfigStoreAt(path)
	}
	return file.NewConfigStore("")
}

// checkProviders pings the embedding provider and opens the vector index.
func checkProviders(ctx context.Context, settings *domain.Settings) error {
	v := ai.NewConfigValidator()
	if err := v.ValidateEmbedding(ctx, &settings.Embedding); err != nil {
		return err
	}
	return v.ValidateVectorStore(ctx, &settings.VectorStore)
}
