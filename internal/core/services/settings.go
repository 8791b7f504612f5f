package services

import (
	"fmt"
	"os"
	"time"

	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
	"github.com/custodia-labs/sercha-ingest/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-ingest/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyMaxDepth          = "crawler.max_depth"
	keyMaxPages          = "crawler.max_pages"
	keyExcludeTypes      = "crawler.exclude_url_types"
	keyExcludeDomains    = "crawler.exclude_url_domains"
	keySameHostOnly      = "crawler.same_host_only"
	keyUserAgent         = "crawler.user_agent"
	keyRequestTimeout    = "crawler.request_timeout"
	keyRequestsPerSecond = "crawler.requests_per_second"
	keyMaxBodyBytes      = "crawler.max_body_bytes"

	keyTruncateBytes     = "prepare.truncate_bytes"
	keySplitContent      = "prepare.split_content"
	keySplitter          = "prepare.splitter"
	keyChunkSize         = "prepare.chunk_size"
	keyChunkOverlap      = "prepare.chunk_overlap"
	keyAppendDescription = "prepare.append_description"
	keyApplyHash         = "prepare.apply_hash"

	keyEmbedProvider    = "embedding.provider"
	keyEmbedModel       = "embedding.model"
	keyEmbedBaseURL     = "embedding.base_url"
	keyEmbedAPIKey      = "embedding.api_key"
	keyEmbedConcurrency = "embedding.concurrency"
	keyEmbedCacheSize   = "embedding.cache_size"
	keyEmbedCacheTTL    = "embedding.cache_ttl"
	keyEmbedDescription = "embedding.description"

	keyVectorProvider     = "vector.provider"
	keyVectorNamespace    = "vector.namespace"
	keyVectorPath         = "vector.path"
	keyVectorHost         = "vector.host"
	keyVectorAPIKey       = "vector.api_key"
	keyVectorDSN          = "vector.dsn"
	keyVectorTable        = "vector.table"
	keyVectorDimensions   = "vector.dimensions"
	keyVectorBatchSize    = "vector.batch_size"
	keyVectorConcurrency  = "vector.concurrency"
	keyVectorBatchTimeout = "vector.batch_timeout"

	keyExtractorURL     = "extractor.base_url"
	keyExtractorTimeout = "extractor.timeout"

	keyGitHubToken    = "github.token"
	keyGitHubMaxFiles = "github.max_files"

	keyTranscriptionURL   = "media.transcription_base_url"
	keyTranscriptionKey   = "media.transcription_api_key"
	keyTranscriptionModel = "media.transcription_model"
	keyOCRKey             = "media.ocr_api_key"
	keyOCRModel           = "media.ocr_model"

	keyS3Region    = "s3.region"
	keyS3AccessKey = "s3.access_key_id"
	keyS3Secret    = "s3.secret_access_key"
	keyS3Endpoint  = "s3.endpoint"

	keyHistoryEnabled = "history.enabled"
	keyHistoryDataDir = "history.data_dir"
)

// EnvLookup reads an environment variable. It matches os.LookupEnv.
type EnvLookup func(key string) (string, bool)

// SettingsService assembles settings from defaults, the config store and
// the environment, in that order of precedence (environment wins).
type SettingsService struct {
	configStore driven.ConfigStore
	env         EnvLookup
}

// NewSettingsService creates a settings service. A nil store yields
// defaults plus environment; a nil env uses os.LookupEnv.
func NewSettingsService(configStore driven.ConfigStore, env EnvLookup) *SettingsService {
	if env == nil {
		env = os.LookupEnv
	}
	return &SettingsService{
		configStore: configStore,
		env:         env,
	}
}

// Get returns the effective settings.
func (s *SettingsService) Get() (*domain.Settings, error) {
	d := domain.DefaultSettings()

	vectorProvider := domain.VectorStoreProvider(s.getString(keyVectorProvider, d.VectorStore.Provider.String()))
	embedProvider := domain.AIProvider(s.getString(keyEmbedProvider, d.Embedding.Provider.String()))

	embedModel := s.getString(keyEmbedModel, "")
	if embedModel == "" {
		embedModel = domain.DefaultEmbeddingModels()[embedProvider]
	}
	embedBaseURL := s.getString(keyEmbedBaseURL, "")
	if embedBaseURL == "" && embedProvider == domain.AIProviderOllama {
		embedBaseURL = d.Embedding.BaseURL
	}

	settings := &domain.Settings{
		Crawler: domain.CrawlerSettings{
			Options: domain.CrawlOptions{
				MaxDepth:            s.getInt(keyMaxDepth, d.Crawler.Options.MaxDepth),
				MaxPages:            s.getInt(keyMaxPages, d.Crawler.Options.MaxPages),
				TruncateBytesAmount: s.getInt(keyTruncateBytes, vectorProvider.TruncateBudget()),
				ExcludeURLTypes:     s.getStringSlice(keyExcludeTypes),
				ExcludeURLDomains:   s.getStringSlice(keyExcludeDomains),
				SameHostOnly:        s.getBool(keySameHostOnly, d.Crawler.Options.SameHostOnly),
				RequestTimeout:      s.getDuration(keyRequestTimeout, d.Crawler.Options.RequestTimeout),
			},
			UserAgent:         s.getString(keyUserAgent, d.Crawler.UserAgent),
			RequestsPerSecond: s.getFloat(keyRequestsPerSecond, d.Crawler.RequestsPerSecond),
			MaxBodyBytes:      int64(s.getInt(keyMaxBodyBytes, int(d.Crawler.MaxBodyBytes))),
		},
		Prepare: domain.PrepareOptions{
			TruncateBytesAmount: s.getInt(keyTruncateBytes, vectorProvider.TruncateBudget()),
			SplitContent:        s.getBool(keySplitContent, d.Prepare.SplitContent),
			SplitterMethod:      domain.SplitterMethod(s.getString(keySplitter, string(d.Prepare.SplitterMethod))),
			ChunkSize:           s.getInt(keyChunkSize, d.Prepare.ChunkSize),
			ChunkOverlap:        s.getInt(keyChunkOverlap, d.Prepare.ChunkOverlap),
			AppendDescription:   s.getBool(keyAppendDescription, d.Prepare.AppendDescription),
			ApplyHash:           s.getBool(keyApplyHash, d.Prepare.ApplyHash),
		},
		Embedding: domain.EmbeddingSettings{
			Provider:    embedProvider,
			Model:       embedModel,
			BaseURL:     embedBaseURL,
			APIKey:      s.getString(keyEmbedAPIKey, ""),
			Concurrency: s.getInt(keyEmbedConcurrency, d.Embedding.Concurrency),
			CacheSize:   s.getInt(keyEmbedCacheSize, d.Embedding.CacheSize),
			CacheTTL:    s.getDuration(keyEmbedCacheTTL, d.Embedding.CacheTTL),
			Description: s.getString(keyEmbedDescription, ""),
		},
		VectorStore: domain.VectorStoreSettings{
			Provider:   vectorProvider,
			Namespace:  s.getString(keyVectorNamespace, d.VectorStore.Namespace),
			Path:       s.getString(keyVectorPath, ""),
			Host:       s.getString(keyVectorHost, ""),
			APIKey:     s.getString(keyVectorAPIKey, ""),
			DSN:        s.getString(keyVectorDSN, ""),
			Table:      s.getString(keyVectorTable, d.VectorStore.Table),
			Dimensions: s.getInt(keyVectorDimensions, s.defaultDimensions(embedModel, d.VectorStore.Dimensions)),
			Upsert: domain.UpsertOptions{
				BatchSize:    s.getInt(keyVectorBatchSize, d.VectorStore.Upsert.BatchSize),
				Concurrency:  s.getInt(keyVectorConcurrency, d.VectorStore.Upsert.Concurrency),
				BatchTimeout: s.getDuration(keyVectorBatchTimeout, d.VectorStore.Upsert.BatchTimeout),
			},
		},
		Extractor: domain.ExtractorSettings{
			BaseURL: s.getString(keyExtractorURL, ""),
			Timeout: s.getDuration(keyExtractorTimeout, d.Extractor.Timeout),
		},
		GitHub: domain.GitHubSettings{
			Token:    s.getString(keyGitHubToken, ""),
			MaxFiles: s.getInt(keyGitHubMaxFiles, d.GitHub.MaxFiles),
		},
		Media: domain.MediaSettings{
			TranscriptionBaseURL: s.getString(keyTranscriptionURL, d.Media.TranscriptionBaseURL),
			TranscriptionAPIKey:  s.getString(keyTranscriptionKey, ""),
			TranscriptionModel:   s.getString(keyTranscriptionModel, d.Media.TranscriptionModel),
			OCRAPIKey:            s.getString(keyOCRKey, ""),
			OCRModel:             s.getString(keyOCRModel, d.Media.OCRModel),
		},
		S3: domain.S3Settings{
			Region:          s.getString(keyS3Region, d.S3.Region),
			AccessKeyID:     s.getString(keyS3AccessKey, ""),
			SecretAccessKey: s.getString(keyS3Secret, ""),
			Endpoint:        s.getString(keyS3Endpoint, ""),
		},
		History: domain.HistorySettings{
			Enabled: s.getBool(keyHistoryEnabled, d.History.Enabled),
			DataDir: s.getString(keyHistoryDataDir, ""),
		},
	}

	s.applyEnv(settings)
	return settings, nil
}

// applyEnv lets well-known environment variables override secrets and
// endpoints.
func (s *SettingsService) applyEnv(settings *domain.Settings) {
	override := func(dst *string, key string) {
		if v, ok := s.env(key); ok && v != "" {
			*dst = v
		}
	}

	switch settings.Embedding.Provider {
	case domain.AIProviderOpenAI:
		override(&settings.Embedding.APIKey, "OPENAI_API_KEY")
	case domain.AIProviderGemini:
		override(&settings.Embedding.APIKey, "GEMINI_API_KEY")
	case domain.AIProviderOllama:
		override(&settings.Embedding.BaseURL, "OLLAMA_HOST")
	}
	override(&settings.VectorStore.APIKey, "PINECONE_API_KEY")
	override(&settings.VectorStore.Host, "PINECONE_HOST")
	override(&settings.VectorStore.DSN, "SERCHA_PG_DSN")
	override(&settings.Extractor.BaseURL, "SERCHA_EXTRACTOR_URL")
	override(&settings.GitHub.Token, "GITHUB_TOKEN")
	override(&settings.Media.TranscriptionAPIKey, "OPENAI_API_KEY")
	override(&settings.Media.OCRAPIKey, "GEMINI_API_KEY")
	override(&settings.S3.Region, "AWS_REGION")
}

// Set stores one dotted key and saves the config file.
func (s *SettingsService) Set(key string, value any) error {
	if s.configStore == nil {
		return fmt.Errorf("%w: config store not configured", domain.ErrInvalidConfig)
	}
	if err := s.configStore.Set(key, value); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	if err := s.configStore.Save(); err != nil {
		return fmt.Errorf("save config: %w", err)
	}
	return nil
}

// Validate checks settings that would make a run fail at setup.
func (s *SettingsService) Validate(settings *domain.Settings) error {
	if settings == nil {
		return fmt.Errorf("%w: nil settings", domain.ErrInvalidConfig)
	}
	if err := settings.Prepare.Validate(); err != nil {
		return err
	}
	if !settings.Embedding.Provider.IsValid() {
		return fmt.Errorf("%w: %s %q", domain.ErrInvalidConfig, keyEmbedProvider, settings.Embedding.Provider)
	}
	if !settings.Embedding.IsConfigured() {
		return fmt.Errorf("%w: %s requires an API key", domain.ErrInvalidConfig, settings.Embedding.Provider)
	}
	switch settings.VectorStore.Provider {
	case domain.VectorStoreChromem:
	case domain.VectorStorePinecone:
		if settings.VectorStore.Host == "" || settings.VectorStore.APIKey == "" {
			return fmt.Errorf("%w: pinecone requires %s and %s", domain.ErrInvalidConfig, keyVectorHost, keyVectorAPIKey)
		}
	case domain.VectorStorePGVector:
		if settings.VectorStore.DSN == "" {
			return fmt.Errorf("%w: pgvector requires %s", domain.ErrInvalidConfig, keyVectorDSN)
		}
	default:
		return fmt.Errorf("%w: %s %q", domain.ErrInvalidConfig, keyVectorProvider, settings.VectorStore.Provider)
	}
	if settings.VectorStore.Upsert.BatchSize <= 0 {
		return fmt.Errorf("%w: %s must be positive", domain.ErrInvalidConfig, keyVectorBatchSize)
	}
	return nil
}

func (s *SettingsService) defaultDimensions(model string, fallback int) int {
	if dims, ok := domain.EmbeddingDimensions()[model]; ok {
		return dims
	}
	return fallback
}

func (s *SettingsService) has(key string) bool {
	if s.configStore == nil {
		return false
	}
	_, ok := s.configStore.Get(key)
	return ok
}

func (s *SettingsService) getString(key, defaultVal string) string {
	if !s.has(key) {
		return defaultVal
	}
	if v := s.configStore.GetString(key); v != "" {
		return v
	}
	return defaultVal
}

func (s *SettingsService) getInt(key string, defaultVal int) int {
	if !s.has(key) {
		return defaultVal
	}
	return s.configStore.GetInt(key)
}

func (s *SettingsService) getFloat(key string, defaultVal float64) float64 {
	if !s.has(key) {
		return defaultVal
	}
	return s.configStore.GetFloat(key)
}

func (s *SettingsService) getBool(key string, defaultVal bool) bool {
	if !s.has(key) {
		return defaultVal
	}
	return s.configStore.GetBool(key)
}

func (s *SettingsService) getDuration(key string, defaultVal time.Duration) time.Duration {
	if !s.has(key) {
		return defaultVal
	}
	if d := s.configStore.GetDuration(key); d > 0 {
		return d
	}
	return defaultVal
}

func (s *SettingsService) getStringSlice(key string) []string {
	if !s.has(key) {
		return nil
	}
	return s.configStore.GetStringSlice(key)
}
