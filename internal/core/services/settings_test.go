package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
)

func noEnv(string) (string, bool) { return "", false }

func envMap(values map[string]string) EnvLookup {
	return func(key string) (string, bool) {
		v, ok := values[key]
		return v, ok
	}
}

func TestSettingsService_Defaults(t *testing.T) {
	settings, err := NewSettingsService(nil, noEnv).Get()
	require.NoError(t, err)

	d := domain.DefaultSettings()
	assert.Equal(t, domain.AIProviderOllama, settings.Embedding.Provider)
	assert.Equal(t, "nomic-embed-text", settings.Embedding.Model)
	assert.Equal(t, "http://localhost:11434", settings.Embedding.BaseURL)
	assert.Equal(t, domain.VectorStoreChromem, settings.VectorStore.Provider)
	assert.Equal(t, 768, settings.VectorStore.Dimensions)
	assert.Equal(t, d.Crawler.Options.MaxDepth, settings.Crawler.Options.MaxDepth)
	assert.Equal(t, d.Crawler.Options.MaxPages, settings.Crawler.Options.MaxPages)
	assert.Equal(t, domain.VectorStoreChromem.TruncateBudget(), settings.Prepare.TruncateBytesAmount)
	assert.Equal(t, d.VectorStore.Upsert, settings.VectorStore.Upsert)
	assert.NoError(t, NewSettingsService(nil, noEnv).Validate(settings))
}

func TestSettingsService_StoreOverrides(t *testing.T) {
	store := newMockConfigStore(map[string]any{
		keyMaxDepth:           5,
		keyMaxPages:           40,
		keyExcludeDomains:     []string{"ads.example.com"},
		keyRequestsPerSecond:  0.5,
		keyEmbedProvider:      "openai",
		keyEmbedAPIKey:        "sk-test",
		keyVectorProvider:     "pinecone",
		keyVectorHost:         "https://idx.pinecone.io",
		keyVectorAPIKey:       "pc-key",
		keyVectorBatchTimeout: "5s",
		keySplitter:           "markdown",
	})

	settings, err := NewSettingsService(store, noEnv).Get()
	require.NoError(t, err)

	assert.Equal(t, 5, settings.Crawler.Options.MaxDepth)
	assert.Equal(t, 40, settings.Crawler.Options.MaxPages)
	assert.Equal(t, []string{"ads.example.com"}, settings.Crawler.Options.ExcludeURLDomains)
	assert.InDelta(t, 0.5, settings.Crawler.RequestsPerSecond, 1e-9)
	assert.Equal(t, domain.AIProviderOpenAI, settings.Embedding.Provider)
	assert.Equal(t, "text-embedding-3-small", settings.Embedding.Model)
	assert.Empty(t, settings.Embedding.BaseURL)
	assert.Equal(t, 1536, settings.VectorStore.Dimensions)
	assert.Equal(t, domain.DefaultTruncateBytes, settings.Prepare.TruncateBytesAmount)
	assert.Equal(t, 5*time.Second, settings.VectorStore.Upsert.BatchTimeout)
	assert.Equal(t, domain.SplitterMarkdown, settings.Prepare.SplitterMethod)
	assert.NoError(t, NewSettingsService(store, noEnv).Validate(settings))
}

func TestSettingsService_EnvWins(t *testing.T) {
	store := newMockConfigStore(map[string]any{
		keyEmbedProvider: "gemini",
		keyEmbedAPIKey:   "from-file",
		keyGitHubToken:   "file-token",
	})
	env := envMap(map[string]string{
		"GEMINI_API_KEY":       "from-env",
		"GITHUB_TOKEN":         "env-token",
		"SERCHA_EXTRACTOR_URL": "http://extract:8080",
		"OPENAI_API_KEY":       "",
	})

	settings, err := NewSettingsService(store, env).Get()
	require.NoError(t, err)

	assert.Equal(t, "from-env", settings.Embedding.APIKey)
	assert.Equal(t, "env-token", settings.GitHub.Token)
	assert.Equal(t, "http://extract:8080", settings.Extractor.BaseURL)
	assert.Equal(t, "from-env", settings.Media.OCRAPIKey)
	assert.Empty(t, settings.Media.TranscriptionAPIKey)
}

func TestSettingsService_Set(t *testing.T) {
	store := newMockConfigStore(nil)
	svc := NewSettingsService(store, noEnv)

	require.NoError(t, svc.Set(keyMaxPages, 12))
	assert.Equal(t, 1, store.saved)

	settings, err := svc.Get()
	require.NoError(t, err)
	assert.Equal(t, 12, settings.Crawler.Options.MaxPages)

	err = NewSettingsService(nil, noEnv).Set(keyMaxPages, 1)
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)
}

func TestSettingsService_Validate(t *testing.T) {
	svc := NewSettingsService(nil, noEnv)

	tests := []struct {
		name   string
		mutate func(*domain.Settings)
	}{
		{"openai without key", func(s *domain.Settings) {
			s.Embedding.Provider = domain.AIProviderOpenAI
		}},
		{"unknown provider", func(s *domain.Settings) {
			s.Embedding.Provider = "cohere"
		}},
		{"pinecone without host", func(s *domain.Settings) {
			s.VectorStore.Provider = domain.VectorStorePinecone
		}},
		{"pgvector without dsn", func(s *domain.Settings) {
			s.VectorStore.Provider = domain.VectorStorePGVector
		}},
		{"unknown vector store", func(s *domain.Settings) {
			s.VectorStore.Provider = "faiss"
		}},
		{"bad overlap", func(s *domain.Settings) {
			s.Prepare.ChunkOverlap = s.Prepare.ChunkSize
		}},
		{"zero batch", func(s *domain.Settings) {
			s.VectorStore.Upsert.BatchSize = 0
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			settings := domain.DefaultSettings()
			tt.mutate(&settings)
			assert.ErrorIs(t, svc.Validate(&settings), domain.ErrInvalidConfig)
		})
	}

	assert.ErrorIs(t, svc.Validate(nil), domain.ErrInvalidConfig)
}

func TestSettingsService_S3(t *testing.T) {
	store := newMockConfigStore(map[string]any{
		keyS3Endpoint:  "http://localhost:9000",
		keyS3AccessKey: "minio",
		keyS3Secret:    "minio-secret",
	})

	settings, err := NewSettingsService(store, envMap(map[string]string{"AWS_REGION": "eu-west-2"})).Get()
	require.NoError(t, err)

	assert.Equal(t, "eu-west-2", settings.S3.Region)
	assert.Equal(t, "http://localhost:9000", settings.S3.Endpoint)
	assert.Equal(t, "minio", settings.S3.AccessKeyID)
	assert.Equal(t, "minio-secret", settings.S3.SecretAccessKey)
}

func TestSettingsService_HistoryAndDescription(t *testing.T) {
	settings, err := NewSettingsService(newMockConfigStore(nil), envMap(nil)).Get()
	require.NoError(t, err)
	assert.True(t, settings.History.Enabled)
	assert.Empty(t, settings.History.DataDir)
	assert.Empty(t, settings.Embedding.Description)

	store := newMockConfigStore(map[string]any{
		keyHistoryEnabled:   false,
		keyHistoryDataDir:   "/var/lib/sercha",
		keyEmbedDescription: "Company handbook",
	})
	settings, err = NewSettingsService(store, envMap(nil)).Get()
	require.NoError(t, err)
	assert.False(t, settings.History.Enabled)
	assert.Equal(t, "/var/lib/sercha", settings.History.DataDir)
	assert.Equal(t, "Company handbook", settings.Embedding.Description)
}
