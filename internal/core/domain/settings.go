package domain

import "time"

// AIProvider identifies an embedding or model provider.
type AIProvider string

// Available AI providers.
const (
	// AIProviderOllama is local Ollama instance.
	AIProviderOllama AIProvider = "ollama"

	// AIProviderOpenAI is OpenAI cloud API or a compatible server.
	AIProviderOpenAI AIProvider = "openai"

	// AIProviderGemini is the Google Gemini API.
	AIProviderGemini AIProvider = "gemini"
)

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderOllama, AIProviderOpenAI, AIProviderGemini:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	return p == AIProviderOpenAI || p == AIProviderGemini
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p AIProvider) Description() string {
	switch p {
	case AIProviderOllama:
		return "Ollama (local)"
	case AIProviderOpenAI:
		return "OpenAI (cloud)"
	case AIProviderGemini:
		return "Gemini (cloud)"
	default:
		return unknownDescription
	}
}

// DefaultEmbeddingModels returns default models for each embedding provider.
func DefaultEmbeddingModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama: "nomic-embed-text",
		AIProviderOpenAI: "text-embedding-3-small",
		AIProviderGemini: "text-embedding-004",
	}
}

// EmbeddingDimensions returns the vector dimensions for known models.
func EmbeddingDimensions() map[string]int {
	return map[string]int{
		// Ollama models
		"nomic-embed-text":  768,
		"mxbai-embed-large": 1024,
		"all-minilm":        384,
		// OpenAI models
		"text-embedding-3-small": 1536,
		"text-embedding-3-large": 3072,
		"text-embedding-ada-002": 1536,
		// Gemini models
		"text-embedding-004":   768,
		"gemini-embedding-001": 3072,
	}
}

// VectorStoreProvider identifies the vector index backend.
type VectorStoreProvider string

// Available vector stores.
const (
	// VectorStoreChromem is an embedded chromem-go database.
	VectorStoreChromem VectorStoreProvider = "chromem"

	// VectorStorePinecone is the hosted Pinecone REST API.
	VectorStorePinecone VectorStoreProvider = "pinecone"

	// VectorStorePGVector is PostgreSQL with the pgvector extension.
	VectorStorePGVector VectorStoreProvider = "pgvector"
)

// IsValid returns true if the vector store is recognised.
func (v VectorStoreProvider) IsValid() bool {
	switch v {
	case VectorStoreChromem, VectorStorePinecone, VectorStorePGVector:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (v VectorStoreProvider) String() string {
	return string(v)
}

// TruncateBudget returns the byte budget for the full-document content
// kept in each record's metadata. It tracks the store's metadata limit.
func (v VectorStoreProvider) TruncateBudget() int {
	switch v {
	case VectorStorePinecone:
		return DefaultTruncateBytes
	case VectorStorePGVector:
		return 256 * 1024
	case VectorStoreChromem:
		return 128 * 1024
	default:
		return DefaultTruncateBytes
	}
}

// CrawlerSettings holds crawl bounds and HTTP behaviour.
type CrawlerSettings struct {
	Options           CrawlOptions
	UserAgent         string
	RequestsPerSecond float64
	MaxBodyBytes      int64
}

// EmbeddingSettings holds embedding provider configuration.
type EmbeddingSettings struct {
	// Provider is the embedding service provider.
	Provider AIProvider

	// Model is the embedding model name.
	Model string

	// BaseURL is the API endpoint (Ollama or OpenAI-compatible servers).
	BaseURL string

	// APIKey is the API key (OpenAI, Gemini).
	APIKey string

	// Concurrency bounds in-flight embedding calls.
	Concurrency int

	// CacheSize enables an in-memory embedding cache when positive.
	CacheSize int

	// CacheTTL is how long cached embeddings live.
	CacheTTL time.Duration

	// Description is prefixed to every embedded text when set.
	Description string
}

// IsConfigured returns true if the embedding provider is set up.
func (e EmbeddingSettings) IsConfigured() bool {
	if !e.Provider.IsValid() {
		return false
	}
	if e.Provider.RequiresAPIKey() && e.APIKey == "" {
		return false
	}
	return true
}

// VectorStoreSettings holds vector index configuration.
type VectorStoreSettings struct {
	Provider VectorStoreProvider

	// Namespace is used when a request does not name one.
	Namespace string

	// Path persists the chromem database when set.
	Path string

	// Host and APIKey address a Pinecone index.
	Host   string
	APIKey string

	// DSN and Table address a pgvector table.
	DSN   string
	Table string

	// Dimensions is the pgvector column size.
	Dimensions int

	Upsert UpsertOptions
}

// ExtractorSettings addresses the out-of-process document extractor.
type ExtractorSettings struct {
	BaseURL string
	Timeout time.Duration
}

// GitHubSettings configures repository tree walks.
type GitHubSettings struct {
	Token    string
	MaxFiles int
}

// MediaSettings configures audio transcription and image OCR.
type MediaSettings struct {
	TranscriptionBaseURL string
	TranscriptionAPIKey  string
	TranscriptionModel   string
	OCRAPIKey            string
	OCRModel             string
}

// S3Settings addresses s3:// resources. Empty credentials fall back to
// the AWS default chain.
type S3Settings struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	Endpoint        string
}

// HistorySettings configures the ingest run history.
type HistorySettings struct {
	// Enabled persists runs in SQLite. When false, runs are kept in
	// memory for the life of the process.
	Enabled bool

	// DataDir holds the database. Empty means ~/.sercha-ingest/data.
	DataDir string
}

// Settings holds all application settings.
type Settings struct {
	Crawler     CrawlerSettings
	Prepare     PrepareOptions
	Embedding   EmbeddingSettings
	VectorStore VectorStoreSettings
	Extractor   ExtractorSettings
	GitHub      GitHubSettings
	Media       MediaSettings
	S3          S3Settings
	History     HistorySettings
}

// DefaultSettings returns settings with working defaults. The embedding
// provider is Ollama so a local setup needs no API key.
func DefaultSettings() Settings {
	prepare := DefaultPrepareOptions()
	prepare.TruncateBytesAmount = VectorStoreChromem.TruncateBudget()
	return Settings{
		Crawler: CrawlerSettings{
			Options:           DefaultCrawlOptions(),
			UserAgent:         "sercha-ingest/1.0",
			RequestsPerSecond: 2,
			MaxBodyBytes:      20 << 20,
		},
		Prepare: prepare,
		Embedding: EmbeddingSettings{
			Provider:    AIProviderOllama,
			Model:       DefaultEmbeddingModels()[AIProviderOllama],
			BaseURL:     "http://localhost:11434",
			Concurrency: 8,
			CacheTTL:    time.Hour,
		},
		VectorStore: VectorStoreSettings{
			Provider:   VectorStoreChromem,
			Namespace:  "default",
			Table:      "sercha_vectors",
			Dimensions: 768,
			Upsert:     DefaultUpsertOptions(),
		},
		Extractor: ExtractorSettings{
			Timeout: 2 * time.Minute,
		},
		GitHub: GitHubSettings{
			MaxFiles: 200,
		},
		Media: MediaSettings{
			TranscriptionBaseURL: "https://api.openai.com/v1",
			TranscriptionModel:   "whisper-1",
			OCRModel:             "gemini-2.0-flash",
		},
		S3: S3Settings{
			Region: "us-east-1",
		},
		History: HistorySettings{
			Enabled: true,
		},
	}
}

// Redacted returns a copy with secrets masked, for display.
func (s Settings) Redacted() Settings {
	s.Embedding.APIKey = MaskSecret(s.Embedding.APIKey)
	s.VectorStore.APIKey = MaskSecret(s.VectorStore.APIKey)
	s.VectorStore.DSN = MaskSecret(s.VectorStore.DSN)
	s.GitHub.Token = MaskSecret(s.GitHub.Token)
	s.Media.TranscriptionAPIKey = MaskSecret(s.Media.TranscriptionAPIKey)
	s.Media.OCRAPIKey = MaskSecret(s.Media.OCRAPIKey)
	s.S3.SecretAccessKey = MaskSecret(s.S3.SecretAccessKey)
	return s
}

// MaskSecret keeps the first and last four characters of long secrets.
// Empty stays empty.
func MaskSecret(secret string) string {
	switch {
	case secret == "":
		return ""
	case len(secret) <= 8:
		return "****"
	default:
		return secret[:4] + "..." + secret[len(secret)-4:]
	}
}
