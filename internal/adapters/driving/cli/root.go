// Package cli provides the sercha-ingest command line.
package cli

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
	"github.com/custodia-labs/sercha-ingest/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-ingest/internal/logger"
)

// version is set at build time via -ldflags.
var version = "dev"

var (
	verbose    bool
	configPath string
	envFile    string
)

// Needs says how much of the pipeline a command uses.
type Needs int

// Service levels.
const (
	// NeedSettings loads configuration only.
	NeedSettings Needs = iota

	// NeedRuns adds the run history.
	NeedRuns

	// NeedCrawl adds the fetchers and parsers.
	NeedCrawl

	// NeedIndex builds everything: crawl, embedding, vector index and
	// run history.
	NeedIndex
)

// Services are what a command runs against.
type Services struct {
	Settings    driving.SettingsService
	Config      *domain.Settings
	Crawler     driving.Crawler
	Ingest      driving.IngestService
	Query       driving.QueryService
	Runs        driving.RunHistory
	SourceTypes func() []domain.SourceType

	// Check pings the configured providers. May be nil.
	Check func(ctx context.Context, s *domain.Settings) error

	// Close releases adapters. May be nil.
	Close func()
}

func (s *Services) close() {
	if s != nil && s.Close != nil {
		s.Close()
	}
}

// Builder creates services from the config path.
type Builder func(ctx context.Context, configPath string, needs Needs) (*Services, error)

var buildServices Builder

// SetBuilder installs the function that wires adapters into services.
func SetBuilder(b Builder) {
	buildServices = b
}

// SetVersion sets the version printed by "version".
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

var rootCmd = &cobra.Command{
	Use:   "sercha-ingest",
	Short: "Crawl, chunk and embed content into a vector index",
	Long: `sercha-ingest turns web pages, documents and media into embedded chunks.

It crawls from seed URLs or local files, parses each resource by type,
splits the text into overlapping chunks, embeds them and upserts the
vectors into chromem, Pinecone or pgvector.`,
	SilenceUsage: true,
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		logger.SetVerbose(verbose)
		loadEnv(envFile)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "print debug and info logs")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.sercha-ingest/config.toml)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before reading settings")
}

// loadEnv loads a dotenv file. A missing file is not an error; set
// variables are not overridden.
func loadEnv(path string) {
	if path == "" {
		return
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Warn("load %s: %v", path, err)
	}
}

// loadServices builds the services for a command.
func loadServices(cmd *cobra.Command, needs Needs) (*Services, error) {
	if buildServices == nil {
		return nil, errors.New("services not configured")
	}
	return buildServices(cmd.Context(), configPath, needs)
}

// loadServicesWithFallback builds the full pipeline, falling back to
// crawl-only services when the embedding provider or vector index is
// unavailable.
func loadServicesWithFallback(cmd *cobra.Command) (*Services, error) {
	svc, err := loadServices(cmd, NeedIndex)
	if err == nil {
		return svc, nil
	}
	if !errors.Is(err, domain.ErrEmbeddingUnavailable) && !errors.Is(err, domain.ErrVectorIndexUnavailable) {
		return nil, err
	}
	logger.Warn("ingest and query disabled: %v", err)
	return loadServices(cmd, NeedCrawl)
}

// Execute runs the root command. SIGINT and SIGTERM cancel the context.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}
