package cli

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage application settings",
	Long: `View and change crawler, preparer, embedding and vector store settings.

Settings live in ~/.sercha-ingest/config.toml (or --config) as dotted keys.
Environment variables such as OPENAI_API_KEY override the file.`,
	RunE: runSettingsShow,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current settings",
	RunE:  runSettingsShow,
}

var settingsSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a setting",
	Long: `Set one dotted key and save the config file.

Examples:
  sercha-ingest settings set crawler.max_pages 50
  sercha-ingest settings set embedding.provider openai
  sercha-ingest settings set vector.provider pgvector
  sercha-ingest settings set crawler.exclude_url_types .zip,.exe`,
	Args: cobra.ExactArgs(2),
	RunE: runSettingsSet,
}

var settingsCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate settings and ping the configured providers",
	RunE:  runSettingsCheck,
}

func init() {
	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsSetCmd)
	settingsCmd.AddCommand(settingsCheckCmd)
	rootCmd.AddCommand(settingsCmd)
}

func runSettingsShow(cmd *cobra.Command, _ []string) error {
	svc, err := loadServices(cmd, NeedSettings)
	if err != nil {
		return err
	}
	defer svc.close()
	if svc.Settings == nil {
		return errors.New("settings service not configured")
	}

	settings, err := svc.Settings.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}
	s := settings.Redacted()

	cmd.Println("Current Settings")
	cmd.Println("================")
	cmd.Println()

	cmd.Println("[Crawler]")
	cmd.Printf("  Max depth: %d\n", s.Crawler.Options.MaxDepth)
	cmd.Printf("  Max pages: %d\n", s.Crawler.Options.MaxPages)
	cmd.Printf("  Same host only: %s\n", yesNo(s.Crawler.Options.SameHostOnly))
	cmd.Printf("  Excluded types: %s\n", orNone(strings.Join(s.Crawler.Options.ExcludeURLTypes, ", ")))
	cmd.Printf("  Excluded domains: %s\n", orNone(strings.Join(s.Crawler.Options.ExcludeURLDomains, ", ")))
	cmd.Printf("  Request timeout: %s\n", s.Crawler.Options.RequestTimeout)
	cmd.Printf("  Requests/second: %g\n", s.Crawler.RequestsPerSecond)
	cmd.Println()

	cmd.Println("[Prepare]")
	cmd.Printf("  Truncate bytes: %d\n", s.Prepare.TruncateBytesAmount)
	cmd.Printf("  Split content: %s\n", yesNo(s.Prepare.SplitContent))
	if s.Prepare.SplitContent {
		cmd.Printf("  Splitter: %s (%d/%d)\n", s.Prepare.SplitterMethod, s.Prepare.ChunkSize, s.Prepare.ChunkOverlap)
	}
	cmd.Println()

	cmd.Println("[Embedding]")
	cmd.Printf("  Provider: %s\n", s.Embedding.Provider.Description())
	cmd.Printf("  Model: %s\n", s.Embedding.Model)
	if s.Embedding.BaseURL != "" {
		cmd.Printf("  Base URL: %s\n", s.Embedding.BaseURL)
	}
	if s.Embedding.Provider.RequiresAPIKey() {
		cmd.Printf("  API Key: %s\n", orNotSet(s.Embedding.APIKey))
	}
	status := "configured"
	if !settings.Embedding.IsConfigured() {
		status = "not configured"
	}
	cmd.Printf("  Status: %s\n", status)
	cmd.Println()

	cmd.Println("[Vector Store]")
	cmd.Printf("  Provider: %s\n", s.VectorStore.Provider)
	cmd.Printf("  Namespace: %s\n", s.VectorStore.Namespace)
	switch s.VectorStore.Provider {
	case domain.VectorStoreChromem:
		cmd.Printf("  Path: %s\n", orValue(s.VectorStore.Path, "(in-memory)"))
	case domain.VectorStorePinecone:
		cmd.Printf("  Host: %s\n", orNotSet(s.VectorStore.Host))
		cmd.Printf("  API Key: %s\n", orNotSet(s.VectorStore.APIKey))
	case domain.VectorStorePGVector:
		cmd.Printf("  DSN: %s\n", orNotSet(s.VectorStore.DSN))
		cmd.Printf("  Table: %s\n", s.VectorStore.Table)
		cmd.Printf("  Dimensions: %d\n", s.VectorStore.Dimensions)
	}
	cmd.Printf("  Batch size: %d\n", s.VectorStore.Upsert.BatchSize)
	cmd.Printf("  Upsert concurrency: %d\n", s.VectorStore.Upsert.Concurrency)
	cmd.Println()

	cmd.Println("[Sources]")
	cmd.Printf("  Extractor: %s\n", orNotSet(s.Extractor.BaseURL))
	cmd.Printf("  GitHub token: %s\n", orNotSet(s.GitHub.Token))
	cmd.Printf("  Transcription key: %s\n", orNotSet(s.Media.TranscriptionAPIKey))
	cmd.Printf("  OCR key: %s\n", orNotSet(s.Media.OCRAPIKey))
	cmd.Printf("  S3 region: %s\n", s.S3.Region)
	cmd.Println()

	cmd.Println("[History]")
	cmd.Printf("  Enabled: %s\n", yesNo(s.History.Enabled))
	if s.History.Enabled {
		cmd.Printf("  Data dir: %s\n", orValue(s.History.DataDir, "~/.sercha-ingest/data"))
	}
	cmd.Println()

	if err := svc.Settings.Validate(settings); err != nil {
		cmd.Printf("Warning: %v\n", err)
		cmd.Println("Run 'sercha-ingest settings set <key> <value>' to fix configuration issues.")
	} else {
		cmd.Println("All settings are valid.")
	}
	return nil
}

func runSettingsSet(cmd *cobra.Command, args []string) error {
	svc, err := loadServices(cmd, NeedSettings)
	if err != nil {
		return err
	}
	defer svc.close()
	if svc.Settings == nil {
		return errors.New("settings service not configured")
	}

	key := strings.TrimSpace(args[0])
	if err := svc.Settings.Set(key, parseSettingValue(args[1])); err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}
	cmd.Printf("%s updated.\n", key)
	return nil
}

func runSettingsCheck(cmd *cobra.Command, _ []string) error {
	svc, err := loadServices(cmd, NeedSettings)
	if err != nil {
		return err
	}
	defer svc.close()
	if svc.Settings == nil {
		return errors.New("settings service not configured")
	}

	settings, err := svc.Settings.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}
	if err := svc.Settings.Validate(settings); err != nil {
		return err
	}
	cmd.Println("Settings: ok")

	if svc.Check != nil {
		if err := svc.Check(cmd.Context(), settings); err != nil {
			return err
		}
		cmd.Printf("Embedding (%s): ok\n", settings.Embedding.Provider)
		cmd.Printf("Vector store (%s): ok\n", settings.VectorStore.Provider)
	}
	return nil
}

// parseSettingValue stores integers, floats and booleans with their TOML
// types. Everything else, including comma lists, stays a string.
func parseSettingValue(raw string) any {
	raw = strings.TrimSpace(raw)
	if i, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return f
	}
	switch strings.ToLower(raw) {
	case "true":
		return true
	case "false":
		return false
	}
	return raw
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func orValue(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

func orNotSet(s string) string {
	return orValue(s, "(not set)")
}

func orNone(s string) string {
	return orValue(s, "(none)")
}
