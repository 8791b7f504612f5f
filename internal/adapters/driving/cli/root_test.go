package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
)

func TestRootCmd_Use(t *testing.T) {
	assert.Equal(t, "sercha-ingest", rootCmd.Use)
}

func TestRootCmd_HasSubcommands(t *testing.T) {
	names := make([]string, 0, len(rootCmd.Commands()))
	for _, c := range rootCmd.Commands() {
		names = append(names, c.Name())
	}
	for _, want := range []string{"crawl", "ingest", "query", "serve", "mcp", "watch", "settings", "version"} {
		assert.Contains(t, names, want)
	}
}

func TestRootCmd_PersistentFlags(t *testing.T) {
	verboseFlag := rootCmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)

	require.NotNil(t, rootCmd.PersistentFlags().Lookup("config"))
	require.NotNil(t, rootCmd.PersistentFlags().Lookup("env-file"))
}

func TestLoadServices_NoBuilder(t *testing.T) {
	original := buildServices
	buildServices = nil
	defer func() { buildServices = original }()

	_, err := executeCommand("settings", "show")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "services not configured")
}

func TestLoadServicesWithFallback(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()

	cmd := &cobra.Command{}
	cmd.SetContext(context.Background())

	t.Run("full pipeline", func(t *testing.T) {
		ts.needs = nil
		svc, err := loadServicesWithFallback(cmd)
		require.NoError(t, err)
		assert.NotNil(t, svc.Ingest)
		assert.Equal(t, []Needs{NeedIndex}, ts.needs)
	})

	t.Run("embedding unavailable falls back to crawl", func(t *testing.T) {
		ts.needs = nil
		ts.buildErr = fmt.Errorf("ping: %w", domain.ErrEmbeddingUnavailable)
		svc, err := loadServicesWithFallback(cmd)
		require.NoError(t, err)
		assert.Nil(t, svc.Ingest)
		assert.NotNil(t, svc.Crawler)
		assert.Equal(t, []Needs{NeedIndex, NeedCrawl}, ts.needs)
	})

	t.Run("other errors are returned", func(t *testing.T) {
		ts.buildErr = domain.ErrInvalidConfig
		_, err := loadServicesWithFallback(cmd)
		assert.ErrorIs(t, err, domain.ErrInvalidConfig)
	})
}

func TestLoadEnv(t *testing.T) {
	const key = "SERCHA_INGEST_TEST_ENV_VALUE"
	t.Cleanup(func() { os.Unsetenv(key) })

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte(key+"=from-file\n"), 0o600))

	loadEnv(path)
	assert.Equal(t, "from-file", os.Getenv(key))

	// Missing files are ignored.
	loadEnv(filepath.Join(t.TempDir(), "missing.env"))
	loadEnv("")
}

func TestSetVersion(t *testing.T) {
	original := version
	defer func() { version = original }()

	SetVersion("")
	assert.Equal(t, original, version)

	SetVersion("1.2.3")
	assert.Equal(t, "1.2.3", version)
}
