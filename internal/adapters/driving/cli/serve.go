package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-ingest/internal/adapters/driven/config/manifest"
	"github.com/custodia-labs/sercha-ingest/internal/adapters/driving/mcp"
	"github.com/custodia-labs/sercha-ingest/internal/adapters/driving/rest"
	"github.com/custodia-labs/sercha-ingest/internal/adapters/driving/schedule"
	"github.com/custodia-labs/sercha-ingest/internal/logger"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the REST API",
	Long: `Serve crawl, ingest and query over HTTP.

Routes:
  GET  /healthz
  POST /v1/crawl
  POST /v1/crawl/upload
  POST /v1/ingest
  POST /v1/query
  GET  /v1/settings
  GET  /v1/runs
  GET  /v1/runs/{id}

With --manifest, the manifest is ingested on its cron schedule while the
server runs. With --mcp, the MCP streamable HTTP endpoint is mounted at
/mcp on the same port.

Examples:
  sercha-ingest serve --addr :8080
  sercha-ingest serve --manifest seeds.yaml --mcp`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("addr", ":8080", "listen address")
	serveCmd.Flags().StringP("manifest", "m", "", "YAML manifest to ingest on its schedule")
	serveCmd.Flags().StringSlice("origins", nil, "allowed CORS origins (default any)")
	serveCmd.Flags().Bool("mcp", false, "mount the MCP endpoint at /mcp")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	addr, _ := cmd.Flags().GetString("addr")
	manifestPath, _ := cmd.Flags().GetString("manifest")
	origins, _ := cmd.Flags().GetStringSlice("origins")
	withMCP, _ := cmd.Flags().GetBool("mcp")

	svc, err := loadServices(cmd, NeedIndex)
	if err != nil {
		return err
	}
	defer svc.close()

	server, err := rest.NewServer(rest.Ports{
		Crawler:       svc.Crawler,
		Ingest:        svc.Ingest,
		Query:         svc.Query,
		Settings:      svc.Settings,
		Runs:          svc.Runs,
		CrawlDefaults: svc.Config.Crawler.Options,
	}, rest.Options{AllowedOrigins: origins})
	if err != nil {
		return err
	}

	if withMCP {
		mcpServer, err := mcp.NewServer(mcpPorts(svc))
		if err != nil {
			return err
		}
		server.Mount("/mcp", mcpServer.Handler())
	}

	if manifestPath != "" {
		scheduler, err := scheduleManifest(cmd.Context(), svc, manifestPath)
		if err != nil {
			return err
		}
		if scheduler != nil {
			scheduler.Start()
			defer scheduler.Stop()
		}
	}

	cmd.Printf("Listening on %s\n", addr)
	return server.Run(cmd.Context(), addr)
}

// scheduleManifest registers the manifest's ingest run on its schedule.
// It returns nil when the manifest has no schedule.
func scheduleManifest(ctx context.Context, svc *Services, path string) (*schedule.Scheduler, error) {
	m, err := manifest.Load(path)
	if err != nil {
		return nil, err
	}
	if m.Schedule == "" {
		logger.Warn("manifest %s has no schedule; nothing to run", path)
		return nil, nil
	}
	if svc.Ingest == nil {
		return nil, errors.New("ingest service not configured")
	}

	req, err := m.Request(svc.Config.Crawler.Options, svc.Config.Prepare)
	if err != nil {
		return nil, err
	}

	s := schedule.New(ctx)
	err = s.Add("manifest "+path, m.Schedule, func(ctx context.Context) error {
		result, err := svc.Ingest.Ingest(ctx, req)
		if err != nil {
			return err
		}
		logger.Info("run %s: %d pages, %d/%d records upserted",
			result.RunID, result.Pages, result.Report.Upserted(), result.Records)
		if err := result.Report.Err(); err != nil {
			return fmt.Errorf("run %s: %w", result.RunID, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}
