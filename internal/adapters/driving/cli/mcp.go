package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-ingest/internal/adapters/driving/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "MCP server commands",
	Long:  `Commands for the Model Context Protocol (MCP) server integration.`,
}

var mcpServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server",
	Long: `Start the Model Context Protocol server so AI assistants can crawl,
ingest and query.

By default, the server communicates over stdio using JSON-RPC. Use --port
to serve streamable HTTP instead.

The ingest and query tools need a reachable embedding provider and vector
index. When either is unavailable the server starts with the crawl tool
only.

Examples:
  # Stdio mode (default, for desktop assistants)
  sercha-ingest mcp serve

  # HTTP mode (for MCP Inspector, remote access)
  sercha-ingest mcp serve --port 8080`,
	RunE: runMCPServe,
}

func init() {
	mcpServeCmd.Flags().IntP("port", "p", 0, "HTTP port (0 = use stdio)")
	mcpCmd.AddCommand(mcpServeCmd)
	rootCmd.AddCommand(mcpCmd)
}

func runMCPServe(cmd *cobra.Command, _ []string) error {
	port, err := cmd.Flags().GetInt("port")
	if err != nil {
		return fmt.Errorf("getting port flag: %w", err)
	}

	svc, err := loadServicesWithFallback(cmd)
	if err != nil {
		return err
	}
	defer svc.close()

	server, err := mcp.NewServer(mcpPorts(svc))
	if err != nil {
		return err
	}

	if port > 0 {
		addr := fmt.Sprintf(":%d", port)
		fmt.Fprintf(cmd.OutOrStdout(), "MCP server listening on http://localhost%s\n", addr)
		return server.RunHTTP(cmd.Context(), addr)
	}

	return server.Run(cmd.Context())
}

func mcpPorts(svc *Services) *mcp.Ports {
	return &mcp.Ports{
		Crawler:       svc.Crawler,
		Ingest:        svc.Ingest,
		Query:         svc.Query,
		Settings:      svc.Settings,
		Runs:          svc.Runs,
		CrawlDefaults: svc.Config.Crawler.Options,
		SourceTypes:   svc.SourceTypes,
	}
}
