package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
)

var queryCmd = &cobra.Command{
	Use:   "query <text>",
	Short: "Find the records nearest to a text",
	Long: `Embed a query with the configured provider and print the closest
records in a namespace.

Examples:
  sercha-ingest query "how do I rotate keys" --top-k 3
  sercha-ingest query "pricing" --filter sourceType=web --json`,
	Args: cobra.MinimumNArgs(1),
	RunE: runQuery,
}

func init() {
	queryCmd.Flags().StringP("namespace", "n", "", "vector index namespace (default from settings)")
	queryCmd.Flags().IntP("top-k", "k", 5, "number of matches")
	queryCmd.Flags().StringSlice("filter", nil, "metadata equality filter key=value (repeatable)")
	queryCmd.Flags().Bool("json", false, "print matches as JSON")
	rootCmd.AddCommand(queryCmd)
}

func runQuery(cmd *cobra.Command, args []string) error {
	text := strings.Join(args, " ")
	topK, _ := cmd.Flags().GetInt("top-k")
	if topK <= 0 {
		return errors.New("--top-k must be positive")
	}

	svc, err := loadServices(cmd, NeedIndex)
	if err != nil {
		return err
	}
	defer svc.close()
	if svc.Query == nil {
		return errors.New("query service not configured")
	}

	namespace, _ := cmd.Flags().GetString("namespace")
	pairs, _ := cmd.Flags().GetStringSlice("filter")
	filter, err := parseFilter(pairs)
	if err != nil {
		return err
	}

	matches, err := svc.Query.Query(cmd.Context(), namespace, text, topK, filter)
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}

	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		return writeJSON(cmd, matches)
	}

	if len(matches) == 0 {
		cmd.Println("No matches found.")
		return nil
	}
	cmd.Printf("Found %d match(es):\n\n", len(matches))
	for i, m := range matches {
		title, _ := m.Metadata[domain.MetaTitle].(string)
		source, _ := m.Metadata[domain.MetaSource].(string)
		cmd.Printf("%d. [%.4f] %s\n", i+1, m.Score, title)
		if source != "" {
			cmd.Printf("   Source: %s\n", source)
		}
		cmd.Printf("   ID: %s\n", m.ID)
		if content, ok := m.Metadata[domain.MetaContent].(string); ok {
			cmd.Printf("   %s\n", previewText(content))
		}
		cmd.Println()
	}
	return nil
}

// parseFilter turns key=value pairs into an equality filter.
func parseFilter(pairs []string) (map[string]any, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	filter := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		k, v, ok := strings.Cut(pair, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, fmt.Errorf("%w: filter %q must be key=value", domain.ErrInvalidInput, pair)
		}
		filter[k] = strings.TrimSpace(v)
	}
	return filter, nil
}
