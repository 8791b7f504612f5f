package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-ingest/internal/adapters/driven/config/manifest"
	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
	"github.com/custodia-labs/sercha-ingest/internal/core/ports/driving"
)

// previewLength is how much page content "crawl" prints per page.
const previewLength = 200

var crawlCmd = &cobra.Command{
	Use:   "crawl <url|path>",
	Short: "Crawl a seed and print the pages found",
	Long: `Crawl a URL or local file and print the parsed pages without embedding
or writing anything.

Web pages are crawled breadth-first up to --max-depth link hops and
--max-pages pages. Documents, media and repositories are parsed as a
single resource.

Examples:
  sercha-ingest crawl https://example.com/docs --max-depth 2 --max-pages 20
  sercha-ingest crawl ./report.pdf
  sercha-ingest crawl https://github.com/owner/repo --json`,
	Args: cobra.ExactArgs(1),
	RunE: runCrawl,
}

func init() {
	crawlCmd.Flags().Bool("json", false, "print pages as JSON")
	crawlCmd.Flags().String("source-type", "", "source type hint (web, pdf, docx, csv, md, txt, audio, image, github, youtube)")
	crawlCmd.Flags().String("title", "", "title for the seed page")
	crawlCmd.Flags().String("scope", "", "CSS selector restricting HTML extraction")
	addCrawlBoundFlags(crawlCmd)
	rootCmd.AddCommand(crawlCmd)
}

// addCrawlBoundFlags registers --max-depth and --max-pages. Unset flags
// keep the configured value; --max-depth 0 fetches only the seed.
func addCrawlBoundFlags(cmd *cobra.Command) {
	cmd.Flags().Int("max-depth", 0, "maximum link hops from the seed, 0 for the seed only (default from settings)")
	cmd.Flags().Int("max-pages", 0, "maximum pages per seed (default from settings)")
}

// crawlOptionsFromFlags applies --max-depth and --max-pages over opts.
func crawlOptionsFromFlags(cmd *cobra.Command, opts domain.CrawlOptions) domain.CrawlOptions {
	if cmd.Flags().Changed("max-depth") {
		v, _ := cmd.Flags().GetInt("max-depth")
		opts.MaxDepth = max(v, 0)
	}
	if v, _ := cmd.Flags().GetInt("max-pages"); v > 0 {
		opts.MaxPages = v
	}
	return opts
}

func runCrawl(cmd *cobra.Command, args []string) error {
	svc, err := loadServices(cmd, NeedCrawl)
	if err != nil {
		return err
	}
	defer svc.close()
	if svc.Crawler == nil {
		return errors.New("crawler not configured")
	}

	seed, err := seedFromArg(args[0])
	if err != nil {
		return err
	}
	hint, _ := cmd.Flags().GetString("source-type")
	if hint != "" {
		st, err := domain.ParseSourceType(hint)
		if err != nil {
			return err
		}
		seed.SourceType = st
	}
	seed.Title, _ = cmd.Flags().GetString("title")
	seed.Scope, _ = cmd.Flags().GetString("scope")

	opts := crawlOptionsFromFlags(cmd, svc.Config.Crawler.Options)
	pages, err := svc.Crawler.Crawl(cmd.Context(), seed, opts)
	if err != nil {
		return fmt.Errorf("crawl failed: %w", err)
	}

	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		return writeJSON(cmd, pages)
	}

	if len(pages) == 0 {
		cmd.Println("No pages found.")
		return nil
	}
	cmd.Printf("Found %d page(s):\n\n", len(pages))
	for i, p := range pages {
		cmd.Printf("%d. %s\n", i+1, p.Title)
		cmd.Printf("   Source: %s (%s)\n", p.Source, p.SourceType)
		cmd.Printf("   Length: %d bytes\n", len(p.Content))
		if preview := previewText(p.Content); preview != "" {
			cmd.Printf("   %s\n", preview)
		}
		cmd.Println()
	}
	return nil
}

// seedFromArg treats an existing local path as a file and anything else
// as a URL.
func seedFromArg(arg string) (driving.CrawlSeed, error) {
	if info, err := os.Stat(arg); err == nil && !info.IsDir() {
		res, err := manifest.FileResource(arg)
		if err != nil {
			return driving.CrawlSeed{}, err
		}
		return driving.CrawlSeed{Resource: res}, nil
	}
	if !strings.Contains(arg, "://") {
		return driving.CrawlSeed{}, fmt.Errorf("%w: %s is neither a file nor a URL", domain.ErrInvalidInput, arg)
	}
	return driving.CrawlSeed{Resource: domain.URLResource(arg)}, nil
}

func previewText(content string) string {
	text := strings.Join(strings.Fields(content), " ")
	if len(text) <= previewLength {
		return text
	}
	return domain.TruncateBytes(text, previewLength) + "..."
}
