package cli

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-ingest/internal/adapters/driven/config/manifest"
	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
	"github.com/custodia-labs/sercha-ingest/internal/core/ports/driving"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [<url|path>...]",
	Short: "Crawl, chunk, embed and upsert seeds into the vector index",
	Long: `Run the full pipeline for one or more seeds.

Seeds come from the arguments or from a YAML manifest. Pages are split
into chunks, embedded with the configured provider and written to the
vector index in concurrent batches. A failed batch does not stop the
others; the command exits non-zero when any batch failed.

Examples:
  sercha-ingest ingest https://example.com/docs --namespace docs
  sercha-ingest ingest ./handbook.pdf ./notes.md
  sercha-ingest ingest --manifest seeds.yaml`,
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().StringP("manifest", "m", "", "YAML manifest listing seeds")
	ingestCmd.Flags().StringP("namespace", "n", "", "vector index namespace (default from settings or manifest)")
	addCrawlBoundFlags(ingestCmd)
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	manifestPath, _ := cmd.Flags().GetString("manifest")
	if manifestPath == "" && len(args) == 0 {
		return errors.New("provide at least one seed or --manifest")
	}

	svc, err := loadServices(cmd, NeedIndex)
	if err != nil {
		return err
	}
	defer svc.close()
	if svc.Ingest == nil {
		return errors.New("ingest service not configured")
	}

	req, err := buildIngestRequest(svc.Config, manifestPath, args)
	if err != nil {
		return err
	}
	req.Crawl = crawlOptionsFromFlags(cmd, req.Crawl)
	if ns, _ := cmd.Flags().GetString("namespace"); ns != "" {
		req.Namespace = ns
	}

	result, err := svc.Ingest.Ingest(cmd.Context(), req)
	if err != nil {
		return fmt.Errorf("ingest failed: %w", err)
	}
	printIngestResult(cmd.OutOrStdout(), result)
	return result.Report.Err()
}

// buildIngestRequest merges manifest seeds and argument seeds over the
// configured defaults.
func buildIngestRequest(cfg *domain.Settings, manifestPath string, args []string) (driving.IngestRequest, error) {
	req := driving.IngestRequest{
		Crawl:   cfg.Crawler.Options,
		Prepare: cfg.Prepare,
	}
	if manifestPath != "" {
		m, err := manifest.Load(manifestPath)
		if err != nil {
			return req, err
		}
		req, err = m.Request(cfg.Crawler.Options, cfg.Prepare)
		if err != nil {
			return req, err
		}
	}
	for _, arg := range args {
		seed, err := seedFromArg(arg)
		if err != nil {
			return req, err
		}
		req.Seeds = append(req.Seeds, seed)
	}
	return req, nil
}

func printIngestResult(w io.Writer, r *driving.IngestResult) {
	fmt.Fprintf(w, "Run %s into namespace %q\n", r.RunID, r.Namespace)
	fmt.Fprintf(w, "  Pages:    %d\n", r.Pages)
	fmt.Fprintf(w, "  Chunks:   %d\n", r.Chunks)
	fmt.Fprintf(w, "  Upserted: %d/%d\n", r.Report.Upserted(), r.Records)
	if failed := r.Report.Failed(); len(failed) > 0 {
		fmt.Fprintf(w, "  Failed batches: %d\n", len(failed))
		for _, b := range failed {
			fmt.Fprintf(w, "    batch %d (%d records): %v\n", b.Index, b.Size, b.Err)
		}
	}
	fmt.Fprintf(w, "  Duration: %s\n", r.Duration.Round(time.Millisecond))
}
