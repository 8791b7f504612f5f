package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-ingest/internal/adapters/driving/watch"
)

var watchCmd = &cobra.Command{
	Use:   "watch <dir>",
	Short: "Ingest local files as they change",
	Long: `Watch a directory tree and ingest files when they are created or
written. Hidden files and directories are ignored, as are files with no
registered parser.

Examples:
  sercha-ingest watch ./docs --namespace docs --initial-scan`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringP("namespace", "n", "", "vector index namespace (default from settings)")
	watchCmd.Flags().Duration("debounce", watch.DefaultDebounce, "quiet period before ingesting changes")
	watchCmd.Flags().Bool("initial-scan", false, "ingest existing files at startup")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	svc, err := loadServices(cmd, NeedIndex)
	if err != nil {
		return err
	}
	defer svc.close()
	if svc.Ingest == nil {
		return errors.New("ingest service not configured")
	}

	namespace, _ := cmd.Flags().GetString("namespace")
	debounce, _ := cmd.Flags().GetDuration("debounce")
	initial, _ := cmd.Flags().GetBool("initial-scan")

	w := watch.New(args[0], svc.Ingest, watch.Options{
		Namespace:   namespace,
		Crawl:       svc.Config.Crawler.Options,
		Prepare:     svc.Config.Prepare,
		Debounce:    debounce,
		InitialScan: initial,
	})
	if err := w.Validate(); err != nil {
		return err
	}

	cmd.Printf("Watching %s (Ctrl+C to stop)\n", args[0])
	return w.Run(cmd.Context())
}
