package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recent ingest runs",
	Long: `List recorded ingest runs, newest first.

Runs are stored in ~/.sercha-ingest/data/runs.db unless history.enabled
is false.`,
	Args: cobra.NoArgs,
	RunE: runRunsList,
}

var runsShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show one ingest run",
	Args:  cobra.ExactArgs(1),
	RunE:  runRunsShow,
}

func init() {
	runsCmd.Flags().IntP("limit", "l", 20, "maximum runs to list")
	runsCmd.Flags().Bool("json", false, "print runs as JSON")
	runsShowCmd.Flags().Bool("json", false, "print the run as JSON")
	runsCmd.AddCommand(runsShowCmd)
	rootCmd.AddCommand(runsCmd)
}

func runRunsList(cmd *cobra.Command, _ []string) error {
	svc, err := loadServices(cmd, NeedRuns)
	if err != nil {
		return err
	}
	defer svc.close()
	if svc.Runs == nil {
		return errors.New("run history not configured")
	}

	limit, _ := cmd.Flags().GetInt("limit")
	runs, err := svc.Runs.List(cmd.Context(), limit)
	if err != nil {
		return err
	}

	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		return writeJSON(cmd, runs)
	}

	if len(runs) == 0 {
		cmd.Println("No runs recorded.")
		return nil
	}
	for _, r := range runs {
		cmd.Printf("%s  %s  %-12s pages=%d upserted=%d/%d  %s\n",
			r.ID, r.StartedAt.Local().Format(time.DateTime), r.Namespace,
			r.Pages, r.Upserted, r.Records, runStatus(r))
	}
	return nil
}

func runRunsShow(cmd *cobra.Command, args []string) error {
	svc, err := loadServices(cmd, NeedRuns)
	if err != nil {
		return err
	}
	defer svc.close()
	if svc.Runs == nil {
		return errors.New("run history not configured")
	}

	run, err := svc.Runs.Get(cmd.Context(), args[0])
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("run %s not found", args[0])
		}
		return err
	}

	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		return writeJSON(cmd, run)
	}

	cmd.Printf("Run %s\n", run.ID)
	cmd.Printf("  Namespace: %s\n", run.Namespace)
	cmd.Printf("  Started:   %s\n", run.StartedAt.Local().Format(time.DateTime))
	cmd.Printf("  Duration:  %s\n", run.Duration().Round(time.Millisecond))
	cmd.Printf("  Status:    %s\n", runStatus(*run))
	cmd.Printf("  Pages:     %d\n", run.Pages)
	cmd.Printf("  Chunks:    %d\n", run.Chunks)
	cmd.Printf("  Upserted:  %d/%d\n", run.Upserted, run.Records)
	if run.FailedBatches > 0 {
		cmd.Printf("  Failed batches: %d\n", run.FailedBatches)
	}
	if run.Error != "" {
		cmd.Printf("  Error: %s\n", run.Error)
	}
	if len(run.Seeds) > 0 {
		cmd.Printf("  Seeds:\n    %s\n", strings.Join(run.Seeds, "\n    "))
	}
	return nil
}

func runStatus(r domain.RunRecord) string {
	switch {
	case r.Error != "":
		return "failed"
	case r.FailedBatches > 0:
		return "partial"
	default:
		return "ok"
	}
}

func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
