package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"

	"github.com/strataconf/strata/pkg/report"
	"github.com/strataconf/strata/pkg/resolver"
)

func newReportCommand() *cobra.Command {
	var storePath string

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Inspect persisted resolution runs",
	}
	cmd.PersistentFlags().StringVar(&storePath, "store", "strata.db", "SQLite audit store path")

	cmd.AddCommand(newReportListCommand(&storePath))
	cmd.AddCommand(newReportShowCommand(&storePath))

	return cmd
}

func newReportListCommand(storePath *string) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List persisted runs, newest first",
		Example: `  strata report list --store runs.db
  strata report list --store runs.db --limit 5 --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd.Context(), *storePath, func(ctx context.Context, store *report.Store) error {
				runs, err := store.ListRuns(ctx, limit, 0)
				if err != nil {
					return err
				}
				return printRunList(cmd.OutOrStdout(), runs)
			})
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "max runs to list")
	return cmd
}

func newReportShowCommand(storePath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show one run's per-target results",
		Args:  cobra.ExactArgs(1),
		Example: `  strata report show 2f1c... --store runs.db`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd.Context(), *storePath, func(ctx context.Context, store *report.Store) error {
				run, err := store.GetRun(ctx, args[0])
				if err != nil {
					return err
				}
				results, err := store.ListTargetResults(ctx, run.ID)
				if err != nil {
					return err
				}
				return printStoredRun(cmd.OutOrStdout(), run, results)
			})
		},
	}
	return cmd
}

func withStore(ctx context.Context, path string, fn func(context.Context, *report.Store) error) error {
	store, err := report.NewStore(report.Config{Path: path})
	if err != nil {
		return err
	}
	if err := store.Init(ctx); err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	if err := store.Migrate(ctx); err != nil {
		return err
	}
	return fn(ctx, store)
}

func printRunList(out io.Writer, runs []*report.StoredRun) error {
	if jsonOutput {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(runs)
	}

	for _, run := range runs {
		fmt.Fprintf(out, "%s  %s  %d targets, %d resolved, %d failed (%s)\n",
			run.ID,
			run.StartedAt.Format("2006-01-02 15:04:05"),
			run.Total, run.Resolved, run.Failed,
			run.Duration)
	}
	return nil
}

func printStoredRun(out io.Writer, run *report.StoredRun, results []*report.StoredTargetResult) error {
	if jsonOutput {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			Run     *report.StoredRun            `json:"run"`
			Results []*report.StoredTargetResult `json:"results"`
		}{run, results})
	}

	fmt.Fprintf(out, "run %s: %d targets, %d resolved, %d failed in %s\n\n",
		run.ID, run.Total, run.Resolved, run.Failed, run.Duration)

	for _, result := range results {
		fmt.Fprintf(out, "%s: %s (%s)\n", result.Target, result.Status, result.Duration)
		if result.Status == resolver.TargetStatusFailed {
			for _, verr := range result.Errors {
				fmt.Fprintf(out, "  %s\n", verr.Error())
			}
			continue
		}
		paths := make([]string, 0, len(result.Provenance))
		for path := range result.Provenance {
			paths = append(paths, path)
		}
		sort.Strings(paths)
		for _, path := range paths {
			fmt.Fprintf(out, "  %s  [%s]\n", path, result.Provenance[path].String())
		}
	}
	return nil
}
