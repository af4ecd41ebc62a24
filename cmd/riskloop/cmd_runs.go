package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/nvandessel/riskloop/internal/pathutil"
	"github.com/nvandessel/riskloop/internal/report"
	"github.com/nvandessel/riskloop/internal/store"
)

func newRunsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Manage saved simulation runs",
		Long: `List, inspect and remove runs saved with 'riskloop simulate --save'.

Runs are stored in .riskloop/runs.db under the project root. A run can be
addressed by its full ID or any unique prefix.

Examples:
  riskloop runs list
  riskloop runs show 3f2a
  riskloop runs delete 3f2a
  riskloop runs export --out runs.jsonl
  riskloop runs import runs.jsonl`,
	}

	cmd.AddCommand(
		newRunsListCmd(),
		newRunsShowCmd(),
		newRunsDeleteCmd(),
		newRunsExportCmd(),
		newRunsImportCmd(),
	)

	return cmd
}

// openRunStore opens the run history under --root.
func openRunStore(cmd *cobra.Command) (*store.SQLiteRunStore, error) {
	root, _ := cmd.Flags().GetString("root")
	s, err := store.NewSQLiteRunStore(root)
	if err != nil {
		return nil, fmt.Errorf("failed to open run history: %w", err)
	}
	return s, nil
}

func newRunsListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List saved runs, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			limit, _ := cmd.Flags().GetInt("limit")

			s, err := openRunStore(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			runs, err := s.ListRuns(cmd.Context(), limit)
			if err != nil {
				return fmt.Errorf("failed to list runs: %w", err)
			}

			out := cmd.OutOrStdout()
			if jsonOut {
				if runs == nil {
					runs = []store.RunRecord{}
				}
				return json.NewEncoder(out).Encode(map[string]interface{}{
					"runs":  runs,
					"count": len(runs),
				})
			}

			if len(runs) == 0 {
				fmt.Fprintln(out, "No saved runs.")
				return nil
			}
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tCREATED\tTRIALS\tCATEGORIES\tMEAN\tSOURCE")
			for _, r := range runs {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\n",
					shortID(r.ID),
					humanize.Time(r.CreatedAt),
					humanize.Comma(int64(r.Trials)),
					r.Categories,
					report.Dollars(r.Summary.Mean, 2),
					r.Source,
				)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().Int("limit", 20, "Maximum runs to list (0 for all)")

	return cmd
}

func newRunsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a saved run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")

			s, err := openRunStore(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			rec, err := s.GetRun(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if jsonOut {
				return json.NewEncoder(out).Encode(rec)
			}
			fmt.Fprintf(out, "Run:          %s\n", rec.ID)
			fmt.Fprintf(out, "Created:      %s\n", rec.CreatedAt.Local().Format("2006-01-02 15:04:05"))
			fmt.Fprintf(out, "Source:       %s\n", rec.Source)
			fmt.Fprintf(out, "Trials:       %s (seed %d)\n", humanize.Comma(int64(rec.Trials)), rec.Seed)
			fmt.Fprintf(out, "Categories:   %d\n", rec.Categories)
			fmt.Fprintf(out, "Mean:         %s\n", report.Dollars(rec.Summary.Mean, 2))
			fmt.Fprintf(out, "Median:       %s\n", report.Dollars(rec.Summary.Median, 2))
			fmt.Fprintf(out, "Min:          %s\n", report.Dollars(rec.Summary.Min, 2))
			fmt.Fprintf(out, "Max:          %s\n", report.Dollars(rec.Summary.Max, 2))
			fmt.Fprintf(out, "Std Dev:      %s\n", report.Dollars(rec.Summary.StdDev, 2))
			fmt.Fprintf(out, "Expected:     %s\n", report.Dollars(rec.ExpectedLoss, 2))
			for _, p := range rec.Percentiles {
				fmt.Fprintf(out, "P%-11s %s\n", strconv.FormatFloat(p.Percentile, 'f', -1, 64)+":", report.Dollars(p.Value, 2))
			}
			return nil
		},
	}
}

func newRunsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a saved run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")

			s, err := openRunStore(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			rec, err := s.GetRun(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if err := s.DeleteRun(cmd.Context(), rec.ID); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if jsonOut {
				return json.NewEncoder(out).Encode(map[string]string{"status": "deleted", "id": rec.ID})
			}
			fmt.Fprintf(out, "Deleted run %s\n", rec.ID)
			return nil
		},
	}
}

func newRunsExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export saved runs as JSON lines",
		RunE: func(cmd *cobra.Command, args []string) error {
			outFlag, _ := cmd.Flags().GetString("out")

			s, err := openRunStore(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			if outFlag == "" {
				_, err := store.ExportJSONL(cmd.Context(), s, cmd.OutOrStdout())
				return err
			}

			outPath, err := pathutil.ResolveOutput(outFlag, "")
			if err != nil {
				return fmt.Errorf("--out: %w", err)
			}
			var n int
			err = report.WriteFileAtomic(outPath, func(w *bufio.Writer) error {
				var err error
				n, err = store.ExportJSONL(cmd.Context(), s, w)
				return err
			})
			if err != nil {
				return fmt.Errorf("failed to export runs: %w", err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Exported %d runs to %s\n", n, outPath)
			return nil
		},
	}

	cmd.Flags().String("out", "", "Output file (default stdout)")

	return cmd
}

func newRunsImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <runs.jsonl>",
		Short: "Import runs exported with 'runs export'",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")

			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("failed to open %s: %w", args[0], err)
			}
			defer f.Close()

			s, err := openRunStore(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			res, err := store.ImportJSONL(cmd.Context(), s, f)
			if err != nil {
				return fmt.Errorf("failed to import runs: %w", err)
			}

			out := cmd.OutOrStdout()
			if jsonOut {
				return json.NewEncoder(out).Encode(res)
			}
			fmt.Fprintf(out, "Imported %d runs (%d skipped)\n", res.Imported, res.Skipped)
			return nil
		},
	}
}

// shortID abbreviates a run ID for tables.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
