package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nvandessel/riskloop/internal/logging"
	"github.com/nvandessel/riskloop/internal/models"
	"github.com/nvandessel/riskloop/internal/pathutil"
	"github.com/nvandessel/riskloop/internal/report"
	"github.com/nvandessel/riskloop/internal/source"
)

const defaultCalibratedName = "category_counts_with_90_CI.csv"

func newCalibrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "calibrate <categories.csv>",
		Short: "Add calibrated 90% confidence intervals to a category table",
		Long: `Read a category CSV with extreme (99.8%) loss bounds in Lower_Bound and
Upper_Bound columns and write a copy with the implied 90% interval in
90%_CI_Lower and 90%_CI_Upper. Existing 90% columns are overwritten.

Examples:
  riskloop calibrate category_counts.csv
  riskloop calibrate category_counts.csv --out calibrated.csv`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadSettings(cmd)
			if err != nil {
				return err
			}
			jsonOut, _ := cmd.Flags().GetBool("json")
			root, _ := cmd.Flags().GetString("root")
			outFlag, _ := cmd.Flags().GetString("out")

			outPath, err := pathutil.ResolveOutput(outFlag, cfg.Output.Dir)
			if err != nil {
				return fmt.Errorf("--out: %w", err)
			}

			in := args[0]
			f, err := os.Open(in)
			if err != nil {
				return &models.SourceReadError{Path: in, Err: err}
			}
			table, err := source.ReadTable(f)
			f.Close()
			if err != nil {
				return fmt.Errorf("reading %s: %w", in, err)
			}

			calibrated, intervals, err := table.Calibrate()
			if err != nil {
				return fmt.Errorf("calibrating %s: %w", in, err)
			}

			err = report.WriteFileAtomic(outPath, func(w *bufio.Writer) error {
				return calibrated.Write(w)
			})
			if err != nil {
				return fmt.Errorf("failed to write %s: %w", pathutil.RedactPath(outPath), err)
			}

			audit := logging.OpenAuditLog(pathutil.ProjectDir(root), cfg.Logging.Level)
			audit.Record(logging.AuditEvent{Event: logging.EventCalibrate, Source: in, Categories: len(intervals)})
			audit.Close()
			newLogger(cmd, cfg).Debug("calibrated", "source", in, "rows", len(intervals), "out", outPath)

			out := cmd.OutOrStdout()
			if jsonOut {
				return json.NewEncoder(out).Encode(map[string]interface{}{
					"status":    "calibrated",
					"path":      outPath,
					"intervals": intervals,
				})
			}
			fmt.Fprintf(out, "Calibrated %d categories\n", len(intervals))
			fmt.Fprintf(out, "Generating %s\n", outPath)
			return nil
		},
	}

	cmd.Flags().String("out", defaultCalibratedName, "Output CSV")

	return cmd
}
