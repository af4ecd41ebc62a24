package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nvandessel/riskloop/internal/models"
	"github.com/nvandessel/riskloop/internal/pathutil"
	"github.com/nvandessel/riskloop/internal/report"
	"github.com/nvandessel/riskloop/internal/source"
)

const defaultCountsName = "category_counts.csv"

func newCategorizeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "categorize <incidents.csv>",
		Short: "Count incidents per category",
		Long: `Read an incident CSV and count how often each category occurs. A cell may
tag several categories separated by "::". The result is a Category,Count,
Percentage table, ready to add loss bounds to and calibrate.

Examples:
  riskloop categorize incidents.csv
  riskloop categorize incidents.csv --column Type --out counts.csv`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadSettings(cmd)
			if err != nil {
				return err
			}
			jsonOut, _ := cmd.Flags().GetBool("json")
			column, _ := cmd.Flags().GetString("column")
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
			res, err := source.CountCategories(f, column)
			f.Close()
			if err != nil {
				return fmt.Errorf("counting categories in %s: %w", in, err)
			}

			err = report.WriteFileAtomic(outPath, func(w *bufio.Writer) error {
				return source.WriteCategoryCounts(w, res.Categories)
			})
			if err != nil {
				return fmt.Errorf("failed to write %s: %w", pathutil.RedactPath(outPath), err)
			}

			out := cmd.OutOrStdout()
			if jsonOut {
				return json.NewEncoder(out).Encode(map[string]interface{}{
					"path":       outPath,
					"total":      res.Total,
					"categories": res.Categories,
				})
			}
			fmt.Fprintf(out, "Counted %d tags across %d categories\n", res.Total, len(res.Categories))
			fmt.Fprintf(out, "Wrote %s\n", outPath)
			return nil
		},
	}

	cmd.Flags().String("column", "Category", "Column holding the category tags")
	cmd.Flags().String("out", defaultCountsName, "Output CSV")

	return cmd
}
