package main

import (
	"bufio"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nvandessel/riskloop/internal/config"
	"github.com/nvandessel/riskloop/internal/engine"
	"github.com/nvandessel/riskloop/internal/logging"
	"github.com/nvandessel/riskloop/internal/metrics"
	"github.com/nvandessel/riskloop/internal/pathutil"
	"github.com/nvandessel/riskloop/internal/report"
	"github.com/nvandessel/riskloop/internal/runner"
	"github.com/nvandessel/riskloop/internal/store"
)

func newSimulateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "simulate <categories.csv|categories.yaml>",
		Short: "Run a Monte Carlo loss simulation",
		Long: `Simulate annual losses for every category in a CSV or YAML file.

CSV files need a category name, an annual probability (0.125 or 12.5%) and
either 90% confidence bounds or extreme bounds, which are calibrated first.

Report files are written only after the run succeeds. Bare file names are
placed in output.dir from the configuration.

Examples:
  riskloop simulate categories.csv
  riskloop simulate categories.csv --trials 100000 --seed 42
  riskloop simulate categories.yaml --exemplar-out simulation_results.csv --save
  riskloop simulate categories.csv --json --curve-points 200`,
		Args: cobra.ExactArgs(1),
		RunE: runSimulate,
	}

	cmd.Flags().Int("trials", 0, "Number of trials (default from config, 1000)")
	cmd.Flags().Uint64("seed", 0, "Fixed seed for a reproducible run (default random)")
	cmd.Flags().Int("workers", 0, "Simulation goroutines, 0 = one per CPU (default from config)")
	cmd.Flags().String("percentiles", "", "Comma-separated percentile levels, e.g. 50,90,99")
	cmd.Flags().Int("curve-points", 0, "Exceedance curve points (default output.curve_points)")
	cmd.Flags().String("exemplar-out", "", "Write the trial-0 breakdown table to this CSV")
	cmd.Flags().String("curve-out", "", "Write exceedance curve points to this CSV")
	cmd.Flags().String("arrow-out", "", "Write every trial total to this Arrow IPC stream")
	cmd.Flags().String("metrics-file", "", "Write run metrics in Prometheus text format to this file")
	cmd.Flags().Bool("save", false, "Save the run summary to the run history")

	return cmd
}

// simulateOutputs are the resolved report paths of one simulate invocation.
type simulateOutputs struct {
	exemplar string
	curve    string
	arrow    string
	metrics  string
}

func runSimulate(cmd *cobra.Command, args []string) error {
	cfg, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	if err := applySimulateFlags(cmd, cfg); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	outs, err := resolveSimulateOutputs(cmd, cfg.Output.Dir)
	if err != nil {
		return err
	}

	jsonOut, _ := cmd.Flags().GetBool("json")
	root, _ := cmd.Flags().GetString("root")
	save, _ := cmd.Flags().GetBool("save")
	logger := newLogger(cmd, cfg)

	audit := logging.OpenAuditLog(pathutil.ProjectDir(root), cfg.Logging.Level)
	defer audit.Close()

	var (
		recorder *metrics.Recorder
		observer engine.Observer
	)
	if outs.metrics != "" {
		recorder = metrics.NewRecorder()
		observer = recorder
	}

	curvePoints := 0
	if jsonOut || outs.curve != "" {
		curvePoints = cfg.Output.CurvePoints
		if n, _ := cmd.Flags().GetInt("curve-points"); n > 0 {
			curvePoints = n
		}
	}

	r := &runner.Runner{Logger: logger, Audit: audit, Observer: observer}
	res, runErr := r.Simulate(cmd.Context(), runner.Request{
		Source:      args[0],
		Trials:      cfg.Simulation.Trials,
		Seed:        cfg.Simulation.Seed,
		Workers:     cfg.Simulation.Workers,
		Percentiles: cfg.Simulation.Percentiles,
		CurvePoints: curvePoints,
	})

	// Metrics describe failed runs too.
	if recorder != nil {
		if err := recorder.WriteTextfile(outs.metrics); err != nil {
			logger.Warn("failed to write metrics", "path", pathutil.RedactPath(outs.metrics), "error", err)
		}
	}
	if runErr != nil {
		return fmt.Errorf("simulation failed: %w", runErr)
	}

	// Reports land before the run enters history, so a failed write
	// leaves no saved run behind.
	if err := writeSimulateOutputs(res, outs); err != nil {
		return err
	}

	if save {
		s, err := store.NewSQLiteRunStore(root)
		if err != nil {
			return fmt.Errorf("failed to open run history: %w", err)
		}
		_, err = runner.Save(cmd.Context(), s, res)
		s.Close()
		if err != nil {
			return err
		}
	}

	out := cmd.OutOrStdout()
	if jsonOut {
		return res.Report.WriteJSON(out)
	}
	if err := res.Report.WriteSummary(out); err != nil {
		return err
	}
	if res.Report.RunID != "" {
		fmt.Fprintf(out, "\nSaved as run %s\n", res.Report.RunID)
	}
	for _, p := range []string{outs.exemplar, outs.curve, outs.arrow} {
		if p != "" {
			fmt.Fprintf(out, "Wrote %s\n", p)
		}
	}
	return nil
}

// applySimulateFlags overlays explicitly set flags on the loaded configuration.
func applySimulateFlags(cmd *cobra.Command, cfg *config.RiskloopConfig) error {
	flags := cmd.Flags()
	if flags.Changed("trials") {
		cfg.Simulation.Trials, _ = flags.GetInt("trials")
	}
	if flags.Changed("seed") {
		seed, _ := flags.GetUint64("seed")
		cfg.Simulation.Seed = &seed
	}
	if flags.Changed("workers") {
		cfg.Simulation.Workers, _ = flags.GetInt("workers")
	}
	if flags.Changed("percentiles") {
		raw, _ := flags.GetString("percentiles")
		ps, err := config.ParsePercentiles(raw)
		if err != nil {
			return err
		}
		cfg.Simulation.Percentiles = ps
	}
	return nil
}

func resolveSimulateOutputs(cmd *cobra.Command, outDir string) (simulateOutputs, error) {
	var outs simulateOutputs
	targets := []struct {
		flag string
		dst  *string
	}{
		{"exemplar-out", &outs.exemplar},
		{"curve-out", &outs.curve},
		{"arrow-out", &outs.arrow},
		{"metrics-file", &outs.metrics},
	}
	for _, t := range targets {
		p, _ := cmd.Flags().GetString(t.flag)
		if p == "" {
			continue
		}
		resolved, err := pathutil.ResolveOutput(p, outDir)
		if err != nil {
			return simulateOutputs{}, fmt.Errorf("--%s: %w", t.flag, err)
		}
		*t.dst = resolved
	}
	return outs, nil
}

// writeSimulateOutputs stages every requested report before renaming any of
// them, so one failed report leaves none of the others on disk.
func writeSimulateOutputs(res *runner.Result, outs simulateOutputs) error {
	rep := res.Report
	targets := []struct {
		path  string
		label string
		write func(w *bufio.Writer) error
	}{
		{outs.exemplar, "exemplar table", func(w *bufio.Writer) error {
			return rep.WriteExemplarCSV(w, rep.HasCounts())
		}},
		{outs.curve, "curve", func(w *bufio.Writer) error {
			return report.WriteCurveCSV(w, rep.Curve)
		}},
		{outs.arrow, "trial totals", func(w *bufio.Writer) error {
			return report.WriteTotalsArrow(w, res.Run.Totals)
		}},
	}

	var staged []*report.StagedFile
	discard := func() {
		for _, sf := range staged {
			sf.Discard()
		}
	}
	for _, t := range targets {
		if t.path == "" {
			continue
		}
		sf, err := report.StageFile(t.path, t.write)
		if err != nil {
			discard()
			return fmt.Errorf("failed to write %s: %w", t.label, err)
		}
		staged = append(staged, sf)
	}

	for i, sf := range staged {
		if err := sf.Commit(); err != nil {
			for _, rest := range staged[i+1:] {
				rest.Discard()
			}
			return fmt.Errorf("failed to write reports: %w", err)
		}
	}
	return nil
}
