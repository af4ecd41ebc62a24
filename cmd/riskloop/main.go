package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/nvandessel/riskloop/internal/config"
	"github.com/nvandessel/riskloop/internal/logging"
	"github.com/nvandessel/riskloop/internal/models"
)

var version = "0.1.0-dev"

// exitInterrupted is the status for a run cancelled by SIGINT/SIGTERM.
const exitInterrupted = 130

func main() {
	ctx, stop := signalContext(context.Background())
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	os.Exit(exitCode(err, os.Stderr))
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "riskloop",
		Short: "Monte Carlo annual loss estimation for risk categories",
		Long: `riskloop estimates the distribution of annual losses across a set of
independent risk categories.

Each category has an annual probability of occurring and a range of loss
when it does. Extreme (99.8%) estimates are calibrated into 90% confidence
intervals, trials are simulated in parallel, and the totals are summarized
as percentiles and an exceedance curve.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags
	rootCmd.PersistentFlags().Bool("json", false, "Output as JSON (for agent consumption)")
	rootCmd.PersistentFlags().String("root", ".", "Project root directory")
	rootCmd.PersistentFlags().String("config", "", "Config file (default ~/.riskloop/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: info, debug or trace (overrides config)")

	rootCmd.AddCommand(
		newVersionCmd(),
		newCalibrateCmd(),
		newSimulateCmd(),
		newCategorizeCmd(),
		newRunsCmd(),
		newConfigCmd(),
		newMCPServerCmd(),
	)
	return rootCmd
}

// exitCode reports err on w and maps it to a process exit status.
func exitCode(err error, w io.Writer) int {
	if err == nil {
		return 0
	}
	if errors.Is(err, context.Canceled) {
		fmt.Fprintln(w, "interrupted")
		return exitInterrupted
	}
	fmt.Fprintln(w, "Error:", err)
	return 1
}

// signalContext returns a context cancelled on the first shutdown signal.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	sigChan := make(chan os.Signal, 1)
	notifySignals(sigChan)

	go func() {
		defer signal.Stop(sigChan)
		select {
		case <-sigChan:
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			jsonOut, _ := cmd.Flags().GetBool("json")
			if jsonOut {
				json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]string{"version": version})
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "riskloop version %s\n", version)
			}
		},
	}
}

// loadSettings loads configuration (--config or ~/.riskloop/config.yaml,
// then RISKLOOP_* variables) and applies --log-level.
func loadSettings(cmd *cobra.Command) (*config.RiskloopConfig, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadPath(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		if !logging.ValidLevel(level) {
			return nil, &models.ConfigurationError{Field: "log-level", Value: level, Reason: "must be one of info, debug, trace"}
		}
		cfg.Logging.Level = level
	}
	return cfg, nil
}

// newLogger builds the stderr logger for cfg.
func newLogger(cmd *cobra.Command, cfg *config.RiskloopConfig) *slog.Logger {
	return logging.NewLogger(cfg.Logging.Level, cmd.ErrOrStderr())
}
