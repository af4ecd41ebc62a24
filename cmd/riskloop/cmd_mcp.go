package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nvandessel/riskloop/internal/logging"
	"github.com/nvandessel/riskloop/internal/mcp"
	"github.com/nvandessel/riskloop/internal/pathutil"
)

func newMCPServerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp-server",
		Short: "Run the MCP server over stdio",
		Long: `Serve riskloop's calibrator and simulator to MCP clients over stdio.

Tools:
  risk_calibrate  convert extreme estimates into 90% intervals
  risk_simulate   run a simulation from a category file or inline categories
  risk_runs       list or show saved runs

Category files named by clients must live under --root.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadSettings(cmd)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			root, _ := cmd.Flags().GetString("root")

			// stdout carries the protocol; logs go to stderr.
			logger := newLogger(cmd, cfg)
			audit := logging.OpenAuditLog(pathutil.ProjectDir(root), cfg.Logging.Level)
			defer audit.Close()

			server, err := mcp.NewServer(&mcp.Config{
				Name:     "riskloop",
				Version:  version,
				Root:     root,
				Settings: cfg,
				Logger:   logger,
				Audit:    audit,
			})
			if err != nil {
				return fmt.Errorf("failed to start MCP server: %w", err)
			}

			logger.Info("mcp server listening on stdio", "root", root)
			return server.Run(cmd.Context())
		},
	}
}
