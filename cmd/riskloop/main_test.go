package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// isolateHome sets HOME to a temp directory to avoid touching real ~/.riskloop/
// MUST be called for any test that loads configuration
func isolateHome(t *testing.T, tmpDir string) {
	t.Helper()
	tmpHome := filepath.Join(tmpDir, "home")
	if err := os.MkdirAll(tmpHome, 0700); err != nil {
		t.Fatalf("Failed to create temp home: %v", err)
	}
	t.Setenv("HOME", tmpHome)
	for _, v := range []string{"RISKLOOP_TRIALS", "RISKLOOP_SEED", "RISKLOOP_WORKERS", "RISKLOOP_PERCENTILES", "RISKLOOP_LOG_LEVEL", "RISKLOOP_OUTPUT_DIR"} {
		t.Setenv(v, "")
	}
}

// runCLI executes the root command with args and returns what it printed on stdout.
func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	rootCmd := newRootCmd()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("Failed to write %s: %v", path, err)
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		want    int
		wantMsg string
	}{
		{"success", nil, 0, ""},
		{"failure", errors.New("boom"), 1, "Error: boom"},
		{"cancelled", fmt.Errorf("simulation failed: %w", context.Canceled), exitInterrupted, "interrupted"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if got := exitCode(tt.err, &buf); got != tt.want {
				t.Errorf("exitCode() = %d, want %d", got, tt.want)
			}
			if !strings.Contains(buf.String(), tt.wantMsg) {
				t.Errorf("message = %q, want it to contain %q", buf.String(), tt.wantMsg)
			}
		})
	}
}

func TestNewRootCmd_Subcommands(t *testing.T) {
	rootCmd := newRootCmd()
	want := []string{"version", "calibrate", "simulate", "categorize", "runs", "config", "mcp-server"}
	for _, name := range want {
		found := false
		for _, c := range rootCmd.Commands() {
			if c.Name() == name {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("subcommand %q not registered", name)
		}
	}
}

func TestVersionCmd(t *testing.T) {
	out, err := runCLI(t, "version")
	if err != nil {
		t.Fatalf("version failed: %v", err)
	}
	if !strings.Contains(out, "riskloop version "+version) {
		t.Errorf("output = %q", out)
	}

	out, err = runCLI(t, "version", "--json")
	if err != nil {
		t.Fatalf("version --json failed: %v", err)
	}
	var got map[string]string
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("invalid JSON %q: %v", out, err)
	}
	if got["version"] != version {
		t.Errorf("version = %q, want %q", got["version"], version)
	}
}

func TestLoadSettings_InvalidLogLevel(t *testing.T) {
	tmpDir := t.TempDir()
	isolateHome(t, tmpDir)

	if _, err := runCLI(t, "config", "list", "--log-level", "loud"); err == nil {
		t.Error("expected error for invalid --log-level")
	}
}

func TestLoadSettings_MissingConfigFile(t *testing.T) {
	tmpDir := t.TempDir()
	isolateHome(t, tmpDir)

	if _, err := runCLI(t, "config", "list", "--config", filepath.Join(tmpDir, "missing.yaml")); err == nil {
		t.Error("expected error for missing --config file")
	}
}
