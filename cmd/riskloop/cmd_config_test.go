package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestConfigCmd_SetGetList(t *testing.T) {
	tmpDir := t.TempDir()
	isolateHome(t, tmpDir)
	cfgPath := filepath.Join(tmpDir, "riskloop.yaml")

	if _, err := runCLI(t, "config", "set", "simulation.trials", "2500", "--config", cfgPath); err != nil {
		t.Fatalf("config set failed: %v", err)
	}
	if _, err := runCLI(t, "config", "set", "simulation.percentiles", "50,99.5", "--config", cfgPath); err != nil {
		t.Fatalf("config set failed: %v", err)
	}
	if _, err := os.Stat(cfgPath); err != nil {
		t.Fatalf("config file not written: %v", err)
	}

	out, err := runCLI(t, "config", "get", "simulation.trials", "--config", cfgPath)
	if err != nil {
		t.Fatalf("config get failed: %v", err)
	}
	if strings.TrimSpace(out) != "simulation.trials = 2500" {
		t.Errorf("config get output = %q", out)
	}

	out, err = runCLI(t, "config", "get", "simulation.percentiles", "--config", cfgPath, "--json")
	if err != nil {
		t.Fatalf("config get --json failed: %v", err)
	}
	var got struct {
		Key   string    `json:"key"`
		Value []float64 `json:"value"`
	}
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if len(got.Value) != 2 || got.Value[1] != 99.5 {
		t.Errorf("percentiles = %v", got.Value)
	}

	out, err = runCLI(t, "config", "list", "--config", cfgPath)
	if err != nil {
		t.Fatalf("config list failed: %v", err)
	}
	for _, want := range []string{"simulation.trials:", "2500", "logging.level:", "simulation.seed:", "(random)"} {
		if !strings.Contains(out, want) {
			t.Errorf("config list missing %q:\n%s", want, out)
		}
	}
}

func TestConfigCmd_SetRejectsInvalid(t *testing.T) {
	tmpDir := t.TempDir()
	isolateHome(t, tmpDir)
	cfgPath := filepath.Join(tmpDir, "riskloop.yaml")

	tests := []struct {
		name       string
		key, value string
	}{
		{"unknown key", "simulation.colour", "blue"},
		{"not an integer", "simulation.trials", "many"},
		{"out of range", "simulation.trials", "0"},
		{"percentile out of range", "simulation.percentiles", "50,150"},
		{"bad level", "logging.level", "verbose"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := runCLI(t, "config", "set", tt.key, tt.value, "--config", cfgPath); err == nil {
				t.Error("expected error")
			}
		})
	}
	if _, err := os.Stat(cfgPath); !os.IsNotExist(err) {
		t.Error("invalid settings were saved")
	}
}

func TestConfigCmd_GetUnknownKey(t *testing.T) {
	tmpDir := t.TempDir()
	isolateHome(t, tmpDir)

	if _, err := runCLI(t, "config", "get", "nope"); err == nil {
		t.Error("expected error for unknown key")
	}
}

func TestConfigCmd_DefaultPathUsesHome(t *testing.T) {
	tmpDir := t.TempDir()
	isolateHome(t, tmpDir)

	if _, err := runCLI(t, "config", "set", "simulation.workers", "2"); err != nil {
		t.Fatalf("config set failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(tmpDir, "home", ".riskloop", "config.yaml")); err != nil {
		t.Errorf("config not written under HOME: %v", err)
	}

	out, err := runCLI(t, "simulate", "--help")
	if err != nil {
		t.Fatalf("simulate --help failed: %v", err)
	}
	if !strings.Contains(out, "--trials") {
		t.Errorf("help output missing --trials:\n%s", out)
	}
}
