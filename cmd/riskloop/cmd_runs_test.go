package main

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nvandessel/riskloop/internal/store"
)

// saveRun simulates the test categories with --save and returns the run ID.
func saveRun(t *testing.T, root string) string {
	t.Helper()
	out, err := runCLI(t, "simulate", filepath.Join(root, "categories.csv"),
		"--root", root, "--trials", "100", "--seed", "5", "--save", "--json")
	if err != nil {
		t.Fatalf("simulate --save failed: %v", err)
	}
	var rep struct {
		RunID string `json:"run_id"`
	}
	if err := json.Unmarshal([]byte(out), &rep); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if rep.RunID == "" {
		t.Fatal("simulate --save returned no run_id")
	}
	return rep.RunID
}

func TestRunsCmd_ListShowDelete(t *testing.T) {
	tmpDir := setupProject(t)

	out, err := runCLI(t, "runs", "list", "--root", tmpDir)
	if err != nil {
		t.Fatalf("runs list failed: %v", err)
	}
	if !strings.Contains(out, "No saved runs.") {
		t.Errorf("empty list output = %q", out)
	}

	id := saveRun(t, tmpDir)

	out, err = runCLI(t, "runs", "list", "--root", tmpDir)
	if err != nil {
		t.Fatalf("runs list failed: %v", err)
	}
	if !strings.Contains(out, id[:8]) || !strings.Contains(out, "categories.csv") {
		t.Errorf("list output missing run:\n%s", out)
	}

	out, err = runCLI(t, "runs", "show", id[:8], "--root", tmpDir)
	if err != nil {
		t.Fatalf("runs show failed: %v", err)
	}
	for _, want := range []string{"Run:          " + id, "(seed 5)", "Categories:   3", "P50:"} {
		if !strings.Contains(out, want) {
			t.Errorf("show output missing %q:\n%s", want, out)
		}
	}

	out, err = runCLI(t, "runs", "show", id, "--root", tmpDir, "--json")
	if err != nil {
		t.Fatalf("runs show --json failed: %v", err)
	}
	var rec store.RunRecord
	if err := json.Unmarshal([]byte(out), &rec); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if rec.ID != id || rec.Trials != 100 || rec.Seed != 5 || len(rec.Percentiles) != 5 {
		t.Errorf("record = %+v", rec)
	}

	if _, err := runCLI(t, "runs", "delete", id[:8], "--root", tmpDir); err != nil {
		t.Fatalf("runs delete failed: %v", err)
	}
	_, err = runCLI(t, "runs", "show", id, "--root", tmpDir)
	if !errors.Is(err, store.ErrRunNotFound) {
		t.Errorf("show after delete error = %v, want ErrRunNotFound", err)
	}
}

func TestRunsCmd_ExportImport(t *testing.T) {
	tmpDir := setupProject(t)
	first := saveRun(t, tmpDir)
	second := saveRun(t, tmpDir)

	exportPath := filepath.Join(tmpDir, "runs.jsonl")
	if _, err := runCLI(t, "runs", "export", "--root", tmpDir, "--out", exportPath); err != nil {
		t.Fatalf("runs export failed: %v", err)
	}
	data, err := os.ReadFile(exportPath)
	if err != nil {
		t.Fatalf("export not written: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Fatalf("exported %d lines, want 2", len(lines))
	}

	otherRoot := t.TempDir()
	out, err := runCLI(t, "runs", "import", exportPath, "--root", otherRoot, "--json")
	if err != nil {
		t.Fatalf("runs import failed: %v", err)
	}
	var res store.ImportResult
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if res.Imported != 2 || res.Skipped != 0 {
		t.Errorf("import = %+v, want 2 imported", res)
	}

	for _, id := range []string{first, second} {
		if _, err := runCLI(t, "runs", "show", id, "--root", otherRoot); err != nil {
			t.Errorf("imported run %s not found: %v", id, err)
		}
	}

	// A second import skips every run.
	out, err = runCLI(t, "runs", "import", exportPath, "--root", otherRoot)
	if err != nil {
		t.Fatalf("second import failed: %v", err)
	}
	if !strings.Contains(out, "Imported 0 runs (2 skipped)") {
		t.Errorf("second import output = %q", out)
	}
}

func TestShortID(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", ""},
		{"abc", "abc"},
		{"0123456789abcdef", "01234567"},
	}
	for _, tt := range tests {
		if got := shortID(tt.in); got != tt.want {
			t.Errorf("shortID(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
