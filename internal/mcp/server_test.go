package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/nvandessel/riskloop/internal/config"
	"github.com/nvandessel/riskloop/internal/models"
	"github.com/nvandessel/riskloop/internal/ratelimit"
	"github.com/nvandessel/riskloop/internal/stats"
	"github.com/nvandessel/riskloop/internal/store"
)

const testCategories = "Category,Percentage,90%_CI_Lower,90%_CI_Upper\n" +
	"Phishing,30%,1000,5000\n" +
	"Malware,5%,200,800\n"

// setupTestServer creates a server rooted in a temp dir holding categories.csv.
func setupTestServer(t *testing.T) (*Server, string) {
	t.Helper()
	tmpDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(tmpDir, "categories.csv"), []byte(testCategories), 0600); err != nil {
		t.Fatalf("Failed to write categories: %v", err)
	}

	settings := config.Default()
	settings.Simulation.Trials = 200

	server, err := NewServer(&Config{
		Name:     "riskloop-test",
		Version:  "v0.0.0-test",
		Root:     tmpDir,
		Settings: settings,
		Store:    store.NewInMemoryRunStore(),
	})
	if err != nil {
		t.Fatalf("NewServer failed: %v", err)
	}
	t.Cleanup(func() { server.Close() })
	return server, tmpDir
}

func ptr(v float64) *float64 { return &v }

func TestNewServer_OpensSQLiteStore(t *testing.T) {
	tmpDir := t.TempDir()
	server, err := NewServer(&Config{Name: "riskloop-test", Version: "v1", Root: tmpDir})
	if err != nil {
		t.Fatalf("NewServer failed: %v", err)
	}
	defer server.Close()

	if _, ok := server.store.(*store.SQLiteRunStore); !ok {
		t.Errorf("store type = %T, want *store.SQLiteRunStore", server.store)
	}
	if _, err := os.Stat(filepath.Join(tmpDir, ".riskloop", "runs.db")); err != nil {
		t.Errorf("runs.db not created: %v", err)
	}
	if server.settings.Simulation.Trials != 1000 {
		t.Errorf("default trials = %d, want 1000", server.settings.Simulation.Trials)
	}
}

func TestHandleRiskCalibrate(t *testing.T) {
	server, _ := setupTestServer(t)

	_, out, err := server.handleRiskCalibrate(context.Background(), nil, RiskCalibrateInput{
		Items: []CalibrateItem{
			{Name: "Flood", ExtremeLower: 0, ExtremeUpper: 1_000_000},
			{ExtremeLower: 1000, ExtremeUpper: 2000},
		},
	})
	if err != nil {
		t.Fatalf("handleRiskCalibrate error: %v", err)
	}
	if out.Count != 2 {
		t.Fatalf("Count = %d, want 2", out.Count)
	}
	if got := out.Intervals[0]; got.Name != "Flood" || got.Lower90 != 233862.46 || got.Upper90 != 766137.54 {
		t.Errorf("Intervals[0] = %+v", got)
	}
	if got := out.Intervals[1]; got.Lower90 != 1233.86 || got.Upper90 != 1766.14 {
		t.Errorf("Intervals[1] = %+v", got)
	}
}

func TestHandleRiskCalibrate_Invalid(t *testing.T) {
	server, _ := setupTestServer(t)
	ctx := context.Background()

	if _, _, err := server.handleRiskCalibrate(ctx, nil, RiskCalibrateInput{}); err == nil {
		t.Error("expected error for empty items")
	}

	_, _, err := server.handleRiskCalibrate(ctx, nil, RiskCalibrateInput{
		Items: []CalibrateItem{{ExtremeLower: 1, ExtremeUpper: 2}, {ExtremeLower: 5, ExtremeUpper: 1}},
	})
	var ve *models.ValidationError
	if !errors.As(err, &ve) || ve.Row != 2 {
		t.Errorf("error = %v, want ValidationError at row 2", err)
	}
}

func TestHandleRiskSimulate_Source(t *testing.T) {
	server, _ := setupTestServer(t)
	ctx := context.Background()
	seed := uint64(11)

	_, out, err := server.handleRiskSimulate(ctx, nil, RiskSimulateInput{
		Source:      "categories.csv",
		Seed:        &seed,
		Percentiles: []float64{50, 90},
		CurvePoints: 5,
	})
	if err != nil {
		t.Fatalf("handleRiskSimulate error: %v", err)
	}
	if out.Trials != 200 {
		t.Errorf("Trials = %d, want 200 from settings", out.Trials)
	}
	if out.Seed != 11 {
		t.Errorf("Seed = %d, want 11", out.Seed)
	}
	if len(out.Percentiles) != 2 || len(out.Exemplar) != 2 || len(out.Curve) != 5 {
		t.Errorf("unexpected shape: %d percentiles, %d exemplar rows, %d curve points",
			len(out.Percentiles), len(out.Exemplar), len(out.Curve))
	}
	if out.RunID != "" {
		t.Errorf("RunID = %q, want empty when not saved", out.RunID)
	}

	_, again, err := server.handleRiskSimulate(ctx, nil, RiskSimulateInput{Source: "categories.csv", Seed: &seed, Percentiles: []float64{50, 90}})
	if err != nil {
		t.Fatalf("second handleRiskSimulate error: %v", err)
	}
	if again.Summary != out.Summary {
		t.Errorf("same seed gave different summaries: %+v vs %+v", again.Summary, out.Summary)
	}
}

func TestHandleRiskSimulate_InlineAndSave(t *testing.T) {
	server, _ := setupTestServer(t)
	ctx := context.Background()

	_, out, err := server.handleRiskSimulate(ctx, nil, RiskSimulateInput{
		Categories: []CategoryInput{
			{Name: "Certain", Probability: 1, Lower90: ptr(100), Upper90: ptr(100)},
			{Name: "Flood", Probability: 0, ExtremeLower: ptr(1000), ExtremeUpper: ptr(2000)},
		},
		Trials: 50,
		Save:   true,
	})
	if err != nil {
		t.Fatalf("handleRiskSimulate error: %v", err)
	}
	if out.Summary.Min != 100 || out.Summary.Max != 100 {
		t.Errorf("Summary = %+v, want every total 100", out.Summary)
	}
	if out.Exemplar[1].Lower90 != 1233.86 {
		t.Errorf("extreme bounds not calibrated: %+v", out.Exemplar[1])
	}
	if out.RunID == "" || !strings.Contains(out.Message, out.RunID) {
		t.Fatalf("saved run not reported: id=%q message=%q", out.RunID, out.Message)
	}

	_, runs, err := server.handleRiskRuns(ctx, nil, RiskRunsInput{})
	if err != nil {
		t.Fatalf("handleRiskRuns error: %v", err)
	}
	if runs.Count != 1 || runs.Runs[0].ID != out.RunID || runs.Runs[0].Trials != 50 {
		t.Errorf("runs = %+v", runs)
	}

	_, one, err := server.handleRiskRuns(ctx, nil, RiskRunsInput{ID: out.RunID[:8]})
	if err != nil {
		t.Fatalf("handleRiskRuns(id) error: %v", err)
	}
	if one.Count != 1 || one.Runs[0].Mean != 100 {
		t.Errorf("run = %+v", one)
	}
}

func TestHandleRiskSimulate_Errors(t *testing.T) {
	server, tmpDir := setupTestServer(t)
	server.limits = ratelimit.ToolLimits{}
	ctx := context.Background()

	tests := []struct {
		name string
		args RiskSimulateInput
	}{
		{"no source or categories", RiskSimulateInput{}},
		{"source outside root", RiskSimulateInput{Source: "../outside.csv"}},
		{"absolute source outside root", RiskSimulateInput{Source: filepath.Join(filepath.Dir(tmpDir), "x.csv")}},
		{"missing source", RiskSimulateInput{Source: "missing.csv"}},
		{"half bounds", RiskSimulateInput{Categories: []CategoryInput{{Name: "A", Probability: 0.1, Lower90: ptr(1)}}}},
		{"bad probability", RiskSimulateInput{Categories: []CategoryInput{{Name: "A", Probability: 2, Lower90: ptr(1), Upper90: ptr(2)}}}},
		{"bad percentile", RiskSimulateInput{Source: "categories.csv", Percentiles: []float64{0}}},
		{"too many trials", RiskSimulateInput{Source: "categories.csv", Trials: 20_000_000}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := server.handleRiskSimulate(ctx, nil, tt.args)
			if err == nil {
				t.Error("expected error")
			}
			if errors.Is(err, ratelimit.ErrLimited) {
				t.Errorf("rate limited instead of rejected: %v", err)
			}
		})
	}
}

func TestHandleRiskSimulate_EmptyCategories(t *testing.T) {
	server, _ := setupTestServer(t)
	ctx := context.Background()

	var decoded RiskSimulateInput
	if err := json.Unmarshal([]byte(`{"categories": [], "trials": 40}`), &decoded); err != nil {
		t.Fatalf("decoding input: %v", err)
	}
	for name, args := range map[string]RiskSimulateInput{
		"literal": {Categories: []CategoryInput{}, Trials: 40},
		"json":    decoded,
	} {
		t.Run(name, func(t *testing.T) {
			_, out, err := server.handleRiskSimulate(ctx, nil, args)
			if err != nil {
				t.Fatalf("handleRiskSimulate error: %v", err)
			}
			if out.Trials != 40 || len(out.Exemplar) != 0 {
				t.Errorf("trials=%d exemplar=%+v", out.Trials, out.Exemplar)
			}
			if out.Summary != (stats.Summary{}) || out.ExpectedLoss != 0 || out.ExemplarTotal != 0 {
				t.Errorf("Summary = %+v expected=%v, want all zero", out.Summary, out.ExpectedLoss)
			}
			for _, p := range out.Percentiles {
				if p.Value != 0 {
					t.Errorf("percentile %v = %v, want 0", p.Percentile, p.Value)
				}
			}
		})
	}
}

func TestHandleRiskSimulate_Symlinks(t *testing.T) {
	server, tmpDir := setupTestServer(t)
	ctx := context.Background()

	outside := filepath.Join(t.TempDir(), "secret.csv")
	if err := os.WriteFile(outside, []byte(testCategories), 0600); err != nil {
		t.Fatalf("Failed to write outside file: %v", err)
	}
	if err := os.Symlink(outside, filepath.Join(tmpDir, "escape.csv")); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}
	if err := os.Symlink(filepath.Dir(outside), filepath.Join(tmpDir, "elsewhere")); err != nil {
		t.Fatalf("Symlink dir: %v", err)
	}
	if err := os.Symlink(filepath.Join(tmpDir, "categories.csv"), filepath.Join(tmpDir, "alias.csv")); err != nil {
		t.Fatalf("Symlink alias: %v", err)
	}

	for _, src := range []string{"escape.csv", "elsewhere/secret.csv"} {
		_, _, err := server.handleRiskSimulate(ctx, nil, RiskSimulateInput{Source: src, Trials: 10})
		if err == nil || !strings.Contains(err.Error(), "outside the project root") {
			t.Errorf("source %s: error = %v, want outside the project root", src, err)
		}
	}

	if _, _, err := server.handleRiskSimulate(ctx, nil, RiskSimulateInput{Source: "alias.csv", Trials: 10}); err != nil {
		t.Errorf("symlink inside root rejected: %v", err)
	}
}

func TestHandleRiskSimulate_RateLimited(t *testing.T) {
	server, _ := setupTestServer(t)
	server.limits = ratelimit.ToolLimits{"risk_simulate": ratelimit.NewBucket(0, 1)}
	ctx := context.Background()
	args := RiskSimulateInput{Source: "categories.csv", Trials: 10}

	if _, _, err := server.handleRiskSimulate(ctx, nil, args); err != nil {
		t.Fatalf("first call error: %v", err)
	}
	_, _, err := server.handleRiskSimulate(ctx, nil, args)
	if !errors.Is(err, ratelimit.ErrLimited) {
		t.Errorf("second call error = %v, want ErrLimited", err)
	}
}

func TestToolsOverInMemoryTransport(t *testing.T) {
	server, _ := setupTestServer(t)
	ctx := context.Background()

	clientTransport, serverTransport := sdk.NewInMemoryTransports()
	serverSession, err := server.server.Connect(ctx, serverTransport, nil)
	if err != nil {
		t.Fatalf("server connect: %v", err)
	}
	defer serverSession.Close()

	client := sdk.NewClient(&sdk.Implementation{Name: "test-client", Version: "v1"}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	if err != nil {
		t.Fatalf("client connect: %v", err)
	}
	defer session.Close()

	tools, err := session.ListTools(ctx, nil)
	if err != nil {
		t.Fatalf("ListTools: %v", err)
	}
	names := map[string]bool{}
	for _, tool := range tools.Tools {
		names[tool.Name] = true
	}
	for _, want := range []string{"risk_calibrate", "risk_simulate", "risk_runs"} {
		if !names[want] {
			t.Errorf("tool %s not registered", want)
		}
	}

	res, err := session.CallTool(ctx, &sdk.CallToolParams{
		Name: "risk_calibrate",
		Arguments: map[string]any{
			"items": []map[string]any{{"extreme_lower": 1000, "extreme_upper": 2000}},
		},
	})
	if err != nil {
		t.Fatalf("CallTool: %v", err)
	}
	if res.IsError {
		t.Fatalf("CallTool returned tool error: %+v", res.Content)
	}
	data, err := json.Marshal(res.StructuredContent)
	if err != nil {
		t.Fatalf("marshal structured content: %v", err)
	}
	var out RiskCalibrateOutput
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("decode structured content: %v", err)
	}
	if out.Count != 1 || out.Intervals[0].Upper90 != 1766.14 {
		t.Errorf("out = %+v", out)
	}
}
