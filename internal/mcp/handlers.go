package mcp

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/nvandessel/riskloop/internal/calibrate"
	"github.com/nvandessel/riskloop/internal/constants"
	"github.com/nvandessel/riskloop/internal/models"
	"github.com/nvandessel/riskloop/internal/runner"
	"github.com/nvandessel/riskloop/internal/sanitize"
	"github.com/nvandessel/riskloop/internal/source"
	"github.com/nvandessel/riskloop/internal/stats"
	"github.com/nvandessel/riskloop/internal/store"
)

// defaultRunsLimit is the number of runs risk_runs lists when no limit is given.
const defaultRunsLimit = 20

// registerTools registers all riskloop MCP tools with the server.
func (s *Server) registerTools() {
	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "risk_calibrate",
		Description: "Convert extreme (99.8%) loss estimates into calibrated 90% confidence intervals",
	}, s.handleRiskCalibrate)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "risk_simulate",
		Description: "Run a Monte Carlo annual loss simulation over risk categories and return summary statistics, percentiles and the exceedance curve",
	}, s.handleRiskSimulate)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "risk_runs",
		Description: "List saved simulation runs or show one by ID",
	}, s.handleRiskRuns)
}

func (s *Server) handleRiskCalibrate(ctx context.Context, req *sdk.CallToolRequest, args RiskCalibrateInput) (*sdk.CallToolResult, RiskCalibrateOutput, error) {
	if err := s.limits.Check("risk_calibrate"); err != nil {
		return nil, RiskCalibrateOutput{}, err
	}
	if len(args.Items) == 0 {
		return nil, RiskCalibrateOutput{}, fmt.Errorf("items is required")
	}

	pairs := make([]calibrate.Pair, len(args.Items))
	for i, it := range args.Items {
		pairs[i] = calibrate.Pair{ExtremeLower: it.ExtremeLower, ExtremeUpper: it.ExtremeUpper}
	}
	ivs, err := calibrate.CalibrateAll(pairs)
	if err != nil {
		return nil, RiskCalibrateOutput{}, err
	}

	out := RiskCalibrateOutput{Intervals: make([]CalibratedItem, len(ivs)), Count: len(ivs)}
	for i, iv := range ivs {
		out.Intervals[i] = CalibratedItem{
			Name:         sanitize.CategoryName(args.Items[i].Name),
			ExtremeLower: args.Items[i].ExtremeLower,
			ExtremeUpper: args.Items[i].ExtremeUpper,
			Lower90:      iv.Lower90,
			Upper90:      iv.Upper90,
		}
	}
	s.logger.Debug("mcp calibrate", "items", len(ivs))
	return nil, out, nil
}

func (s *Server) handleRiskSimulate(ctx context.Context, req *sdk.CallToolRequest, args RiskSimulateInput) (*sdk.CallToolResult, RiskSimulateOutput, error) {
	if err := s.limits.Check("risk_simulate"); err != nil {
		return nil, RiskSimulateOutput{}, err
	}

	sim := s.settings.Simulation
	rreq := runner.Request{
		Trials:      sim.Trials,
		Seed:        sim.Seed,
		Workers:     sim.Workers,
		Percentiles: sim.Percentiles,
		CurvePoints: args.CurvePoints,
	}
	if args.Trials != 0 {
		rreq.Trials = args.Trials
	}
	if rreq.Trials > constants.MaxTrials {
		return nil, RiskSimulateOutput{}, &models.ConfigurationError{Field: "trials", Value: rreq.Trials, Reason: fmt.Sprintf("must be <= %d", constants.MaxTrials)}
	}
	if args.Seed != nil {
		rreq.Seed = args.Seed
	}
	if len(args.Percentiles) > 0 {
		rreq.Percentiles = args.Percentiles
	}
	if rreq.CurvePoints > s.settings.Output.CurvePoints {
		rreq.CurvePoints = s.settings.Output.CurvePoints
	}

	switch {
	case args.Categories != nil:
		recs, err := toRecords(args.Categories)
		if err != nil {
			return nil, RiskSimulateOutput{}, err
		}
		rreq.Records = recs
	case args.Source != "":
		path, err := s.resolveSource(args.Source)
		if err != nil {
			return nil, RiskSimulateOutput{}, err
		}
		rreq.Source = path
	default:
		return nil, RiskSimulateOutput{}, fmt.Errorf("either source or categories is required")
	}

	res, err := s.runner.Simulate(ctx, rreq)
	if err != nil {
		return nil, RiskSimulateOutput{}, err
	}
	if rreq.Source != "" {
		res.Report.Source = args.Source
	}

	msg := fmt.Sprintf("Simulated %d trials over %d categories", res.Run.Trials, len(res.Models))
	if args.Save {
		id, err := runner.Save(ctx, s.store, res)
		if err != nil {
			return nil, RiskSimulateOutput{}, err
		}
		msg += fmt.Sprintf("; saved as run %s", id)
	}

	rep := res.Report
	return nil, RiskSimulateOutput{
		RunID:         rep.RunID,
		Seed:          rep.Seed,
		Trials:        rep.Trials,
		Summary:       rep.Summary,
		Percentiles:   rep.Percentiles,
		ExpectedLoss:  rep.ExpectedLoss,
		Exemplar:      rep.Exemplar,
		ExemplarTotal: rep.ExemplarSum,
		Curve:         rep.Curve,
		Message:       msg,
	}, nil
}

func (s *Server) handleRiskRuns(ctx context.Context, req *sdk.CallToolRequest, args RiskRunsInput) (*sdk.CallToolResult, RiskRunsOutput, error) {
	if err := s.limits.Check("risk_runs"); err != nil {
		return nil, RiskRunsOutput{}, err
	}

	out := RiskRunsOutput{Runs: []RunSummary{}}
	if args.ID != "" {
		rec, err := s.store.GetRun(ctx, args.ID)
		if err != nil {
			return nil, RiskRunsOutput{}, err
		}
		out.Runs = append(out.Runs, summarizeRun(rec))
		out.Count = 1
		return nil, out, nil
	}

	limit := args.Limit
	if limit <= 0 {
		limit = defaultRunsLimit
	}
	runs, err := s.store.ListRuns(ctx, limit)
	if err != nil {
		return nil, RiskRunsOutput{}, err
	}
	for i := range runs {
		out.Runs = append(out.Runs, summarizeRun(&runs[i]))
	}
	out.Count = len(out.Runs)
	return nil, out, nil
}

func summarizeRun(rec *store.RunRecord) RunSummary {
	ps := rec.Percentiles
	if ps == nil {
		ps = []stats.PercentileValue{}
	}
	return RunSummary{
		ID:           rec.ID,
		CreatedAt:    rec.CreatedAt.UTC().Format(time.RFC3339),
		Source:       rec.Source,
		Trials:       rec.Trials,
		Seed:         rec.Seed,
		Categories:   rec.Categories,
		Mean:         rec.Summary.Mean,
		ExpectedLoss: rec.ExpectedLoss,
		Percentiles:  ps,
	}
}

// resolveSource resolves a tool-supplied path against the project root and
// rejects paths that leave it, following symlinks. A path that does not
// exist is checked lexically and left for the loader to report.
func (s *Server) resolveSource(p string) (string, error) {
	if strings.ContainsRune(p, 0) {
		return "", fmt.Errorf("source path contains a null byte")
	}
	if !filepath.IsAbs(p) {
		p = filepath.Join(s.root, p)
	}
	p = filepath.Clean(p)

	root := s.root
	if resolved, err := filepath.EvalSymlinks(root); err == nil {
		root = resolved
	}
	target := p
	resolved, err := filepath.EvalSymlinks(p)
	switch {
	case err == nil:
		target = resolved
	case errors.Is(err, fs.ErrNotExist):
		target = filepath.Join(root, lexicalRel(s.root, p))
	default:
		return "", fmt.Errorf("resolving source %q: %w", p, err)
	}

	rel, err := filepath.Rel(root, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("source %q is outside the project root", p)
	}
	return p, nil
}

// lexicalRel is filepath.Rel that returns ".." when base and target share no
// common prefix.
func lexicalRel(base, target string) string {
	rel, err := filepath.Rel(base, target)
	if err != nil {
		return ".."
	}
	return rel
}

// toRecords converts inline categories. A category with 90% bounds is used
// as-is; one with only extreme bounds is calibrated.
func toRecords(in []CategoryInput) ([]source.Record, error) {
	recs := make([]source.Record, 0, len(in))
	for i, c := range in {
		row := i + 1
		rec := source.Record{Row: row}

		lo, hi := c.Lower90, c.Upper90
		if lo == nil && hi == nil {
			lo, hi = c.ExtremeLower, c.ExtremeUpper
			rec.Extremes = true
		}
		if lo == nil || hi == nil {
			return nil, &models.ValidationError{
				Field:  "bounds",
				Value:  c.Name,
				Row:    row,
				Reason: "needs lower90 and upper90, or extreme_lower and extreme_upper",
			}
		}

		rec.Category = models.Category{
			Name:        sanitize.CategoryName(c.Name),
			Probability: c.Probability,
			LossLower:   *lo,
			LossUpper:   *hi,
			Count:       c.Count,
		}
		if err := rec.Category.Validate(); err != nil {
			var ve *models.ValidationError
			if errors.As(err, &ve) {
				ve.Row = row
			}
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, nil
}
