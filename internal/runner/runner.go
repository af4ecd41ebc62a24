// Package runner wires a category source through calibration, simulation
// and analysis into a report. The CLI and the MCP server both drive runs
// through it.
package runner

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/nvandessel/riskloop/internal/engine"
	"github.com/nvandessel/riskloop/internal/logging"
	"github.com/nvandessel/riskloop/internal/lossmodel"
	"github.com/nvandessel/riskloop/internal/report"
	"github.com/nvandessel/riskloop/internal/source"
	"github.com/nvandessel/riskloop/internal/stats"
	"github.com/nvandessel/riskloop/internal/store"
)

// Request describes one simulation. Exactly one of Source and Records is
// used; Records wins when both are set.
type Request struct {
	// Source is a CSV or YAML category file.
	Source string

	// Records are categories supplied inline.
	Records []source.Record

	Trials      int
	Seed        *uint64
	Workers     int
	Percentiles []float64
	CurvePoints int
}

// Result is a finished run.
type Result struct {
	ID       string
	Run      *engine.Run
	Models   []lossmodel.Model
	Analysis *stats.Analysis
	Report   *report.Report
}

// Runner holds the collaborators shared by every run. All fields are
// optional.
type Runner struct {
	Logger   *slog.Logger
	Audit    *logging.AuditLog
	Observer engine.Observer
}

// Simulate loads the categories, runs the engine and analyzes the totals.
// Percentiles are validated before any trial runs. Every failure is
// audited as run.failed and reported to the observer exactly once.
func (r *Runner) Simulate(ctx context.Context, req Request) (*Result, error) {
	logger := r.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	id := uuid.NewString()
	categories := len(req.Records)
	fail := func(err error, observed bool) (*Result, error) {
		r.Audit.Record(logging.AuditEvent{Event: logging.EventRunFailed, RunID: id, Source: req.Source, Error: err.Error()})
		if !observed && r.Observer != nil {
			r.Observer.ObserveRun(req.Trials, categories, 0, err)
		}
		return nil, err
	}

	if err := stats.ValidatePercentiles(req.Percentiles); err != nil {
		return fail(err, false)
	}

	records := req.Records
	if records == nil {
		var err error
		records, err = source.Load(req.Source)
		if err != nil {
			return fail(err, false)
		}
		categories = len(records)
		logger.Debug("categories loaded", "source", req.Source, "count", len(records))
	}

	ms, err := source.Models(records)
	if err != nil {
		return fail(err, false)
	}

	r.Audit.Record(logging.AuditEvent{
		Event:      logging.EventRunStart,
		RunID:      id,
		Source:     req.Source,
		Trials:     req.Trials,
		Categories: len(ms),
		Seed:       req.Seed,
	})

	// The engine reports its own outcome to the observer.
	run, err := engine.Simulate(ctx, ms, engine.Config{
		Trials:   req.Trials,
		Seed:     req.Seed,
		Workers:  req.Workers,
		Logger:   logger,
		Observer: r.Observer,
	})
	if err != nil {
		return fail(err, true)
	}

	analysis, err := stats.Analyze(run.Totals, req.Percentiles)
	if err != nil {
		return fail(err, true)
	}

	rep := report.New(run, ms, analysis, req.CurvePoints)
	rep.Source = req.Source

	seed := run.Seed
	r.Audit.Record(logging.AuditEvent{
		Event:      logging.EventRunComplete,
		RunID:      id,
		Source:     req.Source,
		Trials:     run.Trials,
		Categories: len(ms),
		Seed:       &seed,
		Mean:       analysis.Summary.Mean,
	})

	return &Result{ID: id, Run: run, Models: ms, Analysis: analysis, Report: rep}, nil
}

// Save persists the result's summary and stamps the run ID on its report.
func Save(ctx context.Context, s store.RunStore, res *Result) (string, error) {
	rec := &store.RunRecord{
		ID:           res.ID,
		CreatedAt:    res.Report.CreatedAt,
		Source:       res.Report.Source,
		Trials:       res.Run.Trials,
		Seed:         res.Run.Seed,
		Categories:   len(res.Models),
		Summary:      res.Analysis.Summary,
		ExpectedLoss: res.Report.ExpectedLoss,
		Percentiles:  res.Analysis.Percentiles,
	}
	id, err := s.SaveRun(ctx, rec)
	if err != nil {
		return "", fmt.Errorf("saving run: %w", err)
	}
	res.Report.RunID = id
	return id, nil
}
