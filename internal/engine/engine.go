// Package engine runs the Monte Carlo loss simulation: N independent trials,
// each sampling every category model once and summing the draws.
//
// Every trial draws from its own PCG substream seeded from (run seed, trial
// index), so a run is reproducible bit for bit regardless of how many workers
// execute it or in which order trials finish.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nvandessel/riskloop/internal/lossmodel"
	"github.com/nvandessel/riskloop/internal/models"
)

// cancelCheckInterval is how many trials a worker runs between context checks.
const cancelCheckInterval = 256

// Observer receives one notification per finished or failed run.
type Observer interface {
	ObserveRun(trials, categories int, elapsed time.Duration, err error)
}

// Config controls a simulation run.
type Config struct {
	// Trials is the number of independent trials. Must be >= 1.
	Trials int

	// Seed fixes the run seed. When nil a seed is drawn from the runtime's
	// entropy-seeded generator and recorded on the Run.
	Seed *uint64

	// Workers is the number of goroutines trials are split across.
	// Values <= 0 mean runtime.NumCPU().
	Workers int

	// Logger receives debug-level run events. Nil disables logging.
	Logger *slog.Logger

	// Observer is notified once the run ends. Optional.
	Observer Observer
}

// Run is the result of one simulation. It is owned by the caller.
type Run struct {
	// Seed is the seed the run used, whether configured or drawn.
	Seed uint64 `json:"seed"`

	// Trials is len(Totals).
	Trials int `json:"trials"`

	// Totals holds the total loss of every trial, in trial order.
	Totals []float64 `json:"totals"`

	// Exemplar holds trial 0's per-category draws, in model order.
	Exemplar []float64 `json:"exemplar"`
}

// Simulate runs cfg.Trials trials over models. Models are sampled in slice
// order within every trial. An empty model slice is valid and yields a run
// whose totals are all zero.
//
// If ctx is cancelled the whole run is abandoned and ctx's error returned;
// no partial run is ever returned. The observer sees every call, including
// one rejected for its trial count.
func Simulate(ctx context.Context, ms []lossmodel.Model, cfg Config) (*Run, error) {
	if cfg.Trials < 1 {
		err := &models.ConfigurationError{Field: "trials", Value: cfg.Trials, Reason: "must be >= 1"}
		if cfg.Observer != nil {
			cfg.Observer.ObserveRun(cfg.Trials, len(ms), 0, err)
		}
		return nil, err
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	seed := rand.Uint64()
	if cfg.Seed != nil {
		seed = *cfg.Seed
	}

	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > cfg.Trials {
		workers = cfg.Trials
	}

	run := &Run{
		Seed:     seed,
		Trials:   cfg.Trials,
		Totals:   make([]float64, cfg.Trials),
		Exemplar: make([]float64, len(ms)),
	}

	logger.Debug("simulation starting",
		"trials", cfg.Trials,
		"categories", len(ms),
		"workers", workers,
		"seed", seed)

	start := time.Now()
	err := runTrials(ctx, ms, seed, workers, run)
	elapsed := time.Since(start)

	if cfg.Observer != nil {
		cfg.Observer.ObserveRun(cfg.Trials, len(ms), elapsed, err)
	}
	if err != nil {
		logger.Debug("simulation aborted", "error", err, "elapsed", elapsed)
		return nil, fmt.Errorf("simulation aborted: %w", err)
	}

	logger.Debug("simulation finished", "trials", cfg.Trials, "elapsed", elapsed)
	return run, nil
}

// runTrials splits the trial range into contiguous chunks, one per worker.
// Each worker writes only its own slice of run.Totals; only the worker that
// owns trial 0 writes run.Exemplar.
func runTrials(ctx context.Context, ms []lossmodel.Model, seed uint64, workers int, run *Run) error {
	g, gctx := errgroup.WithContext(ctx)

	n := run.Trials
	chunk := (n + workers - 1) / workers
	for lo := 0; lo < n; lo += chunk {
		hi := min(lo+chunk, n)
		g.Go(func() error {
			return runChunk(gctx, ms, seed, lo, hi, run)
		})
	}

	return g.Wait()
}

func runChunk(ctx context.Context, ms []lossmodel.Model, seed uint64, lo, hi int, run *Run) error {
	src := rand.NewPCG(0, 0)
	rng := rand.New(src)

	for trial := lo; trial < hi; trial++ {
		if (trial-lo)%cancelCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}

		src.Seed(Substream(seed, trial))

		var exemplar []float64
		if trial == 0 {
			exemplar = run.Exemplar
		}
		run.Totals[trial] = sampleTrial(ms, rng, exemplar)
	}
	return nil
}

// sampleTrial samples every model once and returns the sum of the draws.
// When draws is non-nil it receives the individual draws.
func sampleTrial(ms []lossmodel.Model, rng *rand.Rand, draws []float64) float64 {
	var total float64
	for i, m := range ms {
		v := m.Sample(rng)
		if draws != nil {
			draws[i] = v
		}
		total += v
	}
	return total
}
