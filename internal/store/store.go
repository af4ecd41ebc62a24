// Package store persists simulation run summaries so past runs can be
// listed, compared and replayed.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/nvandessel/riskloop/internal/stats"
)

// ErrRunNotFound is returned when no run matches the requested ID.
var ErrRunNotFound = errors.New("run not found")

// ErrAmbiguousID is returned when an ID prefix matches more than one run.
var ErrAmbiguousID = errors.New("run id prefix is ambiguous")

// RunRecord is the persisted summary of one simulation run. Totals are not
// stored; a run is reproduced from Source, Trials and Seed.
type RunRecord struct {
	ID           string                  `json:"id"`
	CreatedAt    time.Time               `json:"created_at"`
	Source       string                  `json:"source"`
	Trials       int                     `json:"trials"`
	Seed         uint64                  `json:"seed"`
	Categories   int                     `json:"categories"`
	Summary      stats.Summary           `json:"summary"`
	ExpectedLoss float64                 `json:"expected_loss"`
	Percentiles  []stats.PercentileValue `json:"percentiles"`
}

// RunStore defines the interface for storing and querying run history.
type RunStore interface {
	// SaveRun stores rec and returns its ID. An empty ID is assigned a new
	// UUID; a zero CreatedAt is set to the current time.
	SaveRun(ctx context.Context, rec *RunRecord) (string, error)

	// GetRun returns the run whose ID equals id or, failing that, the single
	// run whose ID starts with id.
	GetRun(ctx context.Context, id string) (*RunRecord, error)

	// ListRuns returns the most recent runs first. limit <= 0 means all.
	ListRuns(ctx context.Context, limit int) ([]RunRecord, error)

	// DeleteRun removes a run by exact ID.
	DeleteRun(ctx context.Context, id string) error

	Close() error
}
