package mcp

import (
	"github.com/nvandessel/riskloop/internal/report"
	"github.com/nvandessel/riskloop/internal/stats"
)

// CalibrateItem is one pair of extreme estimates to calibrate.
type CalibrateItem struct {
	Name         string  `json:"name,omitempty" jsonschema:"Optional label echoed back in the result"`
	ExtremeLower float64 `json:"extreme_lower" jsonschema:"Extreme lower loss estimate (0.1% quantile)"`
	ExtremeUpper float64 `json:"extreme_upper" jsonschema:"Extreme upper loss estimate (99.9% quantile)"`
}

// RiskCalibrateInput defines the input for the risk_calibrate tool.
type RiskCalibrateInput struct {
	Items []CalibrateItem `json:"items" jsonschema:"Extreme estimate pairs to convert into 90% intervals"`
}

// CalibratedItem is the 90% interval implied by one pair of extremes.
type CalibratedItem struct {
	Name         string  `json:"name,omitempty"`
	ExtremeLower float64 `json:"extreme_lower"`
	ExtremeUpper float64 `json:"extreme_upper"`
	Lower90      float64 `json:"lower90" jsonschema:"Calibrated 5th percentile of loss"`
	Upper90      float64 `json:"upper90" jsonschema:"Calibrated 95th percentile of loss"`
}

// RiskCalibrateOutput defines the output for the risk_calibrate tool.
type RiskCalibrateOutput struct {
	Intervals []CalibratedItem `json:"intervals" jsonschema:"Calibrated intervals in input order"`
	Count     int              `json:"count" jsonschema:"Number of intervals"`
}

// CategoryInput is an inline risk category for risk_simulate. Give either
// lower90/upper90 or extreme_lower/extreme_upper.
type CategoryInput struct {
	Name         string   `json:"name" jsonschema:"Category name"`
	Probability  float64  `json:"probability" jsonschema:"Annual probability of occurrence, 0 to 1"`
	Lower90      *float64 `json:"lower90,omitempty" jsonschema:"Lower bound of the 90% loss interval"`
	Upper90      *float64 `json:"upper90,omitempty" jsonschema:"Upper bound of the 90% loss interval"`
	ExtremeLower *float64 `json:"extreme_lower,omitempty" jsonschema:"Extreme lower loss estimate, calibrated before simulating"`
	ExtremeUpper *float64 `json:"extreme_upper,omitempty" jsonschema:"Extreme upper loss estimate, calibrated before simulating"`
	Count        int      `json:"count,omitempty" jsonschema:"Incident count the probability was derived from"`
}

// RiskSimulateInput defines the input for the risk_simulate tool.
type RiskSimulateInput struct {
	Source      string          `json:"source,omitempty" jsonschema:"CSV or YAML category file, relative to the project root"`
	Categories  []CategoryInput `json:"categories,omitempty" jsonschema:"Inline categories; used instead of source when given, even when empty"`
	Trials      int             `json:"trials,omitempty" jsonschema:"Number of Monte Carlo trials (default from config)"`
	Seed        *uint64         `json:"seed,omitempty" jsonschema:"Fixed seed for a reproducible run"`
	Percentiles []float64       `json:"percentiles,omitempty" jsonschema:"Percentile levels in (0, 100) (default 50, 75, 90, 95, 99)"`
	CurvePoints int             `json:"curve_points,omitempty" jsonschema:"Exceedance curve points to return (default 0, none)"`
	Save        bool            `json:"save,omitempty" jsonschema:"Persist the run summary to the run history"`
}

// RiskSimulateOutput defines the output for the risk_simulate tool.
type RiskSimulateOutput struct {
	RunID         string                  `json:"run_id,omitempty" jsonschema:"Run history ID when saved"`
	Seed          uint64                  `json:"seed" jsonschema:"Seed used; pass it back to replay the run"`
	Trials        int                     `json:"trials"`
	Summary       stats.Summary           `json:"summary"`
	Percentiles   []stats.PercentileValue `json:"percentiles"`
	ExpectedLoss  float64                 `json:"expected_loss" jsonschema:"Analytic expected annual loss"`
	Exemplar      []report.ExemplarRow    `json:"exemplar" jsonschema:"Per-category draws of trial 0"`
	ExemplarTotal float64                 `json:"exemplar_total"`
	Curve         []stats.Point           `json:"curve,omitempty" jsonschema:"Exceedance curve sampled on a log grid"`
	Message       string                  `json:"message"`
}

// RiskRunsInput defines the input for the risk_runs tool.
type RiskRunsInput struct {
	ID    string `json:"id,omitempty" jsonschema:"Run ID or unique prefix; lists recent runs when empty"`
	Limit int    `json:"limit,omitempty" jsonschema:"Maximum runs to list (default 20)"`
}

// RunSummary is a list view of a saved run.
type RunSummary struct {
	ID           string                  `json:"id"`
	CreatedAt    string                  `json:"created_at"`
	Source       string                  `json:"source"`
	Trials       int                     `json:"trials"`
	Seed         uint64                  `json:"seed"`
	Categories   int                     `json:"categories"`
	Mean         float64                 `json:"mean"`
	ExpectedLoss float64                 `json:"expected_loss"`
	Percentiles  []stats.PercentileValue `json:"percentiles"`
}

// RiskRunsOutput defines the output for the risk_runs tool.
type RiskRunsOutput struct {
	Runs  []RunSummary `json:"runs"`
	Count int          `json:"count"`
}
