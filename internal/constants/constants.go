// Package constants provides named constants used throughout the riskloop codebase.
// This centralizes magic numbers for better maintainability and documentation.
package constants

// Simulation defaults
const (
	// DefaultTrials is the number of Monte Carlo trials when none is configured.
	DefaultTrials = 1000

	// MaxTrials caps trial counts accepted from configuration and tool calls.
	// The engine itself has no such limit.
	MaxTrials = 10_000_000
)

// DefaultPercentiles returns the percentile levels reported when none are requested.
// A fresh slice is returned on every call so callers may modify it.
func DefaultPercentiles() []float64 {
	return []float64{50, 75, 90, 95, 99}
}

// Interval calibration constants
const (
	// ExtremeCoverage is the cumulative probability bounding each tail of the
	// "extreme" estimate. 0.1% of mass sits outside each bound (99.8% two-sided).
	ExtremeCoverage = 0.999

	// TargetCoverage is the cumulative probability of the calibrated bound
	// (a two-sided 90% interval).
	TargetCoverage = 0.95

	// MoneyDecimals is the number of decimal places calibrated bounds are rounded to.
	MoneyDecimals = 2
)

// Exceedance curve presentation
const (
	// DefaultCurvePoints is the number of log-spaced points sampled for charts.
	DefaultCurvePoints = 1000

	// CurveHeadroom stretches the upper end of the sampled grid past the largest total.
	CurveHeadroom = 1.1
)

// Incident aggregation
const (
	// CategorySeparator splits multi-category incident cells ("Phishing::Malware").
	CategorySeparator = "::"

	// PercentageDecimals is the rounding applied to aggregated category shares.
	PercentageDecimals = 4
)

// Directory and file names
const (
	// DirName is the per-project working directory.
	DirName = ".riskloop"

	// ConfigFileName is the YAML configuration file inside ~/.riskloop.
	ConfigFileName = "config.yaml"

	// RunsDBName is the SQLite run history database inside .riskloop.
	RunsDBName = "runs.db"

	// AuditLogName is the JSONL audit trail inside .riskloop.
	AuditLogName = "audit.jsonl"
)
