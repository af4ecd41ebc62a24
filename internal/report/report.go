// Package report renders a finished simulation run: the exemplar breakdown
// table, a plain-text summary, a JSON document, exceedance curve points and
// an Arrow IPC stream of every trial total.
package report

import (
	"encoding/json"
	"io"
	"time"

	"github.com/nvandessel/riskloop/internal/engine"
	"github.com/nvandessel/riskloop/internal/lossmodel"
	"github.com/nvandessel/riskloop/internal/stats"
)

// ExemplarRow is one category's contribution to trial 0.
type ExemplarRow struct {
	Name        string  `json:"name"`
	Count       int     `json:"count,omitempty"`
	Probability float64 `json:"probability"`
	Lower90     float64 `json:"lower90"`
	Upper90     float64 `json:"upper90"`
	Loss        float64 `json:"loss"`
}

// Report is the presentation view of one run.
type Report struct {
	RunID        string                  `json:"run_id,omitempty"`
	Source       string                  `json:"source,omitempty"`
	CreatedAt    time.Time               `json:"created_at"`
	Seed         uint64                  `json:"seed"`
	Trials       int                     `json:"trials"`
	Summary      stats.Summary           `json:"summary"`
	Percentiles  []stats.PercentileValue `json:"percentiles"`
	ExpectedLoss float64                 `json:"expected_loss"`
	Exemplar     []ExemplarRow           `json:"exemplar"`
	ExemplarSum  float64                 `json:"exemplar_total"`
	Curve        []stats.Point           `json:"curve,omitempty"`
}

// New assembles a Report. ms must be the models the run was simulated with,
// in the same order. curvePoints <= 0 leaves the curve out.
func New(run *engine.Run, ms []lossmodel.Model, a *stats.Analysis, curvePoints int) *Report {
	r := &Report{
		CreatedAt:    time.Now().UTC(),
		Seed:         run.Seed,
		Trials:       run.Trials,
		Summary:      a.Summary,
		Percentiles:  a.Percentiles,
		ExpectedLoss: stats.ExpectedLoss(ms),
		Exemplar:     make([]ExemplarRow, len(ms)),
	}
	for i, m := range ms {
		c, iv := m.Category(), m.Interval()
		var loss float64
		if i < len(run.Exemplar) {
			loss = run.Exemplar[i]
		}
		r.Exemplar[i] = ExemplarRow{
			Name:        c.Name,
			Count:       c.Count,
			Probability: c.Probability,
			Lower90:     iv.Lower90,
			Upper90:     iv.Upper90,
			Loss:        loss,
		}
		r.ExemplarSum += loss
	}
	if curvePoints > 0 && a.Curve != nil {
		r.Curve = a.Curve.At(LogGrid(a.Curve.Min(), a.Curve.Max(), curvePoints))
	}
	return r
}

// WriteJSON encodes the report as indented JSON.
func (r *Report) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}
