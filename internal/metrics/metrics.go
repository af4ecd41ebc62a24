// Package metrics records simulation run metrics in a Prometheus registry.
//
// riskloop is a batch CLI, so metrics are not scraped; they are written in the
// Prometheus text format to a file for the node_exporter textfile collector.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder owns a private registry so tests and concurrent commands never
// collide on the global default registry.
type Recorder struct {
	registry   *prometheus.Registry
	trials     prometheus.Counter
	runs       *prometheus.CounterVec
	duration   prometheus.Histogram
	categories prometheus.Gauge
}

// NewRecorder creates a Recorder with all riskloop metrics registered.
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		trials: factory.NewCounter(prometheus.CounterOpts{
			Name: "riskloop_trials_total",
			Help: "Monte Carlo trials completed",
		}),
		runs: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "riskloop_runs_total",
			Help: "Simulation runs by outcome",
		}, []string{"status"}),
		duration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "riskloop_run_duration_seconds",
			Help:    "Wall time of a simulation run",
			Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1, 5, 30},
		}),
		categories: factory.NewGauge(prometheus.GaugeOpts{
			Name: "riskloop_categories",
			Help: "Risk categories in the most recent run",
		}),
	}
}

// ObserveRun implements engine.Observer.
func (r *Recorder) ObserveRun(trials, categories int, elapsed time.Duration, err error) {
	r.duration.Observe(elapsed.Seconds())
	r.categories.Set(float64(categories))
	if err != nil {
		r.runs.WithLabelValues("failed").Inc()
		return
	}
	r.runs.WithLabelValues("ok").Inc()
	r.trials.Add(float64(trials))
}

// Registry exposes the underlying registry, e.g. for an HTTP handler.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// WriteTextfile writes every metric to path in the Prometheus text format.
// The file is written atomically.
func (r *Recorder) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, r.registry)
}
