package metrics

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorder_ObserveRun(t *testing.T) {
	r := NewRecorder()

	r.ObserveRun(1000, 12, 40*time.Millisecond, nil)
	r.ObserveRun(500, 3, time.Millisecond, nil)
	r.ObserveRun(10, 3, time.Millisecond, errors.New("cancelled"))

	assert.Equal(t, 1500.0, testutil.ToFloat64(r.trials))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.runs.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.runs.WithLabelValues("failed")))
	assert.Equal(t, 3.0, testutil.ToFloat64(r.categories))
}

func TestRecorder_WriteTextfile(t *testing.T) {
	r := NewRecorder()
	r.ObserveRun(250, 4, time.Second, nil)

	path := filepath.Join(t.TempDir(), "riskloop.prom")
	require.NoError(t, r.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(data)
	assert.True(t, strings.Contains(out, "riskloop_trials_total 250"), out)
	assert.Contains(t, out, `riskloop_runs_total{status="ok"} 1`)
	assert.Contains(t, out, "riskloop_run_duration_seconds_bucket")
}
