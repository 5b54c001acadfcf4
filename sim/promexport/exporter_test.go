package promexport

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hpath-sim/hpath-sim/sim"
)

func sampleReport() *sim.Report {
	return &sim.Report{
		Arrived:    10,
		Completed:  8,
		InFlight:   2,
		Turnaround: sim.Summary{Count: 8, Mean: 30, P50: 28, P90: 50, Max: 70},
		TurnaroundByStage: map[string]sim.Summary{
			"cut_up": {Count: 8, Mean: 4},
		},
		WIP: map[string]sim.WIPStats{
			"total": {Mean: 3.5, Peak: 7},
		},
		Resources: []sim.ResourceStats{
			{Name: "bms", Utilisation: 0.6, MeanQueue: 1.2, MaxQueue: 5, MaxOvershoot: 1},
			{Name: "bone_station", Unlimited: true},
		},
		CompleteWithin: []float64{0.1, 0.5, 0.8},
		Batches:        sim.BatchStats{Joined: 20, Dispatched: 18, InFlight: 2},
	}
}

func TestExporter_Publish_SetsGauges(t *testing.T) {
	// GIVEN an exporter on a fresh registry
	reg := prometheus.NewRegistry()
	e, err := NewExporter(reg)
	require.NoError(t, err)

	// WHEN a report is published for replication 3
	e.Publish(3, sampleReport())

	// THEN the gauges carry its values under the replication label
	assert.Equal(t, 8.0, testutil.ToFloat64(e.completed.WithLabelValues("3")))
	assert.Equal(t, 50.0, testutil.ToFloat64(e.turnaround.WithLabelValues("3", "p90")))
	assert.Equal(t, 0.6, testutil.ToFloat64(e.utilisation.WithLabelValues("3", "bms")))
	assert.Equal(t, 0.5, testutil.ToFloat64(e.completeWithin.WithLabelValues("3", "2")))
	assert.Equal(t, 7.0, testutil.ToFloat64(e.wipPeak.WithLabelValues("3", "total")))
	// unlimited resources have no utilisation series
	assert.Equal(t, 1, testutil.CollectAndCount(e.utilisation))
	assert.Equal(t, 2, testutil.CollectAndCount(e.maxQueue))
}

func TestExporter_RecordFailure_CountsByKind(t *testing.T) {
	reg := prometheus.NewRegistry()
	e, err := NewExporter(reg)
	require.NoError(t, err)

	e.RecordFailure("timeout_exceeded")
	e.RecordFailure("timeout_exceeded")
	e.RecordFailure("malformed_batch_policy")

	expected := `
# HELP hpath_replication_failures_total Replications that stopped early, by error kind.
# TYPE hpath_replication_failures_total counter
hpath_replication_failures_total{kind="malformed_batch_policy"} 1
hpath_replication_failures_total{kind="timeout_exceeded"} 2
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "hpath_replication_failures_total"))
}

func TestNewExporter_DoubleRegistration_Fails(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewExporter(reg)
	require.NoError(t, err)

	_, err = NewExporter(reg)

	assert.Error(t, err)
}

func TestWriteTextfile(t *testing.T) {
	reg := prometheus.NewRegistry()
	e, err := NewExporter(reg)
	require.NoError(t, err)
	e.Publish(0, sampleReport())
	path := filepath.Join(t.TempDir(), "hpath.prom")

	require.NoError(t, WriteTextfile(path, reg))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `hpath_specimens_completed{replication="0"} 8`)
}
