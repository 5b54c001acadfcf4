package replication

import (
	"context"
	"os"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hpath-sim/hpath-sim/sim"
	"github.com/hpath-sim/hpath-sim/sim/dist"
	"github.com/hpath-sim/hpath-sim/sim/trace"
)

func TestMain(m *testing.M) {
	if os.Getenv("DEBUG_TESTS") == "" {
		logrus.SetLevel(logrus.ErrorLevel)
	}
	os.Exit(m.Run())
}

func oneDay() *sim.Config {
	cfg := sim.DefaultConfig()
	cfg.SimHours = 24
	return cfg
}

func TestRun_ResultsIndependentOfWorkerCount(t *testing.T) {
	// GIVEN the same seed and replication count
	opts := Options{Seed: 11, Replications: 4}

	// WHEN run serially and in parallel
	opts.Workers = 1
	serial, err := Run(context.Background(), oneDay(), opts)
	require.NoError(t, err)
	opts.Workers = 4
	parallel, err := Run(context.Background(), oneDay(), opts)
	require.NoError(t, err)

	// THEN every replication produces the same report
	require.Len(t, serial.Results, 4)
	require.Len(t, parallel.Results, 4)
	for i := range serial.Results {
		assert.Equal(t, serial.Results[i].Seed, parallel.Results[i].Seed)
		assert.Equal(t, serial.Results[i].Report, parallel.Results[i].Report, "replication %d", i)
	}
	assert.Equal(t, serial.MeanTurnaround, parallel.MeanTurnaround)
}

func TestRun_ReplicationSeeds(t *testing.T) {
	s, err := Run(context.Background(), oneDay(), Options{Seed: 5, Replications: 3})
	require.NoError(t, err)

	assert.Equal(t, int64(5), s.Results[0].Seed, "replication 0 reproduces a single run of the base seed")
	assert.NotEqual(t, s.Results[0].Seed, s.Results[1].Seed)
	assert.NotEqual(t, s.Results[1].Seed, s.Results[2].Seed)
	for i, r := range s.Results {
		assert.Equal(t, i, r.Replication)
	}
}

func TestRun_DefaultsToConfiguredReplications(t *testing.T) {
	cfg := oneDay()
	cfg.NumReps = 2

	s, err := Run(context.Background(), cfg, Options{Seed: 1})

	require.NoError(t, err)
	assert.Equal(t, 2, s.Replications)
}

func TestRun_FailedReplication_RecordedNotReturned(t *testing.T) {
	// GIVEN a reception delivery batch size that can never close
	cfg := oneDay()
	cfg.BatchSizes.DeliverReceptionToCutUp = 0

	// WHEN two replications run
	s, err := Run(context.Background(), cfg, Options{Seed: 3, Replications: 2})

	// THEN both carry a structured failure with partial statistics
	require.NoError(t, err)
	assert.Equal(t, 2, s.Failed)
	for _, r := range s.Results {
		require.NotNil(t, r.Failure)
		assert.True(t, r.Partial())
		assert.Equal(t, "malformed_batch_policy", r.Failure.Kind)
		assert.NotEmpty(t, r.Failure.Entity)
		assert.Equal(t, "reception", r.Failure.Stage)
		assert.NotNil(t, r.Report)
		assert.Positive(t, r.Report.Arrived)
	}
	assert.Equal(t, Aggregate{}, s.MeanTurnaround, "failed replications are excluded from aggregates")
}

func TestRun_CancelledContext_ReportsTimeouts(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s, err := Run(ctx, sim.DefaultConfig(), Options{Seed: 1, Replications: 2})

	require.NoError(t, err)
	for _, r := range s.Results {
		require.NotNil(t, r.Failure)
		assert.Equal(t, "timeout_exceeded", r.Failure.Kind)
	}
}

func TestRun_InvalidDistribution_ReturnsError(t *testing.T) {
	cfg := oneDay()
	cfg.TaskDurations.Embedding = dist.Spec{Type: "bogus", TimeUnit: "m"}

	_, err := Run(context.Background(), cfg, Options{Seed: 1, Replications: 2})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "task_durations.embedding")
}

func TestRun_TraceLevel_AttachesTrace(t *testing.T) {
	s, err := Run(context.Background(), oneDay(), Options{Seed: 2, Replications: 1, TraceLevel: trace.TraceLevelStages})
	require.NoError(t, err)

	require.NotNil(t, s.Results[0].Trace)
	assert.NotEmpty(t, s.Results[0].Trace.Stages)
	assert.Empty(t, s.Results[0].Trace.Resources)
}

func TestAggregate(t *testing.T) {
	assert.Equal(t, Aggregate{Min: 1, Mean: 2, Max: 3}, aggregate([]float64{3, 1, 2}))
	assert.Equal(t, Aggregate{}, aggregate(nil))
}
