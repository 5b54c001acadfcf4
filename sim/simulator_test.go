package sim

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimulator_SameInstant_RunsInScheduleOrder(t *testing.T) {
	// GIVEN three events at the same instant and one earlier, scheduled out of order
	s := NewSimulator()
	var order []string
	mustSchedule(t, s, 5*time.Minute, func() { order = append(order, "a") })
	mustSchedule(t, s, 5*time.Minute, func() { order = append(order, "b") })
	mustSchedule(t, s, time.Minute, func() { order = append(order, "early") })
	mustSchedule(t, s, 5*time.Minute, func() { order = append(order, "c") })

	// WHEN the simulator runs to exhaustion
	runAll(t, s)

	// THEN time order holds across instants and insertion order within one
	assert.Equal(t, []string{"early", "a", "b", "c"}, order)
	assert.Equal(t, 5*time.Minute, s.Now())
	assert.Equal(t, int64(4), s.Executed)
}

func TestSimulator_NestedZeroDelay_RunsAfterPeersAtSameInstant(t *testing.T) {
	// GIVEN two events at t=0, the first scheduling a zero-delay follow-up
	s := NewSimulator()
	var order []string
	mustSchedule(t, s, 0, func() {
		order = append(order, "first")
		mustSchedule(t, s, 0, func() { order = append(order, "follow-up") })
	})
	mustSchedule(t, s, 0, func() { order = append(order, "second") })

	// WHEN run
	runAll(t, s)

	// THEN the follow-up runs after every event already queued for that instant
	assert.Equal(t, []string{"first", "second", "follow-up"}, order)
}

func TestSimulator_Schedule_NegativeDelay_ReturnsInvalidDelay(t *testing.T) {
	s := NewSimulator()
	_, err := s.Schedule(-time.Nanosecond, func() {})
	assert.ErrorIs(t, err, ErrInvalidDelay)
	assert.Equal(t, 0, s.Pending())
}

func TestSimulator_Schedule_ReturnsHandleWithIncreasingSeq(t *testing.T) {
	s := NewSimulator()
	h1, err := s.Schedule(time.Second, func() {})
	require.NoError(t, err)
	h2, err := s.Schedule(time.Second, func() {})
	require.NoError(t, err)
	assert.Equal(t, time.Second, h1.Due)
	assert.Less(t, h1.Seq, h2.Seq)
}

func TestSimulator_RunUntil_StopsAtHorizon(t *testing.T) {
	// GIVEN events at 1h and 3h
	s := NewSimulator()
	fired := 0
	mustSchedule(t, s, time.Hour, func() { fired++ })
	mustSchedule(t, s, 3*time.Hour, func() { fired++ })

	// WHEN run until 2h
	require.NoError(t, s.RunUntil(context.Background(), 2*time.Hour))

	// THEN only the first fired and the clock sits at the horizon
	assert.Equal(t, 1, fired)
	assert.Equal(t, 2*time.Hour, s.Now())
	assert.Equal(t, 1, s.Pending())

	// WHEN resumed to exhaustion
	runAll(t, s)
	assert.Equal(t, 2, fired)
	assert.Equal(t, 3*time.Hour, s.Now())
}

func TestSimulator_Clock_NeverDecreases(t *testing.T) {
	s := NewSimulator()
	var seen []time.Duration
	for _, d := range []time.Duration{7, 3, 3, 9, 1, 0, 5} {
		mustSchedule(t, s, d*time.Minute, func() { seen = append(seen, s.Now()) })
	}
	runAll(t, s)
	for i := 1; i < len(seen); i++ {
		assert.GreaterOrEqual(t, seen[i], seen[i-1])
	}
}

func TestSimulator_Fail_StopsRunWithFirstError(t *testing.T) {
	// GIVEN a continuation that fails twice and a later event
	s := NewSimulator()
	first := errors.New("first")
	later := false
	mustSchedule(t, s, time.Minute, func() {
		s.Fail(first)
		s.Fail(errors.New("second"))
	})
	mustSchedule(t, s, time.Hour, func() { later = true })

	// WHEN run
	err := s.RunUntil(context.Background(), 0)

	// THEN the first error is returned and nothing after it runs
	assert.Same(t, first, err)
	assert.False(t, later)
	assert.Equal(t, time.Minute, s.Now())
}

func TestSimulator_CancelledContext_ReturnsTimeoutExceeded(t *testing.T) {
	s := NewSimulator()
	mustSchedule(t, s, time.Minute, func() {})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := s.RunUntil(ctx, 0)

	assert.ErrorIs(t, err, ErrTimeoutExceeded)
	assert.Equal(t, time.Duration(0), s.Now())
	assert.Equal(t, 1, s.Pending())
}

func TestDurationFromSeconds(t *testing.T) {
	tests := []struct {
		name    string
		secs    float64
		want    time.Duration
		wantErr bool
	}{
		{"zero", 0, 0, false},
		{"minutes", 90, 90 * time.Second, false},
		{"fractional", 0.0015, 1500 * time.Microsecond, false},
		{"negative", -1, 0, true},
		{"nan", math.NaN(), 0, true},
		{"inf", math.Inf(1), 0, true},
		{"overflow", 1e12, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DurationFromSeconds(tt.secs)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidDelay)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
