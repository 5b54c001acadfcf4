package sim

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// holdFor acquires one unit at the given time and releases it after d,
// appending the holder to order when granted.
func holdFor(t *testing.T, s *Simulator, r *Resource, at time.Duration, holder string, prio Priority, d time.Duration, order *[]string) {
	t.Helper()
	mustSchedule(t, s, at, func() {
		granted := func(g *Grant) {
			*order = append(*order, holder)
			mustSchedule(t, s, d, func() { require.NoError(t, r.Release(g)) })
		}
		g, _, err := r.Acquire(1, prio, holder, granted)
		require.NoError(t, err)
		if g != nil {
			granted(g)
		}
	})
}

func TestResource_PriorityDominatesAmongPending_FIFOWithinTier(t *testing.T) {
	// GIVEN capacity 1 held by a blocker, then routine R, urgent U1, urgent U2 queue in that order
	s := NewSimulator()
	r := NewResource(s, "bms", ConstantSchedule(1))
	var order []string
	holdFor(t, s, r, 0, "blocker", PriorityRoutine, time.Hour, &order)
	holdFor(t, s, r, time.Minute, "R", PriorityRoutine, time.Minute, &order)
	holdFor(t, s, r, 2*time.Minute, "U1", PriorityUrgent, time.Minute, &order)
	holdFor(t, s, r, 3*time.Minute, "U2", PriorityUrgent, time.Minute, &order)

	// WHEN the blocker releases
	runAll(t, s)

	// THEN urgent requests go first in enqueue order, then the routine one
	assert.Equal(t, []string{"blocker", "U1", "U2", "R"}, order)
	assert.Equal(t, 0, r.InUse())
	assert.Equal(t, 0, r.Queued())
}

func TestResource_NoPreemption_HigherPriorityWaitsForHolder(t *testing.T) {
	// GIVEN a routine holder of the only unit
	s := NewSimulator()
	r := NewResource(s, "bms", ConstantSchedule(1))
	var order []string
	var urgentGrantedAt time.Duration
	holdFor(t, s, r, 0, "routine", PriorityRoutine, 30*time.Minute, &order)
	mustSchedule(t, s, time.Minute, func() {
		_, w, err := r.Acquire(1, PriorityUrgent, "urgent", func(g *Grant) {
			urgentGrantedAt = s.Now()
			require.NoError(t, r.Release(g))
		})
		require.NoError(t, err)
		require.NotNil(t, w, "urgent request must queue, not evict")
	})

	// WHEN run
	runAll(t, s)

	// THEN the urgent request is granted only when the routine holder releases
	assert.Equal(t, 30*time.Minute, urgentGrantedAt)
}

func TestResource_NewArrival_DoesNotSkipQueuedHead(t *testing.T) {
	// GIVEN capacity 2, one unit held, and a 2-unit request waiting
	s := NewSimulator()
	sched := ConstantSchedule(2)
	r := NewResource(s, "machine", sched)
	g0, _, err := r.Acquire(1, PriorityRoutine, "holder", nil)
	require.NoError(t, err)
	require.NotNil(t, g0)
	_, w, err := r.Acquire(2, PriorityUrgent, "big", func(*Grant) {})
	require.NoError(t, err)
	require.NotNil(t, w)

	// WHEN a 1-unit routine request arrives while one unit is free
	g, w2, err := r.Acquire(1, PriorityRoutine, "small", func(*Grant) {})

	// THEN it queues behind the head instead of taking the free unit
	require.NoError(t, err)
	assert.Nil(t, g)
	assert.NotNil(t, w2)
	assert.Equal(t, 2, r.Queued())
}

func TestResource_CapacityDecrease_AllowsOvershootWithoutEviction(t *testing.T) {
	// GIVEN capacity 2 until 01:00 and 1 afterwards, every day
	var sched CapacitySchedule
	for d := range sched.DayFlags {
		sched.DayFlags[d] = true
	}
	for i := range sched.Allocation {
		sched.Allocation[i] = 1
	}
	sched.Allocation[0], sched.Allocation[1] = 2, 2
	s := NewSimulator()
	r := NewResource(s, "staff", sched)

	// WHEN two holders take both units at 00:00 and hold them past 01:00
	var order []string
	holdFor(t, s, r, 0, "a", PriorityRoutine, 90*time.Minute, &order)
	holdFor(t, s, r, 0, "b", PriorityRoutine, 2*time.Hour, &order)
	var inUseAt75, capAt75 int
	mustSchedule(t, s, 75*time.Minute, func() {
		inUseAt75, capAt75 = r.InUse(), r.CapacityAt(s.Now())
	})
	// and a third request arrives after the step down
	holdFor(t, s, r, 80*time.Minute, "c", PriorityUrgent, time.Minute, &order)
	runAll(t, s)

	// THEN both holders keep their units over the reduced capacity
	assert.Equal(t, 2, inUseAt75)
	assert.Equal(t, 1, capAt75)
	// and the newcomer waits until in-use drops below the new capacity
	assert.Equal(t, []string{"a", "b", "c"}, order)
	st := r.Stats()
	assert.Equal(t, 1, st.MaxOvershoot)
	assert.Equal(t, 2, st.PeakInUse)
}

func TestResource_StalledOnCapacity_WakesAtNextIncrease(t *testing.T) {
	// GIVEN a resource with no capacity until 09:00 on Mondays only
	var sched CapacitySchedule
	sched.DayFlags[0] = true
	for i := 18; i < SlotsPerDay; i++ {
		sched.Allocation[i] = 1
	}
	s := NewSimulator()
	r := NewResource(s, "booking", sched)
	var grantedAt time.Duration = -1

	// WHEN a request arrives at 02:00 with nothing held
	mustSchedule(t, s, 2*time.Hour, func() {
		_, w, err := r.Acquire(1, PriorityRoutine, "early", func(g *Grant) {
			grantedAt = s.Now()
			require.NoError(t, r.Release(g))
		})
		require.NoError(t, err)
		require.NotNil(t, w)
	})
	runAll(t, s)

	// THEN it is granted exactly when capacity appears
	assert.Equal(t, 9*time.Hour, grantedAt)
}

func TestResource_Acquire_BeyondMaxCapacity_ReturnsUnsatisfiable(t *testing.T) {
	s := NewSimulator()
	r := NewResource(s, "bone_station", ConstantSchedule(2))

	_, _, err := r.Acquire(3, PriorityUrgent, "batch-1", func(*Grant) {})

	assert.ErrorIs(t, err, ErrUnsatisfiableRequest)
	assert.Contains(t, err.Error(), "bone_station")
	assert.Equal(t, 0, r.Queued())
}

func TestResource_Acquire_ZeroCapacitySchedule_ReturnsUnsatisfiable(t *testing.T) {
	s := NewSimulator()
	r := NewResource(s, "nobody", CapacitySchedule{})

	_, _, err := r.Acquire(1, PriorityRoutine, "x", func(*Grant) {})

	assert.ErrorIs(t, err, ErrUnsatisfiableRequest)
}

func TestResource_ReleaseTwice_ReturnsNotHeld(t *testing.T) {
	s := NewSimulator()
	r := NewResource(s, "bms", ConstantSchedule(1))
	g, _, err := r.Acquire(1, PriorityRoutine, "x", nil)
	require.NoError(t, err)
	require.NoError(t, r.Release(g))

	assert.ErrorIs(t, r.Release(g), ErrNotHeld)
	assert.Equal(t, 0, r.InUse())
}

func TestResource_ReleaseForeignGrant_ReturnsNotHeld(t *testing.T) {
	s := NewSimulator()
	a := NewResource(s, "a", ConstantSchedule(1))
	b := NewResource(s, "b", ConstantSchedule(1))
	g, _, err := a.Acquire(1, PriorityRoutine, "x", nil)
	require.NoError(t, err)

	assert.ErrorIs(t, b.Release(g), ErrNotHeld)
	assert.Equal(t, 1, a.InUse())
}

func TestResource_Abandon_DropsHoldsAndWaiters(t *testing.T) {
	s := NewSimulator()
	r := NewResource(s, "bms", ConstantSchedule(1))
	g, _, err := r.Acquire(1, PriorityRoutine, "holder", nil)
	require.NoError(t, err)
	_, _, err = r.Acquire(1, PriorityRoutine, "waiter", func(*Grant) {})
	require.NoError(t, err)

	assert.Equal(t, 1, r.Abandon())
	assert.Equal(t, 0, r.InUse())
	assert.Equal(t, 0, r.Queued())
	assert.ErrorIs(t, r.Release(g), ErrNotHeld)
}

func TestResource_Stats_TimeWeightedUsage(t *testing.T) {
	// GIVEN capacity 2 with one unit held for the first half of a 2h window
	s := NewSimulator()
	r := NewResource(s, "bms", ConstantSchedule(2))
	var order []string
	holdFor(t, s, r, 0, "a", PriorityRoutine, time.Hour, &order)
	mustSchedule(t, s, 2*time.Hour, func() {})
	require.NoError(t, s.RunUntil(context.Background(), 0))

	// WHEN stats are taken at 2h
	st := r.Stats()

	// THEN mean in-use is 0.5 and utilisation is 0.5 / 2
	assert.InDelta(t, 0.5, st.MeanInUse, 1e-9)
	assert.InDelta(t, 0.25, st.Utilisation, 1e-9)
	assert.Equal(t, int64(1), st.Grants)
	assert.False(t, st.Unlimited)
}
