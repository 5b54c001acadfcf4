package sim

import (
	"cmp"
	"slices"
	"time"

	"github.com/hpath-sim/hpath-sim/sim/dist"
)

// startArrivals schedules the hourly arrival generator from t=0 until until.
// Each hour draws a Poisson count per specimen class from that hour's weekly
// rate and spreads the arrivals uniformly over the hour.
func (m *Model) startArrivals(until time.Duration) {
	var tick func(hour int)
	tick = func(hour int) {
		start := time.Duration(hour) * time.Hour
		if start >= until {
			return
		}
		m.generateHour(hour, until)
		if _, err := m.sim.Schedule(time.Hour, func() { tick(hour + 1) }); err != nil {
			m.sim.Fail(err)
		}
	}
	if _, err := m.sim.Schedule(0, func() { tick(0) }); err != nil {
		m.sim.Fail(err)
	}
}

type pendingArrival struct {
	offset time.Duration
	class  SpecimenClass
}

func (m *Model) generateHour(hour int, until time.Duration) {
	slot := hour % HoursPerWeek
	var batch []pendingArrival
	for _, c := range []struct {
		class SpecimenClass
		rates []float64
	}{
		{ClassCancer, m.cfg.Arrivals.Cancer},
		{ClassNonCancer, m.cfg.Arrivals.NonCancer},
	} {
		n := dist.Poisson(m.arrRNG, c.rates[slot])
		for i := 0; i < n; i++ {
			off := time.Duration(m.arrRNG.Int64N(int64(time.Hour)))
			batch = append(batch, pendingArrival{offset: off, class: c.class})
		}
	}
	// Specimen numbering follows arrival order within the hour.
	slices.SortStableFunc(batch, func(a, b pendingArrival) int {
		return cmp.Compare(a.offset, b.offset)
	})
	now := m.sim.Now()
	for _, a := range batch {
		if now+a.offset >= until {
			continue
		}
		e := m.newSpecimen(a.class, m.samplePriority(a.class), now+a.offset)
		if _, err := m.sim.Schedule(a.offset, func() { m.arrive(e) }); err != nil {
			m.sim.Fail(err)
			return
		}
	}
}

// samplePriority draws a specimen's priority tier for its class.
func (m *Model) samplePriority(class SpecimenClass) Priority {
	g := m.cfg.Globals
	pUrgent, pPriority, rest := g.ProbUrgentNonCancer, g.ProbPriorityNonCancer, PriorityRoutine
	if class == ClassCancer {
		pUrgent, pPriority, rest = g.ProbUrgentCancer, g.ProbPriorityCancer, PriorityCancer
	}
	switch dist.Categorical(m.pathRNG, pUrgent, pPriority) {
	case 0:
		return PriorityUrgent
	case 1:
		return PriorityHigh
	default:
		return rest
	}
}
