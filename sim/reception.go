package sim

import "github.com/hpath-sim/hpath-sim/sim/dist"

// arrive starts a specimen's pathway at reception. Receiving and sorting
// always runs at urgent priority: booking-in staff unpack new arrivals
// before any other booking-in work.
func (m *Model) arrive(e *Entity) {
	m.metrics.Arrived++
	if !m.enterStage(e, StageTotal) || !m.enterStage(e, StageReception) {
		return
	}
	e.Origin = OriginExternal
	if dist.Bernoulli(m.pathRNG, m.cfg.Globals.ProbInternal) {
		e.Origin = OriginInternal
	}
	m.setState(e, StateArrived, e.Class.String())
	m.setState(e, StateReceiving, e.Origin.String())
	m.work(e, m.bookingIn, PriorityUrgent, m.dur.receiveAndSort, func() { m.bookIn(e) })
}

// bookIn books the specimen into the laboratory system, including any
// investigation needed before or after booking.
func (m *Model) bookIn(e *Entity) {
	m.setState(e, StateBookingIn, "")
	g := m.cfg.Globals
	var steps []dist.Distribution
	if dist.Bernoulli(m.pathRNG, g.ProbPrebook) {
		steps = append(steps, m.dur.preBookingIn)
	}
	if e.Origin == OriginInternal {
		steps = append(steps, m.dur.bookingInInternal)
		switch dist.Categorical(m.pathRNG, g.ProbInvestEasy, g.ProbInvestHard) {
		case 0:
			steps = append(steps, m.dur.investInternalEasy)
		case 1:
			steps = append(steps, m.dur.investInternalHard)
		}
	} else {
		steps = append(steps, m.dur.bookingInExternal)
		if dist.Bernoulli(m.pathRNG, g.ProbInvestExternal) {
			steps = append(steps, m.dur.investExternal)
		}
	}
	m.seize(e, m.bookingIn, e.Priority, func(grant *Grant) {
		m.holdAll(e, steps, func() {
			if !m.release(e, grant) || !m.exitStage(e, StageReception) {
				return
			}
			m.deliver(e, m.localRoute(keyReceptionToCutUp, m.cfg.BatchSizes.DeliverReceptionToCutUp, m.bookingIn), m.cutupStart)
		})
	})
}
