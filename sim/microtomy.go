package sim

import (
	"fmt"

	"github.com/hpath-sim/hpath-sim/sim/dist"
)

// microtomy cuts slides from each block of a specimen in turn. Every block
// is a separate task for one microtomist.
func (m *Model) microtomy(e *Entity) {
	if !m.enterStage(e, StageMicrotomy) {
		return
	}
	m.setState(e, StateMicrotomy, "")
	m.section(e, 0)
}

func (m *Model) section(e *Entity, i int) {
	if i == len(e.Blocks) {
		if !m.exitStage(e, StageMicrotomy) {
			return
		}
		m.deliver(e, m.localRoute(keyMicrotomyToStaining, m.cfg.BatchSizes.DeliverMicrotomyToStaining,
			m.microtomyStaff), m.stainingStart)
		return
	}
	block := e.Blocks[i]
	m.seize(e, m.microtomyStaff, e.Priority, func(g *Grant) {
		st, d := m.sectioning(block)
		m.hold(e, d, func() {
			n := m.slides[st].Sample(m.pathRNG)
			if n < 1 {
				m.fail(e, m.microtomyStaff.Name, fmt.Errorf("%w: %s cut into %d slides, collation can never complete",
					ErrMalformedBatchPolicy, block.ID, n))
				return
			}
			block.Slides = make([]*Entity, n)
			for j := range block.Slides {
				block.Slides[j] = &Entity{
					ID:        fmt.Sprintf("%s.%d", block.ID, j+1),
					Kind:      KindSlide,
					Priority:  e.Priority,
					Class:     e.Class,
					Origin:    e.Origin,
					Stage:     StageMicrotomy,
					State:     StateMicrotomy,
					CreatedAt: m.sim.Now(),
					Parent:    block,
					SlideType: st,
				}
			}
			if m.release(e, g) {
				m.section(e, i+1)
			}
		})
	})
}

// sectioning picks the microtomy task for a block. Small surgical blocks
// are cut as levels or serials; larger blocks have one task each.
func (m *Model) sectioning(block *Entity) (SlideType, dist.Distribution) {
	switch block.BlockType {
	case BlockSmallSurgical:
		if dist.Bernoulli(m.pathRNG, m.cfg.Globals.ProbMicrotomyLevels) {
			return SlideLevels, m.dur.microtomyLevels
		}
		return SlideSerials, m.dur.microtomySerials
	case BlockLargeSurgical:
		return SlideLarges, m.dur.microtomyLarges
	default:
		return SlideMegas, m.dur.microtomyMegas
	}
}
