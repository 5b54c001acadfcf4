package sim

import (
	"fmt"

	"github.com/hpath-sim/hpath-sim/sim/dist"
)

// cutupStart routes a delivered specimen to BMS, pool or large-specimen
// cut-up. Urgent specimens use their own routing probabilities.
func (m *Model) cutupStart(e *Entity) {
	if !m.enterStage(e, StageCutUp) {
		return
	}
	g := m.cfg.Globals
	pBMS, pPool := g.ProbBMSCutup, g.ProbPoolCutup
	if e.Urgent() {
		pBMS, pPool = g.ProbBMSCutupUrgent, g.ProbPoolCutupUrgent
	}
	switch dist.Categorical(m.pathRNG, pBMS, pPool) {
	case 0:
		e.Cutup = CutupBMS
	case 1:
		e.Cutup = CutupPool
	default:
		e.Cutup = CutupLarge
	}
	m.setState(e, StateCutUp, e.Cutup.String())

	switch e.Cutup {
	case CutupBMS:
		m.cutup(e, m.bms, m.dur.cutUpBMS, func() (BlockType, int) {
			return BlockSmallSurgical, 1
		})
	case CutupPool:
		m.cutup(e, m.cutUpAssistant, m.dur.cutUpPool, func() (BlockType, int) {
			return BlockLargeSurgical, 1
		})
	default:
		m.cutup(e, m.cutUpAssistant, m.dur.cutUpLarge, m.largeSpecimenBlocks(e))
	}
}

// largeSpecimenBlocks returns the block draw for a large specimen. Urgent
// specimens never produce mega blocks.
func (m *Model) largeSpecimenBlocks(e *Entity) func() (BlockType, int) {
	return func() (BlockType, int) {
		if !e.Urgent() && dist.Bernoulli(m.pathRNG, m.cfg.Globals.ProbMegaBlocks) {
			return BlockMega, m.blocksMegas.Sample(m.pathRNG)
		}
		return BlockLargeSurgical, m.blocksLarge.Sample(m.pathRNG)
	}
}

// cutup holds the cut-up resource for d, creates the specimen's blocks and
// sends the specimen on to processing. The same resource carries the
// delivery.
func (m *Model) cutup(e *Entity, r *Resource, d dist.Distribution, blocks func() (BlockType, int)) {
	m.seize(e, r, e.Priority, func(g *Grant) {
		m.hold(e, d, func() {
			bt, n := blocks()
			if n < 1 {
				m.fail(e, r.Name, fmt.Errorf("%w: cut into %d blocks, collation can never complete",
					ErrMalformedBatchPolicy, n))
				return
			}
			e.Blocks = make([]*Entity, n)
			for i := range e.Blocks {
				e.Blocks[i] = &Entity{
					ID:        fmt.Sprintf("%s.%d", e.ID, i+1),
					Kind:      KindBlock,
					Priority:  e.Priority,
					Class:     e.Class,
					Origin:    e.Origin,
					Stage:     StageCutUp,
					State:     StateCutUp,
					CreatedAt: m.sim.Now(),
					Parent:    e,
					BlockType: bt,
				}
			}
			if !m.release(e, g) || !m.exitStage(e, StageCutUp) {
				return
			}
			key := keyCutUpToProcessing + "." + e.Cutup.String()
			m.deliver(e, m.localRoute(key, m.cfg.BatchSizes.DeliverCutUpToProcessing, r), m.processingStart)
		})
	})
}
