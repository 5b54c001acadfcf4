package sim

import "github.com/hpath-sim/hpath-sim/sim/dist"

const (
	keyDecalcBoneStation = "decalc.bone_station"
	keyCollatePrefix     = "collate."
)

// programme is one processing-machine programme. Blocks sharing a programme
// are batched under its key and run through the machine together.
type programme struct {
	key  string
	size int
	run  dist.Distribution
}

// processingStart sends a specimen's blocks to decalcification, when
// needed, and then to their processing programme.
func (m *Model) processingStart(e *Entity) {
	if !m.enterStage(e, StageProcessing) {
		return
	}
	g := m.cfg.Globals
	switch dist.Categorical(m.pathRNG, g.ProbDecalcBone, g.ProbDecalcOven) {
	case 0:
		e.Decalc = DecalcBoneStation
	case 1:
		e.Decalc = DecalcOven
	default:
		e.Decalc = DecalcNone
	}
	m.setState(e, StateDecalc, e.Decalc.String())
	for _, b := range e.Blocks {
		b.Stage = StageProcessing
		switch e.Decalc {
		case DecalcBoneStation:
			m.joinBatch(b, keyDecalcBoneStation, BatchPolicy{Size: m.cfg.BatchSizes.BoneStation}, m.decalcBoneStation)
		case DecalcOven:
			m.decalcOven(b)
		default:
			m.assignProgramme(b)
		}
	}
}

// decalcBoneStation decalcifies a batch of blocks. BMS staff load and
// unload the station; the decalc itself needs only the machine.
func (m *Model) decalcBoneStation(b *Batch) {
	m.setState(b.Entity, StateDecalc, m.boneStation.Name)
	m.seize(b.Entity, m.boneStation, b.Priority, func(station *Grant) {
		m.work(b.Entity, m.bms, b.Priority, m.dur.loadBoneStation, func() {
			m.hold(b.Entity, m.dur.decalc, func() {
				m.work(b.Entity, m.bms, b.Priority, m.dur.unloadBoneStation, func() {
					if !m.release(b.Entity, station) {
						return
					}
					for _, block := range m.unbatch(b) {
						m.assignProgramme(block)
					}
				})
			})
		})
	})
}

// decalcOven decalcifies one block. The oven is not a bottleneck, so only
// the BMS time to load and unload it is contended.
func (m *Model) decalcOven(block *Entity) {
	m.setState(block, StateDecalc, "oven")
	m.work(block, m.bms, block.Priority, m.dur.loadDecalcOven, func() {
		m.hold(block, m.dur.decalc, func() {
			m.work(block, m.bms, block.Priority, m.dur.unloadDecalcOven, func() {
				m.assignProgramme(block)
			})
		})
	})
}

// programmeFor selects the processing programme of a block. Urgent blocks
// share one programme whatever their type.
func (m *Model) programmeFor(block *Entity) programme {
	sizes := m.cfg.BatchSizes
	switch {
	case block.Urgent():
		return programme{"processing.urgent", sizes.ProcessingRegular, m.dur.progUrgent}
	case block.BlockType == BlockSmallSurgical:
		return programme{"processing.small_surgicals", sizes.ProcessingRegular, m.dur.progSmall}
	case block.BlockType == BlockLargeSurgical:
		return programme{"processing.large_surgicals", sizes.ProcessingRegular, m.dur.progLarge}
	default:
		return programme{"processing.megas", sizes.ProcessingMegas, m.dur.progMega}
	}
}

func (m *Model) assignProgramme(block *Entity) {
	p := m.programmeFor(block)
	m.setState(block, StateMachineLoad, p.key)
	m.joinBatch(block, p.key, BatchPolicy{Size: p.size}, func(b *Batch) {
		m.runProgramme(b, p.run)
	})
}

// runProgramme runs a batch through a processing machine. The machine is
// seized before the staff who load it and held until unloading ends; staff
// are released while the programme runs.
func (m *Model) runProgramme(b *Batch, run dist.Distribution) {
	e := b.Entity
	m.setState(e, StateMachineLoad, m.processingMachine.Name)
	m.seize(e, m.processingMachine, b.Priority, func(machine *Grant) {
		m.work(e, m.processingStaff, b.Priority, m.dur.loadProcessing, func() {
			m.setState(e, StateMachineRun, "")
			m.hold(e, run, func() {
				m.setState(e, StateMachineUnload, "")
				m.work(e, m.processingStaff, b.Priority, m.dur.unloadProcessing, func() {
					if !m.release(e, machine) {
						return
					}
					for _, block := range m.unbatch(b) {
						m.embedTrim(block)
					}
				})
			})
		})
	})
}

// embedTrim embeds a block in wax, lets it cool and trims it.
func (m *Model) embedTrim(block *Entity) {
	m.setState(block, StateEmbedTrim, "")
	m.work(block, m.processingStaff, block.Priority, m.dur.embedding, func() {
		m.hold(block, m.dur.embeddingCooldown, func() {
			m.work(block, m.processingStaff, block.Priority, m.dur.blockTrimming, func() {
				m.collate(block)
			})
		})
	})
}

// collate waits until every block of the parent specimen has been trimmed.
func (m *Model) collate(block *Entity) {
	m.setState(block, StateCollate, "")
	m.regroup(block, keyCollatePrefix, len(block.Parent.Blocks), m.postProcessing)
}

// regroup parks a block or slide until all n parts of its specimen have
// arrived under prefix, then continues with the specimen. The batch is a
// collation, so it never closes short.
func (m *Model) regroup(part *Entity, prefix string, n int, next func(*Entity)) {
	specimen := part.Specimen()
	m.joinBatch(part, prefix+specimen.ID, BatchPolicy{Size: n, Population: n}, func(b *Batch) {
		if m.unbatch(b) == nil {
			return
		}
		next(specimen)
	})
}

// postProcessing closes the processing stage and sends the specimen on.
func (m *Model) postProcessing(e *Entity) {
	m.setState(e, StateCollate, "")
	if !m.exitStage(e, StageProcessing) {
		return
	}
	m.deliver(e, m.localRoute(keyProcessingToMicrotomy, m.cfg.BatchSizes.DeliverProcessingToMicrotomy,
		m.processingStaff), m.microtomy)
}
