package sim

const (
	keyStainingRegular = "staining.regular"
	keyStainingMegas   = "staining.megas"
	keyStainedPrefix   = "collate.stained."
)

// stainingStart sends every slide of a specimen to the staining batch for
// its size. Mega slides need their own machine runs.
func (m *Model) stainingStart(e *Entity) {
	if !m.enterStage(e, StageStaining) {
		return
	}
	m.setState(e, StateStaining, "")
	sizes := m.cfg.BatchSizes
	for _, block := range e.Blocks {
		for _, slide := range block.Slides {
			slide.Stage = StageStaining
			if slide.SlideType == SlideMegas {
				m.joinBatch(slide, keyStainingMegas, BatchPolicy{Size: sizes.StainingMegas}, m.stainMegas)
			} else {
				m.joinBatch(slide, keyStainingRegular, BatchPolicy{Size: sizes.StainingRegular}, m.stainRegular)
			}
		}
	}
}

// stainRegular stains a batch of regular slides, then moves it to the
// coverslip machine. Staff load and unload each machine but are free while
// it runs.
func (m *Model) stainRegular(b *Batch) {
	e := b.Entity
	m.setState(e, StateStaining, m.stainingMachine.Name)
	m.seize(e, m.stainingMachine, b.Priority, func(stainer *Grant) {
		m.work(e, m.stainingStaff, b.Priority, m.dur.loadStainingRegular, func() {
			m.hold(e, m.dur.stainingRegular, func() {
				m.work(e, m.stainingStaff, b.Priority, m.dur.unloadStainingRegular, func() {
					if !m.release(e, stainer) {
						return
					}
					m.coverslipRegular(b)
				})
			})
		})
	})
}

func (m *Model) coverslipRegular(b *Batch) {
	e := b.Entity
	m.setState(e, StateCoverslip, m.coverslipMachine.Name)
	m.seize(e, m.coverslipMachine, b.Priority, func(coverslipper *Grant) {
		m.work(e, m.stainingStaff, b.Priority, m.dur.loadCoverslip, func() {
			m.hold(e, m.dur.coverslipRegular, func() {
				m.work(e, m.stainingStaff, b.Priority, m.dur.unloadCoverslip, func() {
					if !m.release(e, coverslipper) {
						return
					}
					for _, slide := range m.unbatch(b) {
						m.stained(slide)
					}
				})
			})
		})
	})
}

// stainMegas stains a batch of mega slides. The member of staff who unloads
// the machine stays on to coverslip each slide by hand.
func (m *Model) stainMegas(b *Batch) {
	e := b.Entity
	m.setState(e, StateStaining, m.stainingMachine.Name)
	m.seize(e, m.stainingMachine, b.Priority, func(stainer *Grant) {
		m.work(e, m.stainingStaff, b.Priority, m.dur.loadStainingMegas, func() {
			m.hold(e, m.dur.stainingMegas, func() {
				m.seize(e, m.stainingStaff, b.Priority, func(staff *Grant) {
					m.hold(e, m.dur.unloadStainingMegas, func() {
						if !m.release(e, stainer) {
							return
						}
						slides := m.unbatch(b)
						if slides == nil {
							return
						}
						m.setState(e, StateCoverslip, "manual")
						m.coverslipByHand(e, slides, staff)
					})
				})
			})
		})
	})
}

func (m *Model) coverslipByHand(e *Entity, slides []*Entity, staff *Grant) {
	if len(slides) == 0 {
		m.release(e, staff)
		return
	}
	m.hold(e, m.dur.coverslipMegas, func() {
		m.stained(slides[0])
		m.coverslipByHand(e, slides[1:], staff)
	})
}

// stained collects a finished slide with the rest of its specimen.
func (m *Model) stained(slide *Entity) {
	m.setState(slide, StateCollate, keyStainedPrefix)
	m.regroup(slide, keyStainedPrefix, slide.Specimen().SlideCount(), m.postStaining)
}

func (m *Model) postStaining(e *Entity) {
	m.setState(e, StateCollate, "")
	if !m.exitStage(e, StageStaining) {
		return
	}
	m.deliver(e, m.localRoute(keyStainingToLabelling, m.cfg.BatchSizes.DeliverStainingToLabelling,
		m.stainingStaff), m.labelling)
}
