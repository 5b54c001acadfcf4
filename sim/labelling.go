package sim

import "github.com/hpath-sim/hpath-sim/sim/dist"

// labelling labels every slide of a specimen in one sitting. It happens in
// the main laboratory, so microtomy staff do it and carry the specimen on to
// scanning.
func (m *Model) labelling(e *Entity) {
	if !m.enterStage(e, StageLabelling) {
		return
	}
	m.setState(e, StateLabelling, "")
	tasks := make([]dist.Distribution, e.SlideCount())
	for i := range tasks {
		tasks[i] = m.dur.labelling
	}
	m.seize(e, m.microtomyStaff, e.Priority, func(g *Grant) {
		m.holdAll(e, tasks, func() {
			if !m.release(e, g) || !m.exitStage(e, StageLabelling) {
				return
			}
			rt := route{
				key:         keyLabellingToScanning,
				size:        m.cfg.BatchSizes.DeliverLabellingToScanning,
				runner:      m.microtomyStaff,
				out:         m.dur.deliveryOutScanning,
				back:        m.dur.deliveryReturnScanning,
				urgentAlone: true,
			}
			m.deliver(e, rt, m.scanningStart)
		})
	})
}
