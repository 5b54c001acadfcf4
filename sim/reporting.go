package sim

// qualityCheck checks a specimen's blocks and scanned slides. The same QC
// staff then assign a histopathologist, outside either stage.
func (m *Model) qualityCheck(e *Entity) {
	if !m.enterStage(e, StageQC) {
		return
	}
	m.setState(e, StateQC, "")
	m.work(e, m.qcStaff, e.Priority, m.dur.qualityCheck, func() {
		if !m.exitStage(e, StageQC) {
			return
		}
		m.setState(e, StateQC, "assign histopathologist")
		m.work(e, m.qcStaff, e.Priority, m.dur.assignHistopathologist, func() {
			m.report(e)
		})
	})
}

// report has a histopathologist write the final report, which completes
// the specimen.
func (m *Model) report(e *Entity) {
	if !m.enterStage(e, StageReporting) {
		return
	}
	m.setState(e, StateReporting, "")
	m.work(e, m.histopathologist, e.Priority, m.dur.writeReport, func() {
		if m.exitStage(e, StageReporting) {
			m.complete(e)
		}
	})
}

// complete records the specimen leaving the pathway.
func (m *Model) complete(e *Entity) {
	if !m.exitStage(e, StageTotal) {
		return
	}
	m.metrics.Complete(e, m.sim.Now())
	m.setState(e, StateTerminal, "")
}
