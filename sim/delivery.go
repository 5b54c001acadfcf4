package sim

import "github.com/hpath-sim/hpath-sim/sim/dist"

// Batch keys of the delivery points between stages.
const (
	keyReceptionToCutUp      = "deliver.reception_to_cut_up"
	keyCutUpToProcessing     = "deliver.cut_up_to_processing"
	keyProcessingToMicrotomy = "deliver.processing_to_microtomy"
	keyMicrotomyToStaining   = "deliver.microtomy_to_staining"
	keyStainingToLabelling   = "deliver.staining_to_labelling"
	keyLabellingToScanning   = "deliver.labelling_to_scanning"
	keyScanningToQC          = "deliver.scanning_to_qc"
)

// route is one delivery point: its batch key and size, the staff who carry
// the load, and the time out and back.
type route struct {
	key       string
	size      int
	runner    *Resource
	out, back dist.Distribution
	// urgentAlone sends urgent specimens on their own trip instead of
	// waiting for a batch.
	urgentAlone bool
}

// localRoute is a short run within the laboratory.
func (m *Model) localRoute(key string, size int, runner *Resource) route {
	return route{key, size, runner, m.dur.deliveryOut, m.dur.deliveryReturn, true}
}

// deliver moves a specimen along rt. Urgent specimens travel alone at urgent
// priority where the route allows it; all others wait for a delivery batch
// and travel with it at routine priority.
func (m *Model) deliver(e *Entity, rt route, arrive func(*Entity)) {
	dropOff := func(e *Entity) {
		m.setState(e, StateDelivered, rt.key)
		arrive(e)
	}
	if rt.urgentAlone && e.Urgent() {
		m.transport(e, rt, PriorityUrgent, func() { dropOff(e) })
		return
	}
	m.setState(e, StateInTransit, rt.key)
	m.joinBatch(e, rt.key, BatchPolicy{Size: rt.size}, func(b *Batch) {
		m.transport(b.Entity, rt, PriorityRoutine, func() {
			for _, member := range m.unbatch(b) {
				dropOff(member)
			}
		})
	})
}

// transport holds one runner for the trip out and back. The load is
// dropped off at the destination before the runner returns.
func (m *Model) transport(e *Entity, rt route, prio Priority, dropOff func()) {
	m.setState(e, StateInTransit, rt.runner.Name)
	m.seize(e, rt.runner, prio, func(g *Grant) {
		m.hold(e, rt.out, func() {
			dropOff()
			m.hold(e, rt.back, func() {
				m.release(e, g)
			})
		})
	})
}
