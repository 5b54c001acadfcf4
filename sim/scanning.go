package sim

import "github.com/hpath-sim/hpath-sim/sim/dist"

const (
	keyScanningRegular = "scanning.regular"
	keyScanningMegas   = "scanning.megas"
	keyScannedPrefix   = "collate.scanned."
)

// scanner is one kind of scanning machine and its task times.
type scanner struct {
	machine            *Resource
	load, scan, unload dist.Distribution
}

// scanningStart sends every slide of a specimen to the scanner batch for its
// size. Mega slides have dedicated scanners.
func (m *Model) scanningStart(e *Entity) {
	if !m.enterStage(e, StageScanning) {
		return
	}
	m.setState(e, StateScanning, "")
	sizes := m.cfg.BatchSizes
	regular := scanner{m.scanningRegular, m.dur.loadScanningRegular, m.dur.scanningRegular, m.dur.unloadScanningRegular}
	megas := scanner{m.scanningMegas, m.dur.loadScanningMegas, m.dur.scanningMegas, m.dur.unloadScanningMegas}
	for _, block := range e.Blocks {
		for _, slide := range block.Slides {
			slide.Stage = StageScanning
			if slide.SlideType == SlideMegas {
				m.joinBatch(slide, keyScanningMegas, BatchPolicy{Size: sizes.ScanningMegas},
					func(b *Batch) { m.scan(b, megas) })
			} else {
				m.joinBatch(slide, keyScanningRegular, BatchPolicy{Size: sizes.ScanningRegular},
					func(b *Batch) { m.scan(b, regular) })
			}
		}
	}
}

// scan runs a batch of slides through a scanner. Staff load and unload it.
func (m *Model) scan(b *Batch, s scanner) {
	e := b.Entity
	m.setState(e, StateScanning, s.machine.Name)
	m.seize(e, s.machine, b.Priority, func(g *Grant) {
		m.work(e, m.scanningStaff, b.Priority, s.load, func() {
			m.hold(e, s.scan, func() {
				m.work(e, m.scanningStaff, b.Priority, s.unload, func() {
					if !m.release(e, g) {
						return
					}
					for _, slide := range m.unbatch(b) {
						m.setState(slide, StateCollate, keyScannedPrefix)
						m.regroup(slide, keyScannedPrefix, slide.Specimen().SlideCount(), m.postScanning)
					}
				})
			})
		})
	})
}

// postScanning sends the specimen to QC. Scanned specimens always wait for
// a delivery batch, urgent ones included.
func (m *Model) postScanning(e *Entity) {
	m.setState(e, StateCollate, "")
	if !m.exitStage(e, StageScanning) {
		return
	}
	rt := route{
		key:    keyScanningToQC,
		size:   m.cfg.BatchSizes.DeliverScanningToQC,
		runner: m.scanningStaff,
		out:    m.dur.deliveryOutScanning,
		back:   m.dur.deliveryReturnScanning,
	}
	m.deliver(e, rt, m.qualityCheck)
}
