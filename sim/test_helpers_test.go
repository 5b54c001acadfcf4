package sim

import (
	"context"
	"testing"
	"time"

	"github.com/hpath-sim/hpath-sim/sim/dist"
)

// zeroConfig returns a configuration with unlimited resources, Constant(0)
// durations, no arrivals and deterministic routing: external, no
// investigations, BMS cut-up, no decalc, one serials slide per block.
func zeroConfig() *Config {
	cfg := DefaultConfig()
	cfg.SimHours = 0
	for i := range cfg.Arrivals.Cancer {
		cfg.Arrivals.Cancer[i] = 0
		cfg.Arrivals.NonCancer[i] = 0
	}
	unlimited := ResourceConfig{Type: "staff", Unlimited: true}
	machine := ResourceConfig{Type: "machine", Unlimited: true}
	cfg.Resources = ResourcesConfig{
		BookingInStaff:      unlimited,
		BMS:                 unlimited,
		CutUpAssistant:      unlimited,
		ProcessingRoomStaff: unlimited,
		BoneStation:         machine,
		ProcessingMachine:   machine,
		MicrotomyStaff:      unlimited,
		StainingStaff:       unlimited,
		ScanningStaff:       unlimited,
		QCStaff:             unlimited,
		Histopathologist:    unlimited,
		StainingMachine:     machine,
		CoverslipMachine:    machine,
		ScanningRegular:     machine,
		ScanningMegas:       machine,
	}
	cfg.TaskDurations.SetAll(dist.Minutes(0))
	one := dist.IntSpec{Type: "constant", Mode: 1}
	cfg.Globals = Globals{
		ProbBMSCutup:           1,
		ProbBMSCutupUrgent:     1,
		NumBlocksLargeSurgical: one,
		NumBlocksMega:          one,
		NumSlidesLarges:        one,
		NumSlidesLevels:        one,
		NumSlidesMegas:         one,
		NumSlidesSerials:       one,
	}
	return cfg
}

// singleBatches returns batch sizes of one everywhere, so nothing waits for
// company and nothing is ever flushed.
func singleBatches() BatchSizes {
	return BatchSizes{
		DeliverReceptionToCutUp:      1,
		DeliverCutUpToProcessing:     1,
		DeliverProcessingToMicrotomy: 1,
		BoneStation:                  1,
		ProcessingRegular:            1,
		ProcessingMegas:              1,
		DeliverMicrotomyToStaining:   1,
		DeliverStainingToLabelling:   1,
		DeliverLabellingToScanning:   1,
		DeliverScanningToQC:          1,
		StainingRegular:              1,
		StainingMegas:                1,
		ScanningRegular:              1,
		ScanningMegas:                1,
	}
}

func mustModel(t *testing.T, cfg *Config, seed int64, opts ModelOptions) *Model {
	t.Helper()
	m, err := NewModel(cfg, NewSimulationKey(seed), opts)
	if err != nil {
		t.Fatalf("NewModel: %v", err)
	}
	return m
}

func mustSchedule(t *testing.T, s *Simulator, delay time.Duration, next Continuation) {
	t.Helper()
	if _, err := s.Schedule(delay, next); err != nil {
		t.Fatalf("Schedule(%v): %v", delay, err)
	}
}

func runAll(t *testing.T, s *Simulator) {
	t.Helper()
	if err := s.RunUntil(context.Background(), 0); err != nil {
		t.Fatalf("RunUntil: %v", err)
	}
}
