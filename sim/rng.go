package sim

import (
	"fmt"
	"hash/fnv"
	"math/rand/v2"
)

// SimulationKey is the seed of one replication. Equal keys and equal
// configuration give identical event sequences and reports.
type SimulationKey int64

// NewSimulationKey wraps a --seed value.
func NewSimulationKey(seed int64) SimulationKey { return SimulationKey(seed) }

// Replication derives the key of replication n. Replication 0 uses the key
// itself so a single-replication run reproduces the plain --seed behaviour.
func (k SimulationKey) Replication(n int) SimulationKey {
	if n == 0 {
		return k
	}
	return SimulationKey(int64(k) ^ fnv1a64(fmt.Sprintf("replication_%d", n)))
}

const (
	// SubsystemArrivals drives hourly arrival counts and arrival instants.
	SubsystemArrivals = "arrivals"

	// SubsystemPathway drives priorities, branch decisions and task durations.
	SubsystemPathway = "pathway"
)

// PartitionedRNG provides deterministic, isolated RNG instances per subsystem,
// all derived from the run's single SimulationKey.
//
// Derivation: each subsystem stream is a PCG seeded with
// (key, fnv1a64(subsystemName)), so adding draws to one subsystem never
// shifts the sequence seen by another.
//
// Thread-safety: NOT thread-safe. Must be called from single goroutine.
type PartitionedRNG struct {
	key        SimulationKey
	subsystems map[string]*rand.Rand
}

// NewPartitionedRNG creates a PartitionedRNG from a SimulationKey.
func NewPartitionedRNG(key SimulationKey) *PartitionedRNG {
	return &PartitionedRNG{
		key:        key,
		subsystems: make(map[string]*rand.Rand),
	}
}

// ForSubsystem returns the stream for name, creating it on first use.
func (p *PartitionedRNG) ForSubsystem(name string) *rand.Rand {
	r, ok := p.subsystems[name]
	if !ok {
		r = rand.New(rand.NewPCG(uint64(p.key), uint64(fnv1a64(name))))
		p.subsystems[name] = r
	}
	return r
}

// Key returns the key the streams were derived from.
func (p *PartitionedRNG) Key() SimulationKey { return p.key }

func fnv1a64(s string) int64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	return int64(h.Sum64())
}
