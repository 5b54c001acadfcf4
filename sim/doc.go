// Package sim provides the discrete-event simulation engine for the
// histopathology laboratory pathway.
//
// # Reading Guide
//
// Start with these files to understand the simulation kernel:
//   - simulator.go: the event loop, simulated clock and (due, seq) ordering
//   - resource.go: priority-queued resource pools with scheduled capacity
//   - batch.go: the batch coordinator that groups and regroups entities
//   - entity.go: specimens, blocks and batches and their pathway states
//
// The pathway itself is written as continuation chains on Model:
//   - arrivals.go: hourly Poisson arrivals from the weekly schedule
//   - reception.go: receive, sort and book in
//   - cutup.go: BMS, pool and large-specimen cut-up
//   - processing.go: decalcification, machine programmes, embedding, collation
//   - delivery.go: batched and urgent deliveries between stages
//
// # Architecture
//
// All run state (clock, event queue, resources, batches, random streams)
// hangs off one Model, so independent replications never share anything.
// Sub-packages:
//   - sim/dist/: duration, count and branch sampling (gonum distuv)
//   - sim/trace/: stage-transition trace records
//   - sim/replication/: parallel replications with a wall-clock bound
//   - sim/promexport/: Prometheus exposition of run reports
package sim
