// Package sim provides the runtime simulator that estimates the elapsed time of
// a scheduled program under a fixed memory-placement plan.
//
// # Reading Guide
//
// Start with these files to understand the simulation kernel:
//   - queue.go: outstanding async copies, one FIFO per default-memory direction
//   - simulator.go: copy-completion contention model and the schedule walk
//   - compare.go: estimating and ranking candidate allocation plans
//
// # Architecture
//
// The sim package defines the core types and the CostModel interface;
// collaborators live in sub-packages:
//   - sim/cost/: table-driven roofline cost model implementing CostModel
//   - sim/program/: YAML program loader producing a Schedule, plans and queue seeds
//   - sim/trace/: per-instruction estimate records (no dependency on sim/)
//   - sim/recorder/: SQLite persistence of estimate traces
//
// # Contention Model
//
// Both copy directions share one default-memory interface. When a copy-done is
// simulated, the target copy drains at DefaultMemBandwidth, or half of it if the
// opposite direction has outstanding work; the opposite head drains at the same
// per-direction rate during that window. Everything is synchronous and
// deterministic, so estimates compare by exact equality.
package sim
