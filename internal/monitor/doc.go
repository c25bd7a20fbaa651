// Package monitor is the telemetry engine: it polls each host's agent,
// debounces up/down status, turns cumulative traffic counters into deltas and
// rolls load samples into minute and hour rings.
//
// # Components
//
//	StateTable          - per-host snapshot, failure count and in-flight flag
//	Collector           - fans out one agent fetch per active host per tick
//	Tracker             - applies fetch results and emits down/recovered notices
//	TrafficAccumulator  - persists per-interval traffic deltas
//	Aggregator          - minute/hour/day/month jobs over the load rings
//	Service             - wires the above to a registry, store and scheduler
//
// # Snapshot states
//
// A host has no record (no data yet or inactive), an offline record (Stat is
// nil, marshalled as false) or a live record. Records are replaced whole,
// never mutated, so readers always see a consistent value.
package monitor
