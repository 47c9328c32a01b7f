// Package epidemic advances a contact graph through simulated days.
//
// A day is a single synchronous pass. Before any node moves, the driver
// freezes a Snapshot of every status together with the population-level
// aggregates derived from it (living and infected counts, ambient pressure,
// available doctors, doctor-adjusted recovery). Every transition that day
// reads only the snapshot, so the result does not depend on visit order.
package epidemic
