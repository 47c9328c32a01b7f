package epidemic

import (
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/nvandessel/seird/internal/graph"
	"github.com/nvandessel/seird/internal/models"
	"github.com/nvandessel/seird/internal/transition"
)

// ErrNilGraph is returned when a simulation is created without a graph.
var ErrNilGraph = errors.New("simulation requires a contact graph")

// Flows counts transitions by [from][to] compartment for one day.
type Flows [models.NumStatuses][models.NumStatuses]int

// Total returns the number of nodes that changed compartment.
func (f *Flows) Total() int {
	total := 0
	for from := range f {
		for to := range f[from] {
			if from != to {
				total += f[from][to]
			}
		}
	}
	return total
}

// Into returns how many nodes entered status to.
func (f *Flows) Into(to models.Status) int {
	n := 0
	for from := range f {
		if models.Status(from) != to {
			n += f[from][to]
		}
	}
	return n
}

// DayReport summarises one completed day.
type DayReport struct {
	// Day is the day counter after the pass, starting at 1.
	Day int
	// Start holds the day-start counts the factors were computed from.
	Start models.StatusCounts
	// Counts holds the counts after every node has been visited.
	Counts models.StatusCounts
	Flows  Flows

	AmbientPressure  float64
	Recovery         float64
	AvailableDoctors int
}

// AdvanceOneDay applies the transition engine to every node of g exactly
// once, using a snapshot taken before the first mutation. Every non-Dead
// node consumes one draw from rng in arena order. buf is an optional
// status buffer reused across days.
//
// An error means the graph is partially advanced and must be discarded.
func AdvanceOneDay(g *graph.ContactGraph, params models.Params, rng *rand.Rand, buf []models.Status) (DayReport, []models.Status, error) {
	snap := TakeSnapshot(g, params, buf)
	report := DayReport{
		Start:            snap.Counts,
		Counts:           snap.Counts,
		AmbientPressure:  snap.AmbientPressure,
		Recovery:         snap.Recovery,
		AvailableDoctors: snap.AvailableDoctors,
	}

	for i := range g.Len() {
		if snap.Statuses[i] == models.Dead {
			report.Flows[models.Dead][models.Dead]++
			continue
		}
		out, err := transition.Apply(g.Node(i), snap.Inputs(g, i, params), rng.Float64())
		if err != nil {
			return report, snap.Statuses, fmt.Errorf("advancing node %d: %w", i, err)
		}
		report.Flows[out.From][out.To]++
		if out.Changed() {
			report.Counts.Move(out.From, out.To)
		}
	}
	return report, snap.Statuses, nil
}
