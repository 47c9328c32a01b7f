package epidemic

import (
	"github.com/nvandessel/seird/internal/factors"
	"github.com/nvandessel/seird/internal/graph"
	"github.com/nvandessel/seird/internal/models"
	"github.com/nvandessel/seird/internal/transition"
)

// Snapshot is the day-start view of a graph. It is taken once per day and
// shared by every transition decision made that day.
type Snapshot struct {
	// Statuses is indexed like the graph arena.
	Statuses []models.Status
	Counts   models.StatusCounts

	AvailableDoctors int
	// AmbientPressure is (infected/living) * S2E_TAU.
	AmbientPressure float64
	// Recovery is I2R plus today's doctor staffing bonus.
	Recovery float64
}

// Living returns the day-start count of non-Dead individuals.
func (s *Snapshot) Living() int { return s.Counts.Living() }

// Infected returns the day-start count of Infected individuals.
func (s *Snapshot) Infected() int { return s.Counts[models.Infected] }

// TakeSnapshot freezes g under params. buf is reused for Statuses when it
// has enough capacity.
func TakeSnapshot(g *graph.ContactGraph, params models.Params, buf []models.Status) Snapshot {
	statuses := g.Statuses(buf)

	var counts models.StatusCounts
	for _, s := range statuses {
		counts[s]++
	}
	living := counts.Living()
	doctors := g.AvailableDoctors()

	return Snapshot{
		Statuses:         statuses,
		Counts:           counts,
		AvailableDoctors: doctors,
		AmbientPressure:  factors.AmbientInfectionPressure(living, counts[models.Infected], params.S2ETau),
		Recovery:         factors.DoctorAdjustedRecovery(doctors, living, params.I2R),
	}
}

// Inputs returns the transition inputs for node i of g.
func (s *Snapshot) Inputs(g *graph.ContactGraph, i int, params models.Params) transition.Inputs {
	in := transition.Inputs{
		AmbientPressure: s.AmbientPressure,
		Params:          params,
	}
	switch s.Statuses[i] {
	case models.Susceptible:
		in.NeighborPressure = factors.NeighborInfectionPressure(g.Neighbors(i), s.Statuses, params.S2E)
	case models.Infected:
		in.Recovery = s.Recovery
		in.Mortality = factors.AgeAdjustedMortality(g.Node(i).Age, params.I2D)
	}
	return in
}
