package transition

import (
	"fmt"
	"math"

	"github.com/nvandessel/seird/internal/graph"
	"github.com/nvandessel/seird/internal/models"
)

// Inputs are the probabilities that apply to one individual on one day.
// Every field is computed from the day-start snapshot.
type Inputs struct {
	// NeighborPressure is factors.NeighborInfectionPressure for this node.
	NeighborPressure float64
	// AmbientPressure is the population-wide pressure shared by every node today.
	AmbientPressure float64
	// Recovery is the doctor-adjusted I2R for today.
	Recovery float64
	// Mortality is the age-adjusted I2D for this node.
	Mortality float64

	Params models.Params
}

// Outcome records a single node's transition.
type Outcome struct {
	From models.Status
	To   models.Status
}

// Changed reports whether the node moved compartments.
func (o Outcome) Changed() bool { return o.From != o.To }

// Apply draws the next state of ind using the uniform sample u and mutates
// ind in place. It reads ind.Status once and writes it once.
//
// Offered outcomes, in bucket order:
//
//	S: Exposed (min(neighbour+ambient, 1))
//	E: Infected (E2I), Recovered (E2R)
//	I: Recovered (Recovery), Dead (Mortality)
//	R: Susceptible (R2S)
//	D: none
func Apply(ind *graph.Individual, in Inputs, u float64) (Outcome, error) {
	from := ind.Status
	out := Outcome{From: from, To: from}

	switch from {
	case models.Susceptible:
		p := math.Min(in.NeighborPressure+in.AmbientPressure, 1.0)
		choice, err := Pick(u, p)
		if err != nil {
			return out, fmt.Errorf("susceptible %s: %w", ind.ID, err)
		}
		if choice == 1 {
			out.To = models.Exposed
			ind.DaysInfected = 0
		}

	case models.Exposed:
		choice, err := Pick(u, in.Params.E2I, in.Params.E2R)
		if err != nil {
			return out, fmt.Errorf("exposed %s: %w", ind.ID, err)
		}
		switch choice {
		case 1:
			out.To = models.Infected
			ind.DaysInfected = 0
		case 2:
			out.To = models.Recovered
			ind.DaysInfected = graph.DaysUnset
		}

	case models.Infected:
		choice, err := Pick(u, in.Recovery, in.Mortality)
		if err != nil {
			return out, fmt.Errorf("infected %s: %w", ind.ID, err)
		}
		switch choice {
		case 1:
			out.To = models.Recovered
			ind.DaysInfected = graph.DaysUnset
		case 2:
			out.To = models.Dead
			ind.DaysInfected = graph.DaysUnset
		default:
			if ind.DaysInfected < 0 {
				ind.DaysInfected = 0
			}
			ind.DaysInfected++
		}

	case models.Recovered:
		choice, err := Pick(u, in.Params.R2S)
		if err != nil {
			return out, fmt.Errorf("recovered %s: %w", ind.ID, err)
		}
		if choice == 1 {
			out.To = models.Susceptible
		}
		ind.DaysInfected = graph.DaysUnset

	case models.Dead:
		return out, nil

	default:
		return out, fmt.Errorf("individual %s has unknown status %v", ind.ID, from)
	}

	ind.Status = out.To
	return out, nil
}
