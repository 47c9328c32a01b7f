// Package factors computes the per-day transition probabilities of the
// SEIRD model. Every function is pure: callers pass the day-start snapshot
// values and get a probability back.
package factors

import (
	"math"

	"github.com/nvandessel/seird/internal/constants"
	"github.com/nvandessel/seird/internal/graph"
	"github.com/nvandessel/seird/internal/models"
)

// NeighborInfectionPressure returns 1 - (1-s2e)^w, where w is the summed
// weight of every neighbour whose status in statuses is Infected. statuses
// must be the day-start snapshot indexed like the graph arena.
func NeighborInfectionPressure(neighbors []graph.Neighbor, statuses []models.Status, s2e float64) float64 {
	weight := 0.0
	for _, n := range neighbors {
		if statuses[n.Index] == models.Infected {
			weight += n.Weight
		}
	}
	if weight == 0 {
		return 0
	}
	return 1 - math.Pow(1-s2e, weight)
}

// AgePenalty is ((age-35)/35)^2: zero at the centre age and growing
// symmetrically with distance from it.
func AgePenalty(age int) float64 {
	d := (float64(age) - constants.MortalityCenterAge) / constants.MortalityCenterAge
	return d * d
}

// AgeAdjustedMortality returns min(1, baseI2D * (1 + AgePenalty(age))).
func AgeAdjustedMortality(age int, baseI2D float64) float64 {
	return math.Min(1.0, baseI2D*(1+AgePenalty(age)))
}

// AmbientInfectionPressure is the probability of infection not attributable
// to a tracked contact: (infected/living) * s2eTau, or 0 with no living
// population.
func AmbientInfectionPressure(living, infected int, s2eTau float64) float64 {
	if living <= 0 {
		return 0
	}
	return float64(infected) / float64(living) * s2eTau
}

// DoctorAdjustedRecovery adds a diminishing-returns staffing bonus,
// min(MaxDoctorBonus, DoctorBonusScale*sqrt(doctors/living)), to baseI2R
// and caps the total at RecoveryCeiling. With no available doctors or no
// living population baseI2R is returned unchanged.
func DoctorAdjustedRecovery(availableDoctors, living int, baseI2R float64) float64 {
	if availableDoctors <= 0 || living <= 0 {
		return baseI2R
	}
	ratio := float64(availableDoctors) / float64(living)
	bonus := math.Min(constants.MaxDoctorBonus, constants.DoctorBonusScale*math.Sqrt(ratio))
	return math.Min(constants.RecoveryCeiling, baseI2R+bonus)
}
