package constants

import "time"

// Population and topology defaults for generated contact networks.
const (
	// DefaultPopulation is the number of individuals in a generated network.
	DefaultPopulation = 500

	// DefaultMeanDegree is the ring-lattice neighbour count of the
	// small-world generator. Must be even.
	DefaultMeanDegree = 6

	// DefaultRewireProbability is the per-edge rewiring probability.
	DefaultRewireProbability = 0.1

	// DefaultHubs is the number of communities in the modular topology.
	DefaultHubs = 4

	// DefaultHubDegree is the within-hub ring-lattice degree.
	DefaultHubDegree = 8

	// DefaultInterHubProbability is the chance that any cross-hub pair is linked.
	DefaultInterHubProbability = 0.005

	// DefaultHubSizeVariation bounds hub sizes to ±20% of the even split.
	DefaultHubSizeVariation = 0.2
)

// Node and edge attribute ranges.
const (
	MinAge = 1
	MaxAge = 100

	// Initially infected fraction is drawn uniformly from this range.
	MinInfectedFraction = 0.01
	MaxInfectedFraction = 0.05

	// Doctor fraction is drawn uniformly from this range.
	MinDoctorFraction = 0.01
	MaxDoctorFraction = 0.10

	// Edge weights are drawn uniformly from [MinEdgeWeight, MaxEdgeWeight]
	// and rounded to two decimals.
	MinEdgeWeight = 0.1
	MaxEdgeWeight = 1.0

	// Modular topologies bias intra-hub weights high and inter-hub weights low.
	MinIntraHubWeight = 0.5
	MaxInterHubWeight = 0.3
)

// Probability factor tuning.
const (
	// MortalityCenterAge is the age with the lowest mortality penalty.
	MortalityCenterAge = 35.0

	// DoctorBonusScale is k in k*sqrt(doctors/living).
	DoctorBonusScale = 0.01

	// MaxDoctorBonus caps the recovery bonus contributed by doctors.
	MaxDoctorBonus = 0.35

	// RecoveryCeiling caps doctor-adjusted recovery so some risk always remains.
	RecoveryCeiling = 0.95
)

// Run cadence.
const (
	// DefaultSpeedMs is the default delay between automatic days.
	DefaultSpeedMs = 1000

	// MinStepInterval is the floor applied to the automatic step interval.
	MinStepInterval = 50 * time.Millisecond

	// DefaultGraphSeed generates the default graph when no seed is configured.
	DefaultGraphSeed = 42
)
