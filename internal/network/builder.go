// Package network builds contact graphs: a Watts-Strogatz small-world
// topology or a modular topology of small-world hubs joined by sparse,
// weak inter-hub links. Structure is fixed first; ages, initial
// infections, doctors and edge weights are assigned afterwards, all drawn
// from the caller's RNG so a fixed seed reproduces the same graph.
package network

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"github.com/nvandessel/seird/internal/constants"
	"github.com/nvandessel/seird/internal/graph"
	"github.com/nvandessel/seird/internal/models"
)

// ErrInvalidTopology is returned when generation parameters are malformed.
// No partial graph is returned alongside it.
var ErrInvalidTopology = errors.New("invalid topology parameters")

// Topology selects the generator.
type Topology string

const (
	SmallWorld Topology = "small-world"
	Modular    Topology = "modular"
)

// Range is a closed interval [Min, Max] sampled uniformly.
type Range struct {
	Min float64 `json:"min" yaml:"min"`
	Max float64 `json:"max" yaml:"max"`
}

func (r Range) validate(name string) error {
	if r.Min < 0 || r.Max > 1 || r.Min > r.Max {
		return fmt.Errorf("%w: %s range [%v,%v] must satisfy 0 <= min <= max <= 1", ErrInvalidTopology, name, r.Min, r.Max)
	}
	return nil
}

func (r Range) sample(rng *rand.Rand) float64 {
	return r.Min + rng.Float64()*(r.Max-r.Min)
}

// Options configures network generation. Hub fields are only read by the
// modular topology.
type Options struct {
	Topology          Topology
	Population        int
	MeanDegree        int
	RewireProbability float64

	Hubs                int
	HubDegree           int
	InterHubProbability float64
	HubSizeVariation    float64

	// InfectedRange is the fraction of the population initially Infected.
	InfectedRange Range
	// DoctorRange is the fraction of the population flagged as doctors.
	// A zero range disables doctor staffing.
	DoctorRange Range
}

// DefaultOptions returns the default small-world options.
func DefaultOptions() Options {
	return Options{
		Topology:            SmallWorld,
		Population:          constants.DefaultPopulation,
		MeanDegree:          constants.DefaultMeanDegree,
		RewireProbability:   constants.DefaultRewireProbability,
		Hubs:                constants.DefaultHubs,
		HubDegree:           constants.DefaultHubDegree,
		InterHubProbability: constants.DefaultInterHubProbability,
		HubSizeVariation:    constants.DefaultHubSizeVariation,
		InfectedRange:       Range{Min: constants.MinInfectedFraction, Max: constants.MaxInfectedFraction},
		DoctorRange:         Range{Min: constants.MinDoctorFraction, Max: constants.MaxDoctorFraction},
	}
}

// NewRand returns a deterministic generator for seed. A seed of 0 draws a
// time-based seed instead.
func NewRand(seed uint64) *rand.Rand {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// Build dispatches on opts.Topology.
func Build(opts Options, rng *rand.Rand) (*graph.ContactGraph, error) {
	switch opts.Topology {
	case SmallWorld, "":
		return BuildSmallWorld(opts, rng)
	case Modular:
		return BuildModular(opts, rng)
	default:
		return nil, fmt.Errorf("%w: unknown topology %q (valid: small-world, modular)", ErrInvalidTopology, opts.Topology)
	}
}

// BuildSmallWorld generates a Watts-Strogatz graph. MeanDegree must be even
// and smaller than Population.
func BuildSmallWorld(opts Options, rng *rand.Rand) (*graph.ContactGraph, error) {
	if err := validateCommon(opts); err != nil {
		return nil, err
	}
	if err := validateDegree("mean degree", opts.MeanDegree, opts.Population); err != nil {
		return nil, err
	}

	lat := wattsStrogatz(opts.Population, opts.MeanDegree, opts.RewireProbability, 0, rng)
	pairs := make([]pair, len(lat.list))
	copy(pairs, lat.list)

	hubs := make([]int, opts.Population)
	for i := range hubs {
		hubs[i] = graph.NoHub
	}
	return assemble(opts, hubs, pairs, rng)
}

// BuildModular partitions the population into hubs, builds a small-world
// subgraph inside each, and links cross-hub pairs independently with
// InterHubProbability. Within-hub degree is reduced per hub when a hub is
// too small for HubDegree.
func BuildModular(opts Options, rng *rand.Rand) (*graph.ContactGraph, error) {
	if err := validateCommon(opts); err != nil {
		return nil, err
	}
	if opts.Hubs < 1 || opts.Hubs > opts.Population {
		return nil, fmt.Errorf("%w: hubs %d must be between 1 and population %d", ErrInvalidTopology, opts.Hubs, opts.Population)
	}
	if opts.HubDegree < 0 || opts.HubDegree%2 != 0 {
		return nil, fmt.Errorf("%w: hub degree %d must be even and non-negative", ErrInvalidTopology, opts.HubDegree)
	}
	if opts.HubSizeVariation < 0 || opts.HubSizeVariation >= 1 {
		return nil, fmt.Errorf("%w: hub size variation %v must be in [0,1)", ErrInvalidTopology, opts.HubSizeVariation)
	}
	if !isProbability(opts.InterHubProbability) {
		return nil, fmt.Errorf("%w: inter-hub probability %v must be in [0,1]", ErrInvalidTopology, opts.InterHubProbability)
	}

	sizes, err := HubSizes(opts.Population, opts.Hubs, opts.HubSizeVariation, rng)
	if err != nil {
		return nil, err
	}

	hubs := make([]int, 0, opts.Population)
	var pairs []pair
	offset := 0
	for h, size := range sizes {
		k := opts.HubDegree
		if k > size-1 {
			k = size - 1
		}
		k &^= 1
		lat := wattsStrogatz(size, k, opts.RewireProbability, offset, rng)
		pairs = append(pairs, lat.list...)
		for i := 0; i < size; i++ {
			hubs = append(hubs, h)
		}
		offset += size
	}

	for a := 0; a < opts.Population; a++ {
		for b := a + 1; b < opts.Population; b++ {
			if hubs[a] == hubs[b] {
				continue
			}
			if rng.Float64() < opts.InterHubProbability {
				pairs = append(pairs, pair{a: a, b: b, inter: true})
			}
		}
	}
	return assemble(opts, hubs, pairs, rng)
}

// HubSizes splits population into hubs groups, each within ±variation of
// the even split. The last hub absorbs the remainder, so sizes always sum to
// population and every hub has at least one member.
func HubSizes(population, hubs int, variation float64, rng *rand.Rand) ([]int, error) {
	if hubs < 1 || hubs > population {
		return nil, fmt.Errorf("%w: cannot split %d individuals into %d hubs", ErrInvalidTopology, population, hubs)
	}
	base := float64(population) / float64(hubs)
	sizes := make([]int, hubs)
	remaining := population
	for h := 0; h < hubs-1; h++ {
		size := int(math.Round(base * (1 + variation*(2*rng.Float64()-1))))
		maxSize := remaining - (hubs - 1 - h)
		size = max(1, min(size, maxSize))
		sizes[h] = size
		remaining -= size
	}
	sizes[hubs-1] = remaining
	return sizes, nil
}

func validateCommon(opts Options) error {
	if opts.Population < 1 {
		return fmt.Errorf("%w: population must be positive, got %d", ErrInvalidTopology, opts.Population)
	}
	if !isProbability(opts.RewireProbability) {
		return fmt.Errorf("%w: rewire probability %v must be in [0,1]", ErrInvalidTopology, opts.RewireProbability)
	}
	if err := opts.InfectedRange.validate("infected"); err != nil {
		return err
	}
	return opts.DoctorRange.validate("doctor")
}

func validateDegree(name string, k, n int) error {
	if k < 0 || k%2 != 0 {
		return fmt.Errorf("%w: %s %d must be even and non-negative", ErrInvalidTopology, name, k)
	}
	if k >= n {
		return fmt.Errorf("%w: %s %d must be smaller than population %d", ErrInvalidTopology, name, k, n)
	}
	return nil
}

func isProbability(p float64) bool {
	return p >= 0 && p <= 1
}

// assemble assigns node attributes, then edge weights, then materialises
// the ContactGraph.
func assemble(opts Options, hubs []int, pairs []pair, rng *rand.Rand) (*graph.ContactGraph, error) {
	people := populate(opts, hubs, rng)

	g := graph.New(len(people))
	for _, ind := range people {
		if _, err := g.AddIndividual(ind); err != nil {
			return nil, err
		}
	}
	for _, p := range pairs {
		if err := g.AddEdge(p.a, p.b, edgeWeight(opts.Topology, p.inter, rng)); err != nil {
			return nil, err
		}
	}
	return g, nil
}

func populate(opts Options, hubs []int, rng *rand.Rand) []graph.Individual {
	n := opts.Population
	people := make([]graph.Individual, n)
	for i := range people {
		people[i] = graph.Individual{
			ID:           graph.IndexID(i),
			Age:          constants.MinAge + rng.IntN(constants.MaxAge-constants.MinAge+1),
			DaysInfected: graph.DaysUnset,
			Hub:          hubs[i],
		}
	}

	infected := int(math.Round(opts.InfectedRange.sample(rng) * float64(n)))
	infected = min(n, max(1, infected))
	for _, idx := range rng.Perm(n)[:infected] {
		people[idx].Status = models.Infected
		people[idx].InitialStatus = models.Infected
		people[idx].DaysInfected = 0
	}

	if opts.DoctorRange.Max > 0 {
		doctors := int(math.Round(opts.DoctorRange.sample(rng) * float64(n)))
		doctors = min(n, doctors)
		for _, idx := range rng.Perm(n)[:doctors] {
			people[idx].IsDoctor = true
		}
	}
	return people
}

func edgeWeight(topology Topology, inter bool, rng *rand.Rand) float64 {
	lo, hi := constants.MinEdgeWeight, constants.MaxEdgeWeight
	if topology == Modular {
		if inter {
			hi = constants.MaxInterHubWeight
		} else {
			lo = constants.MinIntraHubWeight
		}
	}
	return math.Round((lo+rng.Float64()*(hi-lo))*100) / 100
}
