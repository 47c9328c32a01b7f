package network

import (
	"errors"
	"math"
	"testing"

	"github.com/nvandessel/seird/internal/graph"
	"github.com/nvandessel/seird/internal/models"
)

func smallWorldOpts(n, k int, p float64) Options {
	opts := DefaultOptions()
	opts.Population = n
	opts.MeanDegree = k
	opts.RewireProbability = p
	return opts
}

func TestBuildSmallWorld_RingLattice(t *testing.T) {
	g, err := BuildSmallWorld(smallWorldOpts(20, 4, 0), NewRand(7))
	if err != nil {
		t.Fatalf("BuildSmallWorld: %v", err)
	}

	if g.Len() != 20 {
		t.Errorf("Len() = %d, want 20", g.Len())
	}
	if g.EdgeCount() != 40 {
		t.Errorf("EdgeCount() = %d, want n*k/2 = 40", g.EdgeCount())
	}
	for i := 0; i < g.Len(); i++ {
		if d := len(g.Neighbors(i)); d != 4 {
			t.Errorf("degree(%d) = %d, want 4", i, d)
		}
		for _, j := range []int{1, 2} {
			if !g.HasEdge(i, (i+j)%20) {
				t.Errorf("missing lattice edge %d-%d", i, (i+j)%20)
			}
		}
	}
}

func TestBuildSmallWorld_RewiringKeepsEdgeCount(t *testing.T) {
	g, err := BuildSmallWorld(smallWorldOpts(200, 6, 0.5), NewRand(11))
	if err != nil {
		t.Fatalf("BuildSmallWorld: %v", err)
	}
	if g.EdgeCount() != 600 {
		t.Errorf("EdgeCount() = %d, want 600 (rewiring moves edges, never drops them)", g.EdgeCount())
	}
	for _, e := range g.Edges() {
		if e.A == e.B {
			t.Fatalf("self-loop on %d", e.A)
		}
		if e.Weight < 0.1 || e.Weight > 1.0 {
			t.Errorf("weight %v outside [0.1,1.0]", e.Weight)
		}
		if r := math.Round(e.Weight*100) / 100; r != e.Weight {
			t.Errorf("weight %v not rounded to 2 decimals", e.Weight)
		}
	}
}

func TestBuildSmallWorld_InvalidDegree(t *testing.T) {
	tests := []struct {
		name string
		n, k int
		p    float64
	}{
		{"odd degree", 10, 3, 0.1},
		{"degree equals population", 6, 6, 0.1},
		{"negative degree", 10, -2, 0.1},
		{"empty population", 0, 0, 0.1},
		{"bad rewire", 10, 2, 1.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := BuildSmallWorld(smallWorldOpts(tt.n, tt.k, tt.p), NewRand(1))
			if !errors.Is(err, ErrInvalidTopology) {
				t.Errorf("error = %v, want ErrInvalidTopology", err)
			}
			if g != nil {
				t.Error("partial graph returned alongside error")
			}
		})
	}
}

func TestBuild_UnknownTopology(t *testing.T) {
	opts := DefaultOptions()
	opts.Topology = "scale-free"
	if _, err := Build(opts, NewRand(1)); !errors.Is(err, ErrInvalidTopology) {
		t.Errorf("error = %v, want ErrInvalidTopology", err)
	}
}

func TestBuild_Attributes(t *testing.T) {
	opts := smallWorldOpts(1000, 6, 0.1)
	g, err := Build(opts, NewRand(42))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	infected, doctors := 0, 0
	for i := 0; i < g.Len(); i++ {
		ind := g.Node(i)
		if ind.Age < 1 || ind.Age > 100 {
			t.Errorf("node %s age %d outside [1,100]", ind.ID, ind.Age)
		}
		if ind.ID != graph.IndexID(i) {
			t.Errorf("node %d id = %q", i, ind.ID)
		}
		switch ind.Status {
		case models.Infected:
			infected++
			if ind.DaysInfected != 0 {
				t.Errorf("infected node %s daysInfected = %d, want 0", ind.ID, ind.DaysInfected)
			}
			if ind.InitialStatus != models.Infected {
				t.Errorf("infected node %s initialStatus = %v", ind.ID, ind.InitialStatus)
			}
		case models.Susceptible:
			if ind.HasDaysInfected() {
				t.Errorf("susceptible node %s has daysInfected set", ind.ID)
			}
		default:
			t.Errorf("node %s starts as %v", ind.ID, ind.Status)
		}
		if ind.IsDoctor {
			doctors++
		}
	}

	if infected < 10 || infected > 50 {
		t.Errorf("infected = %d, want within 1%%-5%% of 1000", infected)
	}
	if doctors < 10 || doctors > 100 {
		t.Errorf("doctors = %d, want within 1%%-10%% of 1000", doctors)
	}
}

func TestBuild_AtLeastOneInfected(t *testing.T) {
	opts := smallWorldOpts(10, 2, 0)
	opts.InfectedRange = Range{Min: 0, Max: 0}
	opts.DoctorRange = Range{}
	g, err := Build(opts, NewRand(3))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	c := g.Counts()
	if c[models.Infected] != 1 {
		t.Errorf("infected = %d, want max(1, round(0*N)) = 1", c[models.Infected])
	}
	if g.AvailableDoctors() != 0 {
		t.Errorf("doctors = %d, want 0 when staffing is disabled", g.AvailableDoctors())
	}
}

func TestBuild_Deterministic(t *testing.T) {
	for _, topo := range []Topology{SmallWorld, Modular} {
		t.Run(string(topo), func(t *testing.T) {
			opts := DefaultOptions()
			opts.Topology = topo
			opts.Population = 300

			g1, err := Build(opts, NewRand(99))
			if err != nil {
				t.Fatalf("Build #1: %v", err)
			}
			g2, err := Build(opts, NewRand(99))
			if err != nil {
				t.Fatalf("Build #2: %v", err)
			}

			if g1.EdgeCount() != g2.EdgeCount() {
				t.Fatalf("edge counts differ: %d vs %d", g1.EdgeCount(), g2.EdgeCount())
			}
			for i, e := range g1.Edges() {
				if g2.Edges()[i] != e {
					t.Fatalf("edge %d differs: %+v vs %+v", i, e, g2.Edges()[i])
				}
			}
			for i := 0; i < g1.Len(); i++ {
				if *g1.Node(i) != *g2.Node(i) {
					t.Fatalf("node %d differs: %+v vs %+v", i, *g1.Node(i), *g2.Node(i))
				}
			}
		})
	}
}

func TestHubSizes(t *testing.T) {
	rng := NewRand(5)
	for trial := 0; trial < 50; trial++ {
		sizes, err := HubSizes(103, 4, 0.3, rng)
		if err != nil {
			t.Fatalf("HubSizes: %v", err)
		}
		total := 0
		for h, s := range sizes {
			if s < 1 {
				t.Fatalf("hub %d has size %d", h, s)
			}
			total += s
		}
		if total != 103 {
			t.Fatalf("sizes %v sum to %d, want 103", sizes, total)
		}
		base := 103.0 / 4
		for h, s := range sizes[:3] {
			if float64(s) < math.Round(base*0.7)-1 || float64(s) > math.Round(base*1.3)+1 {
				t.Errorf("hub %d size %d outside ±30%% of %v", h, s, base)
			}
		}
	}

	if _, err := HubSizes(3, 5, 0, rng); !errors.Is(err, ErrInvalidTopology) {
		t.Errorf("more hubs than people: error = %v, want ErrInvalidTopology", err)
	}
}

func TestBuildModular(t *testing.T) {
	opts := DefaultOptions()
	opts.Topology = Modular
	opts.Population = 200
	opts.Hubs = 4
	opts.HubDegree = 6
	opts.InterHubProbability = 0.01

	g, err := Build(opts, NewRand(8))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	hubCount := map[int]int{}
	for i := 0; i < g.Len(); i++ {
		hubCount[g.Node(i).Hub]++
	}
	if len(hubCount) != 4 {
		t.Errorf("hubs = %v, want 4 distinct", hubCount)
	}

	intra, inter := 0, 0
	for _, e := range g.Edges() {
		if g.Node(e.A).Hub == g.Node(e.B).Hub {
			intra++
			if e.Weight < 0.5 {
				t.Errorf("intra-hub weight %v below 0.5", e.Weight)
			}
		} else {
			inter++
			if e.Weight > 0.3 {
				t.Errorf("inter-hub weight %v above 0.3", e.Weight)
			}
		}
	}
	if intra == 0 {
		t.Error("no intra-hub edges")
	}
	if inter == 0 {
		t.Error("no inter-hub edges at p=0.01 over ~15000 cross pairs")
	}
}

func TestBuildModular_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Options)
	}{
		{"zero hubs", func(o *Options) { o.Hubs = 0 }},
		{"odd hub degree", func(o *Options) { o.HubDegree = 5 }},
		{"variation one", func(o *Options) { o.HubSizeVariation = 1 }},
		{"inter prob", func(o *Options) { o.InterHubProbability = -0.1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := DefaultOptions()
			opts.Topology = Modular
			opts.Population = 50
			tt.mutate(&opts)
			if _, err := Build(opts, NewRand(1)); !errors.Is(err, ErrInvalidTopology) {
				t.Errorf("error = %v, want ErrInvalidTopology", err)
			}
		})
	}
}
