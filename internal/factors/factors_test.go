package factors

import (
	"math"
	"testing"

	"github.com/nvandessel/seird/internal/graph"
	"github.com/nvandessel/seird/internal/models"
)

const eps = 1e-12

func approx(a, b float64) bool { return math.Abs(a-b) < eps }

func TestNeighborInfectionPressure(t *testing.T) {
	statuses := []models.Status{models.Susceptible, models.Infected, models.Infected, models.Recovered}
	tests := []struct {
		name      string
		neighbors []graph.Neighbor
		want      float64
	}{
		{"no neighbours", nil, 0},
		{"no infected neighbours", []graph.Neighbor{{Index: 3, Weight: 1}}, 0},
		{"one full-weight infected", []graph.Neighbor{{Index: 1, Weight: 1}}, 0.05},
		{"summed weights", []graph.Neighbor{{Index: 1, Weight: 0.5}, {Index: 2, Weight: 1.5}, {Index: 3, Weight: 1}}, 1 - math.Pow(0.95, 2)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NeighborInfectionPressure(tt.neighbors, statuses, 0.05)
			if !approx(got, tt.want) {
				t.Errorf("NeighborInfectionPressure = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAgeAdjustedMortality(t *testing.T) {
	if got := AgeAdjustedMortality(35, 0.01); !approx(got, 0.01) {
		t.Errorf("mortality at centre = %v, want base 0.01", got)
	}
	if got := AgeAdjustedMortality(70, 0.01); !approx(got, 0.02) {
		t.Errorf("mortality at 70 = %v, want 0.02", got)
	}
	if got := AgeAdjustedMortality(100, 0.9); got != 1.0 {
		t.Errorf("mortality cap = %v, want 1.0", got)
	}
}

func TestAgeAdjustedMortality_Bounds(t *testing.T) {
	for _, base := range []float64{0, 0.001, 0.01, 0.25, 0.5, 1} {
		for age := 1; age <= 100; age++ {
			got := AgeAdjustedMortality(age, base)
			if got < 0 || got > 1 {
				t.Fatalf("AgeAdjustedMortality(%d, %v) = %v outside [0,1]", age, base, got)
			}
		}
	}
}

func TestAgeAdjustedMortality_MonotonicInDistance(t *testing.T) {
	prev := AgeAdjustedMortality(35, 0.05)
	for d := 1; d <= 34; d++ {
		lo := AgeAdjustedMortality(35-d, 0.05)
		hi := AgeAdjustedMortality(35+d, 0.05)
		if !approx(lo, hi) {
			t.Errorf("penalty not symmetric at distance %d: %v vs %v", d, lo, hi)
		}
		if lo < prev {
			t.Errorf("mortality decreased at distance %d: %v < %v", d, lo, prev)
		}
		prev = lo
	}
}

func TestAmbientInfectionPressure(t *testing.T) {
	if got := AmbientInfectionPressure(100, 5, 0.5); !approx(got, 0.025) {
		t.Errorf("AmbientInfectionPressure(100,5,0.5) = %v, want 0.025", got)
	}
	if got := AmbientInfectionPressure(0, 0, 0.5); got != 0 {
		t.Errorf("AmbientInfectionPressure with no living = %v, want 0", got)
	}
	if got := AmbientInfectionPressure(100, 0, 0.5); got != 0 {
		t.Errorf("AmbientInfectionPressure with no infected = %v, want 0", got)
	}
}

func TestDoctorAdjustedRecovery(t *testing.T) {
	if got := DoctorAdjustedRecovery(0, 100, 0.1); got != 0.1 {
		t.Errorf("no doctors = %v, want base", got)
	}
	if got := DoctorAdjustedRecovery(5, 0, 0.1); got != 0.1 {
		t.Errorf("no living = %v, want base", got)
	}

	want := 0.1 + 0.01*math.Sqrt(25.0/100.0)
	if got := DoctorAdjustedRecovery(25, 100, 0.1); !approx(got, want) {
		t.Errorf("DoctorAdjustedRecovery(25,100,0.1) = %v, want %v", got, want)
	}

	if more, fewer := DoctorAdjustedRecovery(50, 100, 0.1), DoctorAdjustedRecovery(10, 100, 0.1); more <= fewer {
		t.Errorf("more doctors should not reduce recovery: %v <= %v", more, fewer)
	}
}

func TestDoctorAdjustedRecovery_Cap(t *testing.T) {
	for _, base := range []float64{0, 0.5, 0.9, 0.95, 1} {
		for _, doctors := range []int{1, 10, 100, 1000, 1 << 30} {
			if got := DoctorAdjustedRecovery(doctors, 100, base); got > 0.95 {
				t.Errorf("DoctorAdjustedRecovery(%d, 100, %v) = %v exceeds 0.95", doctors, base, got)
			}
		}
	}
}
