// Package transition implements the per-individual SEIRD state machine and
// the weighted-choice primitive every transition draws through.
package transition

import (
	"errors"
	"fmt"
	"math"
)

// Stay is the outcome returned by Pick when the sample falls beyond the last
// offered bucket.
const Stay = 0

// ErrProbabilityNormalization reports offered probabilities that cannot be
// normalised (negative, NaN or infinite). It signals a programming error,
// not a user-recoverable condition.
var ErrProbabilityNormalization = errors.New("probability normalization violation")

// Pick selects an outcome for the uniform sample u in [0,1). Outcomes are
// offered in order with probabilities probs; outcome i (1-based) is chosen
// when sum(probs[:i-1]) <= u < sum(probs[:i]). A sample past the last bound
// returns Stay.
//
// If the offered probabilities sum to more than 1 they are rescaled
// proportionally so they sum to exactly 1, preserving their ratios; the
// final bound is then pinned to 1 so rounding cannot open a stay bucket.
func Pick(u float64, probs ...float64) (int, error) {
	sum := 0.0
	for i, p := range probs {
		if math.IsNaN(p) || math.IsInf(p, 0) || p < 0 {
			return Stay, fmt.Errorf("%w: outcome %d has probability %v", ErrProbabilityNormalization, i+1, p)
		}
		sum += p
	}

	scale := 1.0
	rescaled := sum > 1
	if rescaled {
		scale = 1 / sum
	}

	lower := 0.0
	for i, p := range probs {
		upper := lower + p*scale
		if rescaled && i == len(probs)-1 {
			upper = 1
		}
		if lower <= u && u < upper {
			return i + 1, nil
		}
		lower = upper
	}
	return Stay, nil
}

// Normalize returns probs after the same proportional rescaling Pick
// applies. The input slice is not modified.
func Normalize(probs []float64) ([]float64, error) {
	out := make([]float64, len(probs))
	sum := 0.0
	for i, p := range probs {
		if math.IsNaN(p) || math.IsInf(p, 0) || p < 0 {
			return nil, fmt.Errorf("%w: outcome %d has probability %v", ErrProbabilityNormalization, i+1, p)
		}
		sum += p
	}
	for i, p := range probs {
		if sum > 1 {
			out[i] = p / sum
		} else {
			out[i] = p
		}
	}
	return out, nil
}
