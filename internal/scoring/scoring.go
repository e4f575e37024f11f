// Package scoring provides the shared curve primitives used by every
// analyzer. All composite scores are built from these continuous curves
// rather than ad-hoc threshold cascades, so behavior near boundaries stays
// smooth and comparable across analyzers.
package scoring

import (
	"math"
	"sort"
)

// Sigmoid maps x through an S-curve onto (0,1). Output is 0.5 at midpoint;
// steepness controls how sharp the transition is. The exponent is clamped to
// [-500, 500] so extreme inputs saturate instead of overflowing.
func Sigmoid(x, midpoint, steepness float64) float64 {
	z := -steepness * (x - midpoint)
	if z > 500 {
		z = 500
	} else if z < -500 {
		z = -500
	}
	return 1.0 / (1.0 + math.Exp(z))
}

// Bell is a Gaussian peaking at 1.0 when x == center, decaying with the
// given width (standard deviation). Width 0 degenerates to an exact-match
// indicator. Use for optimal-range metrics where both extremes are bad.
func Bell(x, center, width float64) float64 {
	if width == 0 {
		if x == center {
			return 1.0
		}
		return 0.0
	}
	d := (x - center) / width
	return math.Exp(-0.5 * d * d)
}

// LinearClamp interpolates linearly from 0 at low to 1 at high, clamped
// outside that range. A degenerate range (high <= low) acts as a step at
// high.
func LinearClamp(x, low, high float64) float64 {
	if high <= low {
		if x >= high {
			return 1.0
		}
		return 0.0
	}
	if x <= low {
		return 0.0
	}
	if x >= high {
		return 1.0
	}
	return (x - low) / (high - low)
}

// Diminishing applies square-root diminishing returns: fast growth for
// small x, reaching 1.0 at scale and capped there. Negative inputs are
// treated as 0; a non-positive scale returns 1.0.
func Diminishing(x, scale float64) float64 {
	if scale <= 0 {
		return 1.0
	}
	if x < 0 {
		x = 0
	}
	return math.Min(1.0, math.Sqrt(x/scale))
}

// Threshold pairs a count with the score awarded once the count is reached.
type Threshold struct {
	Count int
	Score float64
}

// CountScore returns the score of the highest threshold that n meets.
// Thresholds need not be sorted; counts below every threshold score 0.
func CountScore(n int, thresholds []Threshold) float64 {
	sorted := make([]Threshold, len(thresholds))
	copy(sorted, thresholds)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Count < sorted[j].Count })

	result := 0.0
	for _, t := range sorted {
		if n >= t.Count {
			result = t.Score
		}
	}
	return result
}

// Dimension is one component of a composite score: a value in [0,1] and its
// relative weight.
type Dimension struct {
	Score  float64
	Weight float64
}

// WeightedSum combines dimensions into a 0-100 composite. Weights are
// normalized by their sum; zero total weight yields 0.
func WeightedSum(dimensions []Dimension) float64 {
	totalW := 0.0
	for _, d := range dimensions {
		totalW += d.Weight
	}
	if totalW == 0 {
		return 0.0
	}
	sum := 0.0
	for _, d := range dimensions {
		sum += d.Score * d.Weight
	}
	return 100.0 * sum / totalW
}
