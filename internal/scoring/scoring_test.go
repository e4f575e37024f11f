package scoring

import (
	"math"
	"testing"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestSigmoidMidpoint(t *testing.T) {
	if got := Sigmoid(0.5, 0.5, 10); !almostEqual(got, 0.5) {
		t.Errorf("Sigmoid at midpoint = %v, want 0.5", got)
	}
}

func TestSigmoidSymmetry(t *testing.T) {
	// f(mid+d) + f(mid-d) == 1 for any d.
	for _, d := range []float64{0.1, 0.25, 1, 3} {
		hi := Sigmoid(0.5+d, 0.5, 8)
		lo := Sigmoid(0.5-d, 0.5, 8)
		if !almostEqual(hi+lo, 1.0) {
			t.Errorf("symmetry broken at d=%v: %v + %v = %v", d, hi, lo, hi+lo)
		}
	}
}

func TestSigmoidMonotonic(t *testing.T) {
	prev := Sigmoid(-10, 0, 2)
	for x := -9.0; x <= 10; x++ {
		cur := Sigmoid(x, 0, 2)
		if cur <= prev {
			t.Fatalf("not increasing at x=%v: %v <= %v", x, cur, prev)
		}
		prev = cur
	}
}

func TestSigmoidExtremeInputsSaturate(t *testing.T) {
	hi := Sigmoid(1e9, 0.5, 10)
	lo := Sigmoid(-1e9, 0.5, 10)
	if math.IsNaN(hi) || math.IsInf(hi, 0) || hi < 0.999 {
		t.Errorf("large input should saturate near 1, got %v", hi)
	}
	if math.IsNaN(lo) || math.IsInf(lo, 0) || lo > 0.001 {
		t.Errorf("large negative input should saturate near 0, got %v", lo)
	}
}

func TestBellPeak(t *testing.T) {
	if got := Bell(5, 5, 2); !almostEqual(got, 1.0) {
		t.Errorf("Bell at center = %v, want 1.0", got)
	}
	if got := Bell(7, 5, 2); got >= 1.0 || got <= 0 {
		t.Errorf("Bell off center should be in (0,1), got %v", got)
	}
	// Symmetric decay.
	if l, r := Bell(3, 5, 2), Bell(7, 5, 2); !almostEqual(l, r) {
		t.Errorf("Bell not symmetric: %v vs %v", l, r)
	}
}

func TestBellZeroWidth(t *testing.T) {
	if got := Bell(5, 5, 0); got != 1.0 {
		t.Errorf("Bell exact match with width 0 = %v, want 1.0", got)
	}
	if got := Bell(5.0001, 5, 0); got != 0.0 {
		t.Errorf("Bell miss with width 0 = %v, want 0.0", got)
	}
}

func TestLinearClamp(t *testing.T) {
	if got := LinearClamp(-1, 0, 10); got != 0 {
		t.Errorf("below low = %v, want 0", got)
	}
	if got := LinearClamp(20, 0, 10); got != 1 {
		t.Errorf("above high = %v, want 1", got)
	}
	if got := LinearClamp(5, 0, 10); !almostEqual(got, 0.5) {
		t.Errorf("midway = %v, want 0.5", got)
	}
}

func TestLinearClampDegenerateRange(t *testing.T) {
	if got := LinearClamp(5, 5, 5); got != 1.0 {
		t.Errorf("x at collapsed bound = %v, want 1.0", got)
	}
	if got := LinearClamp(4, 5, 5); got != 0.0 {
		t.Errorf("x below collapsed bound = %v, want 0.0", got)
	}
	if got := LinearClamp(10, 8, 3); got != 1.0 {
		t.Errorf("inverted range acts as step at high, got %v", got)
	}
}

func TestDiminishing(t *testing.T) {
	if got := Diminishing(0, 4); got != 0 {
		t.Errorf("Diminishing(0) = %v, want 0", got)
	}
	if got := Diminishing(4, 4); !almostEqual(got, 1.0) {
		t.Errorf("Diminishing at scale = %v, want 1.0", got)
	}
	if got := Diminishing(100, 4); got != 1.0 {
		t.Errorf("Diminishing beyond scale = %v, want 1.0 cap", got)
	}
	if got := Diminishing(1, 4); !almostEqual(got, 0.5) {
		t.Errorf("Diminishing(1,4) = %v, want 0.5", got)
	}
	if got := Diminishing(-3, 4); got != 0 {
		t.Errorf("negative input = %v, want 0", got)
	}
	if got := Diminishing(3, 0); got != 1.0 {
		t.Errorf("zero scale = %v, want 1.0", got)
	}
}

func TestCountScore(t *testing.T) {
	thresholds := []Threshold{{5, 1.0}, {1, 0.4}, {3, 0.7}}
	cases := []struct {
		n    int
		want float64
	}{
		{0, 0.0},
		{1, 0.4},
		{2, 0.4},
		{3, 0.7},
		{4, 0.7},
		{5, 1.0},
		{100, 1.0},
	}
	for _, c := range cases {
		if got := CountScore(c.n, thresholds); got != c.want {
			t.Errorf("CountScore(%d) = %v, want %v", c.n, got, c.want)
		}
	}
}

func TestCountScoreMonotonic(t *testing.T) {
	thresholds := []Threshold{{1, 0.25}, {2, 0.5}, {4, 0.75}, {8, 1.0}}
	prev := 0.0
	for n := 0; n <= 10; n++ {
		cur := CountScore(n, thresholds)
		if cur < prev {
			t.Fatalf("not monotone at n=%d: %v < %v", n, cur, prev)
		}
		prev = cur
	}
}

func TestWeightedSum(t *testing.T) {
	got := WeightedSum([]Dimension{{1.0, 2}, {0.0, 2}})
	if !almostEqual(got, 50.0) {
		t.Errorf("WeightedSum = %v, want 50", got)
	}
}

func TestWeightedSumZeroWeight(t *testing.T) {
	if got := WeightedSum(nil); got != 0 {
		t.Errorf("empty dimensions = %v, want 0", got)
	}
	if got := WeightedSum([]Dimension{{0.9, 0}}); got != 0 {
		t.Errorf("zero total weight = %v, want 0", got)
	}
}

func TestWeightedSumNormalizes(t *testing.T) {
	// Scaling all weights by a constant must not change the result.
	a := WeightedSum([]Dimension{{0.8, 1}, {0.2, 3}})
	b := WeightedSum([]Dimension{{0.8, 10}, {0.2, 30}})
	if !almostEqual(a, b) {
		t.Errorf("weight scaling changed result: %v vs %v", a, b)
	}
}

func TestWeightedSumBounds(t *testing.T) {
	if got := WeightedSum([]Dimension{{1, 1}, {1, 2}}); !almostEqual(got, 100) {
		t.Errorf("all-ones = %v, want 100", got)
	}
	if got := WeightedSum([]Dimension{{0, 1}, {0, 2}}); got != 0 {
		t.Errorf("all-zeros = %v, want 0", got)
	}
}
