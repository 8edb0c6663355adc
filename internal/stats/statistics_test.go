package stats

import (
	"math"
	"testing"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestPercentile(t *testing.T) {
	values := []float64{10, 20, 30, 40, 50}

	if p := Percentile(values, 0); !almostEqual(p, 10) {
		t.Errorf("p0 = %v, want 10", p)
	}
	if p := Percentile(values, 100); !almostEqual(p, 50) {
		t.Errorf("p100 = %v, want 50", p)
	}
	if p := Percentile(values, 50); !almostEqual(p, 30) {
		t.Errorf("p50 = %v, want 30", p)
	}
	if p := Percentile(nil, 50); p != 0 {
		t.Errorf("p50 of empty = %v, want 0", p)
	}
}

func TestMeanAndMaxAbsDeviation(t *testing.T) {
	values := []float64{100, 200, 300}
	mean, maxDev := MaxAbsDeviation(values)
	if !almostEqual(mean, 200) {
		t.Errorf("mean = %v, want 200", mean)
	}
	if !almostEqual(maxDev, 100) {
		t.Errorf("maxDev = %v, want 100", maxDev)
	}

	if Mean(nil) != 0 {
		t.Errorf("Mean(nil) should be 0")
	}
}

func TestRingBuffer(t *testing.T) {
	rb := NewRingBuffer(3)
	rb.Add(1)
	rb.Add(2)
	if got := rb.Values(); len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Errorf("Values() = %v, want [1 2]", got)
	}

	rb.Add(3)
	rb.Add(4) // wraps, evicting 1
	got := rb.Values()
	if len(got) != 3 {
		t.Fatalf("Values() len = %d, want 3", len(got))
	}
	if got[0] != 2 || got[1] != 3 || got[2] != 4 {
		t.Errorf("Values() = %v, want [2 3 4]", got)
	}
}
