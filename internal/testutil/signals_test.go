package testutil

import (
	"math"
	"testing"
)

func TestDeterministicSine(t *testing.T) {
	s := DeterministicSine(1000, 48000, 1.0, 48)
	if len(s) != 48 {
		t.Fatalf("len = %d, want 48", len(s))
	}
	if math.Abs(s[0]) > 1e-15 {
		t.Fatalf("s[0] = %v, want 0", s[0])
	}
	for i, v := range s {
		if v < -1 || v > 1 {
			t.Fatalf("s[%d] = %v out of range", i, v)
		}
	}
}

func TestDC(t *testing.T) {
	d := DC(0.5, 4)
	for i, v := range d {
		if v != 0.5 {
			t.Fatalf("DC[%d] = %v, want 0.5", i, v)
		}
	}
}

func TestRamp(t *testing.T) {
	r := Ramp(0, 0.252, 250)
	if len(r) != 250 {
		t.Fatalf("len = %d, want 250", len(r))
	}
	if r[0] != 0 {
		t.Fatalf("r[0] = %v, want 0", r[0])
	}
	if math.Abs(r[249]-0.252) > 1e-15 {
		t.Fatalf("r[249] = %v, want 0.252", r[249])
	}
	for i := 1; i < len(r); i++ {
		if r[i] <= r[i-1] {
			t.Fatalf("ramp not increasing at %d", i)
		}
	}

	if one := Ramp(3, 9, 1); len(one) != 1 || one[0] != 3 {
		t.Fatalf("Ramp(3, 9, 1) = %v, want [3]", one)
	}
}

func TestConcat(t *testing.T) {
	c := Concat([]float64{1, 2}, nil, []float64{3})
	if len(c) != 3 || c[0] != 1 || c[2] != 3 {
		t.Fatalf("Concat = %v, want [1 2 3]", c)
	}
}
