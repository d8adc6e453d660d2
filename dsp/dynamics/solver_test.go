package dynamics

import (
	"math"
	"testing"
)

type solverConfig struct {
	name        string
	thresholdDB float64
	ratio       float64
	kneeDB      float64
}

var solverConfigs = []solverConfig{
	{"hard -20 4:1", -20, 4, 0},
	{"soft -20 4:1 6dB", -20, 4, 6},
	{"soft -12.5 2:1 2.5dB", -12.5, 2, 2.5},
	{"soft -30 10:1 12dB", -30, 10, 12},
	{"soft -6 1:1 4dB", -6, 1, 4},
	{"soft -18 inf 8dB", -18, math.Inf(1), 8},
}

func newTestSolver(t *testing.T, cfg solverConfig) *Solver {
	t.Helper()

	s := NewSolver()
	if err := s.SetThreshold(cfg.thresholdDB); err != nil {
		t.Fatal(err)
	}
	if err := s.SetRatio(cfg.ratio); err != nil {
		t.Fatal(err)
	}
	if err := s.SetKneeWidth(cfg.kneeDB); err != nil {
		t.Fatal(err)
	}

	return s
}

func TestSolverDefaults(t *testing.T) {
	s := NewSolver()

	if s.Threshold() != defaultThresholdDB {
		t.Errorf("Threshold() = %f, want %f", s.Threshold(), defaultThresholdDB)
	}
	if s.Ratio() != defaultRatio {
		t.Errorf("Ratio() = %f, want %f", s.Ratio(), defaultRatio)
	}
	if s.Slope() != 0.75 {
		t.Errorf("Slope() = %f, want 0.75", s.Slope())
	}
	if s.KneeWidth() != 0 {
		t.Errorf("KneeWidth() = %f, want 0", s.KneeWidth())
	}
}

func TestSolverBelowKneeIsZero(t *testing.T) {
	for _, cfg := range solverConfigs {
		t.Run(cfg.name, func(t *testing.T) {
			s := newTestSolver(t, cfg)
			lower := cfg.thresholdDB - cfg.kneeDB/2

			for level := lower - 60; level <= lower; level += 0.25 {
				if got := s.IdealReduction(level); got != 0 {
					t.Fatalf("IdealReduction(%f) = %v, want 0", level, got)
				}
			}

			if got := s.IdealReduction(lower); got != 0 {
				t.Fatalf("IdealReduction(lower boundary %f) = %v, want 0", lower, got)
			}
		})
	}
}

func TestSolverAboveKneeIsHardKneeLine(t *testing.T) {
	for _, cfg := range solverConfigs {
		t.Run(cfg.name, func(t *testing.T) {
			s := newTestSolver(t, cfg)
			upper := cfg.thresholdDB + cfg.kneeDB/2

			for k := range 200 {
				level := upper + 0.25*float64(k)
				want := (level - cfg.thresholdDB) * (1 - 1/cfg.ratio)

				if got := s.IdealReduction(level); got != want {
					t.Fatalf("IdealReduction(%f) = %v, want %v", level, got, want)
				}
			}
		})
	}
}

func TestSolverKneeContinuity(t *testing.T) {
	const delta = 1e-9

	for _, cfg := range solverConfigs {
		t.Run(cfg.name, func(t *testing.T) {
			s := newTestSolver(t, cfg)

			for _, boundary := range []float64{
				cfg.thresholdDB - cfg.kneeDB/2,
				cfg.thresholdDB + cfg.kneeDB/2,
			} {
				below := s.IdealReduction(boundary - delta)
				above := s.IdealReduction(boundary + delta)

				if math.Abs(above-below) > 1e-6 {
					t.Fatalf("jump at %f: %v -> %v", boundary, below, above)
				}
			}
		})
	}
}

func TestSolverMonotonic(t *testing.T) {
	for _, cfg := range solverConfigs {
		t.Run(cfg.name, func(t *testing.T) {
			s := newTestSolver(t, cfg)
			prev := s.IdealReduction(-120)

			for level := -120.0; level <= 24; level += 0.01 {
				got := s.IdealReduction(level)
				if got < 0 {
					t.Fatalf("IdealReduction(%f) = %v, want >= 0", level, got)
				}
				if got < prev-1e-12 {
					t.Fatalf("not monotonic at %f: %v < %v", level, got, prev)
				}
				prev = got
			}
		})
	}
}

func TestSolverKneeMidpoint(t *testing.T) {
	s := newTestSolver(t, solverConfig{thresholdDB: -20, ratio: 2, kneeDB: 8})

	// (knee/2)^2 / (2*knee) * (1 - 1/2) = 16/16 * 0.5
	if got := s.IdealReduction(-20); math.Abs(got-0.5) > 1e-12 {
		t.Fatalf("IdealReduction(threshold) = %v, want 0.5", got)
	}
}

func TestSolverClamping(t *testing.T) {
	s := NewSolver()

	tests := []struct {
		name      string
		apply     func() error
		check     func() bool
		wantError bool
	}{
		{"ratio below 1", func() error { return s.SetRatio(0.5) }, func() bool { return s.Ratio() == 1 && s.Slope() == 0 }, false},
		{"ratio negative", func() error { return s.SetRatio(-3) }, func() bool { return s.Ratio() == 1 }, false},
		{"ratio infinite", func() error { return s.SetRatio(math.Inf(1)) }, func() bool { return s.Slope() == 1 }, false},
		{"ratio NaN", func() error { return s.SetRatio(math.NaN()) }, func() bool { return s.Slope() == 1 }, true},
		{"knee negative", func() error { return s.SetKneeWidth(-3) }, func() bool { return s.KneeWidth() == 0 }, false},
		{"knee NaN", func() error { return s.SetKneeWidth(math.NaN()) }, func() bool { return s.KneeWidth() == 0 }, true},
		{"threshold Inf", func() error { return s.SetThreshold(math.Inf(-1)) }, func() bool { return s.Threshold() == defaultThresholdDB }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.apply()
			if (err != nil) != tt.wantError {
				t.Fatalf("error = %v, wantError %v", err, tt.wantError)
			}
			if !tt.check() {
				t.Fatal("unexpected solver state after setter")
			}
		})
	}
}

func TestSolverUnityRatioNeverReduces(t *testing.T) {
	s := newTestSolver(t, solverConfig{thresholdDB: -40, ratio: 1, kneeDB: 6})

	for level := -60.0; level <= 20; level += 1 {
		if got := s.IdealReduction(level); got != 0 {
			t.Fatalf("IdealReduction(%f) = %v, want 0 at 1:1", level, got)
		}
	}
}
