package dynamics

import (
	"math"

	"github.com/cwbudde/algo-comp/dsp/core"
)

const (
	defaultThresholdDB = -20.0
	defaultRatio       = 4.0
	defaultKneeDB      = 0.0

	minRatio = 1.0
)

// Solver maps an instantaneous input level to the ideal, unsmoothed gain
// reduction in dB. It holds configuration only; IdealReduction has no side
// effects.
type Solver struct {
	thresholdDB float64
	ratio       float64

	// slope is 1 - 1/ratio: 0 for 1:1, 1 for ∞:1.
	slope float64

	kneeDB       float64
	halfKneeDB   float64
	doubleKneeDB float64
}

// NewSolver returns a hard-knee solver at -20 dB, 4:1.
func NewSolver() *Solver {
	s := &Solver{thresholdDB: defaultThresholdDB}
	s.updateRatio(defaultRatio)
	s.updateKneeWidth(defaultKneeDB)

	return s
}

// SetThreshold sets the threshold in dB.
func (s *Solver) SetThreshold(dB float64) error {
	if !core.IsFinite(dB) {
		return errNotFinite("threshold", dB)
	}

	s.thresholdDB = dB

	return nil
}

// SetRatio sets the compression ratio. Values below 1 are clamped to 1;
// +Inf is accepted and selects limiting (slope 1).
func (s *Solver) SetRatio(ratio float64) error {
	if math.IsNaN(ratio) {
		return errNotFinite("ratio", ratio)
	}

	s.updateRatio(ratio)

	return nil
}

// SetKneeWidth sets the knee width in dB. Negative widths are clamped to 0,
// which selects the hard-knee formula.
func (s *Solver) SetKneeWidth(dB float64) error {
	if !core.IsFinite(dB) {
		return errNotFinite("knee width", dB)
	}

	s.updateKneeWidth(dB)

	return nil
}

func (s *Solver) updateRatio(ratio float64) {
	ratio = core.ClampMin(ratio, minRatio)
	s.ratio = ratio
	s.slope = 1 - 1/ratio
}

func (s *Solver) updateKneeWidth(dB float64) {
	dB = core.ClampMin(dB, 0)
	s.kneeDB = dB
	s.halfKneeDB = dB * 0.5
	s.doubleKneeDB = dB * 2
}

// Threshold returns the threshold in dB.
func (s *Solver) Threshold() float64 { return s.thresholdDB }

// Ratio returns the compression ratio as configured (after clamping).
func (s *Solver) Ratio() float64 { return s.ratio }

// Slope returns the stored 1 - 1/ratio factor.
func (s *Solver) Slope() float64 { return s.slope }

// KneeWidth returns the knee width in dB.
func (s *Solver) KneeWidth() float64 { return s.kneeDB }

// IdealReduction returns the reduction in dB (>= 0) for an input level in dB.
//
// With a soft knee the curve has three regions around threshold ± knee/2:
// no reduction below, the hard-knee line above, and a quadratic blend
// (diff + knee/2)² / (2·knee) · slope inside. The blend meets both
// neighbours with matching value, so the curve is continuous and
// non-decreasing.
func (s *Solver) IdealReduction(levelDB float64) float64 {
	diff := levelDB - s.thresholdDB

	if s.kneeDB == 0 {
		if diff <= 0 {
			return 0
		}

		return diff * s.slope
	}

	if diff <= -s.halfKneeDB {
		return 0
	}

	if diff >= s.halfKneeDB {
		return diff * s.slope
	}

	factor := diff + s.halfKneeDB

	return factor * factor / s.doubleKneeDB * s.slope
}
