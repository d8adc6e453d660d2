package dynamics

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-comp/dsp/core"
)

// DeviceKind enumerates the hardware topologies the device stage emulates.
type DeviceKind int

const (
	// DeviceIdeal passes the smoothed reduction through unchanged (peak style).
	DeviceIdeal DeviceKind = iota
	// DeviceOptical emulates a photocell whose speed depends on how hard it
	// is driven.
	DeviceOptical
	// DeviceVCA emulates an RMS detector driving a VCA.
	DeviceVCA
)

func (k DeviceKind) String() string {
	switch k {
	case DeviceIdeal:
		return "ideal"
	case DeviceOptical:
		return "optical"
	case DeviceVCA:
		return "vca"
	default:
		return fmt.Sprintf("DeviceKind(%d)", int(k))
	}
}

// DeviceModel is the configuration of the device stage. Only the fields of
// the selected Kind are used.
type DeviceModel struct {
	Kind DeviceKind

	// Optical: table covers Steps dB in CoeffsPerStep increments per dB.
	Steps         int
	CoeffsPerStep int

	// VCA: RMS window time constant. Zero makes the stage pass-through.
	WindowMs float64
}

// IdealModel returns the pass-through device configuration.
func IdealModel() DeviceModel {
	return DeviceModel{Kind: DeviceIdeal}
}

// OpticalModel returns a photocell configuration covering steps dB of
// reduction with coeffsPerStep table entries per dB.
func OpticalModel(steps, coeffsPerStep int) DeviceModel {
	return DeviceModel{Kind: DeviceOptical, Steps: steps, CoeffsPerStep: coeffsPerStep}
}

// VCAModel returns an RMS-detector configuration with the given window.
func VCAModel(windowMs float64) DeviceModel {
	return DeviceModel{Kind: DeviceVCA, WindowMs: windowMs}
}

// normalize validates m and clamps its numeric fields.
func (m DeviceModel) normalize() (DeviceModel, error) {
	switch m.Kind {
	case DeviceIdeal:
		return DeviceModel{Kind: DeviceIdeal}, nil
	case DeviceOptical:
		return DeviceModel{
			Kind:          DeviceOptical,
			Steps:         max(m.Steps, 1),
			CoeffsPerStep: max(m.CoeffsPerStep, 1),
		}, nil
	case DeviceVCA:
		if !core.IsFinite(m.WindowMs) {
			return DeviceModel{}, errNotFinite("vca window", m.WindowMs)
		}

		return DeviceModel{Kind: DeviceVCA, WindowMs: core.ClampMin(m.WindowMs, 0)}, nil
	default:
		return DeviceModel{}, fmt.Errorf("%w: %d", ErrInvalidDeviceModel, int(m.Kind))
	}
}

// device holds the per-instance state of the selected model. Dispatch is a
// single switch on kind; no interface call on the sample path.
type device struct {
	kind    DeviceKind
	optical opticalCell
	vca     rmsDetector
}

// newDevice builds device state for a normalized model. Optical tables are
// allocated here, never while processing.
func newDevice(m DeviceModel, sampleRate float64) device {
	d := device{kind: m.Kind}

	switch m.Kind {
	case DeviceOptical:
		d.optical = newOpticalCell(sampleRate, m.Steps, m.CoeffsPerStep)
	case DeviceVCA:
		d.vca = newRMSDetector(sampleRate, m.WindowMs)
	}

	return d
}

// GainReduction maps the smoothed reduction and the ideal target to the
// final reduction in dB.
func (d *device) GainReduction(smoothed, ideal float64) float64 {
	switch d.kind {
	case DeviceOptical:
		return d.optical.process(smoothed, ideal)
	case DeviceVCA:
		return d.vca.process(ideal)
	default:
		return smoothed
	}
}

func (d *device) reset() {
	d.optical.current = 0
	d.vca.meanSquare = 0
}

const (
	// opticalSettleFraction is the remaining distance after one cell time
	// constant.
	opticalSettleFraction = 0.27

	// opticalResistanceScale and opticalResistanceOffset shape the cell
	// resistance 480 / (3 + reductionDB).
	opticalResistanceScale  = 480.0
	opticalResistanceOffset = 3.0

	// opticalAttackDivisor makes attack ten times faster than release.
	opticalAttackDivisor = 10.0

	// opticalLimitDB is the ceiling of the soft limiter applied to the
	// tracking gap.
	opticalLimitDB = 24.0
)

// opticalCell emulates a light-dependent resistor. Its time constants shrink
// as reduction grows, and the gap to the ideal target is softly limited.
type opticalCell struct {
	coeffsPerStep float64
	lastIndex     float64

	attackCoeffs  []float64
	releaseCoeffs []float64

	current float64
	limitDB float64
}

func newOpticalCell(sampleRate float64, steps, coeffsPerStep int) opticalCell {
	total := steps * coeffsPerStep
	o := opticalCell{
		coeffsPerStep: float64(coeffsPerStep),
		lastIndex:     float64(total - 1),
		attackCoeffs:  make([]float64, total),
		releaseCoeffs: make([]float64, total),
		limitDB:       opticalLimitDB,
	}

	for i := range total {
		stepDB := float64(i) / float64(coeffsPerStep)
		resistance := opticalResistanceScale / (opticalResistanceOffset + stepDB)

		o.attackCoeffs[i] = settleCoeff(opticalSettleFraction, resistance/opticalAttackDivisor, sampleRate)
		o.releaseCoeffs[i] = settleCoeff(opticalSettleFraction, resistance, sampleRate)
	}

	return o
}

// index quantizes a reduction to a table position.
func (o *opticalCell) index(reduction float64) int {
	pos := reduction * o.coeffsPerStep
	if !(pos > 0) {
		return 0
	}

	return int(core.Clamp(pos, 0, o.lastIndex))
}

func (o *opticalCell) process(reduction, ideal float64) float64 {
	i := o.index(reduction)

	coeff := o.releaseCoeffs[i]
	if reduction > o.current {
		coeff = o.attackCoeffs[i]
	}

	o.current = core.FlushDenormals(onePole(coeff, o.current, reduction))

	if o.current >= ideal {
		return o.current
	}

	// The cell lags the target: close the gap softly, never by more than
	// limitDB.
	diff := ideal - o.current

	return ideal - (o.limitDB - o.limitDB/(1+diff/o.limitDB))
}

// rmsDetector is a one-pole mean-square follower over the ideal reduction.
type rmsDetector struct {
	windowMs   float64
	coeff      float64
	meanSquare float64
}

func newRMSDetector(sampleRate, windowMs float64) rmsDetector {
	return rmsDetector{
		windowMs: windowMs,
		coeff:    settleCoeff(curveSettleFraction, windowMs, sampleRate),
	}
}

func (r *rmsDetector) process(ideal float64) float64 {
	if r.windowMs == 0 {
		return ideal
	}

	r.meanSquare = core.FlushDenormals(onePole(r.coeff, r.meanSquare, ideal*ideal))

	return mathSqrt(math.Max(r.meanSquare, 0))
}
