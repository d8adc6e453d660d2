package dynamics

import (
	"fmt"

	"github.com/cwbudde/algo-comp/dsp/core"
)

const (
	defaultAttackMs  = 10.0
	defaultReleaseMs = 100.0

	// curveSettleFraction is the remaining distance to target after one
	// attack (or release) time constant.
	curveSettleFraction = 0.1

	// releaseSpanDB is the distance the linear release covers in one
	// release time.
	releaseSpanDB = 10.0
)

// CurveType selects the time-domain smoothing law of the envelope curve.
type CurveType int

const (
	// CurveLinear attacks with a one-pole filter and releases at a constant
	// dB-per-sample rate.
	CurveLinear CurveType = iota
	// CurveSmoothDecoupled is a placeholder for a decoupled peak detector
	// with separate attack and release integrators. Not implemented.
	CurveSmoothDecoupled
	// CurveSmoothBranching is a placeholder for a branching smooth detector.
	// Not implemented.
	CurveSmoothBranching
)

func (t CurveType) String() string {
	switch t {
	case CurveLinear:
		return "linear"
	case CurveSmoothDecoupled:
		return "smooth-decoupled"
	case CurveSmoothBranching:
		return "smooth-branching"
	default:
		return fmt.Sprintf("CurveType(%d)", int(t))
	}
}

// Validate reports whether t can be used on the sample path.
func (t CurveType) Validate() error {
	switch t {
	case CurveLinear:
		return nil
	case CurveSmoothDecoupled, CurveSmoothBranching:
		return fmt.Errorf("%w: %s", ErrCurveNotImplemented, t)
	default:
		return fmt.Errorf("%w: %d", ErrInvalidCurveType, int(t))
	}
}

// Curve smooths the ideal reduction over time. The running reduction is not
// stored here: callers thread it through Apply so one Curve configuration
// could drive any number of states.
type Curve struct {
	sampleRate float64
	attackMs   float64
	releaseMs  float64

	attackCoeff  float64
	releaseCoeff float64
	releaseStep  float64 // dB per sample
}

// NewCurve creates a curve with 10 ms attack and 100 ms release.
func NewCurve(sampleRate float64) (*Curve, error) {
	if err := validateSampleRate(sampleRate); err != nil {
		return nil, err
	}

	c := &Curve{
		sampleRate: sampleRate,
		attackMs:   defaultAttackMs,
		releaseMs:  defaultReleaseMs,
	}
	c.updateAttack()
	c.updateRelease()

	return c, nil
}

// SetSampleRate recomputes both coefficients for a new sample rate.
func (c *Curve) SetSampleRate(sampleRate float64) error {
	if err := validateSampleRate(sampleRate); err != nil {
		return err
	}

	c.sampleRate = sampleRate
	c.updateAttack()
	c.updateRelease()

	return nil
}

// SetAttack sets the attack time in milliseconds. Negative values clamp to
// 0, which makes rising reduction track its target on the next sample.
func (c *Curve) SetAttack(ms float64) error {
	if !core.IsFinite(ms) {
		return errNotFinite("attack", ms)
	}

	c.attackMs = core.ClampMin(ms, 0)
	c.updateAttack()

	return nil
}

// SetRelease sets the release time in milliseconds. Negative values clamp
// to 0, which makes falling reduction track its target instantly.
func (c *Curve) SetRelease(ms float64) error {
	if !core.IsFinite(ms) {
		return errNotFinite("release", ms)
	}

	c.releaseMs = core.ClampMin(ms, 0)
	c.updateRelease()

	return nil
}

func (c *Curve) updateAttack() {
	c.attackCoeff = settleCoeff(curveSettleFraction, c.attackMs, c.sampleRate)
}

func (c *Curve) updateRelease() {
	c.releaseCoeff = settleCoeff(curveSettleFraction, c.releaseMs, c.sampleRate)

	if c.releaseMs <= 0 {
		c.releaseStep = 0
		return
	}

	c.releaseStep = releaseSpanDB / (c.releaseMs * 0.001 * c.sampleRate)
}

// SampleRate returns the sample rate in Hz.
func (c *Curve) SampleRate() float64 { return c.sampleRate }

// Attack returns the attack time in ms.
func (c *Curve) Attack() float64 { return c.attackMs }

// Release returns the release time in ms.
func (c *Curve) Release() float64 { return c.releaseMs }

// AttackCoeff returns the one-pole attack coefficient.
func (c *Curve) AttackCoeff() float64 { return c.attackCoeff }

// ReleaseCoeff returns the one-pole coefficient for the release time
// constant. The linear curve releases by ReleaseStep instead.
func (c *Curve) ReleaseCoeff() float64 { return c.releaseCoeff }

// ReleaseStep returns the linear release rate in dB per sample.
func (c *Curve) ReleaseStep() float64 { return c.releaseStep }

// Apply advances the curve by one sample. curr is the stored reduction from
// the previous call and target the ideal reduction for this sample. It
// returns the reduction to use downstream and the state to store for the
// next call.
//
// Apply panics with ErrCurveNotImplemented or ErrInvalidCurveType when kind
// has no transfer function.
func (c *Curve) Apply(curr, target float64, kind CurveType) (out, next float64) {
	switch kind {
	case CurveLinear:
		return c.linear(curr, target)
	default:
		panic(kind.Validate())
	}
}

func (c *Curve) linear(curr, target float64) (out, next float64) {
	if target >= curr {
		r := onePole(c.attackCoeff, curr, target)
		return r, r
	}

	if c.releaseStep == 0 {
		return target, target
	}

	next = curr - c.releaseStep
	if next < target {
		// Overshot the target: hold the output there while the state keeps
		// falling. Reduction never goes negative.
		return target, core.ClampMin(next, 0)
	}

	return next, next
}
