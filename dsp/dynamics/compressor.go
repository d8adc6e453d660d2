package dynamics

import (
	"math"

	"github.com/cwbudde/algo-comp/dsp/core"
	"github.com/cwbudde/algo-vecmath"
)

const defaultMakeupGainDB = 0.0

// CompressorMetrics holds metering information for visualization and analysis.
type CompressorMetrics struct {
	InputPeak      float64 // Maximum input level since last reset
	OutputPeak     float64 // Maximum output level since last reset
	MaxReductionDB float64 // Largest final reduction applied since last reset
}

// Compressor is the per-sample gain-reduction engine. Each sample runs
// level -> Solver -> Curve -> device model -> gain.
//
// A Compressor is mono and owns all of its state. Use one instance per
// channel or band and never share one between goroutines. Setters belong to
// the control path: call them between processing blocks, not concurrently
// with ProcessSample. Only SetSampleRate, SetDeviceModel and
// SetMaxBlockSize allocate.
type Compressor struct {
	sampleRate float64

	solver    *Solver
	curve     *Curve
	curveType CurveType
	model     DeviceModel
	device    device

	makeupGainDB float64
	bypass       bool

	// Per-sample state
	currReduction float64 // Curve state carried between samples
	lastReduction float64 // Final reduction of the latest sample
	lastGain      float64 // Linear multiplier of the latest sample, makeup included

	gains   []float64 // Block scratch, grown by SetMaxBlockSize or on demand
	metrics CompressorMetrics
}

// NewCompressor creates a compressor with defaults:
//   - Threshold: -20 dB
//   - Ratio: 4:1
//   - Knee: 0 dB (hard)
//   - Attack: 10 ms
//   - Release: 100 ms
//   - Curve: linear
//   - Device model: ideal
//   - Makeup gain: 0 dB
func NewCompressor(sampleRate float64) (*Compressor, error) {
	curve, err := NewCurve(sampleRate)
	if err != nil {
		return nil, err
	}

	c := &Compressor{
		sampleRate:   sampleRate,
		solver:       NewSolver(),
		curve:        curve,
		curveType:    CurveLinear,
		model:        IdealModel(),
		makeupGainDB: defaultMakeupGainDB,
		lastGain:     1,
	}
	c.device = newDevice(c.model, sampleRate)
	c.ResetMetrics()

	return c, nil
}

// SetSampleRate changes the sample rate and recomputes every derived
// coefficient, including the optical tables. Running state is kept.
func (c *Compressor) SetSampleRate(sampleRate float64) error {
	if err := c.curve.SetSampleRate(sampleRate); err != nil {
		return err
	}

	c.sampleRate = sampleRate
	c.rebuildDevice()

	return nil
}

// SetThreshold sets the threshold in dB.
func (c *Compressor) SetThreshold(dB float64) error {
	return c.solver.SetThreshold(dB)
}

// SetRatio sets the compression ratio; values below 1 clamp to 1.
func (c *Compressor) SetRatio(ratio float64) error {
	return c.solver.SetRatio(ratio)
}

// SetKnee sets the soft-knee width in dB; negative values clamp to 0.
func (c *Compressor) SetKnee(dB float64) error {
	return c.solver.SetKneeWidth(dB)
}

// SetAttack sets the attack time in ms; negative values clamp to 0.
func (c *Compressor) SetAttack(ms float64) error {
	return c.curve.SetAttack(ms)
}

// SetRelease sets the release time in ms; negative values clamp to 0.
func (c *Compressor) SetRelease(ms float64) error {
	return c.curve.SetRelease(ms)
}

// SetCurveType selects the envelope curve. Placeholder variants are
// rejected with ErrCurveNotImplemented and the current curve is kept.
func (c *Compressor) SetCurveType(t CurveType) error {
	if err := t.Validate(); err != nil {
		return err
	}

	c.curveType = t

	return nil
}

// SetDeviceModel selects the device emulation. The new model starts from a
// clean state.
func (c *Compressor) SetDeviceModel(m DeviceModel) error {
	m, err := m.normalize()
	if err != nil {
		return err
	}

	c.model = m
	c.device = newDevice(m, c.sampleRate)

	return nil
}

// SetBypass enables or disables bypass. A bypassed compressor returns its
// input and leaves all state untouched.
func (c *Compressor) SetBypass(bypass bool) {
	c.bypass = bypass
}

// SetMakeupGain sets the gain in dB applied after reduction.
func (c *Compressor) SetMakeupGain(dB float64) error {
	if !core.IsFinite(dB) {
		return errNotFinite("makeup gain", dB)
	}

	c.makeupGainDB = dB

	return nil
}

// SetMaxBlockSize preallocates block scratch so ProcessInPlace and
// ProcessBlockSidechain never allocate for blocks up to n samples.
func (c *Compressor) SetMaxBlockSize(n int) {
	if n > cap(c.gains) {
		c.gains = make([]float64, n)
	}
}

func (c *Compressor) rebuildDevice() {
	current := c.device
	c.device = newDevice(c.model, c.sampleRate)
	c.device.optical.current = current.optical.current
	c.device.vca.meanSquare = current.vca.meanSquare
}

// Threshold returns the current threshold in dB.
func (c *Compressor) Threshold() float64 { return c.solver.Threshold() }

// Ratio returns the current compression ratio.
func (c *Compressor) Ratio() float64 { return c.solver.Ratio() }

// Knee returns the current soft-knee width in dB.
func (c *Compressor) Knee() float64 { return c.solver.KneeWidth() }

// Attack returns the current attack time in ms.
func (c *Compressor) Attack() float64 { return c.curve.Attack() }

// Release returns the current release time in ms.
func (c *Compressor) Release() float64 { return c.curve.Release() }

// MakeupGain returns the current makeup gain in dB.
func (c *Compressor) MakeupGain() float64 { return c.makeupGainDB }

// Bypass reports whether the compressor is bypassed.
func (c *Compressor) Bypass() bool { return c.bypass }

// CurveType returns the selected envelope curve.
func (c *Compressor) CurveType() CurveType { return c.curveType }

// DeviceModel returns the normalized device model configuration.
func (c *Compressor) DeviceModel() DeviceModel { return c.model }

// SampleRate returns the sample rate in Hz.
func (c *Compressor) SampleRate() float64 { return c.sampleRate }

// Solver exposes the static gain computer, e.g. for plotting.
func (c *Compressor) Solver() *Solver { return c.solver }

// Curve exposes the envelope curve configuration.
func (c *Compressor) Curve() *Curve { return c.curve }

// CurrentReductionDB returns the envelope curve state in dB.
func (c *Compressor) CurrentReductionDB() float64 { return c.currReduction }

// GainReductionDB returns the final reduction applied to the latest sample.
func (c *Compressor) GainReductionDB() float64 { return c.lastReduction }

// LastGain returns the linear multiplier, makeup included, applied to the
// latest processed sample. Linked channels reuse it to share one gain.
func (c *Compressor) LastGain() float64 { return c.lastGain }

// ProcessSample compresses one sample, detecting on the sample itself.
func (c *Compressor) ProcessSample(input float64) float64 {
	return c.process(input, input)
}

// ProcessSampleSidechain compresses input with detection driven by sidechain.
func (c *Compressor) ProcessSampleSidechain(input, sidechain float64) float64 {
	return c.process(input, sidechain)
}

func (c *Compressor) process(input, detect float64) float64 {
	if c.bypass {
		return input
	}

	output := input * c.gain(detect)
	c.updateMetrics(math.Abs(input), math.Abs(output))

	return output
}

// gain runs the three stages for one detector sample and returns the linear
// multiplier including makeup.
func (c *Compressor) gain(detect float64) float64 {
	ideal := c.solver.IdealReduction(levelDB(detect))

	smoothed, next := c.curve.Apply(c.currReduction, ideal, c.curveType)
	c.currReduction = next

	c.lastReduction = c.device.GainReduction(smoothed, ideal)
	c.lastGain = dbToGain(c.makeupGainDB - c.lastReduction)

	return c.lastGain
}

// ProcessInPlace applies compression to buf in place.
func (c *Compressor) ProcessInPlace(buf []float64) {
	c.ProcessBlockSidechain(buf, nil)
}

// ProcessBlockSidechain compresses buf in place. Detection uses sidechain[i]
// where present and buf[i] otherwise, so a nil sidechain is self-detection.
func (c *Compressor) ProcessBlockSidechain(buf, sidechain []float64) {
	if c.bypass || len(buf) == 0 {
		return
	}

	c.gains = core.EnsureLen(c.gains, len(buf))
	gains := c.gains

	for i, x := range buf {
		detect := x
		if i < len(sidechain) {
			detect = sidechain[i]
		}

		gains[i] = c.gain(detect)
		c.updateInputMetrics(math.Abs(x))
	}

	vecmath.MulBlockInPlace(buf, gains)

	for _, y := range buf {
		if a := math.Abs(y); a > c.metrics.OutputPeak {
			c.metrics.OutputPeak = a
		}
	}
}

// CalculateOutputLevel computes the steady-state output magnitude for a
// constant input magnitude. It reads configuration only.
func (c *Compressor) CalculateOutputLevel(inputMagnitude float64) float64 {
	inputMagnitude = math.Abs(inputMagnitude)
	reduction := c.solver.IdealReduction(levelDB(inputMagnitude))

	return inputMagnitude * dbToGain(c.makeupGainDB-reduction)
}

// Reset clears the curve and device state and the metrics.
func (c *Compressor) Reset() {
	c.currReduction = 0
	c.lastReduction = 0
	c.lastGain = 1
	c.device.reset()
	c.ResetMetrics()
}

// GetMetrics returns current metering values.
func (c *Compressor) GetMetrics() CompressorMetrics {
	return c.metrics
}

// ResetMetrics clears metering state.
func (c *Compressor) ResetMetrics() {
	c.metrics = CompressorMetrics{}
}

func (c *Compressor) updateMetrics(inputLevel, outputLevel float64) {
	c.updateInputMetrics(inputLevel)

	if outputLevel > c.metrics.OutputPeak {
		c.metrics.OutputPeak = outputLevel
	}
}

func (c *Compressor) updateInputMetrics(inputLevel float64) {
	if inputLevel > c.metrics.InputPeak {
		c.metrics.InputPeak = inputLevel
	}

	if c.lastReduction > c.metrics.MaxReductionDB {
		c.metrics.MaxReductionDB = c.lastReduction
	}
}
