// Package thd measures total harmonic distortion of a processed signal.
// It is used to quantify the artifacts each compressor device model adds to
// a steady sine.
package thd

import (
	"errors"
	"math"

	algofft "github.com/MeKo-Christian/algo-fft"
	"github.com/cwbudde/algo-comp/dsp/window"
	"github.com/cwbudde/algo-vecmath"
)

const (
	defaultMaxHarmonics = 9
	minFundamentalHz    = 20.0
)

var errFFTSize = errors.New("thd: fft size must be a power of two >= 2")

// Config holds THD analysis parameters.
type Config struct {
	SampleRate float64
	// FundamentalFreq pins the fundamental. Zero searches for the strongest
	// bin above 20 Hz.
	FundamentalFreq float64
	// MaxHarmonics limits the harmonics evaluated (2nd, 3rd, ...). Zero
	// means 9.
	MaxHarmonics int
	// WindowType is applied before the FFT. The zero value is Hann.
	WindowType window.Type
	// CaptureBins is the half-width summed around each peak. Zero means the
	// main-lobe half-width of WindowType.
	CaptureBins int
}

// Result holds THD measurement results.
//
//nolint:revive
type Result struct {
	FundamentalFreq  float64
	FundamentalLevel float64
	THD              float64
	THDN             float64
	THD_dB           float64
	THDN_dB          float64
	// Harmonics holds each harmonic level relative to the fundamental,
	// starting with the 2nd.
	Harmonics []float64
}

// Analyzer runs repeated analyses and reuses its FFT plan and buffers while
// the signal length stays the same.
type Analyzer struct {
	cfg Config

	plan   *algofft.Plan[complex128]
	window []float64
	frame  []float64
	in     []complex128
	out    []complex128
	mag    []float64
}

// NewAnalyzer creates an analyzer for cfg.
func NewAnalyzer(cfg Config) *Analyzer {
	return &Analyzer{cfg: normalizeConfig(cfg)}
}

// AnalyzeSignal is a one-shot analysis of a real time-domain signal.
func AnalyzeSignal(signal []float64, cfg Config) Result {
	return NewAnalyzer(cfg).AnalyzeSignal(signal)
}

// AnalyzeSignal windows signal with the periodic form of cfg.WindowType,
// zero-pads it to a power of two and evaluates the harmonics of its
// fundamental.
func (a *Analyzer) AnalyzeSignal(signal []float64) Result {
	if len(signal) < 2 {
		return Result{}
	}

	if err := a.prepare(len(signal)); err != nil {
		return Result{}
	}

	copy(a.frame, signal)
	vecmath.MulBlockInPlace(a.frame, a.window)

	for i := range a.in {
		a.in[i] = 0
	}

	for i, x := range a.frame {
		a.in[i] = complex(x, 0)
	}

	if err := a.plan.Forward(a.out, a.in); err != nil {
		return Result{}
	}

	for i := range a.mag {
		x := a.out[i]
		a.mag[i] = real(x)*real(x) + imag(x)*imag(x)
	}

	return a.fromMagnitude(a.mag, len(a.in))
}

// CalculateFromMagnitude evaluates a squared-magnitude spectrum holding the
// bins [0, Nyquist] of an fftSize-point transform.
func (a *Analyzer) CalculateFromMagnitude(magSquared []float64, fftSize int) Result {
	if fftSize < 2 || len(magSquared) < 2 {
		return Result{}
	}

	return a.fromMagnitude(magSquared, fftSize)
}

func (a *Analyzer) prepare(n int) error {
	size := nextPowerOf2(n)
	if size < 2 {
		return errFFTSize
	}

	if a.plan == nil || len(a.in) != size {
		plan, err := algofft.NewPlan64(size)
		if err != nil {
			return err
		}

		a.plan = plan
		a.in = make([]complex128, size)
		a.out = make([]complex128, size)
		a.mag = make([]float64, size/2+1)
	}

	if len(a.window) != n {
		a.window = window.Generate(a.cfg.WindowType, n, window.WithPeriodic())
		a.frame = make([]float64, n)
	}

	return nil
}

func (a *Analyzer) fromMagnitude(magSquared []float64, fftSize int) Result {
	cfg := a.cfg

	sampleRate := cfg.SampleRate
	if sampleRate <= 0 {
		sampleRate = float64(fftSize)
	}

	binHz := sampleRate / float64(fftSize)
	maxBin := len(magSquared) - 1

	fundamentalBin := findFundamental(magSquared, cfg.FundamentalFreq, binHz)
	if fundamentalBin < 1 || fundamentalBin > maxBin {
		return Result{}
	}

	capture := min(cfg.CaptureBins, fundamentalBin/2)

	fundamental := lobeLevel(magSquared, fundamentalBin, capture)
	res := Result{FundamentalFreq: float64(fundamentalBin) * binHz}

	if fundamental <= 0 {
		return res
	}

	res.FundamentalLevel = fundamental
	res.Harmonics = make([]float64, 0, cfg.MaxHarmonics)

	harmonicSum := 0.0
	for k := 2; k < 2+cfg.MaxHarmonics; k++ {
		bin := k * fundamentalBin
		if bin+capture > maxBin {
			break
		}

		level := lobeLevel(magSquared, bin, capture)
		harmonicSum += level * level
		res.Harmonics = append(res.Harmonics, level/fundamental)
	}

	total := 0.0
	for i := 1; i <= maxBin; i++ {
		total += magSquared[i]
	}

	fundamentalPower := lobePower(magSquared, fundamentalBin, capture)
	residual := math.Max(total-fundamentalPower, 0)

	res.THD = math.Sqrt(harmonicSum) / fundamental
	res.THDN = math.Sqrt(residual / fundamentalPower)
	res.THD_dB = ratioToDB(res.THD)
	res.THDN_dB = ratioToDB(res.THDN)

	return res
}

// findFundamental returns the pinned fundamental bin, or the strongest bin
// above minFundamentalHz.
func findFundamental(magSquared []float64, freq, binHz float64) int {
	if freq > 0 {
		return int(math.Round(freq / binHz))
	}

	lo := max(int(math.Ceil(minFundamentalHz/binHz)), 1)
	best, bestVal := 0, 0.0

	for i := lo; i < len(magSquared); i++ {
		if magSquared[i] > bestVal {
			best, bestVal = i, magSquared[i]
		}
	}

	return best
}

// lobeLevel sums magnitudes over bin±capture. With capture at the main-lobe
// half-width this recovers a value proportional to the tone amplitude regardless of where
// the tone falls between bins.
func lobeLevel(magSquared []float64, bin, capture int) float64 {
	lo := max(bin-capture, 0)
	hi := min(bin+capture, len(magSquared)-1)

	sum := 0.0
	for i := lo; i <= hi; i++ {
		if v := magSquared[i]; v > 0 {
			sum += math.Sqrt(v)
		}
	}

	return sum
}

func lobePower(magSquared []float64, bin, capture int) float64 {
	lo := max(bin-capture, 0)
	hi := min(bin+capture, len(magSquared)-1)

	sum := 0.0
	for i := lo; i <= hi; i++ {
		sum += magSquared[i]
	}

	return sum
}

func normalizeConfig(cfg Config) Config {
	if cfg.MaxHarmonics <= 0 {
		cfg.MaxHarmonics = defaultMaxHarmonics
	}

	if cfg.CaptureBins <= 0 {
		cfg.CaptureBins = window.MainLobeBins(cfg.WindowType)
	}

	if cfg.FundamentalFreq < 0 {
		cfg.FundamentalFreq = 0
	}

	return cfg
}

func ratioToDB(v float64) float64 {
	if v <= 0 {
		return math.Inf(-1)
	}

	return 20 * math.Log10(v)
}

func nextPowerOf2(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}

	return p
}
