package dynamics

import (
	"math"

	"github.com/cwbudde/algo-comp/dsp/core"
)

// silenceAmplitude is the amplitude of core.SilenceFloorDB.
const silenceAmplitude = 6.309573444801929e-08

// levelDB converts a sample to its level in dB. The result is floored at
// core.SilenceFloorDB so silence and non-finite input never reach the
// smoothing state as -Inf or NaN.
func levelDB(x float64) float64 {
	x = math.Abs(x)
	if !(x > silenceAmplitude) || math.IsInf(x, 1) {
		return core.SilenceFloorDB
	}

	return 20 * mathLog10(x)
}

// dbToGain converts a dB value to a linear multiplier.
func dbToGain(db float64) float64 {
	return mathPower10(db * 0.05)
}

// settleCoeff returns the one-pole coefficient that decays to settleFraction
// of the initial distance after ms milliseconds. Zero ms yields 0, which makes
// a one-pole filter track its input instantly.
func settleCoeff(settleFraction, ms, sampleRate float64) float64 {
	if ms <= 0 {
		return 0
	}

	return math.Exp(math.Log(settleFraction) / (ms * 0.001 * sampleRate))
}

// onePole runs y = c*prev + (1-c)*x.
func onePole(coeff, prev, x float64) float64 {
	return coeff*prev + (1-coeff)*x
}

func validateSampleRate(sampleRate float64) error {
	if sampleRate <= 0 || !core.IsFinite(sampleRate) {
		return errSampleRate(sampleRate)
	}

	return nil
}
