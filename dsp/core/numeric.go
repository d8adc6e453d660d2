package core

import "math"

// SilenceFloorDB is the level reported for silent or invalid amplitudes.
// Anything quieter is treated as digital silence.
const SilenceFloorDB = -144.0

// silenceFloorLinear is 10^(SilenceFloorDB/20).
const silenceFloorLinear = 6.309573444801929e-08

// Clamp limits value to the inclusive range [lo, hi].
func Clamp(value, lo, hi float64) float64 {
	if lo > hi {
		lo, hi = hi, lo
	}

	if value < lo {
		return lo
	}

	if value > hi {
		return hi
	}

	return value
}

// ClampMin returns value, or lo when value is below lo.
func ClampMin(value, lo float64) float64 {
	if value < lo {
		return lo
	}

	return value
}

// IsFinite reports whether v is neither NaN nor an infinity.
func IsFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// FlushDenormals converts tiny denormal-like values to exact zero.
func FlushDenormals(x float64) float64 {
	const epsilon = 1e-30
	if x > -epsilon && x < epsilon {
		return 0
	}

	return x
}

// DBToLinear converts dB to linear amplitude (20*log10 convention).
func DBToLinear(db float64) float64 {
	return math.Pow(10, db/20)
}

// LinearToDB converts linear amplitude to dB (20*log10 convention).
// Zero, negative and non-finite amplitudes map to SilenceFloorDB, so the
// result is always finite.
func LinearToDB(linear float64) float64 {
	if !(linear > silenceFloorLinear) || math.IsInf(linear, 1) {
		return SilenceFloorDB
	}

	return 20 * math.Log10(linear)
}
