// Package window generates the cosine-sum analysis windows used by the
// measurement packages.
package window

import (
	"fmt"
	"math"
	"strings"

	"github.com/cwbudde/algo-vecmath"
)

// Type identifies a window function. The zero value is Hann.
type Type int

const (
	TypeHann Type = iota
	TypeRectangular
	TypeBlackman
	TypeBlackmanHarris4Term
	TypeFlatTop
)

var (
	hannCoeffs            = []float64{0.5, -0.5}
	blackmanCoeffs        = []float64{0.42, -0.5, 0.08}
	blackmanHarris4Coeffs = []float64{0.35875, -0.48829, 0.14128, -0.01168}
	flatTopCoeffs         = []float64{0.21557895, -0.41663158, 0.277263158, -0.083578947, 0.006947368}
)

var names = map[Type]string{
	TypeHann:                "hann",
	TypeRectangular:         "rectangular",
	TypeBlackman:            "blackman",
	TypeBlackmanHarris4Term: "blackman-harris",
	TypeFlatTop:             "flat-top",
}

func (t Type) String() string {
	if name, ok := names[t]; ok {
		return name
	}

	return fmt.Sprintf("Type(%d)", int(t))
}

// ParseType returns the window type for a name as printed by String.
func ParseType(name string) (Type, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for t, n := range names {
		if n == name {
			return t, nil
		}
	}

	return 0, fmt.Errorf("unknown window %q", name)
}

// MainLobeBins returns the distance in bins from the peak to the first null
// of the window spectrum. Harmonic analysis sums this many bins on each side
// of a peak.
func MainLobeBins(t Type) int {
	switch t {
	case TypeRectangular:
		return 1
	case TypeBlackman:
		return 3
	case TypeBlackmanHarris4Term:
		return 4
	case TypeFlatTop:
		return 5
	default:
		return 2
	}
}

// Option configures window generation.
type Option func(*config)

type config struct {
	periodic bool
}

// WithPeriodic configures periodic form (FFT framing) instead of symmetric form.
func WithPeriodic() Option {
	return func(c *config) {
		c.periodic = true
	}
}

// Generate returns window coefficients of the given length.
func Generate(t Type, length int, opts ...Option) []float64 {
	if length <= 0 {
		return nil
	}

	var cfg config
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	coeffs := cosineTerms(t)
	out := make([]float64, length)

	for i := range out {
		out[i] = cosineFromCoeffs(samplePosition(i, length, cfg.periodic), coeffs)
	}

	return out
}

// Apply multiplies buf in-place by the selected window.
func Apply(t Type, buf []float64, opts ...Option) {
	if len(buf) == 0 {
		return
	}

	vecmath.MulBlockInPlace(buf, Generate(t, len(buf), opts...))
}

func cosineTerms(t Type) []float64 {
	switch t {
	case TypeRectangular:
		return []float64{1}
	case TypeBlackman:
		return blackmanCoeffs
	case TypeBlackmanHarris4Term:
		return blackmanHarris4Coeffs
	case TypeFlatTop:
		return flatTopCoeffs
	default:
		return hannCoeffs
	}
}

func cosineFromCoeffs(x float64, coeffs []float64) float64 {
	phase := 2 * math.Pi * x

	sum := 0.0
	for k, c := range coeffs {
		sum += c * math.Cos(float64(k)*phase)
	}

	return sum
}

func samplePosition(n, size int, periodic bool) float64 {
	if size <= 1 {
		return 0
	}

	den := float64(size - 1)
	if periodic {
		den = float64(size)
	}

	return float64(n) / den
}
