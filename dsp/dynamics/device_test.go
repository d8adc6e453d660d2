package dynamics

import (
	"errors"
	"math"
	"testing"
)

func TestDeviceModelNormalize(t *testing.T) {
	tests := []struct {
		name    string
		in      DeviceModel
		want    DeviceModel
		wantErr error
	}{
		{"ideal drops extra fields", DeviceModel{Kind: DeviceIdeal, Steps: 3, WindowMs: 9}, IdealModel(), nil},
		{"optical keeps sizes", OpticalModel(48, 4), OpticalModel(48, 4), nil},
		{"optical clamps sizes", OpticalModel(0, -2), OpticalModel(1, 1), nil},
		{"vca clamps window", VCAModel(-5), VCAModel(0), nil},
		{"unknown kind", DeviceModel{Kind: DeviceKind(7)}, DeviceModel{}, ErrInvalidDeviceModel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.in.normalize()
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("normalize() error = %v, want %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Fatalf("normalize() = %+v, want %+v", got, tt.want)
			}
		})
	}

	if _, err := VCAModel(math.NaN()).normalize(); err == nil {
		t.Fatal("expected error for NaN window")
	}
}

func TestDeviceKindString(t *testing.T) {
	names := map[DeviceKind]string{
		DeviceIdeal:   "ideal",
		DeviceOptical: "optical",
		DeviceVCA:     "vca",
		DeviceKind(9): "DeviceKind(9)",
	}
	for kind, want := range names {
		if got := kind.String(); got != want {
			t.Errorf("String() = %q, want %q", got, want)
		}
	}
}

func TestIdealDeviceIsIdentity(t *testing.T) {
	d := newDevice(IdealModel(), 48000)

	for _, v := range []float64{0, 0.5, 3, 17.25} {
		if got := d.GainReduction(v, v+10); got != v {
			t.Fatalf("GainReduction(%v) = %v, want %v", v, got, v)
		}
	}
}

func TestOpticalTables(t *testing.T) {
	const (
		sampleRate    = 44100.0
		steps         = 40
		coeffsPerStep = 4
	)

	o := newOpticalCell(sampleRate, steps, coeffsPerStep)

	if len(o.attackCoeffs) != steps*coeffsPerStep || len(o.releaseCoeffs) != steps*coeffsPerStep {
		t.Fatalf("table sizes = %d/%d, want %d", len(o.attackCoeffs), len(o.releaseCoeffs), steps*coeffsPerStep)
	}

	for _, i := range []int{0, 1, 37, steps*coeffsPerStep - 1} {
		stepDB := float64(i) / coeffsPerStep
		resistance := 480 / (3 + stepDB)

		wantAttack := math.Exp(math.Log(0.27) / (sampleRate * resistance / 10 / 1000))
		wantRelease := math.Exp(math.Log(0.27) / (sampleRate * resistance / 1000))

		if math.Abs(o.attackCoeffs[i]-wantAttack) > 1e-12 {
			t.Errorf("attack[%d] = %v, want %v", i, o.attackCoeffs[i], wantAttack)
		}
		if math.Abs(o.releaseCoeffs[i]-wantRelease) > 1e-12 {
			t.Errorf("release[%d] = %v, want %v", i, o.releaseCoeffs[i], wantRelease)
		}
	}

	// Harder drive means a faster cell.
	for i := 1; i < len(o.attackCoeffs); i++ {
		if o.attackCoeffs[i] >= o.attackCoeffs[i-1] || o.releaseCoeffs[i] >= o.releaseCoeffs[i-1] {
			t.Fatalf("coefficients not decreasing at %d", i)
		}
	}
}

func TestOpticalIndexClamp(t *testing.T) {
	o := newOpticalCell(48000, 10, 2)

	tests := []struct {
		reduction float64
		want      int
	}{
		{-3, 0},
		{0, 0},
		{0.49, 0},
		{0.5, 1},
		{4.75, 9},
		{9.5, 19},
		{1e12, 19},
		{math.Inf(1), 19},
		{math.NaN(), 0},
	}

	for _, tt := range tests {
		if got := o.index(tt.reduction); got != tt.want {
			t.Errorf("index(%v) = %d, want %d", tt.reduction, got, tt.want)
		}
	}
}

func TestOpticalConvergesWithinTimeConstant(t *testing.T) {
	const (
		sampleRate = 44100.0
		target     = 6.0
	)

	o := newOpticalCell(sampleRate, 48, 4)

	// Attack time constant at 6 dB: (480 / (3 + 6)) / 10 ms.
	attackMs := 480.0 / 9.0 / 10.0
	nChar := sampleRate * attackMs / 1000

	n := int(math.Round(nChar))
	for range n {
		o.process(target, target)
	}

	gap := (target - o.current) / target
	if math.Abs(gap-0.27) > 0.005 {
		t.Fatalf("gap after %d samples = %v, want ~0.27", n, gap)
	}

	settle := int(math.Ceil(nChar * math.Log(0.01) / math.Log(0.27)))

	var out float64
	for range settle - n {
		out = o.process(target, target)
	}

	if math.Abs(out-target) > 0.01*target {
		t.Fatalf("output after %d samples = %v, want within 1%% of %v", settle, out, target)
	}
	if out < o.current {
		t.Fatalf("soft limiter moved output below filtered state: %v < %v", out, o.current)
	}
}

func TestOpticalSoftLimiter(t *testing.T) {
	o := newOpticalCell(48000, 48, 4)

	// Cell at rest, target 48 dB away: 48 - (24 - 24/(1 + 48/24)) = 32.
	if got := o.process(0, 48); got != 32 {
		t.Fatalf("process(0, 48) = %v, want 32", got)
	}

	// Gap can never exceed the limit.
	for _, ideal := range []float64{30, 60, 120, 500} {
		o.current = 0
		got := o.process(0, ideal)
		if ideal-got >= opticalLimitDB {
			t.Fatalf("gap %v exceeds limit for ideal %v", ideal-got, ideal)
		}
	}
}

func TestOpticalAheadOfTargetPassesFilteredValue(t *testing.T) {
	o := newOpticalCell(48000, 48, 4)
	o.current = 10

	if got := o.process(10, 5); got != 10 {
		t.Fatalf("process(10, 5) = %v, want 10", got)
	}
}

func TestOpticalReleaseIsSlowerThanAttack(t *testing.T) {
	o := newOpticalCell(48000, 48, 4)

	for range 48000 {
		o.process(12, 12)
	}

	attackState := newOpticalCell(48000, 48, 4)
	attackState.process(12, 12)
	attackStep := attackState.current

	before := o.current
	o.process(0, 0)
	releaseStep := before - o.current

	if releaseStep >= attackStep {
		t.Fatalf("release step %v should be smaller than attack step %v", releaseStep, attackStep)
	}
}

func TestVCAZeroWindowIsPassThrough(t *testing.T) {
	d := newDevice(VCAModel(0), 48000)

	for i, ideal := range []float64{0, 3, 12, 0.5, 40, 0} {
		got := d.GainReduction(ideal*0.5, ideal)
		if got != ideal {
			t.Fatalf("sample %d: GainReduction = %v, want %v", i, got, ideal)
		}
		if d.vca.meanSquare != 0 {
			t.Fatalf("sample %d: mean square filtered to %v", i, d.vca.meanSquare)
		}
	}
}

func TestVCAConvergesToTarget(t *testing.T) {
	d := newDevice(VCAModel(5), 48000)

	var out float64
	for range 4800 {
		out = d.GainReduction(0, 9)
	}

	if math.Abs(out-9) > 1e-6 {
		t.Fatalf("steady-state RMS = %v, want 9", out)
	}

	d.reset()
	if first := d.GainReduction(0, 9); first >= 9 || first <= 0 {
		t.Fatalf("first sample after reset = %v, want in (0, 9)", first)
	}
}

func TestVCAWindowCoefficient(t *testing.T) {
	r := newRMSDetector(44100, 10)
	want := math.Exp(math.Log(0.1) / 441)

	if math.Abs(r.coeff-want) > 1e-12 {
		t.Fatalf("coeff = %v, want %v", r.coeff, want)
	}
}
