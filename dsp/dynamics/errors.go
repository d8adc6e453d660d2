package dynamics

import (
	"errors"
	"fmt"
)

var (
	// ErrCurveNotImplemented is returned (or raised as a panic on the sample
	// path) for curve variants that have no transfer function yet.
	ErrCurveNotImplemented = errors.New("dynamics: curve type not implemented")

	// ErrInvalidCurveType reports a CurveType outside the known set.
	ErrInvalidCurveType = errors.New("dynamics: invalid curve type")

	// ErrInvalidDeviceModel reports a DeviceKind outside the known set.
	ErrInvalidDeviceModel = errors.New("dynamics: invalid device model")
)

func errSampleRate(sampleRate float64) error {
	return fmt.Errorf("sample rate must be positive and finite: %f", sampleRate)
}

func errNotFinite(name string, v float64) error {
	return fmt.Errorf("%s must be finite: %f", name, v)
}
