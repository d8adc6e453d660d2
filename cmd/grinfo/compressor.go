package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/cwbudde/algo-comp/dsp/dynamics"
)

// compressorFlags are the engine settings shared by every command.
type compressorFlags struct {
	SampleRate    float64 `name:"rate" default:"48000" help:"Sample rate in Hz (ignored by wav)."`
	Threshold     float64 `default:"-20" help:"Threshold in dB."`
	Ratio         float64 `default:"4" help:"Compression ratio (inf for limiting)."`
	Knee          float64 `default:"0" help:"Soft-knee width in dB."`
	Attack        float64 `default:"10" help:"Attack time in ms."`
	Release       float64 `default:"100" help:"Release time in ms."`
	Makeup        float64 `default:"0" help:"Makeup gain in dB."`
	Model         string  `default:"ideal" enum:"ideal,optical,vca" help:"Device model (ideal, optical, vca)."`
	Steps         int     `default:"48" help:"Optical table range in dB."`
	CoeffsPerStep int     `name:"coeffs-per-step" default:"4" help:"Optical table entries per dB."`
	Window        float64 `default:"10" help:"VCA RMS window in ms."`
}

// deviceModel maps the model flags to a configuration.
func (f compressorFlags) deviceModel() (dynamics.DeviceModel, error) {
	switch strings.ToLower(f.Model) {
	case "", "ideal":
		return dynamics.IdealModel(), nil
	case "optical":
		return dynamics.OpticalModel(f.Steps, f.CoeffsPerStep), nil
	case "vca":
		return dynamics.VCAModel(f.Window), nil
	default:
		return dynamics.DeviceModel{}, fmt.Errorf("unknown device model %q", f.Model)
	}
}

// build creates a compressor at sampleRate configured from the flags.
func (f compressorFlags) build(sampleRate float64) (*dynamics.Compressor, error) {
	model, err := f.deviceModel()
	if err != nil {
		return nil, err
	}

	c, err := dynamics.NewCompressor(sampleRate)
	if err != nil {
		return nil, err
	}

	err = errors.Join(
		c.SetThreshold(f.Threshold),
		c.SetRatio(f.Ratio),
		c.SetKnee(f.Knee),
		c.SetAttack(f.Attack),
		c.SetRelease(f.Release),
		c.SetMakeupGain(f.Makeup),
		c.SetDeviceModel(model),
	)
	if err != nil {
		return nil, fmt.Errorf("configure compressor: %w", err)
	}

	return c, nil
}
