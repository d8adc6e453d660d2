package main

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-comp/dsp/core"
	"github.com/cwbudde/algo-comp/dsp/dynamics"
	"github.com/cwbudde/algo-comp/dsp/window"
	"github.com/cwbudde/algo-comp/measure/thd"
	"github.com/sirupsen/logrus"
)

type thdCmd struct {
	Comp compressorFlags `embed:""`

	Freq   float64 `default:"1000" help:"Sine frequency in Hz."`
	Amp    float64 `default:"0.9" help:"Sine amplitude (linear)."`
	Settle float64 `default:"500" help:"Settling time before measuring, in ms."`
	Size   int     `default:"16384" help:"Analysis length in samples."`

	FFTWindow string `name:"fft-window" default:"hann" enum:"hann,rectangular,blackman,blackman-harris,flat-top" help:"Analysis window."`
}

// measureTHD compresses a sine and analyzes the last size samples after
// settleSamples of warm-up through win. The dry sine is measured alongside
// as a reference floor.
func measureTHD(c *dynamics.Compressor, win window.Type, freq, amp float64, settleSamples, size int) (wet, dry thd.Result) {
	sr := c.SampleRate()
	n := settleSamples + size

	signal := make([]float64, n)
	phaseInc := 2 * math.Pi * freq / sr

	for i := range signal {
		signal[i] = amp * math.Sin(phaseInc*float64(i))
	}

	cfg := thd.Config{SampleRate: sr, FundamentalFreq: freq, WindowType: win}
	analyzer := thd.NewAnalyzer(cfg)

	dry = analyzer.AnalyzeSignal(signal[settleSamples:])

	c.SetMaxBlockSize(n)
	c.ProcessInPlace(signal)

	wet = analyzer.AnalyzeSignal(signal[settleSamples:])

	return wet, dry
}

func (cmd *thdCmd) Run(rc *runContext) error {
	sr := cmd.Comp.SampleRate

	if cmd.Freq <= 0 || cmd.Freq >= sr/2 {
		return fmt.Errorf("frequency %g Hz outside (0, %g)", cmd.Freq, sr/2)
	}

	if cmd.Size < 64 {
		return fmt.Errorf("analysis size %d too small", cmd.Size)
	}

	win, err := window.ParseType(cmd.FFTWindow)
	if err != nil {
		return err
	}

	c, err := cmd.Comp.build(sr)
	if err != nil {
		return err
	}

	rc.log.WithFields(logrus.Fields{
		"model":  c.DeviceModel().Kind.String(),
		"freq":   cmd.Freq,
		"amp":    cmd.Amp,
		"size":   cmd.Size,
		"window": win.String(),
	}).Debug("measuring distortion")

	wet, dry := measureTHD(c, win, cmd.Freq, cmd.Amp, msToSamples(cmd.Settle, sr), cmd.Size)

	fmt.Fprintln(rc.out, renderTitle("Harmonic distortion"), renderKV("model", c.DeviceModel().Kind))
	fmt.Fprintln(rc.out, renderKV("window", win))
	fmt.Fprintln(rc.out, renderKV("reduction", fmt.Sprintf("%.2f dB", c.GainReductionDB())))
	fmt.Fprintln(rc.out, renderKV("THD", fmt.Sprintf("%.4f%% (%.1f dB)", wet.THD*100, wet.THD_dB)))
	fmt.Fprintln(rc.out, renderKV("THD+N", fmt.Sprintf("%.4f%% (%.1f dB)", wet.THDN*100, wet.THDN_dB)))
	fmt.Fprintln(rc.out, renderKV("dry THD", fmt.Sprintf("%.1f dB", dry.THD_dB)))

	for i, h := range wet.Harmonics {
		fmt.Fprintln(rc.out, renderKV(fmt.Sprintf("  H%d", i+2), fmt.Sprintf("%.2f dB", core.LinearToDB(h))))
	}

	return nil
}
