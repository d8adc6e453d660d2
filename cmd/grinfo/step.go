package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/cwbudde/algo-comp/dsp/core"
	"github.com/cwbudde/algo-comp/dsp/dynamics"
	"github.com/sirupsen/logrus"
)

type stepCmd struct {
	Comp compressorFlags `embed:""`

	Level float64 `default:"0" help:"Step level in dBFS."`
	On    float64 `default:"50" help:"Duration of the step in ms."`
	Off   float64 `default:"300" help:"Duration of the silence after the step in ms."`
	Every float64 `default:"5" help:"Print interval in ms."`
}

type stepPoint struct {
	TimeMs      float64
	Input       float64
	CurveDB     float64
	ReductionDB float64
}

// stepResponse drives c with a constant level for onSamples followed by
// silence for offSamples and samples the state every `every` samples.
func stepResponse(c *dynamics.Compressor, amplitude float64, onSamples, offSamples, every int) []stepPoint {
	every = max(every, 1)
	total := onSamples + offSamples
	points := make([]stepPoint, 0, total/every+1)
	msPerSample := 1000 / c.SampleRate()

	for i := range total {
		x := 0.0
		if i < onSamples {
			x = amplitude
		}

		c.ProcessSample(x)

		if i%every == 0 || i == onSamples-1 || i == total-1 {
			points = append(points, stepPoint{
				TimeMs:      float64(i+1) * msPerSample,
				Input:       x,
				CurveDB:     c.CurrentReductionDB(),
				ReductionDB: c.GainReductionDB(),
			})
		}
	}

	return points
}

func msToSamples(ms, sampleRate float64) int {
	return int(ms*sampleRate/1000 + 0.5)
}

func (cmd *stepCmd) Run(rc *runContext) error {
	sr := cmd.Comp.SampleRate

	c, err := cmd.Comp.build(sr)
	if err != nil {
		return err
	}

	rc.log.WithFields(logrus.Fields{
		"model":   c.DeviceModel().Kind.String(),
		"attack":  c.Attack(),
		"release": c.Release(),
		"level":   cmd.Level,
	}).Debug("running step response")

	points := stepResponse(c, core.DBToLinear(cmd.Level),
		msToSamples(cmd.On, sr), msToSamples(cmd.Off, sr), msToSamples(cmd.Every, sr))

	fmt.Fprintln(rc.out, renderTitle("Step response"), renderKV("model", c.DeviceModel().Kind))
	fmt.Fprintln(rc.out)

	w := tabwriter.NewWriter(rc.out, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(w, "Time ms\tInput\tCurve dB\tReduction dB\t")

	for _, p := range points {
		fmt.Fprintf(w, "%.2f\t%.3f\t%.3f\t%.3f\t\n", p.TimeMs, p.Input, p.CurveDB, p.ReductionDB)
	}

	return w.Flush()
}
