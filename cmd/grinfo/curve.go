package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/cwbudde/algo-comp/dsp/core"
	"github.com/cwbudde/algo-comp/dsp/dynamics"
)

type curveCmd struct {
	Comp compressorFlags `embed:""`

	From float64 `default:"-60" help:"First input level in dB."`
	To   float64 `default:"0" help:"Last input level in dB."`
	Inc  float64 `default:"3" help:"Level increment in dB."`
}

type curveRow struct {
	InputDB     float64
	ReductionDB float64
	OutputDB    float64
}

// curveRows evaluates the static curve from `from` to `to` inclusive.
func curveRows(c *dynamics.Compressor, from, to, inc float64) ([]curveRow, error) {
	if !(inc > 0) {
		return nil, fmt.Errorf("increment must be positive, got %g", inc)
	}

	if to < from {
		return nil, fmt.Errorf("range is empty: %g > %g", from, to)
	}

	n := int((to-from)/inc+1e-9) + 1
	rows := make([]curveRow, 0, n)

	for i := range n {
		level := from + float64(i)*inc
		out := c.CalculateOutputLevel(core.DBToLinear(level))

		rows = append(rows, curveRow{
			InputDB:     level,
			ReductionDB: c.Solver().IdealReduction(level),
			OutputDB:    core.LinearToDB(out),
		})
	}

	return rows, nil
}

func (cmd *curveCmd) Run(rc *runContext) error {
	c, err := cmd.Comp.build(cmd.Comp.SampleRate)
	if err != nil {
		return err
	}

	rows, err := curveRows(c, cmd.From, cmd.To, cmd.Inc)
	if err != nil {
		return err
	}

	fmt.Fprintln(rc.out, renderTitle("Static curve"))
	fmt.Fprintln(rc.out, renderKV("threshold", fmt.Sprintf("%.1f dB", c.Threshold())),
		renderKV("ratio", fmt.Sprintf("%g:1", c.Ratio())),
		renderKV("knee", fmt.Sprintf("%.1f dB", c.Knee())))
	fmt.Fprintln(rc.out)

	w := tabwriter.NewWriter(rc.out, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(w, "Input dB\tReduction dB\tOutput dB\t")

	for _, r := range rows {
		fmt.Fprintf(w, "%.2f\t%.2f\t%.2f\t\n", r.InputDB, r.ReductionDB, r.OutputDB)
	}

	return w.Flush()
}
