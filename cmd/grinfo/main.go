// Command grinfo inspects the gain-reduction engine.
//
// Usage:
//
//	grinfo <command> [flags]
//
// Commands:
//
//	curve   static transfer curve (input dB -> reduction, output dB)
//	step    step response of the envelope and device model
//	thd     harmonic distortion of a compressed sine
//	wav     offline compression of a WAV file
//
// Examples:
//
//	grinfo curve --threshold -24 --ratio 3 --knee 6
//	grinfo step --model optical --attack 5 --release 200
//	grinfo thd --model vca --freq 100 --amp 0.9 --fft-window flat-top
//	grinfo wav --model optical --link in.wav out.wav
package main

import (
	"io"
	"os"

	"github.com/alecthomas/kong"
	"github.com/sirupsen/logrus"
)

var version = "0.1.0"

// CLI defines the command-line interface.
type CLI struct {
	Verbose bool             `short:"v" help:"Enable debug logging."`
	Version kong.VersionFlag `help:"Show version information."`

	Curve curveCmd `cmd:"" help:"Print the static transfer curve."`
	Step  stepCmd  `cmd:"" help:"Print the step response of the envelope and device model."`
	THD   thdCmd   `cmd:"" name:"thd" help:"Measure harmonic distortion of a compressed sine."`
	Wav   wavCmd   `cmd:"" help:"Compress a WAV file."`
}

// runContext is bound to every command's Run method.
type runContext struct {
	out io.Writer
	log *logrus.Logger
}

func newLogger(verbose bool) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	logger.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})

	logger.SetLevel(logrus.InfoLevel)
	if verbose {
		logger.SetLevel(logrus.DebugLevel)
	}

	return logger
}

func main() {
	cli := &CLI{}
	ctx := kong.Parse(cli,
		kong.Name("grinfo"),
		kong.Description("Inspect compressor gain reduction: curves, step responses, distortion."),
		kong.UsageOnError(),
		kong.Vars{"version": version},
	)

	rc := &runContext{out: os.Stdout, log: newLogger(cli.Verbose)}

	if err := ctx.Run(rc); err != nil {
		printError(err.Error())
		os.Exit(1)
	}
}
