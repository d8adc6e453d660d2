// Package streamfx runs gopxl/beep stereo streamers through compressors.
package streamfx

import (
	"math"

	"github.com/cwbudde/algo-comp/dsp/dynamics"
	"github.com/gopxl/beep"
)

// Compress returns a streamer that compresses each channel of src with its
// own compressor. left and right must be distinct instances.
func Compress(src beep.Streamer, left, right *dynamics.Compressor) beep.Streamer {
	return &compressStreamer{
		src: src,
		process: func(samples [][2]float64) {
			for i := range samples {
				samples[i][0] = left.ProcessSample(samples[i][0])
				samples[i][1] = right.ProcessSample(samples[i][1])
			}
		},
	}
}

// CompressLinked returns a streamer that detects on max(|l|, |r|) with a
// single compressor and scales both channels by the same gain, keeping the
// stereo image stable.
func CompressLinked(src beep.Streamer, c *dynamics.Compressor) beep.Streamer {
	return &compressStreamer{
		src: src,
		process: func(samples [][2]float64) {
			if c.Bypass() {
				return
			}

			for i := range samples {
				l, r := samples[i][0], samples[i][1]
				detect := math.Max(math.Abs(l), math.Abs(r))

				samples[i][0] = c.ProcessSampleSidechain(l, detect)
				samples[i][1] = r * c.LastGain()
			}
		},
	}
}

type compressStreamer struct {
	src     beep.Streamer
	process func(samples [][2]float64)
}

func (s *compressStreamer) Stream(samples [][2]float64) (n int, ok bool) {
	n, ok = s.src.Stream(samples)
	s.process(samples[:n])

	return n, ok
}

func (s *compressStreamer) Err() error {
	return s.src.Err()
}
