package main

import (
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/cwbudde/algo-comp/dsp/dynamics"
	"github.com/cwbudde/algo-comp/dsp/streamfx"
	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/gopxl/beep"
	"github.com/sirupsen/logrus"
)

const (
	wavFormatPCM     = 1
	streamFrameCount = 512
)

var errLinkNeedsStereo = errors.New("--link requires a stereo file")

type wavCmd struct {
	Comp compressorFlags `embed:""`

	Link bool   `help:"Link stereo channels: detect on the louder channel and apply one gain to both."`
	In   string `arg:"" type:"existingfile" help:"Input WAV file."`
	Out  string `arg:"" type:"path" help:"Output WAV file."`
}

// pcmAudio is a decoded WAV file, one float slice per channel in [-1, 1).
type pcmAudio struct {
	SampleRate int
	BitDepth   int
	Channels   [][]float64
}

func (p *pcmAudio) frames() int {
	if len(p.Channels) == 0 {
		return 0
	}

	return len(p.Channels[0])
}

func fullScale(bitDepth int) (float64, error) {
	switch bitDepth {
	case 16, 24, 32:
		return math.Ldexp(1, bitDepth-1), nil
	default:
		return 0, fmt.Errorf("unsupported bit depth %d", bitDepth)
	}
}

// readWAV decodes path into per-channel float samples.
func readWAV(path string) (*pcmAudio, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open input file: %w", err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("invalid WAV file: %s", path)
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to read audio data: %w", err)
	}

	bitDepth := int(dec.BitDepth)

	scale, err := fullScale(bitDepth)
	if err != nil {
		return nil, err
	}

	numChannels := buf.Format.NumChannels
	if numChannels < 1 {
		return nil, fmt.Errorf("invalid channel count %d", numChannels)
	}

	frames := len(buf.Data) / numChannels
	p := &pcmAudio{
		SampleRate: buf.Format.SampleRate,
		BitDepth:   bitDepth,
		Channels:   make([][]float64, numChannels),
	}

	inv := 1 / scale
	for ch := range p.Channels {
		samples := make([]float64, frames)
		for i := range samples {
			samples[i] = float64(buf.Data[i*numChannels+ch]) * inv
		}

		p.Channels[ch] = samples
	}

	return p, nil
}

// writeWAV encodes p as integer PCM at p.BitDepth.
func writeWAV(path string, p *pcmAudio) (err error) {
	scale, err := fullScale(p.BitDepth)
	if err != nil {
		return err
	}

	numChannels := len(p.Channels)
	frames := p.frames()
	data := make([]int, frames*numChannels)

	for ch, samples := range p.Channels {
		for i, x := range samples {
			data[i*numChannels+ch] = quantize(x, scale)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}

	defer func() {
		if closeErr := f.Close(); err == nil {
			err = closeErr
		}
	}()

	enc := wav.NewEncoder(f, p.SampleRate, p.BitDepth, numChannels, wavFormatPCM)

	buf := &audio.IntBuffer{
		Data:           data,
		Format:         &audio.Format{NumChannels: numChannels, SampleRate: p.SampleRate},
		SourceBitDepth: p.BitDepth,
	}

	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("failed to write audio data: %w", err)
	}

	return enc.Close()
}

// quantize rounds x to an integer sample and clips to the format range.
func quantize(x, scale float64) int {
	v := math.Round(x * scale)
	v = math.Max(-scale, math.Min(scale-1, v))

	return int(v)
}

// compressPCM runs every channel of p through its own compressor, or one
// linked compressor for stereo when link is set. Stereo goes through the
// beep streamer adapter.
func compressPCM(p *pcmAudio, flags compressorFlags, link bool) ([]dynamics.CompressorMetrics, error) {
	sr := float64(p.SampleRate)

	if link && len(p.Channels) != 2 {
		return nil, errLinkNeedsStereo
	}

	if link {
		c, err := flags.build(sr)
		if err != nil {
			return nil, err
		}

		drain(streamfx.CompressLinked(newChannelSource(p.Channels[0], p.Channels[1]), c), p.Channels[0], p.Channels[1])

		return []dynamics.CompressorMetrics{c.GetMetrics()}, nil
	}

	comps := make([]*dynamics.Compressor, len(p.Channels))
	for ch := range comps {
		c, err := flags.build(sr)
		if err != nil {
			return nil, fmt.Errorf("channel %d: %w", ch, err)
		}

		comps[ch] = c
	}

	if len(p.Channels) == 2 {
		left, right := p.Channels[0], p.Channels[1]
		drain(streamfx.Compress(newChannelSource(left, right), comps[0], comps[1]), left, right)
	} else {
		for ch, samples := range p.Channels {
			comps[ch].ProcessInPlace(samples)
		}
	}

	metrics := make([]dynamics.CompressorMetrics, len(comps))
	for ch, c := range comps {
		metrics[ch] = c.GetMetrics()
	}

	return metrics, nil
}

// channelSource streams two float slices as stereo frames.
type channelSource struct {
	left, right []float64
	pos         int
}

func newChannelSource(left, right []float64) *channelSource {
	return &channelSource{left: left, right: right}
}

func (s *channelSource) Stream(samples [][2]float64) (int, bool) {
	if s.pos >= len(s.left) {
		return 0, false
	}

	n := min(len(samples), len(s.left)-s.pos)
	for i := range n {
		samples[i] = [2]float64{s.left[s.pos+i], s.right[s.pos+i]}
	}

	s.pos += n

	return n, true
}

func (s *channelSource) Err() error { return nil }

// drain pulls st to the end and stores the frames into left and right.
func drain(st beep.Streamer, left, right []float64) {
	buf := make([][2]float64, streamFrameCount)
	offset := 0

	for {
		n, ok := st.Stream(buf)
		if !ok {
			return
		}

		for i, frame := range buf[:n] {
			left[offset+i] = frame[0]
			right[offset+i] = frame[1]
		}

		offset += n
	}
}

func (cmd *wavCmd) Run(rc *runContext) error {
	p, err := readWAV(cmd.In)
	if err != nil {
		return err
	}

	log := rc.log.WithFields(logrus.Fields{
		"file":        cmd.In,
		"sample_rate": p.SampleRate,
		"channels":    len(p.Channels),
		"bit_depth":   p.BitDepth,
		"model":       cmd.Comp.Model,
		"linked":      cmd.Link,
	})
	log.Info("compressing")

	metrics, err := compressPCM(p, cmd.Comp, cmd.Link)
	if err != nil {
		return err
	}

	for ch, m := range metrics {
		log.WithFields(logrus.Fields{
			"channel":          ch,
			"input_peak":       m.InputPeak,
			"output_peak":      m.OutputPeak,
			"max_reduction_db": m.MaxReductionDB,
		}).Debug("channel done")
	}

	if err := writeWAV(cmd.Out, p); err != nil {
		return err
	}

	log.WithField("out", cmd.Out).Info("written")

	fmt.Fprintln(rc.out, renderTitle("Compressed"), renderKV("frames", p.frames()))
	for ch, m := range metrics {
		fmt.Fprintln(rc.out, renderKV(fmt.Sprintf("  ch%d max reduction", ch), fmt.Sprintf("%.2f dB", m.MaxReductionDB)))
	}

	return nil
}
