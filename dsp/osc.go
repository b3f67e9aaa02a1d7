// Package dsp provides basic signal generators and processors built on top
// of the pipeline stage contracts.
package dsp

import (
	"math"

	"pipelined.dev/ringpipe"
	"pipelined.dev/ringpipe/frame"
	"pipelined.dev/ringpipe/param"
)

// Oscillator generates an endless sine wave. Frequency and amplitude are
// runtime parameters: setters may be called from any goroutine while the
// pipeline is running, the new values take effect on the next frame.
type Oscillator struct {
	sampleRate int
	channels   int
	freq       param.Float64
	amp        param.Float64
	phase      float64
}

// Sine returns a sine oscillator with the given frequency in hertz and
// linear amplitude.
func Sine(sampleRate, channels int, freq, amp float64) *Oscillator {
	o := Oscillator{
		sampleRate: sampleRate,
		channels:   channels,
	}
	o.freq.Store(freq)
	o.amp.Store(amp)
	return &o
}

// SetFrequency sets oscillator frequency in hertz.
func (o *Oscillator) SetFrequency(hz float64) {
	o.freq.Store(hz)
}

// SetAmplitude sets linear amplitude.
func (o *Oscillator) SetAmplitude(amp float64) {
	o.amp.Store(amp)
}

// Source returns the source allocator of the oscillator. The source never
// reaches end of stream, the pipe has to be stopped explicitly.
func (o *Oscillator) Source() ringpipe.SourceAllocatorFunc {
	return func(frameSize int) (ringpipe.Source, error) {
		return ringpipe.Source{
			Output: ringpipe.SignalProperties{
				SampleRate: o.sampleRate,
				Channels:   o.channels,
			},
			SourceFunc: o.source,
		}, nil
	}
}

func (o *Oscillator) source(out *frame.Frame) error {
	var (
		freq = o.freq.Load()
		amp  = o.amp.Load()
		step = 2 * math.Pi * freq / float64(o.sampleRate)
	)
	for i := 0; i < len(out.Samples); i += o.channels {
		v := amp * math.Sin(o.phase)
		for c := 0; c < o.channels; c++ {
			out.Samples[i+c] = v
		}
		o.phase += step
		if o.phase > 2*math.Pi {
			o.phase -= 2 * math.Pi
		}
	}
	return nil
}
