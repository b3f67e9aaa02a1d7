package dsp

import (
	"math"

	"pipelined.dev/ringpipe"
	"pipelined.dev/ringpipe/frame"
	"pipelined.dev/ringpipe/param"
)

// Gain scales every sample by a linear factor. The factor is a runtime
// parameter, safe to change while the pipeline is running.
type Gain struct {
	gain param.Float64
}

// NewGain returns a gain processor with the given linear factor.
func NewGain(gain float64) *Gain {
	g := Gain{}
	g.gain.Store(gain)
	return &g
}

// SetGain sets the linear gain factor.
func (g *Gain) SetGain(gain float64) {
	g.gain.Store(gain)
}

// SetGainDB sets the gain factor in decibels.
func (g *Gain) SetGainDB(db float64) {
	g.gain.Store(math.Pow(10, db/20))
}

// Processor returns the processor allocator of the gain.
func (g *Gain) Processor() ringpipe.ProcessorAllocatorFunc {
	return func(frameSize int, input ringpipe.SignalProperties) (ringpipe.Processor, error) {
		return ringpipe.Processor{
			ProcessFunc: func(f *frame.Frame) error {
				gain := g.gain.Load()
				for i := range f.Samples {
					f.Samples[i] *= gain
				}
				return nil
			},
		}, nil
	}
}
