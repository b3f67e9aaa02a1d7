package dsp

import (
	"pipelined.dev/ringpipe"
	"pipelined.dev/ringpipe/frame"
	"pipelined.dev/ringpipe/param"
)

// Clip is a hard limiter: samples outside [-threshold, threshold] are
// clamped to the threshold. The threshold is a runtime parameter.
type Clip struct {
	threshold param.Float64
}

// NewClip returns a clip processor with the given threshold.
func NewClip(threshold float64) *Clip {
	c := Clip{}
	c.threshold.Store(threshold)
	return &c
}

// SetThreshold sets the clipping threshold.
func (c *Clip) SetThreshold(threshold float64) {
	c.threshold.Store(threshold)
}

// Processor returns the processor allocator of the clip.
func (c *Clip) Processor() ringpipe.ProcessorAllocatorFunc {
	return func(frameSize int, input ringpipe.SignalProperties) (ringpipe.Processor, error) {
		return ringpipe.Processor{
			ProcessFunc: func(f *frame.Frame) error {
				t := c.threshold.Load()
				for i, v := range f.Samples {
					if v > t {
						f.Samples[i] = t
					} else if v < -t {
						f.Samples[i] = -t
					}
				}
				return nil
			},
		}, nil
	}
}
