package dsp

import (
	"math"

	"pipelined.dev/ringpipe"
	"pipelined.dev/ringpipe/frame"
	"pipelined.dev/ringpipe/ring"
)

// Levels holds the measured levels of a single frame.
type Levels struct {
	Seq  uint64
	Peak float64
	RMS  float64
}

// Meter measures peak and RMS levels of passing frames. Levels are
// published through a triple buffer: the pipeline goroutine writes without
// ever blocking, a reader goroutine always observes the most recent
// measurement.
type Meter struct {
	levels *ring.TripleBuffer[Levels]
}

// NewMeter returns a level meter.
func NewMeter() *Meter {
	return &Meter{
		levels: ring.NewTripleBuffer[Levels](),
	}
}

// Levels returns the most recent measurement. The flag is false if no new
// frame was measured since the last call.
func (m *Meter) Levels() (Levels, bool) {
	return m.levels.Read()
}

// Processor returns the processor allocator of the meter. Frames pass
// through unmodified.
func (m *Meter) Processor() ringpipe.ProcessorAllocatorFunc {
	return func(frameSize int, input ringpipe.SignalProperties) (ringpipe.Processor, error) {
		return ringpipe.Processor{
			ProcessFunc: func(f *frame.Frame) error {
				m.levels.Put(measure(f))
				return nil
			},
		}, nil
	}
}

func measure(f *frame.Frame) Levels {
	l := Levels{Seq: f.Seq}
	if len(f.Samples) == 0 {
		return l
	}
	var sum float64
	for _, v := range f.Samples {
		if a := math.Abs(v); a > l.Peak {
			l.Peak = a
		}
		sum += v * v
	}
	l.RMS = math.Sqrt(sum / float64(len(f.Samples)))
	return l
}
