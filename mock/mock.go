// Package mock provides mocks for pipeline stages and allows to execute
// integration tests.
package mock

import (
	"io"
	"time"

	"pipelined.dev/ringpipe"
	"pipelined.dev/ringpipe/frame"
)

// Counter counts stage calls.
type Counter struct {
	Frames  int
	Samples int
}

func (c *Counter) advance(f *frame.Frame) {
	c.Frames++
	c.Samples += f.Len()
}

// Hooks mocks stage lifecycle hooks.
type Hooks struct {
	Started      bool
	Flushed      bool
	ErrorOnStart error
	ErrorOnFlush error
}

func (h *Hooks) start() error {
	h.Started = true
	return h.ErrorOnStart
}

func (h *Hooks) flush() error {
	h.Flushed = true
	return h.ErrorOnFlush
}

// Source mocks a source stage. It produces Limit frames filled with Value.
type Source struct {
	Counter
	Hooks
	Limit       int
	Value       float64
	Interval    time.Duration
	SampleRate  int
	Channels    int
	Policy      ringpipe.Policy
	ErrorOnCall error
	ErrorOnMake error
}

// Source returns the allocator of the mocked source.
func (m *Source) Source() ringpipe.SourceAllocatorFunc {
	return func(frameSize int) (ringpipe.Source, error) {
		if m.ErrorOnMake != nil {
			return ringpipe.Source{}, m.ErrorOnMake
		}
		return ringpipe.Source{
			Output: ringpipe.SignalProperties{
				SampleRate: m.SampleRate,
				Channels:   m.Channels,
			},
			SourceFunc: func(out *frame.Frame) error {
				if m.ErrorOnCall != nil {
					return m.ErrorOnCall
				}
				if m.Frames >= m.Limit {
					return io.EOF
				}
				if m.Interval > 0 {
					time.Sleep(m.Interval)
				}
				for i := range out.Samples {
					out.Samples[i] = m.Value
				}
				m.advance(out)
				return nil
			},
			StartFunc: m.start,
			FlushFunc: m.flush,
			Policy:    m.Policy,
		}, nil
	}
}

// Processor mocks a processor stage.
type Processor struct {
	Counter
	Hooks
	Policy      ringpipe.Policy
	ErrorOnCall error
	ErrorOnMake error
	PanicOnCall interface{}
	// Mutator is applied to every frame, optional.
	Mutator func(f *frame.Frame)
}

// Processor returns the allocator of the mocked processor.
func (m *Processor) Processor() ringpipe.ProcessorAllocatorFunc {
	return func(frameSize int, input ringpipe.SignalProperties) (ringpipe.Processor, error) {
		if m.ErrorOnMake != nil {
			return ringpipe.Processor{}, m.ErrorOnMake
		}
		return ringpipe.Processor{
			ProcessFunc: func(f *frame.Frame) error {
				if m.PanicOnCall != nil {
					panic(m.PanicOnCall)
				}
				if m.ErrorOnCall != nil {
					return m.ErrorOnCall
				}
				if m.Mutator != nil {
					m.Mutator(f)
				}
				m.advance(f)
				return nil
			},
			StartFunc: m.start,
			FlushFunc: m.flush,
			Policy:    m.Policy,
		}, nil
	}
}

// Sink mocks a sink stage. It records the sequence indices of consumed
// frames.
type Sink struct {
	Counter
	Hooks
	Seqs        []uint64
	Values      []float64
	Policy      ringpipe.Policy
	ErrorOnCall error
	ErrorOnMake error
}

// Sink returns the allocator of the mocked sink.
func (m *Sink) Sink() ringpipe.SinkAllocatorFunc {
	return func(frameSize int, input ringpipe.SignalProperties) (ringpipe.Sink, error) {
		if m.ErrorOnMake != nil {
			return ringpipe.Sink{}, m.ErrorOnMake
		}
		return ringpipe.Sink{
			SinkFunc: func(f *frame.Frame) error {
				if m.ErrorOnCall != nil {
					return m.ErrorOnCall
				}
				m.Seqs = append(m.Seqs, f.Seq)
				if f.Len() > 0 {
					m.Values = append(m.Values, f.Samples[0])
				}
				m.advance(f)
				return nil
			},
			StartFunc: m.start,
			FlushFunc: m.flush,
			Policy:    m.Policy,
		}, nil
	}
}
