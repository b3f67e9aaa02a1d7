package ringpipe

import (
	"pipelined.dev/ringpipe/frame"
)

type (
	// SourceFunc fills the provided frame with new signal. Implementations
	// should use the following error conventions:
	//		- nil if a full frame was produced;
	//		- io.EOF if the source is exhausted.
	// The frame is drawn from the pipe's pool and stamped with its
	// sequence index before the call.
	SourceFunc func(out *frame.Frame) error

	// ProcessFunc transforms the frame in place. It must be real-time
	// safe: no locks, no allocations, no unbounded loops.
	ProcessFunc func(f *frame.Frame) error

	// SinkFunc consumes the frame. After it returns, the frame goes back
	// to the pool and must not be retained.
	SinkFunc func(f *frame.Frame) error

	// HookFunc is an optional lifecycle hook, executed before the stage
	// loop starts or after it exits. It is the place for clean up logic:
	// closing files, flushing encoders.
	HookFunc func() error
)

type (
	// SignalProperties contains information about the signal that flows
	// between two stages.
	SignalProperties struct {
		SampleRate int
		Channels   int
	}

	// Source is the origin of frames. Output properties describe the
	// signal it produces.
	Source struct {
		Output SignalProperties
		SourceFunc
		StartFunc HookFunc
		FlushFunc HookFunc
		Policy    Policy
	}

	// Processor transforms frames. Output properties may be left zero to
	// inherit the input signal unchanged.
	Processor struct {
		Output SignalProperties
		ProcessFunc
		StartFunc HookFunc
		FlushFunc HookFunc
		Policy    Policy
	}

	// Sink is the destination of frames.
	Sink struct {
		SinkFunc
		StartFunc HookFunc
		FlushFunc HookFunc
		Policy    Policy
	}
)

type (
	// SourceAllocatorFunc returns a source for provided frame size. It is
	// responsible for pre-allocation of all necessary buffers and
	// structures, so the stage loop itself doesn't have to allocate.
	SourceAllocatorFunc func(frameSize int) (Source, error)

	// ProcessorAllocatorFunc returns a processor for provided frame size
	// and input signal properties.
	ProcessorAllocatorFunc func(frameSize int, input SignalProperties) (Processor, error)

	// SinkAllocatorFunc returns a sink for provided frame size and input
	// signal properties.
	SinkAllocatorFunc func(frameSize int, input SignalProperties) (Sink, error)

	// Routing defines the sequence of stage allocators. Source and Sink
	// may be nil: the pipe then exposes an entry or exit ring buffer for
	// an external producer or consumer.
	Routing struct {
		Source     SourceAllocatorFunc
		Processors []ProcessorAllocatorFunc
		Sink       SinkAllocatorFunc
	}
)

// Processors is a helper to use in routing.
func Processors(fns ...ProcessorAllocatorFunc) []ProcessorAllocatorFunc {
	return fns
}

// Logger is a global interface for pipe loggers.
type Logger interface {
	Debug(...interface{})
	Info(...interface{})
}

type silentLogger struct{}

func (silentLogger) Debug(args ...interface{}) {}

func (silentLogger) Info(args ...interface{}) {}

var defaultLogger silentLogger
