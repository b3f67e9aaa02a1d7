// Package frame defines the unit of transfer between pipeline stages: a
// fixed-size block of audio samples tagged with a sequence index.
package frame

import (
	"sync"
	"time"
)

// Frame holds samples of a single buffer-worth of signal. Samples are
// interleaved when the signal has more than one channel. Seq is assigned
// by the originating producer and grows monotonically; stages forward it
// untouched, so the sink observes the order frames entered the pipeline.
//
// A frame is owned by exactly one stage at a time: the stage that popped
// it mutates it in place and pushes it further. Once pushed, the producer
// must not touch it again.
type Frame struct {
	Seq     uint64
	Samples []float64
}

// Len returns the number of samples in the frame.
func (f *Frame) Len() int {
	return len(f.Samples)
}

// Clear zeroes the samples, keeping the length.
func (f *Frame) Clear() {
	for i := range f.Samples {
		f.Samples[i] = 0
	}
}

// CopyFrom copies samples and sequence from another frame of the same size.
func (f *Frame) CopyFrom(src *Frame) {
	f.Seq = src.Seq
	copy(f.Samples, src.Samples)
}

// DurationOf returns the time duration of a sample count at provided
// sample rate.
func DurationOf(sampleRate int, samples int64) time.Duration {
	return time.Duration(float64(samples) / float64(sampleRate) * float64(time.Second))
}

// Pool recycles frames of a fixed size. Sources draw frames from the pool,
// sinks return them, so a running pipeline stops hitting the allocator
// once the first frames made the round trip.
type Pool struct {
	size int
	pool sync.Pool
}

// NewPool returns a pool of frames with provided number of samples each.
func NewPool(size int) *Pool {
	return &Pool{
		size: size,
		pool: sync.Pool{
			New: func() interface{} {
				return &Frame{Samples: make([]float64, size)}
			},
		},
	}
}

// Size returns the number of samples per pooled frame.
func (p *Pool) Size() int {
	return p.size
}

// Get returns a frame from the pool. Samples hold whatever the previous
// owner left there; the caller is expected to overwrite them.
func (p *Pool) Get() *Frame {
	f := p.pool.Get().(*Frame)
	f.Seq = 0
	f.Samples = f.Samples[:p.size]
	return f
}

// Put returns a frame to the pool. The caller must not use the frame
// afterwards. Frames of a different size are discarded.
func (p *Pool) Put(f *Frame) {
	if f == nil || cap(f.Samples) < p.size {
		return
	}
	p.pool.Put(f)
}
