package ringpipe

import "time"

const (
	defaultCapacity    = 8
	defaultJoinTimeout = time.Second
)

// Option provides a way to set functional parameters to pipe.
type Option func(p *Pipe)

// WithLogger sets logger to Pipe. If this option is not provided, silent
// logger is used.
func WithLogger(logger Logger) Option {
	return func(p *Pipe) {
		p.log = logger
	}
}

// WithName sets name to Pipe.
func WithName(n string) Option {
	return func(p *Pipe) {
		p.name = n
	}
}

// WithBufferCapacity sets the capacity of every ring buffer of the pipe.
// Capacity must be a power of two; New fails otherwise. A buffer of
// capacity n holds up to n-1 frames.
func WithBufferCapacity(capacity int) Option {
	return func(p *Pipe) {
		p.capacity = capacity
	}
}

// WithPolicy sets the pipe-wide backoff policy. Stages with their own
// policy override it.
func WithPolicy(pol Policy) Option {
	return func(p *Pipe) {
		p.policy = pol
	}
}

// WithJoinTimeout bounds how long Stop waits for each stage goroutine to
// exit.
func WithJoinTimeout(d time.Duration) Option {
	return func(p *Pipe) {
		p.joinTimeout = d
	}
}
