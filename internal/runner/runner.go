// Package runner executes pipeline stages. Every runner owns one worker
// goroutine with a poll loop over lock-free ring buffers: pop from the
// input ring, process, push to the output ring. Frames are recycled
// through a shared pool, so a settled pipeline runs without allocations.
//
// The loop never blocks: a full or empty ring is answered with a bounded
// backoff, a stop request is observed at every iteration boundary. This
// keeps both the processing latency and the shutdown time bounded.
package runner

import (
	"errors"
	"fmt"
	"io"
	"runtime"
	"sync/atomic"
	"time"

	"pipelined.dev/ringpipe/frame"
	"pipelined.dev/ringpipe/metric"
	"pipelined.dev/ringpipe/ring"
)

// State identifies one of the possible states a stage can be in.
type State int32

// Stage states. A stage starts Idle, runs after Run, turns Stopping when
// stop is requested and settles as Stopped once its loop exits. Faulted is
// terminal: the stage failed and stopped its own loop.
const (
	Idle State = iota
	Running
	Stopping
	Stopped
	Faulted
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Stopping:
		return "stopping"
	case Stopped:
		return "stopped"
	case Faulted:
		return "faulted"
	}
	return "unknown"
}

var (
	// ErrStagePanic wraps a panic recovered from a stage closure.
	ErrStagePanic = errors.New("stage panicked")
	// ErrJoinTimeout is returned when a stage failed to stop in time.
	ErrJoinTimeout = errors.New("stage join timed out")
)

// HookFunc is an optional stage lifecycle hook.
type HookFunc func() error

// Runner is a single stage bound to its buffers and executed in its own
// goroutine.
type Runner interface {
	// Run starts the worker goroutine and returns its error channel. The
	// channel is closed when the loop exits. Run is idempotent: calling it
	// on a started runner returns the same channel.
	Run() <-chan error
	// Stop requests the loop to exit. It returns immediately, the loop
	// observes the request at the next iteration boundary.
	Stop()
	// Join waits for the loop to exit, at most for provided timeout.
	Join(timeout time.Duration) error
	// State returns the current stage state.
	State() State
	// Done reports whether the loop has exited, successfully or not.
	Done() bool
}

// stage holds the lifecycle and policy shared by all runner kinds.
type stage struct {
	// Key identifies the stage in metrics and errors.
	Key string
	// IdleWait is the sleep before retrying an empty or full ring.
	// Zero yields the processor instead of sleeping.
	IdleWait time.Duration
	// DropOnOverflow drops the outgoing frame when the output ring is
	// full instead of waiting for space. Evicting the oldest frame is not
	// an option: popping the output ring belongs to the consumer side of
	// the SPSC contract.
	DropOnOverflow bool
	// Meter captures stage counters, may be nil.
	Meter metric.ResetFunc
	// StartHook runs before the loop, FlushHook after, both optional.
	StartHook HookFunc
	FlushHook HookFunc

	state atomic.Int32
	quit  atomic.Bool
	errc  chan error
	done  chan struct{}
}

// begin transitions Idle to Running. The boolean reports whether this call
// won the transition and owns the loop start.
func (s *stage) begin() (chan error, bool) {
	if !s.state.CompareAndSwap(int32(Idle), int32(Running)) {
		return s.errc, false
	}
	// two slots: the loop error and a possible flush error after it
	s.errc = make(chan error, 2)
	s.done = make(chan struct{})
	return s.errc, true
}

// Stop requests the loop to exit.
func (s *stage) Stop() {
	s.quit.Store(true)
	s.state.CompareAndSwap(int32(Running), int32(Stopping))
}

// Join waits for the loop to exit, at most for provided timeout.
func (s *stage) Join(timeout time.Duration) error {
	if s.done == nil {
		return nil
	}
	select {
	case <-s.done:
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("%s: %w", s.Key, ErrJoinTimeout)
	}
}

// State returns the current stage state.
func (s *stage) State() State {
	return State(s.state.Load())
}

// Done reports whether the loop has exited.
func (s *stage) Done() bool {
	st := s.State()
	return st == Stopped || st == Faulted
}

// fault marks the stage Faulted and reports the error.
func (s *stage) fault(errc chan<- error, err error) {
	s.state.Store(int32(Faulted))
	errc <- fmt.Errorf("%s: %w", s.Key, err)
}

// settle marks a cleanly exited loop Stopped. A Faulted stage stays
// Faulted.
func (s *stage) settle() {
	s.state.CompareAndSwap(int32(Running), int32(Stopped))
	s.state.CompareAndSwap(int32(Stopping), int32(Stopped))
}

// backoff waits before the next poll of a contended ring.
func (s *stage) backoff() {
	if s.IdleWait > 0 {
		time.Sleep(s.IdleWait)
	} else {
		runtime.Gosched()
	}
}

// push retries until the frame lands or the policy gives up. It returns
// false if the frame was not pushed: either stop was requested or the
// overflow policy dropped it. The caller still owns the frame then.
func (s *stage) push(out *ring.Buffer[*frame.Frame], f *frame.Frame) bool {
	for !out.Push(f) {
		if s.DropOnOverflow || s.quit.Load() {
			return false
		}
		s.backoff()
	}
	return true
}

// measure returns the capture closure of the stage meter.
func (s *stage) measure() metric.MeasureFunc {
	if s.Meter == nil {
		return func(int64) {}
	}
	return s.Meter()
}

func callHook(fn HookFunc) error {
	if fn == nil {
		return nil
	}
	return fn()
}

// execute calls the stage closure with panic containment: a panicking
// stage faults itself instead of tearing the process down and never
// corrupts the rings, since the frame was not pushed yet.
func execute(fn func(*frame.Frame) error, f *frame.Frame) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("%w: %v", ErrStagePanic, p)
		}
	}()
	return fn(f)
}

type (
	// Source manufactures frames and pushes them into its output ring.
	// It has no input: frames are drawn from the pool and stamped with a
	// monotonically increasing sequence index.
	Source struct {
		stage
		Output *ring.Buffer[*frame.Frame]
		Pool   *frame.Pool
		Fn     func(out *frame.Frame) error

		seq uint64
	}

	// Processor pops frames from its input ring, transforms them in
	// place and pushes them into its output ring.
	Processor struct {
		stage
		Input  *ring.Buffer[*frame.Frame]
		Output *ring.Buffer[*frame.Frame]
		Pool   *frame.Pool
		Fn     func(f *frame.Frame) error
		// UpstreamDone reports whether the feeding stage has exited. A
		// nil value means the input is fed externally and never drains.
		UpstreamDone func() bool
	}

	// Sink pops frames from its input ring, consumes them and returns
	// them to the pool.
	Sink struct {
		stage
		Input *ring.Buffer[*frame.Frame]
		Pool  *frame.Pool
		Fn    func(f *frame.Frame) error
		// UpstreamDone reports whether the feeding stage has exited.
		UpstreamDone func() bool
	}
)

// Run starts the source loop.
func (r *Source) Run() <-chan error {
	errc, first := r.begin()
	if !first {
		return errc
	}
	go r.run(errc)
	return errc
}

func (r *Source) run(errc chan error) {
	defer close(r.done)
	defer close(errc)
	if err := callHook(r.StartHook); err != nil {
		r.fault(errc, fmt.Errorf("start: %w", err))
		return
	}
	defer func() {
		if err := callHook(r.FlushHook); err != nil {
			r.fault(errc, fmt.Errorf("flush: %w", err))
		}
	}()
	measure := r.measure()
	for !r.quit.Load() {
		f := r.Pool.Get()
		f.Seq = r.seq
		err := execute(r.Fn, f)
		if errors.Is(err, io.EOF) {
			r.Pool.Put(f)
			break
		}
		if err != nil {
			r.Pool.Put(f)
			r.fault(errc, err)
			return
		}
		r.seq++
		measure(int64(f.Len()))
		if !r.push(r.Output, f) {
			r.Pool.Put(f)
			if r.DropOnOverflow && !r.quit.Load() {
				metric.Dropped(r.Key)
				continue
			}
			break
		}
	}
	r.settle()
}

// Run starts the processor loop.
func (r *Processor) Run() <-chan error {
	errc, first := r.begin()
	if !first {
		return errc
	}
	go r.run(errc)
	return errc
}

func (r *Processor) run(errc chan error) {
	defer close(r.done)
	defer close(errc)
	if err := callHook(r.StartHook); err != nil {
		r.fault(errc, fmt.Errorf("start: %w", err))
		return
	}
	defer func() {
		if err := callHook(r.FlushHook); err != nil {
			r.fault(errc, fmt.Errorf("flush: %w", err))
		}
	}()
	measure := r.measure()
	for !r.quit.Load() {
		f, ok := r.Input.Pop()
		if !ok {
			if drained(r.UpstreamDone, r.Input) {
				break
			}
			r.backoff()
			continue
		}
		if err := execute(r.Fn, f); err != nil {
			r.Pool.Put(f)
			r.fault(errc, err)
			return
		}
		measure(int64(f.Len()))
		if !r.push(r.Output, f) {
			r.Pool.Put(f)
			if r.DropOnOverflow && !r.quit.Load() {
				metric.Dropped(r.Key)
				continue
			}
			break
		}
	}
	r.settle()
}

// Run starts the sink loop.
func (r *Sink) Run() <-chan error {
	errc, first := r.begin()
	if !first {
		return errc
	}
	go r.run(errc)
	return errc
}

func (r *Sink) run(errc chan error) {
	defer close(r.done)
	defer close(errc)
	if err := callHook(r.StartHook); err != nil {
		r.fault(errc, fmt.Errorf("start: %w", err))
		return
	}
	defer func() {
		if err := callHook(r.FlushHook); err != nil {
			r.fault(errc, fmt.Errorf("flush: %w", err))
		}
	}()
	measure := r.measure()
	for !r.quit.Load() {
		f, ok := r.Input.Pop()
		if !ok {
			if drained(r.UpstreamDone, r.Input) {
				break
			}
			r.backoff()
			continue
		}
		err := execute(r.Fn, f)
		measure(int64(f.Len()))
		r.Pool.Put(f)
		if err != nil {
			r.fault(errc, err)
			return
		}
	}
	r.settle()
}

// drained reports whether the input is exhausted for good: the upstream
// stage has exited and everything it pushed was consumed. The order of
// checks matters - once the upstream is observed done, no new frames can
// appear, so a subsequent empty check is conclusive.
func drained(upstreamDone func() bool, in *ring.Buffer[*frame.Frame]) bool {
	return upstreamDone != nil && upstreamDone() && in.Empty()
}
