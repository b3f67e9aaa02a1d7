package ringpipe

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/xid"

	"pipelined.dev/ringpipe/frame"
	"pipelined.dev/ringpipe/internal/runner"
	"pipelined.dev/ringpipe/metric"
	"pipelined.dev/ringpipe/ring"
)

// Pipe is a pipeline with fully defined frame processing sequence. It owns
// the stages, the ring buffers connecting them and the frame pool; stages
// and buffers never outlive the pipe that created them.
type Pipe struct {
	uid         string
	name        string
	frameSize   int
	capacity    int
	policy      Policy
	joinTimeout time.Duration
	log         Logger

	props   SignalProperties
	pool    *frame.Pool
	runners []runner.Runner
	entry   *ring.Buffer[*frame.Frame]
	exit    *ring.Buffer[*frame.Frame]

	started   atomic.Bool
	startOnce sync.Once
	merger    *errorMerger
	done      chan struct{}

	mu  sync.Mutex
	err error
}

// New creates a new pipe: it executes all allocators provided by the
// routing, validates the configuration and binds the stages together with
// ring buffers. Configuration errors surface here, never mid-stream.
func New(frameSize int, r Routing, options ...Option) (*Pipe, error) {
	p := &Pipe{
		uid:         xid.New().String(),
		frameSize:   frameSize,
		capacity:    defaultCapacity,
		policy:      DefaultPolicy(),
		joinTimeout: defaultJoinTimeout,
		log:         defaultLogger,
		done:        make(chan struct{}),
	}
	for _, option := range options {
		option(p)
	}
	if frameSize <= 0 {
		return nil, fmt.Errorf("frame size %d: %w", frameSize, ErrInvalidFrameSize)
	}
	if p.capacity < 2 || p.capacity&(p.capacity-1) != 0 {
		return nil, fmt.Errorf("buffer capacity %d: %w", p.capacity, ErrNotPowerOfTwo)
	}
	if r.Source == nil && r.Sink == nil && len(r.Processors) == 0 {
		return nil, ErrEmptyRouting
	}
	if err := p.bind(r); err != nil {
		return nil, err
	}
	return p, nil
}

// bind allocates the stages and wires them with ring buffers: one ring per
// internal connection, plus an entry or exit ring when the routing leaves
// the corresponding end open.
func (p *Pipe) bind(r Routing) error {
	var (
		source     Source
		processors []Processor
		sink       Sink
		props      SignalProperties
		err        error
	)
	if r.Source != nil {
		if source, err = r.Source(p.frameSize); err != nil {
			return fmt.Errorf("source: %w", err)
		}
		props = source.Output
	}
	processors = make([]Processor, 0, len(r.Processors))
	for _, fn := range r.Processors {
		proc, err := fn(p.frameSize, props)
		if err != nil {
			return fmt.Errorf("processor: %w", err)
		}
		if proc.Output != (SignalProperties{}) {
			props = proc.Output
		}
		processors = append(processors, proc)
	}
	if r.Sink != nil {
		if sink, err = r.Sink(p.frameSize, props); err != nil {
			return fmt.Errorf("sink: %w", err)
		}
	}
	p.props = props

	channels := props.Channels
	if channels < 1 {
		channels = 1
	}
	p.pool = frame.NewPool(p.frameSize * channels)

	var (
		prev     *ring.Buffer[*frame.Frame]
		prevDone func() bool
	)
	if r.Source != nil {
		out, _ := ring.New[*frame.Frame](p.capacity)
		sr := &runner.Source{Output: out, Pool: p.pool, Fn: source.SourceFunc}
		sr.Key = p.stageKey("source")
		sr.IdleWait = p.idleWait(source.Policy)
		sr.DropOnOverflow = source.Policy.Overflow == OverflowDrop
		sr.StartHook = runner.HookFunc(source.StartFunc)
		sr.FlushHook = runner.HookFunc(source.FlushFunc)
		sr.Meter = metric.Meter(sr.Key, source.Output.SampleRate)
		p.runners = append(p.runners, sr)
		prev, prevDone = out, sr.Done
	} else {
		p.entry, _ = ring.New[*frame.Frame](p.capacity)
		prev, prevDone = p.entry, nil
	}
	for i := range processors {
		out, _ := ring.New[*frame.Frame](p.capacity)
		pr := &runner.Processor{
			Input:        prev,
			Output:       out,
			Pool:         p.pool,
			Fn:           processors[i].ProcessFunc,
			UpstreamDone: prevDone,
		}
		pr.Key = p.stageKey(fmt.Sprintf("processor.%d", i))
		pr.IdleWait = p.idleWait(processors[i].Policy)
		pr.DropOnOverflow = processors[i].Policy.Overflow == OverflowDrop
		pr.StartHook = runner.HookFunc(processors[i].StartFunc)
		pr.FlushHook = runner.HookFunc(processors[i].FlushFunc)
		pr.Meter = metric.Meter(pr.Key, props.SampleRate)
		p.runners = append(p.runners, pr)
		prev, prevDone = out, pr.Done
	}
	if r.Sink != nil {
		sk := &runner.Sink{
			Input:        prev,
			Pool:         p.pool,
			Fn:           sink.SinkFunc,
			UpstreamDone: prevDone,
		}
		sk.Key = p.stageKey("sink")
		sk.IdleWait = p.idleWait(sink.Policy)
		sk.StartHook = runner.HookFunc(sink.StartFunc)
		sk.FlushHook = runner.HookFunc(sink.FlushFunc)
		sk.Meter = metric.Meter(sk.Key, props.SampleRate)
		p.runners = append(p.runners, sk)
	} else {
		p.exit = prev
	}
	return nil
}

func (p *Pipe) stageKey(kind string) string {
	return fmt.Sprintf("%s.%s", p.uid, kind)
}

// idleWait resolves the stage backoff: zero inherits the pipe-wide policy,
// Spin turns into a bare yield.
func (p *Pipe) idleWait(pol Policy) time.Duration {
	idle := pol.Idle
	if idle == 0 {
		idle = p.policy.Idle
	}
	if idle < 0 {
		idle = 0
	}
	return idle
}

// Start launches one goroutine per stage. Consequent calls do nothing.
func (p *Pipe) Start() {
	p.startOnce.Do(func() {
		p.log.Debug(fmt.Sprintf("%v starting %d stages", p, len(p.runners)))
		p.merger = &errorMerger{errorChan: make(chan error, 1)}
		errcs := make([]<-chan error, 0, len(p.runners))
		for _, r := range p.runners {
			errcs = append(errcs, r.Run())
		}
		p.merger.add(errcs...)
		go p.merger.wait()
		go p.supervise()
		p.started.Store(true)
	})
}

// supervise winds the pipeline down when any stage fails: the remaining
// stages only observe their own stop flag and buffer state, never each
// other, so the faulted stage is surfaced instead of leaving the pipe
// partially running.
func (p *Pipe) supervise() {
	for err := range p.merger.errorChan {
		p.setErr(err)
		p.log.Info(fmt.Sprintf("%v stage failed: %v", p, err))
		for i := len(p.runners) - 1; i >= 0; i-- {
			p.runners[i].Stop()
		}
	}
	close(p.done)
}

// Stop requests all stages to exit, in reverse of the start order, and
// joins every stage goroutine. The join is bounded: a stage that fails to
// exit within the join timeout is reported, never waited on forever. Stop
// never deadlocks, a faulted pipe included. Calling Stop on a pipe that
// already finished just reports its final error state.
func (p *Pipe) Stop() error {
	if !p.started.Load() {
		return nil
	}
	p.log.Debug(fmt.Sprintf("%v is stopping", p))
	var errs execErrors
	for i := len(p.runners) - 1; i >= 0; i-- {
		p.runners[i].Stop()
	}
	for i := len(p.runners) - 1; i >= 0; i-- {
		if err := p.runners[i].Join(p.joinTimeout); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) == 0 {
		// all loops exited, the merger is guaranteed to settle
		<-p.done
	}
	if err := p.Err(); err != nil {
		errs = append(errs, err)
	}
	return errs.ret()
}

// Wait blocks until all stages have exited: the source is exhausted, a
// stage failed, or Stop was called. It returns the first stage error.
func (p *Pipe) Wait() error {
	<-p.done
	return p.Err()
}

// Err returns the first error a stage failed with, nil if none.
func (p *Pipe) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

// IsHealthy reports whether no stage has faulted.
func (p *Pipe) IsHealthy() bool {
	if p.Err() != nil {
		return false
	}
	for _, r := range p.runners {
		if r.State() == runner.Faulted {
			return false
		}
	}
	return true
}

// StageStates returns the state of every stage in pipeline order.
func (p *Pipe) StageStates() []string {
	states := make([]string, 0, len(p.runners))
	for _, r := range p.runners {
		states = append(states, r.State().String())
	}
	return states
}

// Entry returns the entry ring buffer of a pipe built without a source.
// The external producer must obey the SPSC contract: exactly one goroutine
// pushes frames, drawn from Pool. It returns nil if the routing has a
// source.
func (p *Pipe) Entry() *ring.Buffer[*frame.Frame] {
	return p.entry
}

// Exit returns the exit ring buffer of a pipe built without a sink. The
// external consumer must obey the SPSC contract: exactly one goroutine
// pops frames and returns them to Pool. It returns nil if the routing has
// a sink.
func (p *Pipe) Exit() *ring.Buffer[*frame.Frame] {
	return p.exit
}

// Pool returns the frame pool of the pipe. External producers and
// consumers recycle frames through it.
func (p *Pipe) Pool() *frame.Pool {
	return p.pool
}

// Properties returns the signal properties at the end of the pipeline.
func (p *Pipe) Properties() SignalProperties {
	return p.props
}

// String returns pipe name with uid, or just the uid if no name was set.
func (p *Pipe) String() string {
	if p.name == "" {
		return p.uid
	}
	return fmt.Sprintf("%v %v", p.name, p.uid)
}

func (p *Pipe) setErr(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err == nil {
		p.err = err
	}
}
