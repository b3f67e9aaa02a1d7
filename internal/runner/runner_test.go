package runner

import (
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pipelined.dev/ringpipe/frame"
	"pipelined.dev/ringpipe/ring"
)

const (
	frameSize   = 64
	joinTimeout = time.Second
)

func newRing(t *testing.T, capacity int) *ring.Buffer[*frame.Frame] {
	t.Helper()
	b, err := ring.New[*frame.Frame](capacity)
	require.NoError(t, err)
	return b
}

// limited returns a source closure producing value-filled frames and EOF
// after limit frames.
func limited(limit int, value float64) func(*frame.Frame) error {
	produced := 0
	return func(f *frame.Frame) error {
		if produced >= limit {
			return io.EOF
		}
		for i := range f.Samples {
			f.Samples[i] = value
		}
		produced++
		return nil
	}
}

func TestSourceLifecycle(t *testing.T) {
	out := newRing(t, 16)
	pool := frame.NewPool(frameSize)
	r := &Source{
		stage:  stage{Key: "test.source"},
		Output: out,
		Pool:   pool,
		Fn:     limited(5, 0.5),
	}
	assert.Equal(t, Idle, r.State())

	errc := r.Run()
	assert.NotNil(t, errc)
	// idempotent: second Run returns the same channel
	assert.Equal(t, (<-chan error)(r.errc), r.Run())

	for err := range errc {
		t.Fatal(err)
	}
	require.NoError(t, r.Join(joinTimeout))
	assert.Equal(t, Stopped, r.State())
	assert.True(t, r.Done())

	// five frames produced, sequence stamped in order
	assert.Equal(t, 5, out.Len())
	for want := uint64(0); want < 5; want++ {
		f, ok := out.Pop()
		require.True(t, ok)
		assert.Equal(t, want, f.Seq)
		assert.Equal(t, 0.5, f.Samples[0])
	}
}

func TestSourceStop(t *testing.T) {
	out := newRing(t, 4)
	r := &Source{
		stage:  stage{Key: "test.source"},
		Output: out,
		Pool:   frame.NewPool(frameSize),
		// endless source, fills the ring and waits for space
		Fn: func(f *frame.Frame) error { return nil },
	}
	errc := r.Run()
	// let it hit the full ring
	for out.Len() < out.Cap()-1 {
		time.Sleep(time.Millisecond)
	}
	r.Stop()
	require.NoError(t, r.Join(joinTimeout))
	assert.Equal(t, Stopped, r.State())
	for err := range errc {
		t.Fatal(err)
	}
}

func TestSourceFault(t *testing.T) {
	errBoom := errors.New("boom")
	r := &Source{
		stage:  stage{Key: "test.source"},
		Output: newRing(t, 4),
		Pool:   frame.NewPool(frameSize),
		Fn:     func(f *frame.Frame) error { return errBoom },
	}
	errc := r.Run()
	err := <-errc
	assert.ErrorIs(t, err, errBoom)
	require.NoError(t, r.Join(joinTimeout))
	assert.Equal(t, Faulted, r.State())
}

func TestSourcePanic(t *testing.T) {
	r := &Source{
		stage:  stage{Key: "test.source"},
		Output: newRing(t, 4),
		Pool:   frame.NewPool(frameSize),
		Fn:     func(f *frame.Frame) error { panic("kaboom") },
	}
	err := <-r.Run()
	assert.ErrorIs(t, err, ErrStagePanic)
	require.NoError(t, r.Join(joinTimeout))
	assert.Equal(t, Faulted, r.State())
}

func TestSourceDropOnOverflow(t *testing.T) {
	// capacity 4 holds 3 frames, nobody consumes: the rest is dropped
	out := newRing(t, 4)
	r := &Source{
		stage:  stage{Key: "test.source", DropOnOverflow: true},
		Output: out,
		Pool:   frame.NewPool(frameSize),
		Fn:     limited(10, 1),
	}
	for err := range r.Run() {
		t.Fatal(err)
	}
	require.NoError(t, r.Join(joinTimeout))
	assert.Equal(t, Stopped, r.State())

	// the oldest frames survive, dropping never evicts
	assert.Equal(t, 3, out.Len())
	for want := uint64(0); want < 3; want++ {
		f, ok := out.Pop()
		require.True(t, ok)
		assert.Equal(t, want, f.Seq)
	}
}

func TestProcessorDrains(t *testing.T) {
	in := newRing(t, 16)
	out := newRing(t, 16)
	pool := frame.NewPool(frameSize)

	src := &Source{
		stage:  stage{Key: "test.source"},
		Output: in,
		Pool:   pool,
		Fn:     limited(8, 1),
	}
	proc := &Processor{
		stage:        stage{Key: "test.processor"},
		Input:        in,
		Output:       out,
		Pool:         pool,
		UpstreamDone: src.Done,
		Fn: func(f *frame.Frame) error {
			for i := range f.Samples {
				f.Samples[i] *= 2
			}
			return nil
		},
	}

	srcErrc := src.Run()
	procErrc := proc.Run()
	for err := range srcErrc {
		t.Fatal(err)
	}
	// processor observes the exhausted upstream and stops on its own
	for err := range procErrc {
		t.Fatal(err)
	}
	require.NoError(t, proc.Join(joinTimeout))
	assert.Equal(t, Stopped, proc.State())

	assert.Equal(t, 8, out.Len())
	for want := uint64(0); want < 8; want++ {
		f, ok := out.Pop()
		require.True(t, ok)
		assert.Equal(t, want, f.Seq)
		assert.Equal(t, 2.0, f.Samples[0])
	}
}

func TestSinkConsumes(t *testing.T) {
	in := newRing(t, 16)
	pool := frame.NewPool(frameSize)

	src := &Source{
		stage:  stage{Key: "test.source"},
		Output: in,
		Pool:   pool,
		Fn:     limited(8, 1),
	}
	var seqs []uint64
	sink := &Sink{
		stage:        stage{Key: "test.sink"},
		Input:        in,
		Pool:         pool,
		UpstreamDone: src.Done,
		Fn: func(f *frame.Frame) error {
			seqs = append(seqs, f.Seq)
			return nil
		},
	}

	srcErrc := src.Run()
	sinkErrc := sink.Run()
	for err := range srcErrc {
		t.Fatal(err)
	}
	for err := range sinkErrc {
		t.Fatal(err)
	}
	assert.Equal(t, []uint64{0, 1, 2, 3, 4, 5, 6, 7}, seqs)
	assert.True(t, in.Empty())
}

func TestHookErrors(t *testing.T) {
	errStart := errors.New("start failed")
	errFlush := errors.New("flush failed")

	t.Run("start", func(t *testing.T) {
		r := &Source{
			stage: stage{
				Key:       "test.source",
				StartHook: func() error { return errStart },
			},
			Output: newRing(t, 4),
			Pool:   frame.NewPool(frameSize),
			Fn:     limited(1, 1),
		}
		err := <-r.Run()
		assert.ErrorIs(t, err, errStart)
		assert.Equal(t, Faulted, r.State())
	})

	t.Run("flush", func(t *testing.T) {
		r := &Source{
			stage: stage{
				Key:       "test.source",
				FlushHook: func() error { return errFlush },
			},
			Output: newRing(t, 4),
			Pool:   frame.NewPool(frameSize),
			Fn:     limited(1, 1),
		}
		err := <-r.Run()
		assert.ErrorIs(t, err, errFlush)
		assert.Equal(t, Faulted, r.State())
	})
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "idle", Idle.String())
	assert.Equal(t, "running", Running.String())
	assert.Equal(t, "stopping", Stopping.String())
	assert.Equal(t, "stopped", Stopped.String())
	assert.Equal(t, "faulted", Faulted.String())
	assert.Equal(t, "unknown", State(42).String())
}
