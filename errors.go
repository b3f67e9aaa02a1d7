package ringpipe

import (
	"errors"
	"strings"

	"pipelined.dev/ringpipe/internal/runner"
	"pipelined.dev/ringpipe/ring"
)

var (
	// ErrNotPowerOfTwo is returned by New when the buffer capacity is not
	// a power of two.
	ErrNotPowerOfTwo = ring.ErrNotPowerOfTwo
	// ErrInvalidFrameSize is returned by New when the frame size is not
	// positive.
	ErrInvalidFrameSize = errors.New("frame size must be positive")
	// ErrEmptyRouting is returned by New when the routing has no stages.
	ErrEmptyRouting = errors.New("routing has no stages")
	// ErrStagePanic wraps a panic recovered inside a stage closure.
	ErrStagePanic = runner.ErrStagePanic
	// ErrJoinTimeout is returned by Stop when a stage failed to exit
	// within the join timeout.
	ErrJoinTimeout = runner.ErrJoinTimeout
)

// execErrors wraps errors that might occur when multiple stages are
// failing.
type execErrors []error

func (e execErrors) Error() string {
	s := []string{}
	for _, se := range e {
		s = append(s, se.Error())
	}
	return strings.Join(s, ",")
}

func (e execErrors) Is(err error) bool {
	for _, se := range e {
		if errors.Is(se, err) {
			return true
		}
	}
	return false
}

// ret returns untyped nil if error list is empty.
func (e execErrors) ret() error {
	if len(e) > 0 {
		return e
	}
	return nil
}
