// Package param provides atomic runtime parameters for pipeline stages.
//
// A parameter is written by a control goroutine and polled by the owning
// stage once per loop iteration. This keeps reconfiguration of a running
// stage - a gain value, a cutoff frequency - off the stop/start path: no
// locks, no channels, just a single atomic value per knob.
package param

import (
	"math"
	"sync/atomic"
)

// Float64 is an atomic float64 parameter.
type Float64 struct {
	bits atomic.Uint64
}

// NewFloat64 returns a parameter initialized with v.
func NewFloat64(v float64) *Float64 {
	p := &Float64{}
	p.Store(v)
	return p
}

// Store sets the parameter value.
func (p *Float64) Store(v float64) {
	p.bits.Store(math.Float64bits(v))
}

// Load returns the current parameter value.
func (p *Float64) Load() float64 {
	return math.Float64frombits(p.bits.Load())
}

// Int64 is an atomic int64 parameter.
type Int64 struct {
	v atomic.Int64
}

// NewInt64 returns a parameter initialized with v.
func NewInt64(v int64) *Int64 {
	p := &Int64{}
	p.v.Store(v)
	return p
}

// Store sets the parameter value.
func (p *Int64) Store(v int64) {
	p.v.Store(v)
}

// Load returns the current parameter value.
func (p *Int64) Load() int64 {
	return p.v.Load()
}

// Bool is an atomic boolean parameter.
type Bool struct {
	v atomic.Bool
}

// NewBool returns a parameter initialized with v.
func NewBool(v bool) *Bool {
	p := &Bool{}
	p.v.Store(v)
	return p
}

// Store sets the parameter value.
func (p *Bool) Store(v bool) {
	p.v.Store(v)
}

// Load returns the current parameter value.
func (p *Bool) Load() bool {
	return p.v.Load()
}
