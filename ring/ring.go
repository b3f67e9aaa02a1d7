// Package ring provides lock-free single-producer/single-consumer buffers
// used to connect pipeline stages.
//
// Every buffer in this package is bound by the SPSC contract: exactly one
// goroutine may call the push side and exactly one goroutine may call the
// pop side of a given instance. The contract is what makes two plain atomic
// cursors sufficient - there is no writer-writer or reader-reader race to
// resolve, so no compare-and-swap loop is needed. Sharing either side
// between goroutines voids all guarantees.
package ring

import (
	"errors"
	"fmt"
	"sync/atomic"
)

// ErrNotPowerOfTwo is returned when a buffer is constructed with capacity
// that is not a power of two.
var ErrNotPowerOfTwo = errors.New("capacity must be a power of two")

// Buffer is a fixed-capacity SPSC ring buffer. The capacity is a power of
// two, set at construction. One slot is sacrificed to tell a full buffer
// from an empty one, so a buffer of capacity n holds up to n-1 elements.
//
// Push and Pop never block, never allocate and never spin. A failed call
// reports buffer state, not an error: the retry policy belongs to the
// caller.
type Buffer[T any] struct {
	// Cursors grow monotonically and are masked on access. They are kept
	// on separate cache lines so the producer and the consumer don't
	// invalidate each other's line on every operation.
	_     [64]byte
	read  atomic.Uint64
	_     [56]byte
	write atomic.Uint64
	_     [56]byte

	mask  uint64
	slots []T
}

// New returns a buffer of provided capacity. Capacity must be a power of
// two, at least 2. Power-of-two capacity makes the wraparound a single
// bitwise and instead of a division.
func New[T any](capacity int) (*Buffer[T], error) {
	if capacity < 2 || capacity&(capacity-1) != 0 {
		return nil, fmt.Errorf("ring: capacity %d: %w", capacity, ErrNotPowerOfTwo)
	}
	return &Buffer[T]{
		mask:  uint64(capacity) - 1,
		slots: make([]T, capacity),
	}, nil
}

// Push writes v into the buffer. It returns false if the buffer is full.
// The store of the write cursor publishes the slot: a consumer that
// observes the new cursor value also observes the fully-written slot.
//
// Only the producer goroutine may call Push.
func (b *Buffer[T]) Push(v T) bool {
	w := b.write.Load()
	if w-b.read.Load() == b.mask {
		return false
	}
	b.slots[w&b.mask] = v
	b.write.Store(w + 1)
	return true
}

// Pop reads the oldest element out of the buffer. It returns the zero
// value and false if the buffer is empty.
//
// Only the consumer goroutine may call Pop.
func (b *Buffer[T]) Pop() (T, bool) {
	var zero T
	r := b.read.Load()
	if r == b.write.Load() {
		return zero, false
	}
	v := b.slots[r&b.mask]
	// drop the reference so consumed elements don't pin memory
	b.slots[r&b.mask] = zero
	b.read.Store(r + 1)
	return v, true
}

// Cap returns the constructed capacity. Usable capacity is Cap()-1.
func (b *Buffer[T]) Cap() int {
	return len(b.slots)
}

// Len returns the number of buffered elements. The value is advisory: it
// may be stale the moment it is returned when the other side is active.
func (b *Buffer[T]) Len() int {
	return int(b.write.Load() - b.read.Load())
}

// Empty reports whether the buffer has no elements. Advisory, same as Len.
func (b *Buffer[T]) Empty() bool {
	return b.Len() == 0
}

// Full reports whether a Push would fail. Advisory, same as Len.
func (b *Buffer[T]) Full() bool {
	return b.Len() == int(b.mask)
}
