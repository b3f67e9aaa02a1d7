package ring

import "sync/atomic"

// TripleBuffer is a lock-free SPSC exchange cell. Unlike Buffer it is not a
// queue: the producer always has a free slot to write into and the consumer
// always reads the most recent committed value, skipping anything it was
// too slow to observe. It suits monitoring taps where freshness matters and
// history doesn't - a stage publishes its latest levels without ever
// waiting on the observer.
//
// The three slots are partitioned between the two sides and the cell
// itself: the producer owns the back slot, the consumer owns the front
// slot and the committed slot sits in between. Commit and Read swap slot
// indices atomically, so the partition always holds and neither side ever
// touches a slot the other one owns.
type TripleBuffer[T any] struct {
	slots [3]T
	// index of the committed slot, with freshBit set if it was not read yet
	committed atomic.Uint32
	back      uint32 // producer-owned
	front     uint32 // consumer-owned
}

const freshBit = 1 << 2

// NewTripleBuffer returns a triple buffer ready for use. The first Read
// before any Commit reports no fresh value.
func NewTripleBuffer[T any]() *TripleBuffer[T] {
	t := &TripleBuffer[T]{back: 1, front: 0}
	t.committed.Store(2)
	return t
}

// Write returns the producer-side slot. The producer fills it and calls
// Commit to publish. Only the producer goroutine may call Write.
func (t *TripleBuffer[T]) Write() *T {
	return &t.slots[t.back]
}

// Commit publishes the back slot and takes the previously committed slot
// in exchange. Only the producer goroutine may call Commit.
func (t *TripleBuffer[T]) Commit() {
	old := t.committed.Swap(t.back | freshBit)
	t.back = old &^ freshBit
}

// Put is a convenience wrapper: write v and commit it.
func (t *TripleBuffer[T]) Put(v T) {
	*t.Write() = v
	t.Commit()
}

// Read returns the most recent committed value. The boolean reports
// whether the value is fresh, i.e. committed after the previous Read.
// A stale read returns the same value as the previous one. Only the
// consumer goroutine may call Read.
func (t *TripleBuffer[T]) Read() (T, bool) {
	if t.committed.Load()&freshBit != 0 {
		old := t.committed.Swap(t.front)
		t.front = old &^ freshBit
		return t.slots[t.front], true
	}
	return t.slots[t.front], false
}
