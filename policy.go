package ringpipe

import "time"

// Overflow identifies what a stage does when its output ring is full.
type Overflow int8

const (
	// OverflowWait retries the push with backoff until space appears or
	// stop is requested.
	OverflowWait Overflow = iota
	// OverflowDrop discards the frame being pushed. The oldest buffered
	// frame is never evicted: popping the output ring is the consumer's
	// side of the SPSC contract and the producer must not touch it.
	OverflowDrop
)

// Policy is the per-stage backoff configuration. It is a policy knob, not
// a correctness requirement: whatever the values, no stage operation
// blocks unboundedly.
type Policy struct {
	// Idle is the sleep before retrying an empty input or a full output.
	// Zero inherits the pipe-wide policy, Spin yields the processor
	// without sleeping.
	Idle time.Duration
	// Overflow selects the reaction to a full output ring.
	Overflow Overflow
}

// Spin makes a stage busy-poll its rings, yielding the processor between
// attempts instead of sleeping. It trades a burned core for the lowest
// possible hand-off latency.
const Spin time.Duration = -1

// DefaultPolicy briefly sleeps on contention and waits for space on
// overflow. Sub-millisecond sleep keeps the added latency well under one
// frame at usual audio rates without burning a core.
func DefaultPolicy() Policy {
	return Policy{
		Idle:     50 * time.Microsecond,
		Overflow: OverflowWait,
	}
}
