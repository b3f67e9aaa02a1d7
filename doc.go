/*
Package ringpipe builds and executes real-time audio pipelines over
lock-free ring buffers.

Concept

A pipeline can have up to three kinds of stages:

    Source - the origin of frames;
    Processor - the in-place transformation of frames;
    Sink - the destination of frames.

Stages are chained with single-producer/single-consumer ring buffers and
every stage runs its own goroutine in a poll loop. Unlike channel-based
pipelines, no operation on the hot path blocks: a full or empty ring is
answered with a caller-chosen backoff policy, so the worst-case latency of
every loop iteration stays bounded.

Routing and binding

To run a pipeline, one first needs to build it. It starts with a routing:

    r := ringpipe.Routing{
        Source: osc.Source(),
        Processors: ringpipe.Processors(
            gain.Processor(),
        ),
        Sink: meter.Sink(),
    }

Routing defines the order in which stages form the pipeline. New executes
all allocators provided by the routing, validates the configuration and
wires the stages together with ring buffers:

    p, err := ringpipe.New(frameSize, r)

A routing without a source or a sink is valid: the pipe then exposes its
entry or exit ring buffer, and any external collaborator obeying the SPSC
contract may push or pop frames directly.

Execution

Start launches one goroutine per stage. The pipe runs until the source is
exhausted, any stage fails, or Stop is called:

    p.Start()
    err := p.Wait()

Stop is cooperative and bounded: every stage observes the stop request at
its next iteration boundary, and joining a stage is limited by the join
timeout. A faulted stage stops its own loop and is surfaced through Wait
and Err; the rest of the pipeline is wound down so that Stop never
deadlocks.

Reconfiguration

Stage parameters are not pipeline-level operations: a running stage polls
its atomic parameters every iteration, see the param package.
*/
package ringpipe
