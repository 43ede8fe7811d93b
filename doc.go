/*
Package disruptor implements a lock-free, fixed-capacity event-passing core:
a single ring buffer shared between one or more producers and a chain of
consumer stages, coordinated by monotonic sequence counters instead of locks.

Concept

Events travel through the pipeline in sequence order:

    Producer - claims slots, writes events, publishes the cursor;
    Stage    - one or more handlers observing every published event;

It implies the following constraints:

    At least one stage is mandatory;
    Handlers within one stage form a fan-out group and run in parallel;
    A later stage depends on all sequences of the previous stage.

Every handler runs in its own goroutine. A handler is invoked with the
event, its sequence and an end-of-batch flag marking the last event of a
contiguous run delivered by a single wake-up.

Building

The pipeline is assembled with a fluent builder:

    p, producer, err := disruptor.NewBuilder[int]().
        WithCapacity(1024).
        WithYieldingWait().
        WithStage(h1, h2).
        WithStage(h3).
        Build()

Build validates the configuration, freezes the topology and starts all
handler goroutines. The returned producer handle is the only way to write
into the ring:

    producer.Publish(42)

Publish blocks while the ring is full until the slowest stage catches up.
This backpressure is the normal flow control mechanism, not an error.

Shutdown

Close drains all published events, alerts the waiting stages and joins
their goroutines:

    err := p.Close()

The alert flag is the only sanctioned way to interrupt a blocked wait;
there are no timeouts on the data path.
*/
package disruptor
