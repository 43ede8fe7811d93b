package disruptor

import (
	"errors"
	"fmt"

	"pipelined.dev/disruptor/metric"
)

// defaultCapacity is used if the builder was not given a ring capacity.
const defaultCapacity = 1024

type stageHandler[T any] struct {
	handler MutatingHandler[T]
	// key is the user-provided value, kept for metric registration so
	// that counters are labeled with the original handler type.
	key interface{}
}

type builderStage[T any] struct {
	handlers []stageHandler[T]
}

// Builder assembles the pipeline topology: ring capacity, wait strategy,
// producer arity and one or more handler stages. The topology is frozen by
// Build; no changes are possible afterwards.
type Builder[T any] struct {
	capacity int
	wait     WaitStrategy
	multi    bool
	stages   []builderStage[T]
	name     string
	logger   Logger
}

// NewBuilder returns a builder with the default capacity, a blocking wait
// strategy and a single producer.
func NewBuilder[T any]() *Builder[T] {
	return &Builder[T]{
		capacity: defaultCapacity,
	}
}

// WithCapacity sets the ring buffer capacity. It must be a positive power
// of two; anything else is rejected by Build.
func (b *Builder[T]) WithCapacity(capacity int) *Builder[T] {
	b.capacity = capacity
	return b
}

// WithBlockingWait selects the condition-variable wait strategy: lowest
// CPU usage, highest latency. This is the default.
func (b *Builder[T]) WithBlockingWait() *Builder[T] {
	b.wait = newBlockingWait()
	return b
}

// WithSpinWait selects the busy-spin wait strategy: lowest latency, one
// core burned per waiting handler.
func (b *Builder[T]) WithSpinWait() *Builder[T] {
	b.wait = spinWait{}
	return b
}

// WithYieldingWait selects the spin-then-yield wait strategy.
func (b *Builder[T]) WithYieldingWait() *Builder[T] {
	b.wait = yieldingWait{}
	return b
}

// WithWaitStrategy sets a custom wait strategy.
func (b *Builder[T]) WithWaitStrategy(wait WaitStrategy) *Builder[T] {
	b.wait = wait
	return b
}

// WithSingleProducer declares that exactly one goroutine will publish.
// This is the default.
func (b *Builder[T]) WithSingleProducer() *Builder[T] {
	b.multi = false
	return b
}

// WithMultiProducer allows concurrent publishers at the cost of a
// compare-and-swap claim loop and a published-slot tracking pass.
func (b *Builder[T]) WithMultiProducer() *Builder[T] {
	b.multi = true
	return b
}

// WithName sets name to the pipeline.
func (b *Builder[T]) WithName(name string) *Builder[T] {
	b.name = name
	return b
}

// WithLogger sets logger to the pipeline. If this option is not provided,
// silent logger is used.
func (b *Builder[T]) WithLogger(logger Logger) *Builder[T] {
	b.logger = logger
	return b
}

// WithStage appends a stage of read-only handlers. All handlers of one
// stage share the same barrier and run as a parallel fan-out group, each
// observing every event. The first stage waits on the producer cursor;
// every later stage waits on all sequences of the stage before it.
func (b *Builder[T]) WithStage(handlers ...Handler[T]) *Builder[T] {
	stage := builderStage[T]{}
	for _, h := range handlers {
		stage.handlers = append(stage.handlers, stageHandler[T]{
			handler: readHandler[T]{handler: h},
			key:     h,
		})
	}
	b.stages = append(b.stages, stage)
	return b
}

// WithMutatingStage appends a stage of handlers that may rewrite events in
// place. Registering more than one mutating handler on the same stage
// leaves slot writes unsynchronized between them; keep in-place rewrites
// to a single handler per stage.
func (b *Builder[T]) WithMutatingStage(handlers ...MutatingHandler[T]) *Builder[T] {
	stage := builderStage[T]{}
	for _, h := range handlers {
		stage.handlers = append(stage.handlers, stageHandler[T]{
			handler: h,
			key:     h,
		})
	}
	b.stages = append(b.stages, stage)
	return b
}

// Build validates the topology, allocates the ring and all sequences,
// wires the barriers, starts one goroutine per handler and returns the
// running pipeline together with the producer handle.
func (b *Builder[T]) Build() (*Pipeline[T], *Producer[T], error) {
	if b.capacity <= 0 || b.capacity&(b.capacity-1) != 0 {
		return nil, nil, fmt.Errorf("ring capacity must be a positive power of two, got %d", b.capacity)
	}
	if len(b.stages) == 0 {
		return nil, nil, errors.New("at least one handler stage is required")
	}
	for i := range b.stages {
		if len(b.stages[i].handlers) == 0 {
			return nil, nil, fmt.Errorf("stage %d has no handlers", i)
		}
	}

	wait := b.wait
	if wait == nil {
		wait = newBlockingWait()
	}
	logger := b.logger
	if logger == nil {
		logger = defaultLogger
	}

	var seq sequencer
	if b.multi {
		seq = newMultiSequencer(b.capacity, wait)
	} else {
		seq = newSingleSequencer(b.capacity, wait)
	}
	ring := newRingBuffer[T](b.capacity)

	p := &Pipeline[T]{
		uid:    newUID(),
		name:   b.name,
		log:    logger,
		cursor: seq.cursorSequence(),
	}

	// The stages form a chain: deps of every barrier are the sequences of
	// the previous stage, so the dependency graph is acyclic by
	// construction.
	var deps []*Sequence
	for _, stage := range b.stages {
		barrier := newSequenceBarrier(wait, seq.cursorSequence(), deps, seq)
		stageSeqs := make([]*Sequence, 0, len(stage.handlers))
		for _, h := range stage.handlers {
			s := NewSequence()
			p.processors = append(p.processors, &eventProcessor[T]{
				uid:      newUID(),
				ring:     ring,
				barrier:  barrier,
				sequence: s,
				handler:  h.handler,
				meter:    metric.Meter(h.key),
				log:      logger,
			})
			stageSeqs = append(stageSeqs, s)
		}
		p.barriers = append(p.barriers, barrier)
		p.sequences = append(p.sequences, stageSeqs...)
		deps = stageSeqs
	}
	// The final stage is the slowest end of the chain and gates the
	// producer against wrap-around.
	seq.setGating(deps)

	p.wg.Add(len(p.processors))
	for _, proc := range p.processors {
		go proc.run(&p.wg)
	}
	logger.Info(fmt.Sprintf("%v started: capacity %d, %d stages, %d handlers",
		p, b.capacity, len(b.stages), len(p.processors)))

	return p, &Producer[T]{ring: ring, seq: seq}, nil
}
