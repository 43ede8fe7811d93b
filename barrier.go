package disruptor

import "sync/atomic"

// SequenceBarrier is what a consumer stage polls to learn which sequences
// are safe to read. WaitFor blocks, per the wait strategy, until the
// requested sequence is available and returns the contiguous upper bound
// of what may be read, which can exceed the request. Alert interrupts all
// current and future waits; Alerted reports the flag.
//
// The barrier is an interface so that tests may substitute their own
// implementation; the contract above is all a substitute has to satisfy.
type SequenceBarrier interface {
	WaitFor(sequence int64) (int64, error)
	Signal()
	Alert()
	Alerted() bool
}

// sequenceBarrier combines the producer cursor with the sequences of the
// upstream stage (none for a first stage). It is stateless across calls
// except for the alert flag.
type sequenceBarrier struct {
	wait    WaitStrategy
	cursor  *Sequence
	deps    []*Sequence
	seq     sequencer
	alerted atomic.Bool
}

func newSequenceBarrier(wait WaitStrategy, cursor *Sequence, deps []*Sequence, seq sequencer) *sequenceBarrier {
	return &sequenceBarrier{
		wait:   wait,
		cursor: cursor,
		deps:   deps,
		seq:    seq,
	}
}

func (b *sequenceBarrier) checkAlert() error {
	if b.alerted.Load() {
		return ErrAlerted
	}
	return nil
}

func (b *sequenceBarrier) WaitFor(sequence int64) (int64, error) {
	if err := b.checkAlert(); err != nil {
		return 0, err
	}
	avail, err := b.wait.WaitFor(sequence, b.cursor, b.deps, b.checkAlert)
	if err != nil {
		return 0, err
	}
	if avail < sequence {
		return avail, nil
	}
	// In multi-producer mode the cursor tracks claims, not publishes:
	// cap the result at the highest contiguous published sequence.
	return b.seq.highestPublished(sequence, avail), nil
}

func (b *sequenceBarrier) Signal() {
	b.wait.Signal()
}

func (b *sequenceBarrier) Alert() {
	b.alerted.Store(true)
	b.wait.Signal()
}

func (b *sequenceBarrier) Alerted() bool {
	return b.alerted.Load()
}
