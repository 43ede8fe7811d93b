package disruptor

import (
	"fmt"
	"math/bits"
	"runtime"
	"sync/atomic"
)

// sequencer is the claim/publish half of the protocol. next claims n
// contiguous slots ahead of the slowest gating sequence and returns the
// highest claimed sequence; publish makes a claimed range visible to
// consumers; highestPublished returns the upper bound of the contiguous
// published run within [lo, hi].
type sequencer interface {
	next(n int64) int64
	publish(lo, hi int64)
	highestPublished(lo, hi int64) int64
	cursorSequence() *Sequence
	setGating(gating []*Sequence)
}

// singleSequencer serves exactly one producer goroutine: claiming is a
// plain increment and publishing a single release store to the cursor.
type singleSequencer struct {
	cursor     *Sequence
	gating     []*Sequence
	wait       WaitStrategy
	capacity   int64
	nextValue  int64
	cachedGate int64
}

func newSingleSequencer(capacity int, wait WaitStrategy) *singleSequencer {
	return &singleSequencer{
		cursor:     NewSequence(),
		wait:       wait,
		capacity:   int64(capacity),
		nextValue:  initialSequence,
		cachedGate: initialSequence,
	}
}

func (s *singleSequencer) next(n int64) int64 {
	if n < 1 || n > s.capacity {
		panic(fmt.Sprintf("disruptor: claim of %d slots out of range", n))
	}
	next := s.nextValue + n
	// Backpressure: the sequence about to be overwritten must have been
	// consumed by every gating stage before the claim completes.
	if wrap := next - s.capacity; wrap > s.cachedGate {
		gate := minimumSequence(s.gating, s.nextValue)
		for wrap > gate {
			runtime.Gosched()
			gate = minimumSequence(s.gating, s.nextValue)
		}
		s.cachedGate = gate
	}
	s.nextValue = next
	return next
}

func (s *singleSequencer) publish(lo, hi int64) {
	s.cursor.Store(hi)
	s.wait.Signal()
}

// highestPublished is the identity for a single producer: the cursor never
// runs ahead of completed writes.
func (s *singleSequencer) highestPublished(lo, hi int64) int64 {
	return hi
}

func (s *singleSequencer) cursorSequence() *Sequence {
	return s.cursor
}

func (s *singleSequencer) setGating(gating []*Sequence) {
	s.gating = gating
}

// multiSequencer serves concurrent producers: claims race on the cursor
// with compare-and-swap and completions may land out of order, so each
// publish marks an availability round per slot and consumers only see the
// longest contiguous published prefix.
type multiSequencer struct {
	cursor     *Sequence
	gateCache  *Sequence
	gating     []*Sequence
	wait       WaitStrategy
	capacity   int64
	available  []atomic.Int32
	indexMask  int64
	indexShift uint
}

func newMultiSequencer(capacity int, wait WaitStrategy) *multiSequencer {
	s := &multiSequencer{
		cursor:     NewSequence(),
		gateCache:  NewSequence(),
		wait:       wait,
		capacity:   int64(capacity),
		available:  make([]atomic.Int32, capacity),
		indexMask:  int64(capacity - 1),
		indexShift: uint(bits.TrailingZeros64(uint64(capacity))),
	}
	for i := range s.available {
		s.available[i].Store(-1)
	}
	return s
}

func (s *multiSequencer) next(n int64) int64 {
	if n < 1 || n > s.capacity {
		panic(fmt.Sprintf("disruptor: claim of %d slots out of range", n))
	}
	for {
		current := s.cursor.Load()
		next := current + n
		wrap := next - s.capacity
		if cached := s.gateCache.Load(); wrap > cached || cached > current {
			gate := minimumSequence(s.gating, current)
			s.gateCache.Store(gate)
			if wrap > gate {
				runtime.Gosched()
				continue
			}
		}
		if s.cursor.CompareAndSwap(current, next) {
			return next
		}
	}
}

func (s *multiSequencer) publish(lo, hi int64) {
	for seq := lo; seq <= hi; seq++ {
		// The round number seq>>indexShift distinguishes this lap of the
		// ring from earlier ones that used the same slot.
		s.available[seq&s.indexMask].Store(int32(seq >> s.indexShift))
	}
	s.wait.Signal()
}

func (s *multiSequencer) isAvailable(sequence int64) bool {
	return s.available[sequence&s.indexMask].Load() == int32(sequence>>s.indexShift)
}

func (s *multiSequencer) highestPublished(lo, hi int64) int64 {
	for seq := lo; seq <= hi; seq++ {
		if !s.isAvailable(seq) {
			return seq - 1
		}
	}
	return hi
}

func (s *multiSequencer) cursorSequence() *Sequence {
	return s.cursor
}

func (s *multiSequencer) setGating(gating []*Sequence) {
	s.gating = gating
}

// Producer is the write handle of the pipeline. In single-producer mode it
// must be used from one goroutine; in multi-producer mode Publish and
// PublishBatch may be called concurrently.
type Producer[T any] struct {
	ring *ringBuffer[T]
	seq  sequencer
}

// Publish writes one event into the ring and makes it visible to the first
// consumer stage. It blocks, per the active wait strategy, while the ring
// is full; backpressure is not an error.
func (p *Producer[T]) Publish(event T) {
	sequence := p.seq.next(1)
	*p.ring.get(sequence) = event
	p.seq.publish(sequence, sequence)
}

// PublishBatch claims one contiguous range for all events and publishes
// them with a single cursor advance. len(events) must not exceed the ring
// capacity.
func (p *Producer[T]) PublishBatch(events []T) {
	if len(events) == 0 {
		return
	}
	hi := p.seq.next(int64(len(events)))
	lo := hi - int64(len(events)) + 1
	for i := range events {
		*p.ring.get(lo + int64(i)) = events[i]
	}
	p.seq.publish(lo, hi)
}

// OptimalBatchSize is an advisory hint for sizing PublishBatch calls. It
// never exceeds the ring capacity.
func (p *Producer[T]) OptimalBatchSize() int {
	if c := p.ring.capacity(); c < optimalBatch {
		return c
	}
	return optimalBatch
}
