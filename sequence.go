package disruptor

import (
	"sync/atomic"

	"golang.org/x/sys/cpu"
)

// initialSequence is the value of every sequence before the first slot has
// been claimed.
const initialSequence int64 = -1

// Sequence is a monotonically increasing 64-bit counter tracking how many
// slots a producer or a consumer stage has passed. Each sequence is padded
// to occupy its own cache line, so that independently updated counters do
// not invalidate each other's lines.
type Sequence struct {
	_     cpu.CacheLinePad
	value atomic.Int64
	_     cpu.CacheLinePad
}

// NewSequence returns a sequence positioned before the first slot.
func NewSequence() *Sequence {
	s := &Sequence{}
	s.value.Store(initialSequence)
	return s
}

// Load atomically reads the sequence value.
func (s *Sequence) Load() int64 {
	return s.value.Load()
}

// Store atomically writes the sequence value. The release semantics of the
// store pair with Load on the reader side: everything written before Store
// is visible to a reader that observed the stored value.
func (s *Sequence) Store(value int64) {
	s.value.Store(value)
}

// CompareAndSwap atomically replaces old with new and reports whether it
// succeeded.
func (s *Sequence) CompareAndSwap(old, new int64) bool {
	return s.value.CompareAndSwap(old, new)
}

// minimumSequence returns the smallest value among fallback and the given
// sequences. With an empty set it returns fallback.
func minimumSequence(sequences []*Sequence, fallback int64) int64 {
	min := fallback
	for _, s := range sequences {
		if v := s.Load(); v < min {
			min = v
		}
	}
	return min
}
