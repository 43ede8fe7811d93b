package disruptor

import (
	"fmt"

	"golang.org/x/sys/cpu"
)

// optimalBatch is an advisory publish batch size. Empirically batches of
// this order amortize the claim/publish cost without starving consumers.
// It does not affect correctness.
const optimalBatch = 80

// ringBuffer owns the slot storage: a fixed array of capacity slots,
// capacity a power of two, addressed by sequence & mask. Slot access is
// unchecked with respect to concurrent use; the sequence claim/publish
// protocol is the only sanctioned way to reach a slot.
type ringBuffer[T any] struct {
	_     cpu.CacheLinePad
	slots []T
	mask  int64
	_     cpu.CacheLinePad
}

// newRingBuffer allocates capacity default-initialized slots. Capacity
// that is zero or not a power of two is a programmer error and panics.
func newRingBuffer[T any](capacity int) *ringBuffer[T] {
	if capacity <= 0 || capacity&(capacity-1) != 0 {
		panic(fmt.Sprintf("disruptor: ring capacity must be a positive power of two, got %d", capacity))
	}
	return &ringBuffer[T]{
		slots: make([]T, capacity),
		mask:  int64(capacity - 1),
	}
}

// get returns the slot for the sequence. The caller must hold the claim
// for this sequence (producer) or have observed its publication (consumer).
func (b *ringBuffer[T]) get(sequence int64) *T {
	return &b.slots[sequence&b.mask]
}

// capacity reports the fixed number of slots.
func (b *ringBuffer[T]) capacity() int {
	return len(b.slots)
}
