// Package mock provides handlers to test disruptor pipelines.
package mock

import (
	"sync"
	"time"
)

// Handler records every event it observes. It satisfies
// disruptor.Handler and is safe to inspect from the test goroutine once
// the pipeline is closed or concurrently during the run.
type Handler[T any] struct {
	// Delay is an artificial per-event processing time. It makes the
	// handler a slow consumer to provoke producer backpressure.
	Delay time.Duration
	// Gate, if set, is received from before the first event is handled.
	Gate <-chan struct{}

	mu        sync.Mutex
	values    []T
	sequences []int64
	batchEnds []int64
	gated     bool
}

// HandleEvent implements disruptor.Handler.
func (h *Handler[T]) HandleEvent(event T, sequence int64, endOfBatch bool) {
	if h.Gate != nil && !h.gated {
		<-h.Gate
		h.gated = true
	}
	if h.Delay > 0 {
		time.Sleep(h.Delay)
	}
	h.mu.Lock()
	h.values = append(h.values, event)
	h.sequences = append(h.sequences, sequence)
	if endOfBatch {
		h.batchEnds = append(h.batchEnds, sequence)
	}
	h.mu.Unlock()
}

// Values returns a copy of all observed events in observation order.
func (h *Handler[T]) Values() []T {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]T(nil), h.values...)
}

// Sequences returns a copy of all observed sequences.
func (h *Handler[T]) Sequences() []int64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]int64(nil), h.sequences...)
}

// Batches returns how many end-of-batch flags were observed.
func (h *Handler[T]) Batches() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.batchEnds)
}

// BatchEnds returns a copy of the sequences flagged as end of batch.
func (h *Handler[T]) BatchEnds() []int64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]int64(nil), h.batchEnds...)
}

// Count returns how many events were observed.
func (h *Handler[T]) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.values)
}

// Mutator rewrites events in place. It satisfies disruptor.MutatingHandler.
type Mutator[T any] struct {
	// Fn is applied to every event before downstream stages observe it.
	Fn func(*T)

	mu    sync.Mutex
	count int
}

// HandleEvent implements disruptor.MutatingHandler.
func (m *Mutator[T]) HandleEvent(event *T, sequence int64, endOfBatch bool) {
	m.Fn(event)
	m.mu.Lock()
	m.count++
	m.mu.Unlock()
}

// Count returns how many events were rewritten.
func (m *Mutator[T]) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.count
}
