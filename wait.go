package disruptor

import (
	"runtime"
	"sync"
)

// WaitStrategy is the pluggable policy governing how a consumer thread
// waits for a sequence to become available. WaitFor returns the highest
// sequence that is both >= the requested sequence and <= the minimum of
// the dependency sequences (the cursor when the stage has no upstream
// dependencies), or the alert error when the pipeline is shutting down.
// Signal notifies strategies with blocking semantics that the cursor may
// have advanced.
//
// Implementations must be safe for multiple concurrent waiters and must
// never deadlock once the producer has permanently stopped: the alerted
// check has to be consulted inside every poll loop.
type WaitStrategy interface {
	WaitFor(sequence int64, cursor *Sequence, deps []*Sequence, alerted func() error) (int64, error)
	Signal()
}

// available computes the highest sequence the dependency set allows. With
// no upstream dependencies that is the cursor itself.
func available(cursor *Sequence, deps []*Sequence) int64 {
	return minimumSequence(deps, cursor.Load())
}

// blockingWait parks waiters on a condition variable until the producer
// signals a publish. Lowest CPU usage, highest wake-up latency.
type blockingWait struct {
	mu   sync.Mutex
	cond *sync.Cond
}

func newBlockingWait() *blockingWait {
	w := &blockingWait{}
	w.cond = sync.NewCond(&w.mu)
	return w
}

func (w *blockingWait) WaitFor(sequence int64, cursor *Sequence, deps []*Sequence, alerted func() error) (int64, error) {
	if cursor.Load() < sequence {
		w.mu.Lock()
		for cursor.Load() < sequence {
			if err := alerted(); err != nil {
				w.mu.Unlock()
				return 0, err
			}
			w.cond.Wait()
		}
		w.mu.Unlock()
	}
	// The cursor has advanced far enough. Upstream stages are close
	// behind, so their sequences are awaited with a yielding spin.
	for {
		if avail := available(cursor, deps); avail >= sequence {
			return avail, nil
		}
		if err := alerted(); err != nil {
			return 0, err
		}
		runtime.Gosched()
	}
}

func (w *blockingWait) Signal() {
	// The empty critical section orders the signal after a concurrent
	// waiter's re-check, closing the missed wake-up window.
	w.mu.Lock()
	w.mu.Unlock() //nolint:staticcheck
	w.cond.Broadcast()
}

// spinWait busy-polls the dependency sequences. Lowest latency, one core
// burned per waiter; meant for consumers pinned to dedicated cores.
type spinWait struct{}

func (spinWait) WaitFor(sequence int64, cursor *Sequence, deps []*Sequence, alerted func() error) (int64, error) {
	for {
		if avail := available(cursor, deps); avail >= sequence {
			return avail, nil
		}
		if err := alerted(); err != nil {
			return 0, err
		}
	}
}

func (spinWait) Signal() {}

// yieldSpinTries is the busy-spin budget of yieldingWait before it starts
// yielding the processor between polls.
const yieldSpinTries = 100

// yieldingWait busy-polls with an initial spin budget and yields between
// polls afterwards. The middle ground between blocking and spinning.
type yieldingWait struct{}

func (yieldingWait) WaitFor(sequence int64, cursor *Sequence, deps []*Sequence, alerted func() error) (int64, error) {
	tries := yieldSpinTries
	for {
		if avail := available(cursor, deps); avail >= sequence {
			return avail, nil
		}
		if err := alerted(); err != nil {
			return 0, err
		}
		if tries > 0 {
			tries--
		} else {
			runtime.Gosched()
		}
	}
}

func (yieldingWait) Signal() {}
