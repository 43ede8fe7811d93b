package disruptor

import (
	"fmt"
	"sync"

	"pipelined.dev/disruptor/metric"
)

// eventProcessor runs one handler on its own goroutine: it asks the
// barrier for the next available range, walks the slots in order and
// publishes its own sequence so that dependents and the producer gating
// check can proceed.
type eventProcessor[T any] struct {
	uid      string
	ring     *ringBuffer[T]
	barrier  SequenceBarrier
	sequence *Sequence
	handler  MutatingHandler[T]
	meter    metric.ResetFunc
	log      Logger
}

func (p *eventProcessor[T]) run(wg *sync.WaitGroup) {
	defer wg.Done()
	p.log.Debug(fmt.Sprintf("processor %v started", p.uid))
	measure := p.meter()
	next := p.sequence.Load() + 1
	for {
		avail, err := p.barrier.WaitFor(next)
		if err != nil {
			p.log.Debug(fmt.Sprintf("processor %v stopped after %d", p.uid, next-1))
			return
		}
		if avail < next {
			// A claimed but not yet published slot gates the batch.
			continue
		}
		for seq := next; seq <= avail; seq++ {
			p.handler.HandleEvent(p.ring.get(seq), seq, seq == avail)
		}
		p.sequence.Store(avail)
		measure(avail - next + 1)
		next = avail + 1
	}
}
