package disruptor

import (
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
)

// Pipeline is the executor handle returned by Build: all handler
// goroutines are already running when it is obtained.
type Pipeline[T any] struct {
	uid  string
	name string
	log  Logger

	cursor     *Sequence
	sequences  []*Sequence
	barriers   []SequenceBarrier
	processors []*eventProcessor[T]

	wg     sync.WaitGroup
	closed atomic.Bool
}

// Close drains the pipeline and stops it: it waits until every stage has
// consumed everything published so far, alerts all barriers and joins the
// handler goroutines. Calling Close again returns ErrClosed. Publishing
// concurrently with Close is a programmer error.
func (p *Pipeline[T]) Close() error {
	if !p.closed.CompareAndSwap(false, true) {
		return ErrClosed
	}
	cursor := p.cursor.Load()
	for minimumSequence(p.sequences, cursor) < cursor {
		runtime.Gosched()
	}
	for _, b := range p.barriers {
		b.Alert()
	}
	p.wg.Wait()
	p.log.Debug(fmt.Sprintf("%v closed at %d", p, cursor))
	return nil
}

// Convert pipeline to string. Name is included if it has value.
func (p *Pipeline[T]) String() string {
	if p.name == "" {
		return p.uid
	}
	return fmt.Sprintf("%v %v", p.name, p.uid)
}
