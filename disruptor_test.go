package disruptor_test

import (
	"runtime"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fastrand"
	"go.uber.org/goleak"

	"pipelined.dev/disruptor"
	"pipelined.dev/disruptor/mock"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestBuildValidation(t *testing.T) {
	handler := &mock.Handler[int]{}

	_, _, err := disruptor.NewBuilder[int]().
		WithCapacity(1000).
		WithStage(handler).
		Build()
	require.Error(t, err)

	_, _, err = disruptor.NewBuilder[int]().
		WithCapacity(0).
		WithStage(handler).
		Build()
	require.Error(t, err)

	_, _, err = disruptor.NewBuilder[int]().Build()
	require.Error(t, err)

	_, _, err = disruptor.NewBuilder[int]().
		WithStage().
		Build()
	require.Error(t, err)
}

func TestRoundTrip(t *testing.T) {
	handler := &mock.Handler[int]{}
	p, producer, err := disruptor.NewBuilder[int]().
		WithCapacity(8).
		WithStage(handler).
		Build()
	require.NoError(t, err)

	published := []int{10, 20, 30, 40, 50}
	for _, v := range published {
		producer.Publish(v)
	}
	require.NoError(t, p.Close())

	assert.Equal(t, published, handler.Values())
	assert.Equal(t, []int64{0, 1, 2, 3, 4}, handler.Sequences())
	// every contiguous delivery ends with exactly one flagged event
	batches := handler.Batches()
	assert.GreaterOrEqual(t, batches, 1)
	assert.LessOrEqual(t, batches, len(published))
	ends := handler.BatchEnds()
	assert.Equal(t, int64(4), ends[len(ends)-1])

	assert.Equal(t, disruptor.ErrClosed, p.Close())
}

// The ring wraps: five values through a capacity four ring with a slow
// consumer. The slot holding the first value may be overwritten by the
// fifth only after the first was observed, so the handler must report the
// exact publication order.
func TestWrapAround(t *testing.T) {
	handler := &mock.Handler[int]{Delay: time.Millisecond}
	p, producer, err := disruptor.NewBuilder[int]().
		WithCapacity(4).
		WithSpinWait().
		WithName("wrap").
		WithStage(handler).
		Build()
	require.NoError(t, err)

	for _, v := range []int{1, 2, 3, 4, 5} {
		producer.Publish(v)
	}
	require.NoError(t, p.Close())

	assert.Equal(t, []int{1, 2, 3, 4, 5}, handler.Values())
}

func TestProducerBackpressure(t *testing.T) {
	const capacity = 4
	gate := make(chan struct{})
	handler := &mock.Handler[int]{Gate: gate}
	p, producer, err := disruptor.NewBuilder[int]().
		WithCapacity(capacity).
		WithStage(handler).
		Build()
	require.NoError(t, err)

	for i := 0; i < capacity; i++ {
		producer.Publish(i)
	}

	done := make(chan struct{})
	go func() {
		producer.Publish(capacity)
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("publish returned although the ring was full")
	case <-time.After(20 * time.Millisecond):
	}

	close(gate)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish did not resume after the consumer advanced")
	}
	require.NoError(t, p.Close())
	assert.Equal(t, capacity+1, handler.Count())
}

func TestFanOut(t *testing.T) {
	fast := &mock.Handler[int]{}
	slow := &mock.Handler[int]{Delay: time.Millisecond}
	p, producer, err := disruptor.NewBuilder[int]().
		WithCapacity(8).
		WithYieldingWait().
		WithStage(fast, slow).
		Build()
	require.NoError(t, err)

	published := make([]int, 20)
	for i := range published {
		published[i] = i * 11
		producer.Publish(i * 11)
	}
	require.NoError(t, p.Close())

	// both handlers observe every event exactly once, in order
	assert.Equal(t, published, fast.Values())
	assert.Equal(t, published, slow.Values())
}

type pair struct {
	in  int
	out int
}

func TestSequentialPipeline(t *testing.T) {
	mutator := &mock.Mutator[pair]{
		Fn: func(p *pair) { p.out = p.in * 2 },
	}
	sink := &mock.Handler[pair]{}
	p, producer, err := disruptor.NewBuilder[pair]().
		WithCapacity(16).
		WithMutatingStage(mutator).
		WithStage(sink).
		Build()
	require.NoError(t, err)

	const events = 100
	for i := 0; i < events; i++ {
		producer.Publish(pair{in: i})
	}
	require.NoError(t, p.Close())

	assert.Equal(t, events, mutator.Count())
	values := sink.Values()
	require.Len(t, values, events)
	for i, v := range values {
		// the downstream stage sees an event only after the upstream
		// stage has rewritten and published it
		assert.Equal(t, i, v.in)
		assert.Equal(t, i*2, v.out)
	}
}

func TestPublishBatch(t *testing.T) {
	handler := &mock.Handler[int]{}
	p, producer, err := disruptor.NewBuilder[int]().
		WithCapacity(8).
		WithStage(handler).
		Build()
	require.NoError(t, err)

	producer.PublishBatch([]int{1, 2, 3, 4, 5})
	require.NoError(t, p.Close())

	// a single cursor advance delivers a single batch with one
	// end-of-batch flag on its last event
	assert.Equal(t, []int{1, 2, 3, 4, 5}, handler.Values())
	assert.Equal(t, 1, handler.Batches())
	assert.Equal(t, []int64{4}, handler.BatchEnds())
}

func TestOptimalBatchSize(t *testing.T) {
	handler := &mock.Handler[int]{}
	p, producer, err := disruptor.NewBuilder[int]().
		WithCapacity(16).
		WithStage(handler).
		Build()
	require.NoError(t, err)
	defer p.Close()

	// the hint never exceeds the ring capacity
	assert.Equal(t, 16, producer.OptimalBatchSize())
}

func TestMultiProducer(t *testing.T) {
	const (
		producers   = 4
		perProducer = 500
	)
	handler := &mock.Handler[int]{}
	p, producer, err := disruptor.NewBuilder[int]().
		WithCapacity(64).
		WithYieldingWait().
		WithMultiProducer().
		WithStage(handler).
		Build()
	require.NoError(t, err)

	var wg sync.WaitGroup
	wg.Add(producers)
	for i := 0; i < producers; i++ {
		go func(id int) {
			defer wg.Done()
			for j := 0; j < perProducer; j++ {
				producer.Publish(id*perProducer + j)
				if fastrand.Uint32n(8) == 0 {
					runtime.Gosched()
				}
			}
		}(i)
	}
	wg.Wait()
	require.NoError(t, p.Close())

	// every event exactly once, regardless of publication interleaving
	values := handler.Values()
	require.Len(t, values, producers*perProducer)
	sort.Ints(values)
	for i, v := range values {
		assert.Equal(t, i, v)
	}
}

// recordingWait is a spinning strategy defined outside the package to
// prove that a custom implementation can be substituted through the
// builder.
type recordingWait struct {
	waits sync.Map
}

func (w *recordingWait) WaitFor(sequence int64, cursor *disruptor.Sequence, deps []*disruptor.Sequence, alerted func() error) (int64, error) {
	w.waits.Store(sequence, struct{}{})
	for {
		avail := cursor.Load()
		for _, d := range deps {
			if v := d.Load(); v < avail {
				avail = v
			}
		}
		if avail >= sequence {
			return avail, nil
		}
		if err := alerted(); err != nil {
			return 0, err
		}
		runtime.Gosched()
	}
}

func (w *recordingWait) Signal() {}

func BenchmarkPublish(b *testing.B) {
	handler := disruptor.HandlerFunc[int64](
		func(event int64, sequence int64, endOfBatch bool) {},
	)
	p, producer, err := disruptor.NewBuilder[int64]().
		WithCapacity(1 << 14).
		WithYieldingWait().
		WithStage(handler).
		Build()
	if err != nil {
		b.Fatal(err)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		producer.Publish(int64(i))
	}
	b.StopTimer()
	if err := p.Close(); err != nil {
		b.Fatal(err)
	}
}

func TestCustomWaitStrategy(t *testing.T) {
	wait := &recordingWait{}
	handler := &mock.Handler[int]{}
	p, producer, err := disruptor.NewBuilder[int]().
		WithCapacity(8).
		WithWaitStrategy(wait).
		WithStage(handler).
		Build()
	require.NoError(t, err)

	producer.Publish(1)
	require.NoError(t, p.Close())

	assert.Equal(t, []int{1}, handler.Values())
	_, sawFirst := wait.waits.Load(int64(0))
	assert.True(t, sawFirst)
}
