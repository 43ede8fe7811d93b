// Package metric collects per-handler throughput counters and publishes
// them as expvar values.
package metric

import (
	"expvar"
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"
	"time"
)

const handlersLabel = "disruptor.handlers"

const (
	// EventCounter measures number of events handled.
	EventCounter = "Events"
	// BatchCounter measures number of contiguous batches delivered.
	BatchCounter = "Batches"
	// LatencyCounter measures latency between batch deliveries.
	LatencyCounter = "Latency"
	// HandlerCounter counts number of running handlers.
	HandlerCounter = "Handlers"
)

var (
	handlers = metrics{
		m: make(map[string]metric),
	}

	counters = []string{
		EventCounter,
		BatchCounter,
		LatencyCounter,
		HandlerCounter,
	}
)

// Get metrics values for provided handler type.
func Get(handler interface{}) map[string]string {
	return getCounters(getType(handler))
}

// GetAll returns counters for all measured handler types.
func GetAll() map[string]map[string]string {
	m := make(map[string]map[string]string)
	handlers.Lock()
	defer handlers.Unlock()
	for handler := range handlers.m {
		m[handler] = getCounters(handler)
	}
	return m
}

func getCounters(handlerType string) map[string]string {
	m := make(map[string]string)
	for _, counter := range counters {
		v := expvar.Get(key(handlerType, counter))
		if v != nil {
			m[counter] = v.String()
		}
	}
	return m
}

// ResetFunc returns new Measure closure. This closure is needed to postpone
// metrics capture until the handler is actually running.
type ResetFunc func() MeasureFunc

// MeasureFunc captures metrics when a batch of events is handled.
type MeasureFunc func(batchSize int64)

// Meter creates new meter closure to capture handler counters.
func Meter(handler interface{}) ResetFunc {
	t := getType(handler)
	metric := handlers.get(t)
	metric.handlers.Add(1)
	return func() MeasureFunc {
		calledAt := time.Now()
		return func(batchSize int64) {
			metric.latency.set(time.Since(calledAt))
			metric.batches.Add(1)
			metric.events.Add(batchSize)
			calledAt = time.Now()
		}
	}
}

type metrics struct {
	sync.Mutex
	m map[string]metric
}

func (m *metrics) get(handlerType string) metric {
	m.Lock()
	defer m.Unlock()
	if metric, ok := m.m[handlerType]; ok {
		// return existing metric if available
		return metric
	}
	// create new metric
	metric := newMetric(handlerType)
	m.m[handlerType] = metric
	return metric
}

type metric struct {
	key      string
	handlers *expvar.Int
	events   *expvar.Int
	batches  *expvar.Int
	latency  *duration
}

func newMetric(handlerType string) metric {
	m := metric{
		key:      handlerType,
		handlers: expvar.NewInt(key(handlerType, HandlerCounter)),
		events:   expvar.NewInt(key(handlerType, EventCounter)),
		batches:  expvar.NewInt(key(handlerType, BatchCounter)),
		latency:  &duration{},
	}
	expvar.Publish(key(handlerType, LatencyCounter), m.latency)
	return m
}

func key(handlerType, counter string) string {
	return fmt.Sprintf("%s.%s.%s", handlersLabel, handlerType, counter)
}

func getType(handler interface{}) string {
	rv := reflect.ValueOf(handler)
	for rv.Kind() == reflect.Ptr || rv.Kind() == reflect.Interface {
		rv = rv.Elem()
	}
	return rv.Type().String()
}

// duration allows to format time.Duration metric values.
type duration struct {
	d int64
}

func (v *duration) String() string {
	return fmt.Sprintf("%v", time.Duration(atomic.LoadInt64(&v.d)))
}

func (v *duration) set(value time.Duration) {
	atomic.StoreInt64(&v.d, int64(value))
}
