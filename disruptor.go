package disruptor

import (
	"github.com/rs/xid"
)

// Handler observes published events. HandleEvent is called once per event,
// in sequence order, with endOfBatch set on the last event of the
// contiguous run delivered by a single barrier wake-up.
type Handler[T any] interface {
	HandleEvent(event T, sequence int64, endOfBatch bool)
}

// HandlerFunc is an adapter to allow the use of ordinary functions as
// handlers.
type HandlerFunc[T any] func(event T, sequence int64, endOfBatch bool)

// HandleEvent calls fn.
func (fn HandlerFunc[T]) HandleEvent(event T, sequence int64, endOfBatch bool) {
	fn(event, sequence, endOfBatch)
}

// MutatingHandler is a handler that may rewrite the event payload in place.
// The rewrite becomes visible to every downstream stage, which is how one
// stage's output becomes the next stage's input.
type MutatingHandler[T any] interface {
	HandleEvent(event *T, sequence int64, endOfBatch bool)
}

// MutatingHandlerFunc is an adapter to allow the use of ordinary functions
// as mutating handlers.
type MutatingHandlerFunc[T any] func(event *T, sequence int64, endOfBatch bool)

// HandleEvent calls fn.
func (fn MutatingHandlerFunc[T]) HandleEvent(event *T, sequence int64, endOfBatch bool) {
	fn(event, sequence, endOfBatch)
}

// readHandler adapts a read-only handler to the internal mutating shape.
type readHandler[T any] struct {
	handler Handler[T]
}

func (r readHandler[T]) HandleEvent(event *T, sequence int64, endOfBatch bool) {
	r.handler.HandleEvent(*event, sequence, endOfBatch)
}

// Logger is a global interface for disruptor loggers.
type Logger interface {
	Debug(...interface{})
	Info(...interface{})
}

type silentLogger struct{}

func (silentLogger) Debug(args ...interface{}) {}

func (silentLogger) Info(args ...interface{}) {}

var defaultLogger silentLogger

// newUID returns new unique id value.
func newUID() string {
	return xid.New().String()
}
