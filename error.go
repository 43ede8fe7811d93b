package disruptor

import "errors"

var (
	// ErrAlerted is returned by a barrier when the pipeline is shutting
	// down. It propagates as a clean termination of the consumer loop.
	ErrAlerted = errors.New("alerted")

	// ErrClosed is returned if the pipeline is closed more than once.
	ErrClosed = errors.New("pipeline closed")
)
