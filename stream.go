package aggregator

import (
	"fmt"

	"github.com/chhtz/drivers-aggregator/internal/queue"

	"github.com/segmentio/ksuid"
)

// DefaultBufferSize is the buffer capacity of streams
// registered without WithBufferSize.
const DefaultBufferSize = 10

// StreamHandle identifies a registered stream.
type StreamHandle int

// StreamOption configures a stream at registration.
type StreamOption func(*streamConfig)

type streamConfig struct {
	bufferSize int
	period     Duration
	name       string
}

// WithBufferSize sets the stream's buffer capacity.
// When the buffer is full the oldest sample is dropped to
// make room for the next one. size < 1 removes the bound.
func WithBufferSize(size int) StreamOption {
	return func(c *streamConfig) {
		c.bufferSize = size
	}
}

// WithPeriod sets the expected time between two consecutive samples
// of the stream. A stream with a period predicts the timestamp of
// its next sample while its buffer is empty, which makes Step hold
// back any sample of the other streams that is not older than the
// prediction until the predicted sample arrives or the stream
// becomes overdue.
func WithPeriod(period Duration) StreamOption {
	return func(c *streamConfig) {
		c.period = period
	}
}

// WithName sets the stream name used in diagnostics.
// Defaults to "stream-<id>".
func WithName(name string) StreamOption {
	return func(c *streamConfig) {
		c.name = name
	}
}

// RegisterStream adds a stream of samples of type T to the aggregator
// and returns its handle. Samples pushed for the handle are delivered
// to callback, one per successful Step call, ordered by timestamp
// across all registered streams.
func RegisterStream[T any](
	a *Aggregator,
	callback func(Time, T),
	opts ...StreamOption,
) (StreamHandle, error) {
	if callback == nil {
		return 0, ErrNilCallback
	}

	cfg := streamConfig{bufferSize: DefaultBufferSize}
	for _, opt := range opts {
		opt(&cfg)
	}

	id := ksuid.New().String()
	if cfg.name == "" {
		cfg.name = "stream-" + id
	}

	a.streams = append(a.streams, &typedStream[T]{
		id:       id,
		name:     cfg.name,
		buffer:   queue.New[T](),
		capacity: cfg.bufferSize,
		period:   cfg.period,
		callback: callback,
	})
	return StreamHandle(len(a.streams) - 1), nil
}

// stream is the type-erased view of a registered stream.
type stream interface {
	push(ts Time, value any) error
	pop(late bool)
	hasData() bool
	nextTimestamp() Time
	periodic() bool
	markOverdue()
	status() StreamStatus
}

type typedStream[T any] struct {
	id       string
	name     string
	buffer   *queue.Queue[T]
	capacity int
	period   Duration
	last     Time
	overdue  bool
	callback func(Time, T)
}

// push buffers a sample, evicting the oldest buffered samples while
// the buffer is over capacity. Samples older than the last accepted
// timestamp are dropped silently.
func (s *typedStream[T]) push(ts Time, value any) error {
	v, ok := value.(T)
	if !ok {
		var want T
		return fmt.Errorf(
			"%w: stream %q expects %T, got %T",
			ErrTypeMismatch, s.name, want, value,
		)
	}

	if ts.Before(s.last) {
		// Out of order within the stream
		return nil
	}
	s.last = ts

	if s.capacity > 0 {
		for s.buffer.Len() >= s.capacity {
			s.buffer.PopFront()
		}
	}
	s.buffer.Push(ts, v)
	return nil
}

// pop removes the oldest buffered sample. Unless the sample is late
// it is delivered to the callback and the overdue mark is cleared.
func (s *typedStream[T]) pop(late bool) {
	ts, v, ok := s.buffer.Front()
	if !ok {
		return
	}
	if !late {
		s.overdue = false
		s.callback(ts, v)
	}
	s.buffer.PopFront()
}

func (s *typedStream[T]) hasData() bool {
	return s.buffer.Len() > 0
}

// nextTimestamp returns the timestamp of the oldest buffered sample.
// While the buffer is empty it returns the last accepted timestamp
// advanced by the stream's period, predicting the next arrival.
func (s *typedStream[T]) nextTimestamp() Time {
	if ts, _, ok := s.buffer.Front(); ok {
		return ts
	}
	return s.last.Add(s.period)
}

func (s *typedStream[T]) periodic() bool {
	return s.period > 0
}

func (s *typedStream[T]) markOverdue() {
	s.overdue = true
}

func (s *typedStream[T]) status() StreamStatus {
	return StreamStatus{
		ID:       s.id,
		Name:     s.name,
		Fill:     s.buffer.Len(),
		Capacity: s.capacity,
		Overdue:  s.overdue,
		Next:     s.nextTimestamp(),
	}
}
