package aggregator

import (
	"fmt"
	"slices"
	"time"
)

type (
	Time     = time.Time
	Duration = time.Duration
)

const (
	Nanosecond  = time.Nanosecond
	Microsecond = time.Microsecond
	Millisecond = time.Millisecond
	Second      = time.Second
	Minute      = time.Minute
	Hour        = time.Hour
)

// DefaultTimeout is the timeout of aggregators
// created without WithTimeout.
const DefaultTimeout = time.Second

// Option configures an aggregator.
type Option func(*Aggregator)

// WithTimeout sets the time the aggregator waits for an expected
// sample on any of its streams. It effectively puts an upper limit
// on the lag that delayed or missing samples can create.
func WithTimeout(timeout Duration) Option {
	return func(a *Aggregator) {
		a.timeout = timeout
	}
}

// New creates a new sample aggregator.
func New(opts ...Option) *Aggregator {
	a := &Aggregator{timeout: DefaultTimeout}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Aggregator merges timestamped samples from multiple streams and
// replays them in non-decreasing timestamp order, waiting a bounded
// time for samples that are expected but not yet available.
//
// An Aggregator is not safe for concurrent use.
// Use a Runner or serialize access externally.
type Aggregator struct {
	streams []stream
	timeout Duration

	// latest is the timestamp of the newest sample that came in,
	// current the timestamp of the last sample that went out.
	latest  Time
	current Time
}

// SetTimeout changes the time the aggregator waits for an expected
// sample on any of its streams.
func (a *Aggregator) SetTimeout(timeout Duration) {
	a.timeout = timeout
}

// Push adds a sample to the stream identified by h.
// Samples that are older than the newest accepted timestamp by more
// than the timeout and samples that are older than their stream's
// newest accepted sample are dropped silently.
//
// Returns ErrInvalidHandle if h doesn't refer to a registered stream
// and ErrTypeMismatch if value isn't of the stream's sample type.
// The aggregator is left unchanged in both cases.
func (a *Aggregator) Push(h StreamHandle, ts Time, value any) error {
	if h < 0 || int(h) >= len(a.streams) {
		return fmt.Errorf("%w: %d", ErrInvalidHandle, h)
	}

	// Too old to ever go out again
	if ts.Add(a.timeout).Before(a.latest) {
		return nil
	}

	if err := a.streams[h].push(ts, value); err != nil {
		return err
	}
	if ts.After(a.latest) {
		a.latest = ts
	}
	return nil
}

// Step looks for the oldest sample available across all streams,
// which is either a buffered sample or one predicted through a
// stream's period, and delivers at most one sample per call.
// Successive deliveries have non-decreasing timestamps.
//
// Three cases can happen:
//   - The oldest sample is buffered. It is delivered to its
//     stream's callback and Step returns true.
//   - The oldest sample is a prediction and the distance between it
//     and the newest accepted timestamp is within the timeout.
//     Nothing is delivered and Step returns false.
//   - The oldest sample is a prediction and the timeout is reached.
//     The predicting stream is marked overdue and ignored until it
//     receives a sample again, and the next oldest sample is
//     considered instead.
func (a *Aggregator) Step() bool {
	if len(a.streams) == 0 {
		return false
	}

	type candidate struct {
		stream  stream
		time    Time
		hasData bool

		// expected is set for empty periodic streams, whose
		// timestamp predicts an arrival instead of naming a
		// buffered sample.
		expected bool
	}
	items := make([]candidate, 0, len(a.streams))
	anyData := false

	for _, s := range a.streams {
		for {
			ts := s.nextTimestamp()
			hasData := s.hasData()
			if hasData && ts.Before(a.current) {
				// Late, throw it out
				s.pop(true)
				continue
			}
			if hasData || !ts.IsZero() {
				// The stream either has data or predicts an arrival
				items = append(items, candidate{
					stream:   s,
					time:     ts,
					hasData:  hasData,
					expected: !hasData && s.periodic(),
				})
				anyData = anyData || hasData
			}
			break
		}
	}
	if !anyData {
		return false
	}

	slices.SortStableFunc(items, func(x, y candidate) int {
		if c := x.time.Compare(y.time); c != 0 {
			return c
		}
		// A stream expecting a sample for this timestamp goes
		// before streams that already have one, so it can hold
		// the buffered samples back until it resolves.
		if x.expected != y.expected {
			if x.expected {
				return -1
			}
			return 1
		}
		// An aperiodic stream's prediction is only a lower bound,
		// it goes after samples sharing its timestamp.
		if x.hasData != y.hasData {
			if x.hasData {
				return -1
			}
			return 1
		}
		return 0
	})

	for _, it := range items {
		switch {
		case it.hasData:
			it.stream.pop(false)
			a.current = it.time
			return true
		case it.time.Add(a.timeout).After(a.latest):
			// The expected sample may still arrive in time, wait
			return false
		default:
			it.stream.markOverdue()
		}
	}
	return false
}

// Latency returns the time difference between the newest sample that
// came in and the last sample that went out.
func (a *Aggregator) Latency() Duration {
	return a.latest.Sub(a.current)
}

// CurrentTime returns the timestamp of the last sample that went out.
func (a *Aggregator) CurrentTime() Time {
	return a.current
}

// LatestTime returns the timestamp of the newest sample that came in.
func (a *Aggregator) LatestTime() Time {
	return a.latest
}

// Len returns the number of registered streams.
func (a *Aggregator) Len() int {
	return len(a.streams)
}

// BufferStatus returns the buffer fill and capacity of the stream
// identified by h. A capacity of 0 means the buffer is unbounded.
func (a *Aggregator) BufferStatus(h StreamHandle) (fill, capacity int, err error) {
	if h < 0 || int(h) >= len(a.streams) {
		return 0, 0, fmt.Errorf("%w: %d", ErrInvalidHandle, h)
	}
	s := a.streams[h].status()
	return s.Fill, s.Capacity, nil
}
