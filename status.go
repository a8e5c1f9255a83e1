package aggregator

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// StreamStatus describes a registered stream.
type StreamStatus struct {
	ID       string
	Name     string
	Fill     int
	Capacity int
	Overdue  bool

	// Next is the timestamp of the stream's oldest buffered sample,
	// or the predicted timestamp of the next arrival if the buffer
	// is empty.
	Next Time
}

// String returns the stream status in a single line.
func (s StreamStatus) String() string {
	capacity := "unbounded"
	if s.Capacity > 0 {
		capacity = strconv.Itoa(s.Capacity)
	}
	return fmt.Sprintf(
		"%s fill %d/%s overdue %t next %s",
		s.Name, s.Fill, capacity, s.Overdue, formatTime(s.Next),
	)
}

// Status is a snapshot of an aggregator's state.
type Status struct {
	CurrentTime Time
	LatestTime  Time
	Latency     Duration
	Streams     []StreamStatus
}

// Overdue returns the names of all overdue streams.
func (s Status) Overdue() []string {
	var names []string
	for _, st := range s.Streams {
		if st.Overdue {
			names = append(names, st.Name)
		}
	}
	return names
}

// String returns the status in a multi-line human readable form.
func (s Status) String() string {
	var b strings.Builder
	fmt.Fprintf(
		&b, "current time: %s latest time: %s latency: %s",
		formatTime(s.CurrentTime), formatTime(s.LatestTime), s.Latency,
	)
	for i, st := range s.Streams {
		fmt.Fprintf(&b, "\n%d: %s", i, st)
	}
	return b.String()
}

// Status returns a snapshot of the aggregator for diagnostics.
func (a *Aggregator) Status() Status {
	streams := make([]StreamStatus, len(a.streams))
	for i, s := range a.streams {
		streams[i] = s.status()
	}
	return Status{
		CurrentTime: a.current,
		LatestTime:  a.latest,
		Latency:     a.Latency(),
		Streams:     streams,
	}
}

// String implements fmt.Stringer.
func (a *Aggregator) String() string {
	return a.Status().String()
}

func formatTime(t Time) string {
	if t.IsZero() {
		return "unset"
	}
	return t.Format(time.RFC3339Nano)
}
