package queue

import (
	"time"

	"github.com/huandu/skiplist"
)

// New creates an empty queue.
func New[T any]() *Queue[T] {
	return &Queue[T]{
		l: skiplist.New(
			skiplist.GreaterThanFunc(func(a, b any) int {
				k1, k2 := a.(key), b.(key)
				if k1.ts.After(k2.ts) {
					return 1
				} else if k1.ts.Before(k2.ts) {
					return -1
				} else if k1.seq > k2.seq {
					return 1
				} else if k1.seq < k2.seq {
					return -1
				}
				return 0
			}),
		),
	}
}

// Queue is a queue of timestamped samples ordered by timestamp.
// Samples sharing a timestamp keep their insertion order.
type Queue[T any] struct {
	l   *skiplist.SkipList
	seq uint64
}

func (q *Queue[T]) Push(t time.Time, v T) {
	k := key{ts: t, seq: q.seq}
	q.seq++
	q.l.Set(k, sample[T]{key: k, value: v})
}

func (q *Queue[T]) Front() (time.Time, T, bool) {
	if e := q.l.Front(); e != nil {
		s := e.Value.(sample[T])
		return s.key.ts, s.value, true
	}
	var zero T
	return time.Time{}, zero, false
}

func (q *Queue[T]) PopFront() (popped bool) {
	e := q.l.Front()
	if e == nil {
		return false
	}
	q.l.Remove(e.Value.(sample[T]).key)
	return true
}

func (q *Queue[T]) Len() int {
	return q.l.Len()
}

// key orders samples by timestamp, with the per-queue insertion
// counter breaking ties so that keys are always unique.
type key struct {
	ts  time.Time
	seq uint64
}

// sample is a buffered value together with its ordering key.
type sample[T any] struct {
	key   key
	value T
}
