package queue_test

import (
	"testing"
	"time"

	"github.com/chhtz/drivers-aggregator/internal/queue"

	"github.com/stretchr/testify/require"
)

var start = time.Date(2021, 6, 20, 10, 0, 0, 0, time.UTC)

func TestQueueEmpty(t *testing.T) {
	q := queue.New[string]()
	require.Zero(t, q.Len())

	ts, v, ok := q.Front()
	require.False(t, ok)
	require.Zero(t, ts)
	require.Zero(t, v)

	require.False(t, q.PopFront())
}

func TestQueueOrderedByTimestamp(t *testing.T) {
	q := queue.New[string]()
	q.Push(start.Add(2*time.Second), "third")
	q.Push(start, "first")
	q.Push(start.Add(time.Second), "second")
	require.Equal(t, 3, q.Len())

	for _, expected := range []string{"first", "second", "third"} {
		_, v, ok := q.Front()
		require.True(t, ok)
		require.Equal(t, expected, v)
		require.True(t, q.PopFront())
	}
	require.Zero(t, q.Len())
}

func TestQueueEqualTimestampsKeepInsertionOrder(t *testing.T) {
	q := queue.New[int]()
	for i := 1; i <= 3; i++ {
		q.Push(start, i)
	}
	for i := 1; i <= 3; i++ {
		ts, v, ok := q.Front()
		require.True(t, ok)
		require.Equal(t, start, ts)
		require.Equal(t, i, v)
		require.True(t, q.PopFront())
	}
}

func TestQueuePopFront(t *testing.T) {
	q := queue.New[float64]()
	q.Push(start, 1.5)
	q.Push(start.Add(time.Second), 2.5)

	require.True(t, q.PopFront())
	require.Equal(t, 1, q.Len())

	ts, v, ok := q.Front()
	require.True(t, ok)
	require.Equal(t, start.Add(time.Second), ts)
	require.Equal(t, 2.5, v)
}
