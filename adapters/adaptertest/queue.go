package adaptertest

import (
	"context"
	"testing"
	"time"

	"github.com/luno/jettison/jtest"
	"github.com/stretchr/testify/require"

	"github.com/vcon-dev/conserver"
)

func RunQueueTest(t *testing.T, factory func() conserver.Queue) {
	tests := []func(t *testing.T, q conserver.Queue){
		testFIFO,
		testPopEmpty,
		testPopTimeout,
		testAck,
		testRecover,
		testRelease,
		testConsumersAreIsolated,
		testRangeAndLength,
		testMove,
	}

	for _, test := range tests {
		queueForTesting := factory()
		test(t, queueForTesting)
	}
}

func popValue(t *testing.T, q conserver.Queue, queue, consumer string) *conserver.Delivery {
	d, err := q.Pop(context.Background(), queue, consumer, 0)
	jtest.RequireNil(t, err)
	require.Equal(t, queue, d.Queue)
	return d
}

func testFIFO(t *testing.T, q conserver.Queue) {
	t.Run("Values are popped in push order", func(t *testing.T) {
		ctx := context.Background()
		err := q.Push(ctx, "fifo", "a", "b")
		jtest.RequireNil(t, err)
		err = q.Push(ctx, "fifo", "c")
		jtest.RequireNil(t, err)

		for _, expected := range []string{"a", "b", "c"} {
			d := popValue(t, q, "fifo", "worker")
			require.Equal(t, expected, d.Value)
			jtest.RequireNil(t, d.Ack(ctx))
		}
	})
}

func testPopEmpty(t *testing.T, q conserver.Queue) {
	t.Run("Non blocking pop on an empty queue", func(t *testing.T) {
		_, err := q.Pop(context.Background(), "empty", "worker", 0)
		jtest.Require(t, conserver.ErrQueueEmpty, err)
	})
}

func testPopTimeout(t *testing.T, q conserver.Queue) {
	t.Run("Blocking pop gives up after the timeout", func(t *testing.T) {
		t0 := time.Now()
		_, err := q.Pop(context.Background(), "empty", "worker", time.Second)
		jtest.Require(t, conserver.ErrQueueEmpty, err)
		require.GreaterOrEqual(t, time.Since(t0), 900*time.Millisecond)
	})

	t.Run("Blocking pop returns when the context is cancelled", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
		defer cancel()

		_, err := q.Pop(ctx, "empty", "worker", 10*time.Second)
		require.Error(t, err)
	})
}

func testAck(t *testing.T, q conserver.Queue) {
	t.Run("Acked values are not recovered", func(t *testing.T) {
		ctx := context.Background()
		err := q.Push(ctx, "ack", "a")
		jtest.RequireNil(t, err)

		d := popValue(t, q, "ack", "worker")
		jtest.RequireNil(t, d.Ack(ctx))

		n, err := q.Recover(ctx, "ack", "worker")
		jtest.RequireNil(t, err)
		require.Equal(t, 0, n)

		length, err := q.Length(ctx, "ack")
		jtest.RequireNil(t, err)
		require.Equal(t, int64(0), length)
	})
}

func testRecover(t *testing.T, q conserver.Queue) {
	t.Run("Unacked values are recovered to the head in order", func(t *testing.T) {
		ctx := context.Background()
		err := q.Push(ctx, "recover", "a", "b", "c")
		jtest.RequireNil(t, err)

		popValue(t, q, "recover", "worker")
		popValue(t, q, "recover", "worker")

		n, err := q.Recover(ctx, "recover", "worker")
		jtest.RequireNil(t, err)
		require.Equal(t, 2, n)

		values, err := q.Range(ctx, "recover")
		jtest.RequireNil(t, err)
		require.Equal(t, []string{"a", "b", "c"}, values)
	})
}

func testRelease(t *testing.T, q conserver.Queue) {
	t.Run("Released values return to the head", func(t *testing.T) {
		ctx := context.Background()
		err := q.Push(ctx, "release", "a", "b")
		jtest.RequireNil(t, err)

		d := popValue(t, q, "release", "worker")
		require.Equal(t, "a", d.Value)
		jtest.RequireNil(t, d.Release(ctx))

		values, err := q.Range(ctx, "release")
		jtest.RequireNil(t, err)
		require.Equal(t, []string{"a", "b"}, values)

		n, err := q.Recover(ctx, "release", "worker")
		jtest.RequireNil(t, err)
		require.Equal(t, 0, n)
	})
}

func testConsumersAreIsolated(t *testing.T, q conserver.Queue) {
	t.Run("Recover only returns the consumer's own values", func(t *testing.T) {
		ctx := context.Background()
		err := q.Push(ctx, "shared", "a", "b")
		jtest.RequireNil(t, err)

		popValue(t, q, "shared", "worker-1")
		popValue(t, q, "shared", "worker-2")

		n, err := q.Recover(ctx, "shared", "worker-2")
		jtest.RequireNil(t, err)
		require.Equal(t, 1, n)

		values, err := q.Range(ctx, "shared")
		jtest.RequireNil(t, err)
		require.Equal(t, []string{"b"}, values)
	})
}

func testRangeAndLength(t *testing.T, q conserver.Queue) {
	t.Run("Range and Length", func(t *testing.T) {
		ctx := context.Background()
		values, err := q.Range(ctx, "range")
		jtest.RequireNil(t, err)
		require.Empty(t, values)

		err = q.Push(ctx, "range", "a", "b")
		jtest.RequireNil(t, err)

		values, err = q.Range(ctx, "range")
		jtest.RequireNil(t, err)
		require.Equal(t, []string{"a", "b"}, values)

		n, err := q.Length(ctx, "range")
		jtest.RequireNil(t, err)
		require.Equal(t, int64(2), n)
	})
}

func testMove(t *testing.T, q conserver.Queue) {
	t.Run("Move appends every value to the destination", func(t *testing.T) {
		ctx := context.Background()
		err := q.Push(ctx, "from", "a", "b")
		jtest.RequireNil(t, err)
		err = q.Push(ctx, "to", "z")
		jtest.RequireNil(t, err)

		n, err := q.Move(ctx, "from", "to")
		jtest.RequireNil(t, err)
		require.Equal(t, 2, n)

		values, err := q.Range(ctx, "to")
		jtest.RequireNil(t, err)
		require.Equal(t, []string{"z", "a", "b"}, values)

		n, err = q.Move(ctx, "from", "to")
		jtest.RequireNil(t, err)
		require.Equal(t, 0, n)
	})
}
