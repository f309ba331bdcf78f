package conserver

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const testWaitTimeout = 10 * time.Second

// RequireQueue waits until the queue holds exactly the expected values, head first. It fails the test if
// that does not happen in time.
func RequireQueue(t testing.TB, e *Engine, queue string, expected ...string) {
	if t == nil {
		panic("RequireQueue can only be used for testing")
	}

	if expected == nil {
		expected = []string{}
	}

	var actual []string
	ok := waitUntil(func() bool {
		values, err := e.queue.Range(context.Background(), queue)
		require.NoError(t, err)

		actual = values
		if actual == nil {
			actual = []string{}
		}

		return equalValues(actual, expected)
	})

	require.True(t, ok, "queue %q: expected %v, got %v", queue, expected, actual)
}

// WaitForRecord waits until fn returns true for the stored vCon.
func WaitForRecord(t testing.TB, e *Engine, vconID string, fn func(v *Vcon) bool) {
	if t == nil {
		panic("WaitForRecord can only be used for testing")
	}

	ok := waitUntil(func() bool {
		v, err := e.records.Get(context.Background(), vconID)
		if err != nil {
			return false
		}

		return fn(v)
	})

	require.True(t, ok, "record %q never matched", vconID)
}

// WaitForState waits until the named worker process reaches the state.
func WaitForState(t testing.TB, e *Engine, processName string, s State) {
	if t == nil {
		panic("WaitForState can only be used for testing")
	}

	ok := waitUntil(func() bool {
		return e.States()[processName] == s
	})

	require.True(t, ok, "process %q never reached state %v", processName, s)
}

func waitUntil(fn func() bool) bool {
	deadline := time.Now().Add(testWaitTimeout)
	for time.Now().Before(deadline) {
		if fn() {
			return true
		}

		time.Sleep(10 * time.Millisecond)
	}

	return false
}

func equalValues(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}

	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}

	return true
}
