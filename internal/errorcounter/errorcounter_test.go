package errorcounter_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vcon-dev/conserver/internal/errorcounter"
)

func TestCounter(t *testing.T) {
	testCases := []struct {
		name     string
		failures int
	}{
		{name: "No failures", failures: 0},
		{name: "Single failure", failures: 1},
		{name: "Exhausted budget", failures: 3},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			c := errorcounter.New()

			var current int
			for i := 0; i < tc.failures; i++ {
				current = c.Add("ingress", "r1")
			}
			require.Equal(t, tc.failures, current)
			require.Equal(t, tc.failures, c.Count("ingress", "r1"))

			c.Clear("ingress", "r1")
			require.Equal(t, 0, c.Count("ingress", "r1"))
			require.Equal(t, 0, c.Len())
		})
	}
}

func TestCounterKeysAreIndependent(t *testing.T) {
	c := errorcounter.New()

	c.Add("q1", "r1")
	c.Add("q1", "r1")
	c.Add("q1", "r2")
	// Joined labels must not collide.
	c.Add("q1-r", "1")

	require.Equal(t, 2, c.Count("q1", "r1"))
	require.Equal(t, 1, c.Count("q1", "r2"))
	require.Equal(t, 0, c.Count("q2", "r1"))
	require.Equal(t, 1, c.Count("q1-r", "1"))
	require.Equal(t, 3, c.Len())
}

func TestCounterConcurrentAdds(t *testing.T) {
	c := errorcounter.New()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Add("q1", "r1")
		}()
	}
	wg.Wait()

	require.Equal(t, 20, c.Count("q1", "r1"))
}
