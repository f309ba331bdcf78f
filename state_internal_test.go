package conserver

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestUpdateState(t *testing.T) {
	e := Engine{
		internalState: make(map[string]State),
	}

	require.Equal(t, map[string]State{}, e.States())

	e.updateState("q1-worker-1-of-1", StateIdle)

	require.Equal(t, map[string]State{
		"q1-worker-1-of-1": StateIdle,
	}, e.States())

	e.updateState("q1-worker-1-of-1", StateRunning)
	e.updateState(tickProcessName, StateRunning)

	require.Equal(t, map[string]State{
		"q1-worker-1-of-1": StateRunning,
		"tick-driver":      StateRunning,
	}, e.States())

	e.updateState("q1-worker-1-of-1", StateShutdown)

	states := e.States()
	require.Equal(t, StateShutdown, states["q1-worker-1-of-1"])

	// The returned map is a snapshot.
	states["q1-worker-1-of-1"] = StateRunning
	require.Equal(t, StateShutdown, e.States()["q1-worker-1-of-1"])
}
