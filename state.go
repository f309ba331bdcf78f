package conserver

import (
	"maps"

	"github.com/vcon-dev/conserver/internal/metrics"
)

// State is the lifecycle state of one worker process, such as a queue worker, topic subscriber or the tick
// driver.
type State string

const (
	StateUnknown  State = ""
	StateShutdown State = "Shutdown"
	StateRunning  State = "Running"
	StateIdle     State = "Idle"
)

// gauge is the value exported on the process states metric.
func (s State) gauge() float64 {
	switch s {
	case StateRunning:
		return 1
	case StateIdle:
		return 2
	default:
		return 0
	}
}

func (e *Engine) updateState(processName string, s State) {
	e.internalStateMu.Lock()
	defer e.internalStateMu.Unlock()

	metrics.ProcessStates.WithLabelValues(processName).Set(s.gauge())
	e.internalState[processName] = s
}

// States returns a snapshot of the state of every worker process launched by Run.
func (e *Engine) States() map[string]State {
	e.internalStateMu.Lock()
	defer e.internalStateMu.Unlock()

	return maps.Clone(e.internalState)
}
