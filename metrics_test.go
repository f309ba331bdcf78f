package conserver_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/luno/jettison/jtest"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/vcon-dev/conserver"
	"github.com/vcon-dev/conserver/internal/metrics"
)

func TestMetricChainOutcomes(t *testing.T) {
	metrics.Reset()

	h := newHarness(t)
	h.addLink(t, "ok", (&recorder{}).link("ok"))
	h.addLink(t, "halt", func(ctx context.Context, vconID string, linkName string, opts conserver.StageOptions) (string, error) {
		return "", nil
	})
	h.addLink(t, "fail", func(ctx context.Context, vconID string, linkName string, opts conserver.StageOptions) (string, error) {
		return "", errors.New("boom")
	})
	h.addChain(t, conserver.Chain{Name: "completes", Links: []string{"ok"}, Enabled: true})
	h.addChain(t, conserver.Chain{Name: "halts", Links: []string{"halt"}, Enabled: true})
	h.addChain(t, conserver.Chain{Name: "fails", Links: []string{"fail"}, Enabled: true})

	id := h.newVcon(t)
	for _, chain := range []string{"completes", "completes", "halts", "fails", "missing"} {
		_, _ = h.engine.Process(t.Context(), id, chain)
	}

	expected := `
# HELP conserver_chain_outcome_count Number of chain executions by outcome
# TYPE conserver_chain_outcome_count counter
conserver_chain_outcome_count{chain="completes",outcome="completed"} 2
conserver_chain_outcome_count{chain="fails",outcome="failed"} 1
conserver_chain_outcome_count{chain="halts",outcome="halted"} 1
conserver_chain_outcome_count{chain="missing",outcome="dropped"} 1
`

	err := testutil.CollectAndCompare(metrics.ChainOutcomes, strings.NewReader(expected))
	jtest.RequireNil(t, err)

	require.Equal(t, float64(1), testutil.ToFloat64(metrics.LinkErrors.WithLabelValues("fails", "fail")))
	require.Equal(t, 1, testutil.CollectAndCount(metrics.ChainLatency))

	metrics.Reset()
}

func TestMetricStorageErrors(t *testing.T) {
	metrics.Reset()

	h := newHarness(t)
	h.addStorage(t, "broken", func(ctx context.Context, vconID string, opts conserver.StageOptions) error {
		return errors.New("disk full")
	})
	h.addChain(t, conserver.Chain{Name: "main", Storages: []string{"broken", "missing"}, Enabled: true})

	_, err := h.engine.Process(t.Context(), h.newVcon(t), "main")
	jtest.RequireNil(t, err)

	expected := `
# HELP conserver_storage_error_count Number of storage saves that failed
# TYPE conserver_storage_error_count counter
conserver_storage_error_count{chain="main",storage="broken"} 1
conserver_storage_error_count{chain="main",storage="missing"} 1
`

	err = testutil.CollectAndCompare(metrics.StorageErrors, strings.NewReader(expected))
	jtest.RequireNil(t, err)

	metrics.Reset()
}

func TestMetricDeadLettered(t *testing.T) {
	metrics.Reset()

	h := newHarness(t, conserver.WithMaxDeliveries(2))
	h.addLink(t, "fail", func(ctx context.Context, vconID string, linkName string, opts conserver.StageOptions) (string, error) {
		return "", errors.New("boom")
	})
	h.addChain(t, conserver.Chain{Name: "main", Links: []string{"fail"}, IngressLists: []string{"q1"}, Enabled: true})

	jtest.RequireNil(t, h.queue.Push(t.Context(), "q1", h.newVcon(t)))

	for range 2 {
		_, err := h.engine.Tick(t.Context())
		jtest.RequireNil(t, err)
	}

	require.Equal(t, float64(1), testutil.ToFloat64(metrics.Redelivered.WithLabelValues("q1")))
	require.Equal(t, float64(1), testutil.ToFloat64(metrics.DeadLettered.WithLabelValues("q1")))

	n, err := h.engine.ReprocessDLQ(t.Context(), "q1")
	jtest.RequireNil(t, err)
	require.Equal(t, 1, n)
	require.Equal(t, float64(1), testutil.ToFloat64(metrics.Reprocessed.WithLabelValues("q1")))

	metrics.Reset()
}

func TestMetricProcessStates(t *testing.T) {
	metrics.Reset()

	h := newHarness(t)
	h.addChain(t, conserver.Chain{Name: "main", IngressLists: []string{"q1"}, Enabled: true})

	err := h.engine.Run(t.Context())
	jtest.RequireNil(t, err)
	conserver.WaitForState(t, h.engine, "q1-worker-1-of-1", conserver.StateRunning)

	expected := `
# HELP conserver_process_states The current states of all the processes
# TYPE conserver_process_states gauge
conserver_process_states{process_name="q1-worker-1-of-1"} 1
`

	err = testutil.CollectAndCompare(metrics.ProcessStates, strings.NewReader(expected))
	jtest.RequireNil(t, err)

	h.engine.Stop()

	expected = `
# HELP conserver_process_states The current states of all the processes
# TYPE conserver_process_states gauge
conserver_process_states{process_name="q1-worker-1-of-1"} 0
`

	err = testutil.CollectAndCompare(metrics.ProcessStates, strings.NewReader(expected))
	jtest.RequireNil(t, err)

	metrics.Reset()
}
