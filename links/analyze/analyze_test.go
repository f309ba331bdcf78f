package analyze_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/luno/jettison/jtest"
	"github.com/stretchr/testify/require"
	clock_testing "k8s.io/utils/clock/testing"

	"github.com/vcon-dev/conserver"
	"github.com/vcon-dev/conserver/adapters/memrecordstore"
	"github.com/vcon-dev/conserver/links/analyze"
)

func TestRun(t *testing.T) {
	ctx := t.Context()
	now := time.Date(2024, time.April, 19, 0, 0, 0, 0, time.UTC)
	records := memrecordstore.New()

	v, err := conserver.NewVcon(now)
	jtest.RequireNil(t, err)
	v.Dialog = append(v.Dialog,
		conserver.Dialog{Type: "text", Start: now, Parties: []int{0}, Body: "My invoice is wrong"},
		conserver.Dialog{Type: "recording", Start: now, Parties: []int{0}, URL: "https://example.com/a.wav"},
	)
	err = records.Put(ctx, v)
	jtest.RequireNil(t, err)

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/chat/completions", r.URL.Path)
		require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		calls.Add(1)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"created": now.Unix(),
			"model":   "gpt-4o-mini",
			"choices": []map[string]any{
				{
					"index":         0,
					"finish_reason": "stop",
					"message": map[string]any{
						"role":    "assistant",
						"content": " Customer disputes an invoice. ",
					},
				},
			},
		})
	}))
	t.Cleanup(srv.Close)

	link := analyze.New(records, clock_testing.NewFakeClock(now), srv.Client())
	opts := analyze.Defaults.Merge(conserver.StageOptions{
		"api-key":  "test-key",
		"base-url": srv.URL,
	})

	for range 2 {
		next, err := link.Run(ctx, v.UUID, "analyze", opts)
		jtest.RequireNil(t, err)
		require.Equal(t, v.UUID, next)
	}

	// Only the text dialog is analysed and only once.
	require.Equal(t, int32(1), calls.Load())

	actual, err := records.Get(ctx, v.UUID)
	jtest.RequireNil(t, err)

	a, ok := actual.FindAnalysis("summary", 0)
	require.True(t, ok)
	require.Equal(t, "openai", a.Vendor)
	require.JSONEq(t, `"Customer disputes an invoice."`, string(a.Body))
	require.False(t, actual.HasAnalysis("summary", 1))
}

func TestRunPropagatesModelErrors(t *testing.T) {
	ctx := t.Context()
	records := memrecordstore.New()
	v, err := conserver.NewVcon(time.Now())
	jtest.RequireNil(t, err)
	v.Dialog = append(v.Dialog, conserver.Dialog{Type: "text", Body: "hello"})
	err = records.Put(ctx, v)
	jtest.RequireNil(t, err)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)

	link := analyze.New(records, clock_testing.NewFakeClock(time.Now()), srv.Client())
	_, err = link.Run(ctx, v.UUID, "analyze", analyze.Defaults.Merge(conserver.StageOptions{
		"api-key":  "test-key",
		"base-url": srv.URL,
	}))
	require.Error(t, err)
}
