package webhook_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/luno/jettison/jtest"
	"github.com/stretchr/testify/require"

	"github.com/vcon-dev/conserver"
	"github.com/vcon-dev/conserver/adapters/memrecordstore"
	"github.com/vcon-dev/conserver/links/webhook"
)

func TestRun(t *testing.T) {
	ctx := t.Context()
	records := memrecordstore.New()
	v, err := conserver.NewVcon(time.Now())
	jtest.RequireNil(t, err)
	err = records.Put(ctx, v)
	jtest.RequireNil(t, err)

	var (
		mu       sync.Mutex
		received []conserver.Vcon
		tokens   []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, err := io.ReadAll(r.Body)
		require.NoError(t, err)

		var got conserver.Vcon
		require.NoError(t, json.Unmarshal(b, &got))

		mu.Lock()
		received = append(received, got)
		tokens = append(tokens, r.Header.Get("X-Token"))
		mu.Unlock()

		w.WriteHeader(http.StatusNoContent)
	}))
	t.Cleanup(srv.Close)

	link := webhook.New(records, srv.Client())
	opts := webhook.Defaults.Merge(conserver.StageOptions{
		"webhook-urls": []any{srv.URL + "/a", srv.URL + "/b"},
		"headers":      map[string]any{"X-Token": "secret"},
	})

	next, err := link.Run(ctx, v.UUID, "webhook", opts)
	jtest.RequireNil(t, err)
	require.Equal(t, v.UUID, next)

	require.Len(t, received, 2)
	require.Equal(t, v.UUID, received[0].UUID)
	require.Equal(t, []string{"secret", "secret"}, tokens)
}

func TestRunFailsOnErrorStatus(t *testing.T) {
	ctx := t.Context()
	records := memrecordstore.New()
	v, err := conserver.NewVcon(time.Now())
	jtest.RequireNil(t, err)
	err = records.Put(ctx, v)
	jtest.RequireNil(t, err)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	t.Cleanup(srv.Close)

	link := webhook.New(records, srv.Client())
	_, err = link.Run(ctx, v.UUID, "webhook", conserver.StageOptions{"webhook-urls": []any{srv.URL}})
	jtest.Require(t, webhook.ErrUnexpectedStatus, err)
}
