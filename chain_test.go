package conserver_test

import (
	"encoding/json"
	"testing"

	"github.com/luno/jettison/jtest"
	"github.com/stretchr/testify/require"

	"github.com/vcon-dev/conserver"
)

func TestFlag(t *testing.T) {
	testCases := []struct {
		json     string
		expected conserver.Flag
	}{
		{json: `1`, expected: true},
		{json: `0`, expected: false},
		{json: `true`, expected: true},
		{json: `false`, expected: false},
		{json: `"1"`, expected: true},
		{json: `"0"`, expected: false},
		{json: `null`, expected: false},
		{json: `2`, expected: true},
	}

	for _, tc := range testCases {
		t.Run(tc.json, func(t *testing.T) {
			var f conserver.Flag
			err := json.Unmarshal([]byte(tc.json), &f)
			jtest.RequireNil(t, err)
			require.Equal(t, tc.expected, f)
		})
	}

	var f conserver.Flag
	require.Error(t, json.Unmarshal([]byte(`"yes"`), &f))
}

func TestChainJSON(t *testing.T) {
	c := conserver.Chain{
		Name:         "main",
		Links:        []string{"tag", "webhook"},
		IngressLists: []string{"q1"},
		EgressLists:  []string{"q2"},
		Storages:     []string{"file"},
		Enabled:      true,
	}

	b, err := json.Marshal(c)
	jtest.RequireNil(t, err)
	require.JSONEq(t, `{
		"name": "main",
		"links": ["tag", "webhook"],
		"ingress_lists": ["q1"],
		"egress_lists": ["q2"],
		"storages": ["file"],
		"enabled": 1
	}`, string(b))

	var decoded conserver.Chain
	err = json.Unmarshal(b, &decoded)
	jtest.RequireNil(t, err)
	require.Equal(t, c, decoded)
}

func TestNames(t *testing.T) {
	require.Equal(t, "chain:main", conserver.ChainKey("main"))
	require.Equal(t, "link:tag", conserver.LinkKey("tag"))
	require.Equal(t, "storage:file", conserver.StorageKey("file"))
	require.Equal(t, "q1:dlq", conserver.DLQName("q1"))
	require.Equal(t, "q1:inflight:node", conserver.InFlightName("q1", "node"))
}
