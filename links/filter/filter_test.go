package filter_test

import (
	"testing"
	"time"

	"github.com/luno/jettison/jtest"
	"github.com/stretchr/testify/require"

	"github.com/vcon-dev/conserver"
	"github.com/vcon-dev/conserver/adapters/memrecordstore"
	"github.com/vcon-dev/conserver/links/filter"
)

func TestRun(t *testing.T) {
	ctx := t.Context()
	records := memrecordstore.New()
	v, err := conserver.NewVcon(time.Now())
	jtest.RequireNil(t, err)
	v.Subject = "billing"
	v.Parties = append(v.Parties, conserver.Party{Tel: "+15555550100"})
	err = records.Put(ctx, v)
	jtest.RequireNil(t, err)

	testCases := []struct {
		name     string
		opts     conserver.StageOptions
		expected string
	}{
		{
			name:     "Path exists",
			opts:     conserver.StageOptions{"path": "parties.0.tel"},
			expected: v.UUID,
		},
		{
			name:     "Path missing halts",
			opts:     conserver.StageOptions{"path": "parties.0.mailto"},
			expected: "",
		},
		{
			name:     "Value equals",
			opts:     conserver.StageOptions{"path": "subject", "equals": "billing"},
			expected: v.UUID,
		},
		{
			name:     "Value differs halts",
			opts:     conserver.StageOptions{"path": "subject", "equals": "sales"},
			expected: "",
		},
		{
			name:     "Inverted match halts",
			opts:     conserver.StageOptions{"path": "subject", "equals": "billing", "forward-matches": false},
			expected: "",
		},
		{
			name:     "Inverted miss forwards",
			opts:     conserver.StageOptions{"path": "subject", "equals": "sales", "forward-matches": false},
			expected: v.UUID,
		},
	}

	link := filter.New(records)
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			next, err := link.Run(ctx, v.UUID, "filter", filter.Defaults.Merge(tc.opts))
			jtest.RequireNil(t, err)
			require.Equal(t, tc.expected, next)
		})
	}
}

func TestRunRequiresPath(t *testing.T) {
	link := filter.New(memrecordstore.New())
	_, err := link.Run(t.Context(), "id", "filter", filter.Defaults)
	jtest.Require(t, filter.ErrMissingPath, err)
}
