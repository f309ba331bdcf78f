package modules_test

import (
	"sort"
	"testing"

	"github.com/luno/jettison/jtest"
	"github.com/stretchr/testify/require"

	"github.com/vcon-dev/conserver"
	"github.com/vcon-dev/conserver/adapters/memqueue"
	"github.com/vcon-dev/conserver/adapters/memrecordstore"
	"github.com/vcon-dev/conserver/modules"
)

func TestNewRegistry(t *testing.T) {
	r := modules.NewRegistry()

	names := r.LinkModules()
	sort.Strings(names)
	require.Equal(t, []string{"analyze", "expire", "filter", "tag", "webhook"}, names)

	deps := conserver.Deps{
		Records: memrecordstore.New(),
		Queue:   memqueue.New(),
	}

	for _, name := range names {
		l, _, err := r.ResolveLink(name, deps)
		jtest.RequireNil(t, err)
		require.NotNil(t, l)
	}

	for _, name := range []string{"file", "sql", "kafka"} {
		s, _, err := r.ResolveStorage(name, deps)
		jtest.RequireNil(t, err)
		require.NotNil(t, s)
	}
}
