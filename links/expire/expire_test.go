package expire_test

import (
	"testing"
	"time"

	"github.com/luno/jettison/jtest"
	"github.com/stretchr/testify/require"
	clock_testing "k8s.io/utils/clock/testing"

	"github.com/vcon-dev/conserver"
	"github.com/vcon-dev/conserver/adapters/memrecordstore"
	"github.com/vcon-dev/conserver/links/expire"
)

func TestRun(t *testing.T) {
	ctx := t.Context()
	now := time.Date(2024, time.April, 19, 0, 0, 0, 0, time.UTC)
	clock := clock_testing.NewFakeClock(now)
	records := memrecordstore.New(memrecordstore.WithClock(clock))

	v, err := conserver.NewVcon(now)
	jtest.RequireNil(t, err)
	err = records.Put(ctx, v)
	jtest.RequireNil(t, err)

	next, err := expire.New(records).Run(ctx, v.UUID, "expire", expire.Defaults.Merge(conserver.StageOptions{"ttl": 60}))
	jtest.RequireNil(t, err)
	require.Equal(t, v.UUID, next)

	clock.Step(time.Minute)
	ok, err := records.Exists(ctx, v.UUID)
	jtest.RequireNil(t, err)
	require.False(t, ok)
}
