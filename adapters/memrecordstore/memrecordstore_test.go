package memrecordstore_test

import (
	"testing"
	"time"

	"github.com/luno/jettison/jtest"
	"github.com/stretchr/testify/require"
	clock_testing "k8s.io/utils/clock/testing"

	"github.com/vcon-dev/conserver"
	"github.com/vcon-dev/conserver/adapters/adaptertest"
	"github.com/vcon-dev/conserver/adapters/memrecordstore"
)

func TestStore(t *testing.T) {
	adaptertest.RunRecordStoreTest(t, func() conserver.RecordStore {
		return memrecordstore.New()
	})
}

func TestExpiryFollowsClock(t *testing.T) {
	ctx := t.Context()
	now := time.Date(2024, time.April, 19, 0, 0, 0, 0, time.UTC)
	clock := clock_testing.NewFakeClock(now)
	store := memrecordstore.New(memrecordstore.WithClock(clock))

	v, err := conserver.NewVcon(now)
	jtest.RequireNil(t, err)

	err = store.Put(ctx, v)
	jtest.RequireNil(t, err)

	err = store.Expire(ctx, v.UUID, time.Hour)
	jtest.RequireNil(t, err)

	// Replacing the record keeps the expiry.
	v.Subject = "updated"
	err = store.Put(ctx, v)
	jtest.RequireNil(t, err)

	clock.Step(59 * time.Minute)
	ok, err := store.Exists(ctx, v.UUID)
	jtest.RequireNil(t, err)
	require.True(t, ok)

	clock.Step(time.Minute)
	ok, err = store.Exists(ctx, v.UUID)
	jtest.RequireNil(t, err)
	require.False(t, ok)

	_, err = store.Get(ctx, v.UUID)
	jtest.Require(t, conserver.ErrRecordNotFound, err)
}
