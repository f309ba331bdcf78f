package adaptertest

import (
	"context"
	"testing"
	"time"

	"github.com/luno/jettison/jtest"
	"github.com/stretchr/testify/require"

	"github.com/vcon-dev/conserver"
)

func RunRecordStoreTest(t *testing.T, factory func() conserver.RecordStore) {
	tests := []func(t *testing.T, store conserver.RecordStore){
		testPutGet,
		testGetNotFound,
		testPutReplaces,
		testExistsAndDelete,
		testExpire,
	}

	for _, test := range tests {
		storeForTesting := factory()
		test(t, storeForTesting)
	}
}

func newVcon(t *testing.T) *conserver.Vcon {
	createdAt := time.Date(2024, time.April, 19, 9, 30, 0, 0, time.UTC)
	v, err := conserver.NewVcon(createdAt)
	jtest.RequireNil(t, err)

	v.Subject = "Support call"
	v.Parties = append(v.Parties, conserver.Party{Tel: "+15555550100", Name: "Alice"})
	v.Dialog = append(v.Dialog, conserver.Dialog{
		Type:     "text",
		Start:    createdAt,
		Parties:  []int{0},
		Body:     "hello",
		Encoding: "none",
	})

	return v
}

func testPutGet(t *testing.T, store conserver.RecordStore) {
	t.Run("Put and Get", func(t *testing.T) {
		ctx := context.Background()
		v := newVcon(t)
		err := v.AddTag("customer", "acme")
		jtest.RequireNil(t, err)

		err = store.Put(ctx, v)
		jtest.RequireNil(t, err)

		actual, err := store.Get(ctx, v.UUID)
		jtest.RequireNil(t, err)

		require.Equal(t, v.UUID, actual.UUID)
		require.Equal(t, v.Subject, actual.Subject)
		require.True(t, v.CreatedAt.Equal(actual.CreatedAt))
		require.Equal(t, v.Parties, actual.Parties)
		require.Len(t, actual.Dialog, 1)
		require.Equal(t, "hello", actual.Dialog[0].Body)
		require.Equal(t, map[string]string{"customer": "acme"}, actual.Tags())
	})
}

func testGetNotFound(t *testing.T, store conserver.RecordStore) {
	t.Run("Get returns ErrRecordNotFound", func(t *testing.T) {
		ctx := context.Background()
		_, err := store.Get(ctx, "does-not-exist")
		jtest.Require(t, conserver.ErrRecordNotFound, err)
	})
}

func testPutReplaces(t *testing.T, store conserver.RecordStore) {
	t.Run("Put replaces the whole record", func(t *testing.T) {
		ctx := context.Background()
		v := newVcon(t)
		err := store.Put(ctx, v)
		jtest.RequireNil(t, err)

		v.Subject = "Updated"
		v.Dialog = nil
		err = store.Put(ctx, v)
		jtest.RequireNil(t, err)

		actual, err := store.Get(ctx, v.UUID)
		jtest.RequireNil(t, err)
		require.Equal(t, "Updated", actual.Subject)
		require.Empty(t, actual.Dialog)
	})
}

func testExistsAndDelete(t *testing.T, store conserver.RecordStore) {
	t.Run("Exists and Delete", func(t *testing.T) {
		ctx := context.Background()
		v := newVcon(t)

		ok, err := store.Exists(ctx, v.UUID)
		jtest.RequireNil(t, err)
		require.False(t, ok)

		err = store.Put(ctx, v)
		jtest.RequireNil(t, err)

		ok, err = store.Exists(ctx, v.UUID)
		jtest.RequireNil(t, err)
		require.True(t, ok)

		err = store.Delete(ctx, v.UUID)
		jtest.RequireNil(t, err)

		ok, err = store.Exists(ctx, v.UUID)
		jtest.RequireNil(t, err)
		require.False(t, ok)

		// Deleting twice is not an error.
		err = store.Delete(ctx, v.UUID)
		jtest.RequireNil(t, err)
	})
}

func testExpire(t *testing.T, store conserver.RecordStore) {
	t.Run("Expire", func(t *testing.T) {
		ctx := context.Background()
		v := newVcon(t)
		err := store.Put(ctx, v)
		jtest.RequireNil(t, err)

		err = store.Expire(ctx, v.UUID, 200*time.Millisecond)
		jtest.RequireNil(t, err)

		require.Eventually(t, func() bool {
			ok, err := store.Exists(ctx, v.UUID)
			return err == nil && !ok
		}, 5*time.Second, 50*time.Millisecond)
	})
}
