package adaptertest

import (
	"context"
	"testing"
	"time"

	"github.com/luno/jettison/jtest"
	"github.com/stretchr/testify/require"

	"github.com/vcon-dev/conserver"
)

func RunPubSubTest(t *testing.T, factory func() conserver.PubSub) {
	t.Run("Every subscriber receives published values in order", func(t *testing.T) {
		ps := factory()
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		sub1, err := ps.Subscribe(ctx, "ingress")
		jtest.RequireNil(t, err)
		defer sub1.Close()

		sub2, err := ps.Subscribe(ctx, "ingress")
		jtest.RequireNil(t, err)
		defer sub2.Close()

		for _, v := range []string{"a", "b"} {
			err := ps.Publish(ctx, "ingress", v)
			jtest.RequireNil(t, err)
		}

		for _, sub := range []conserver.Subscription{sub1, sub2} {
			for _, expected := range []string{"a", "b"} {
				actual, err := sub.Recv(ctx)
				jtest.RequireNil(t, err)
				require.Equal(t, expected, actual)
			}
		}
	})

	t.Run("Subscribers only receive their topic", func(t *testing.T) {
		ps := factory()
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		sub, err := ps.Subscribe(ctx, "mine")
		jtest.RequireNil(t, err)
		defer sub.Close()

		err = ps.Publish(ctx, "other", "x")
		jtest.RequireNil(t, err)
		err = ps.Publish(ctx, "mine", "y")
		jtest.RequireNil(t, err)

		actual, err := sub.Recv(ctx)
		jtest.RequireNil(t, err)
		require.Equal(t, "y", actual)
	})

	t.Run("Recv returns when the context is cancelled", func(t *testing.T) {
		ps := factory()
		ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
		defer cancel()

		sub, err := ps.Subscribe(context.Background(), "quiet")
		jtest.RequireNil(t, err)
		defer sub.Close()

		_, err = sub.Recv(ctx)
		require.Error(t, err)
	})
}
