package redisstore_test

import (
	"testing"

	"github.com/luno/jettison/jtest"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	rediscontainer "github.com/testcontainers/testcontainers-go/modules/redis"

	"github.com/vcon-dev/conserver"
	"github.com/vcon-dev/conserver/adapters/adaptertest"
	"github.com/vcon-dev/conserver/adapters/redisstore"
)

func newClient(t *testing.T) *redis.Client {
	ctx := t.Context()

	redisInstance, err := rediscontainer.Run(ctx, "redis:7-alpine")
	testcontainers.CleanupContainer(t, redisInstance)
	require.NoError(t, err)

	host, err := redisInstance.Host(ctx)
	require.NoError(t, err)

	port, err := redisInstance.MappedPort(ctx, "6379/tcp")
	require.NoError(t, err)

	return redis.NewClient(&redis.Options{
		Addr: host + ":" + port.Port(),
	})
}

func TestRedisRecordStore(t *testing.T) {
	ctx := t.Context()
	client := newClient(t)

	factory := func() conserver.RecordStore {
		// Clean the database before each test
		client.FlushDB(ctx)
		return redisstore.New(client)
	}

	adaptertest.RunRecordStoreTest(t, factory)
}

func TestRedisChainStore(t *testing.T) {
	ctx := t.Context()
	client := newClient(t)

	factory := func() conserver.ChainStore {
		client.FlushDB(ctx)
		return redisstore.NewChainStore(client)
	}

	adaptertest.RunChainStoreTest(t, factory)
}

func TestRedisCounter(t *testing.T) {
	ctx := t.Context()
	client := newClient(t)
	counter := redisstore.NewCounter(client)

	for i := 1; i <= 3; i++ {
		n, err := counter.Incr(ctx, "ingress", "vcon-1")
		jtest.RequireNil(t, err)
		require.Equal(t, i, n)
	}

	n, err := counter.Incr(ctx, "other", "vcon-1")
	jtest.RequireNil(t, err)
	require.Equal(t, 1, n)

	err = counter.Reset(ctx, "ingress", "vcon-1")
	jtest.RequireNil(t, err)

	n, err = counter.Incr(ctx, "ingress", "vcon-1")
	jtest.RequireNil(t, err)
	require.Equal(t, 1, n)
}
