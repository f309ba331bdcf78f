package redisqueue_test

import (
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	rediscontainer "github.com/testcontainers/testcontainers-go/modules/redis"

	"github.com/vcon-dev/conserver"
	"github.com/vcon-dev/conserver/adapters/adaptertest"
	"github.com/vcon-dev/conserver/adapters/redisqueue"
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

func TestRedisQueue(t *testing.T) {
	ctx := t.Context()
	client := newClient(t)

	factory := func() conserver.Queue {
		// Clean the database before each test
		client.FlushDB(ctx)
		return redisqueue.New(client)
	}

	adaptertest.RunQueueTest(t, factory)
}

func TestRedisPubSub(t *testing.T) {
	client := newClient(t)

	adaptertest.RunPubSubTest(t, func() conserver.PubSub {
		return redisqueue.NewPubSub(client)
	})
}
