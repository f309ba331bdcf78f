package redisstore

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vcon-dev/conserver"
)

const (
	counterKeyPrefix  = "conserver:deliveries:"
	defaultCounterTTL = 24 * time.Hour
)

// Counter is a DeliveryCounter shared by every instance connected to the same Redis. Counts expire so
// that records which are never retried again do not leak keys.
type Counter struct {
	client redis.UniversalClient
	ttl    time.Duration
}

func NewCounter(client redis.UniversalClient) *Counter {
	return &Counter{
		client: client,
		ttl:    defaultCounterTTL,
	}
}

var _ conserver.DeliveryCounter = (*Counter)(nil)

func counterKey(queue, id string) string {
	return counterKeyPrefix + queue + ":" + id
}

func (c *Counter) Incr(ctx context.Context, queue string, id string) (int, error) {
	var incr *redis.IntCmd
	_, err := c.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		incr = p.Incr(ctx, counterKey(queue, id))
		p.Expire(ctx, counterKey(queue, id), c.ttl)
		return nil
	})
	if err != nil {
		return 0, err
	}

	return int(incr.Val()), nil
}

func (c *Counter) Reset(ctx context.Context, queue string, id string) error {
	return c.client.Del(ctx, counterKey(queue, id)).Err()
}
