package redisqueue

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vcon-dev/conserver"
)

// Queue implements the queue fabric on Redis lists. Push is RPUSH and Pop moves the head of the list onto
// the consumer's in-flight list with LMOVE so that a value is never only held in memory.
type Queue struct {
	client redis.UniversalClient
}

func New(client redis.UniversalClient) *Queue {
	return &Queue{
		client: client,
	}
}

var _ conserver.Queue = (*Queue)(nil)

// releaseScript removes one occurrence of the value from the in-flight list and, when it was still there,
// pushes it back to the head of the queue.
var releaseScript = redis.NewScript(`
	local inflight_key = KEYS[1]
	local queue_key = KEYS[2]
	local value = ARGV[1]

	if redis.call('LREM', inflight_key, 1, value) > 0 then
		redis.call('LPUSH', queue_key, value)
		return 1
	end

	return 0
`)

func (q *Queue) Push(ctx context.Context, queue string, values ...string) error {
	if len(values) == 0 {
		return nil
	}

	args := make([]any, 0, len(values))
	for _, v := range values {
		args = append(args, v)
	}

	return q.client.RPush(ctx, queue, args...).Err()
}

func (q *Queue) Pop(ctx context.Context, queue string, consumer string, timeout time.Duration) (*conserver.Delivery, error) {
	inFlight := conserver.InFlightName(queue, consumer)

	var (
		value string
		err   error
	)
	if timeout > 0 {
		value, err = q.client.BLMove(ctx, queue, inFlight, "LEFT", "RIGHT", timeout).Result()
	} else {
		value, err = q.client.LMove(ctx, queue, inFlight, "LEFT", "RIGHT").Result()
	}

	if err == redis.Nil {
		return nil, conserver.ErrQueueEmpty
	} else if err != nil {
		return nil, err
	}

	return &conserver.Delivery{
		Queue: queue,
		Value: value,
		Ack: func(ctx context.Context) error {
			return q.client.LRem(ctx, inFlight, 1, value).Err()
		},
		Release: func(ctx context.Context) error {
			return releaseScript.Run(ctx, q.client, []string{inFlight, queue}, value).Err()
		},
	}, nil
}

func (q *Queue) Length(ctx context.Context, queue string) (int64, error) {
	return q.client.LLen(ctx, queue).Result()
}

func (q *Queue) Range(ctx context.Context, queue string) ([]string, error) {
	return q.client.LRange(ctx, queue, 0, -1).Result()
}

func (q *Queue) Recover(ctx context.Context, queue string, consumer string) (int, error) {
	// Taking from the tail of the in-flight list and pushing onto the head of the queue keeps the
	// original order.
	return q.moveAll(ctx, conserver.InFlightName(queue, consumer), queue, "RIGHT", "LEFT")
}

func (q *Queue) Move(ctx context.Context, from, to string) (int, error) {
	return q.moveAll(ctx, from, to, "LEFT", "RIGHT")
}

func (q *Queue) moveAll(ctx context.Context, from, to, srcPos, destPos string) (int, error) {
	var n int
	for {
		err := q.client.LMove(ctx, from, to, srcPos, destPos).Err()
		if err == redis.Nil {
			return n, nil
		} else if err != nil {
			return n, err
		}

		n++
	}
}
