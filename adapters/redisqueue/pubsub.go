package redisqueue

import (
	"context"

	"github.com/redis/go-redis/v9"

	"github.com/vcon-dev/conserver"
)

// PubSub publishes record ids on Redis channels named after the ingress topic.
type PubSub struct {
	client redis.UniversalClient
}

func NewPubSub(client redis.UniversalClient) *PubSub {
	return &PubSub{
		client: client,
	}
}

var _ conserver.PubSub = (*PubSub)(nil)

func (p *PubSub) Publish(ctx context.Context, topic string, value string) error {
	return p.client.Publish(ctx, topic, value).Err()
}

// Subscribe returns once Redis has confirmed the subscription so that values published after it returns
// are received.
func (p *PubSub) Subscribe(ctx context.Context, topic string) (conserver.Subscription, error) {
	ps := p.client.Subscribe(ctx, topic)
	_, err := ps.Receive(ctx)
	if err != nil {
		_ = ps.Close()
		return nil, err
	}

	return &subscription{ps: ps}, nil
}

type subscription struct {
	ps *redis.PubSub
}

func (s *subscription) Recv(ctx context.Context) (string, error) {
	msg, err := s.ps.ReceiveMessage(ctx)
	if err != nil {
		return "", err
	}

	return msg.Payload, nil
}

func (s *subscription) Close() error {
	return s.ps.Close()
}
