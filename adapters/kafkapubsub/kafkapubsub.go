package kafkapubsub

import (
	"context"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/vcon-dev/conserver"
)

const defaultGroupID = "conserver"

// New returns a PubSub backed by Kafka topics. Every subscriber joins the same consumer group so that each
// published id is handled by one instance only.
func New(brokers []string, opts ...Option) *PubSub {
	opt := options{
		groupID:      defaultGroupID,
		batchTimeout: 10 * time.Millisecond,
	}

	for _, o := range opts {
		o(&opt)
	}

	return &PubSub{
		brokers: brokers,
		opts:    opt,
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Balancer:               &kafka.Hash{},
			RequiredAcks:           kafka.RequireAll,
			BatchTimeout:           opt.batchTimeout,
			AllowAutoTopicCreation: true,
		},
	}
}

type options struct {
	groupID      string
	batchTimeout time.Duration
}

type Option func(o *options)

// WithGroupID sets the consumer group that subscribers join.
func WithGroupID(id string) Option {
	return func(o *options) {
		o.groupID = id
	}
}

// WithBatchTimeout bounds how long a published value waits to be batched with others.
func WithBatchTimeout(d time.Duration) Option {
	return func(o *options) {
		o.batchTimeout = d
	}
}

var _ conserver.PubSub = (*PubSub)(nil)

type PubSub struct {
	brokers []string
	opts    options
	writer  *kafka.Writer
}

func (p *PubSub) Publish(ctx context.Context, topic string, value string) error {
	return p.writer.WriteMessages(ctx, kafka.Message{
		Topic: topic,
		Key:   []byte(value),
		Value: []byte(value),
	})
}

func (p *PubSub) Subscribe(ctx context.Context, topic string) (conserver.Subscription, error) {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     p.brokers,
		GroupID:     p.opts.groupID,
		Topic:       topic,
		StartOffset: kafka.FirstOffset,
		MaxWait:     time.Second,
	})

	return &subscription{reader: r}, nil
}

// Close flushes pending publishes.
func (p *PubSub) Close() error {
	return p.writer.Close()
}

type subscription struct {
	reader *kafka.Reader
}

// Recv commits the message before returning it. Redelivery of failed ids is handled by the engine.
func (s *subscription) Recv(ctx context.Context) (string, error) {
	m, err := s.reader.FetchMessage(ctx)
	if err != nil {
		return "", err
	}

	err = s.reader.CommitMessages(ctx, m)
	if err != nil {
		return "", err
	}

	return string(m.Value), nil
}

func (s *subscription) Close() error {
	return s.reader.Close()
}
