package conserver

import (
	"context"
	"time"
)

// RecordStore implementations should all be tested with adaptertest.RunRecordStoreTest. Put is a full replace
// of the stored vCon and Get must return ErrRecordNotFound when nothing is stored under the id.
type RecordStore interface {
	Get(ctx context.Context, id string) (*Vcon, error)
	Put(ctx context.Context, v *Vcon) error
	Expire(ctx context.Context, id string, ttl time.Duration) error
	Delete(ctx context.Context, id string) error
	Exists(ctx context.Context, id string) (bool, error)
}

// Queue implementations should all be tested with adaptertest.RunQueueTest. Queues are FIFO: Push appends to
// the tail and Pop takes from the head.
type Queue interface {
	// Push appends the values, in order, to the tail of the queue.
	Push(ctx context.Context, queue string, values ...string) error

	// Pop atomically moves the value at the head of the queue onto the consumer's in-flight list and returns
	// it as a Delivery. Pop blocks for at most timeout and a zero timeout makes it non-blocking. ErrQueueEmpty
	// is returned when nothing arrived in time. Values remain in the in-flight list until the Delivery is
	// acked or released which gives at-least-once delivery when a consumer dies mid processing.
	Pop(ctx context.Context, queue string, consumer string, timeout time.Duration) (*Delivery, error)

	Length(ctx context.Context, queue string) (int64, error)

	// Range returns the values of the queue from head to tail without removing them.
	Range(ctx context.Context, queue string) ([]string, error)

	// Recover moves every value left in the consumer's in-flight list back to the head of the queue and
	// returns how many were moved.
	Recover(ctx context.Context, queue string, consumer string) (int, error)

	// Move pops every value from one queue and pushes it onto the tail of another, returning the count.
	Move(ctx context.Context, from, to string) (int, error)
}

// Ack is used to tell the queue that a delivery has been fully handled. If Ack is not called the value
// stays in the consumer's in-flight list and is returned to the queue by Recover.
type Ack func(ctx context.Context) error

// Delivery is a value popped from a queue that has not yet been acknowledged.
type Delivery struct {
	Queue string
	Value string

	// Ack removes the value from the in-flight list.
	Ack Ack

	// Release returns the value to the head of the queue it was popped from.
	Release Ack
}

// PubSub is the alternate ingestion style where producers publish record ids to a topic instead of pushing
// them onto a queue. Implementations should be tested with adaptertest.RunPubSubTest.
type PubSub interface {
	Publish(ctx context.Context, topic string, value string) error
	Subscribe(ctx context.Context, topic string) (Subscription, error)
}

type Subscription interface {
	Recv(ctx context.Context) (string, error)
	Close() error
}

// DeliveryCounter keeps track of how many times a record has failed on a given ingress queue. The count is
// shared by every worker reading the queue.
type DeliveryCounter interface {
	Incr(ctx context.Context, queue string, id string) (int, error)
	Reset(ctx context.Context, queue string, id string) error
}

// ChainStore holds the chain, link and storage definitions. Implementations should be tested with
// adaptertest.RunChainStoreTest.
type ChainStore interface {
	Chains(ctx context.Context) ([]Chain, error)
	Chain(ctx context.Context, name string) (*Chain, error)
	Link(ctx context.Context, name string) (*StageDefinition, error)
	Storage(ctx context.Context, name string) (*StageDefinition, error)

	PutChain(ctx context.Context, c Chain) error
	PutLink(ctx context.Context, name string, def StageDefinition) error
	PutStorage(ctx context.Context, name string, def StageDefinition) error
	DeleteChain(ctx context.Context, name string) error
}
