package memqueue

import (
	"context"
	"sync"
	"time"

	"k8s.io/utils/clock"

	"github.com/vcon-dev/conserver"
)

const subscriptionBuffer = 1024

func New(opts ...Option) *Queue {
	var opt options

	// Set a default clock
	opt.clock = clock.RealClock{}

	for _, option := range opts {
		option(&opt)
	}

	return &Queue{
		clock:   opt.clock,
		lists:   make(map[string][]string),
		waiters: make(map[string]chan struct{}),
		subs:    make(map[string]map[*subscription]bool),
	}
}

type options struct {
	clock clock.Clock
}

type Option func(o *options)

// WithClock sets the clock that bounds blocking pops.
func WithClock(clock clock.Clock) Option {
	return func(o *options) {
		o.clock = clock
	}
}

var (
	_ conserver.Queue  = (*Queue)(nil)
	_ conserver.PubSub = (*Queue)(nil)
)

// Queue is an in-memory implementation of the queue fabric and of pub/sub. It is safe for concurrent use.
type Queue struct {
	mu    sync.Mutex
	clock clock.Clock

	lists map[string][]string
	// waiters are closed on the next push to the list to wake up blocked pops.
	waiters map[string]chan struct{}
	subs    map[string]map[*subscription]bool
}

func (q *Queue) Push(ctx context.Context, queue string, values ...string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.pushTail(queue, values...)
	return nil
}

func (q *Queue) Pop(ctx context.Context, queue string, consumer string, timeout time.Duration) (*conserver.Delivery, error) {
	var deadline <-chan time.Time
	if timeout > 0 {
		t := q.clock.NewTimer(timeout)
		defer t.Stop()
		deadline = t.C()
	}

	for {
		q.mu.Lock()
		value, ok := q.popHead(queue)
		if ok {
			inFlight := conserver.InFlightName(queue, consumer)
			q.lists[inFlight] = append(q.lists[inFlight], value)
			q.mu.Unlock()

			return q.delivery(queue, inFlight, value), nil
		}

		wake := q.waiter(queue)
		q.mu.Unlock()

		if deadline == nil {
			return nil, conserver.ErrQueueEmpty
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-deadline:
			return nil, conserver.ErrQueueEmpty
		case <-wake:
		}
	}
}

func (q *Queue) delivery(queue, inFlight, value string) *conserver.Delivery {
	return &conserver.Delivery{
		Queue: queue,
		Value: value,
		Ack: func(ctx context.Context) error {
			q.mu.Lock()
			defer q.mu.Unlock()

			q.remove(inFlight, value)
			return nil
		},
		Release: func(ctx context.Context) error {
			q.mu.Lock()
			defer q.mu.Unlock()

			if q.remove(inFlight, value) {
				q.pushHead(queue, value)
			}

			return nil
		},
	}
}

func (q *Queue) Length(ctx context.Context, queue string) (int64, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	return int64(len(q.lists[queue])), nil
}

func (q *Queue) Range(ctx context.Context, queue string) ([]string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	return append([]string{}, q.lists[queue]...), nil
}

func (q *Queue) Recover(ctx context.Context, queue string, consumer string) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	inFlight := conserver.InFlightName(queue, consumer)
	values := q.lists[inFlight]
	delete(q.lists, inFlight)

	// Walk backwards so that the oldest in-flight value ends up at the head.
	for i := len(values) - 1; i >= 0; i-- {
		q.pushHead(queue, values[i])
	}

	return len(values), nil
}

func (q *Queue) Move(ctx context.Context, from, to string) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	values := q.lists[from]
	delete(q.lists, from)
	q.pushTail(to, values...)

	return len(values), nil
}

// pushTail appends to the list and wakes blocked pops. The caller must hold mu.
func (q *Queue) pushTail(queue string, values ...string) {
	if len(values) == 0 {
		return
	}

	q.lists[queue] = append(q.lists[queue], values...)
	q.wake(queue)
}

func (q *Queue) pushHead(queue string, value string) {
	q.lists[queue] = append([]string{value}, q.lists[queue]...)
	q.wake(queue)
}

func (q *Queue) popHead(queue string) (string, bool) {
	list := q.lists[queue]
	if len(list) == 0 {
		return "", false
	}

	value := list[0]
	if len(list) == 1 {
		delete(q.lists, queue)
	} else {
		q.lists[queue] = list[1:]
	}

	return value, true
}

// remove deletes the first occurrence of value and reports whether it was found.
func (q *Queue) remove(list string, value string) bool {
	values := q.lists[list]
	for i, v := range values {
		if v != value {
			continue
		}

		values = append(values[:i:i], values[i+1:]...)
		if len(values) == 0 {
			delete(q.lists, list)
		} else {
			q.lists[list] = values
		}

		return true
	}

	return false
}

func (q *Queue) waiter(queue string) chan struct{} {
	ch, ok := q.waiters[queue]
	if !ok {
		ch = make(chan struct{})
		q.waiters[queue] = ch
	}

	return ch
}

func (q *Queue) wake(queue string) {
	ch, ok := q.waiters[queue]
	if !ok {
		return
	}

	close(ch)
	delete(q.waiters, queue)
}

func (q *Queue) Publish(ctx context.Context, topic string, value string) error {
	q.mu.Lock()
	subs := make([]*subscription, 0, len(q.subs[topic]))
	for s := range q.subs[topic] {
		subs = append(subs, s)
	}
	q.mu.Unlock()

	for _, s := range subs {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.done:
		case s.ch <- value:
		}
	}

	return nil
}

func (q *Queue) Subscribe(ctx context.Context, topic string) (conserver.Subscription, error) {
	s := &subscription{
		ch:   make(chan string, subscriptionBuffer),
		done: make(chan struct{}),
	}

	s.close = func() {
		q.mu.Lock()
		defer q.mu.Unlock()

		delete(q.subs[topic], s)
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.subs[topic] == nil {
		q.subs[topic] = make(map[*subscription]bool)
	}

	q.subs[topic][s] = true

	return s, nil
}

type subscription struct {
	ch    chan string
	done  chan struct{}
	once  sync.Once
	close func()
}

func (s *subscription) Recv(ctx context.Context) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case <-s.done:
		return "", context.Canceled
	case v := <-s.ch:
		return v, nil
	}
}

func (s *subscription) Close() error {
	s.once.Do(func() {
		s.close()
		close(s.done)
	})

	return nil
}
