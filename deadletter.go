package conserver

import (
	"context"
	"strconv"

	"github.com/luno/jettison/errors"
	"github.com/luno/jettison/j"

	"github.com/vcon-dev/conserver/internal/metrics"
)

// retryOrDeadLetter requeues a record whose chain failed until it has failed maxDeliveries times on the
// source, after which it is pushed to the source's dead letter queue. Configuration errors are dead
// lettered on the first failure.
func (e *Engine) retryOrDeadLetter(ctx context.Context, src source, vconID, value string, cause error) error {
	if !IsConfigError(cause) {
		n, err := e.counter.Incr(ctx, src.name, vconID)
		if err != nil {
			return errors.Wrap(err, "count delivery", j.MKV{"queue": src.name, "vcon_id": vconID})
		}

		if n < e.opts.maxDeliveries {
			err := src.requeue(ctx, value)
			if err != nil {
				return errors.Wrap(err, "requeue record", j.MKV{"queue": src.name, "vcon_id": vconID})
			}

			metrics.Redelivered.WithLabelValues(src.name).Inc()
			e.logger.maybeDebug(ctx, "record requeued", map[string]string{
				"queue":    src.name,
				"vcon_id":  vconID,
				"attempts": strconv.Itoa(n),
			})

			return nil
		}
	}

	err := e.deadLetter(ctx, src.name, value)
	if err != nil {
		return err
	}

	return e.counter.Reset(ctx, src.name, vconID)
}

func (e *Engine) deadLetter(ctx context.Context, ingress string, value string) error {
	dlq := DLQName(ingress)
	err := e.queue.Push(ctx, dlq, value)
	if err != nil {
		return errors.Wrap(err, "push to dead letter queue", j.MKV{"queue": dlq})
	}

	metrics.DeadLettered.WithLabelValues(ingress).Inc()
	e.logger.maybeDebug(ctx, "record dead lettered", map[string]string{
		"queue": dlq,
		"value": value,
	})

	return nil
}

// DLQLength returns the number of records waiting in the dead letter queue of the ingress queue or topic.
func (e *Engine) DLQLength(ctx context.Context, ingress string) (int64, error) {
	return e.queue.Length(ctx, DLQName(ingress))
}

// DeadLettered returns the values in the dead letter queue of the ingress queue or topic, oldest first.
func (e *Engine) DeadLettered(ctx context.Context, ingress string) ([]string, error) {
	return e.queue.Range(ctx, DLQName(ingress))
}

// ReprocessDLQ moves every record in the dead letter queue of ingress back onto ingress and returns how
// many were moved. The retry budget of a record is reset when it is dead lettered so reprocessed records
// get the full number of attempts. Records dead lettered from an ingress topic are published to the topic
// again.
func (e *Engine) ReprocessDLQ(ctx context.Context, ingress string) (int, error) {
	isTopic, err := e.isIngressTopic(ctx, ingress)
	if err != nil {
		return 0, err
	}

	var n int
	if isTopic {
		n, err = e.republish(ctx, ingress)
	} else {
		n, err = e.queue.Move(ctx, DLQName(ingress), ingress)
	}

	if n > 0 {
		metrics.Reprocessed.WithLabelValues(ingress).Add(float64(n))
	}

	if err != nil {
		return n, errors.Wrap(err, "reprocess dead letter queue", j.MKV{"ingress": ingress})
	}

	return n, nil
}

func (e *Engine) republish(ctx context.Context, topic string) (int, error) {
	if e.opts.pubSub == nil {
		return 0, errors.New("no pub/sub configured for ingress topic", j.MKV{"topic": topic})
	}

	consumer := makeRole(e.opts.consumerName, "reprocess", topic)
	var n int
	for {
		d, err := e.queue.Pop(ctx, DLQName(topic), consumer, 0)
		if errors.Is(err, ErrQueueEmpty) {
			return n, nil
		} else if err != nil {
			return n, err
		}

		err = e.opts.pubSub.Publish(ctx, topic, d.Value)
		if err != nil {
			releaseErr := d.Release(ctx)
			if releaseErr != nil {
				// NoReturnErr: The publish error is the one the caller acts on.
				e.logger.Error(ctx, errors.Wrap(releaseErr, "release dead lettered record"))
			}

			return n, err
		}

		err = d.Ack(ctx)
		if err != nil {
			return n, err
		}

		n++
	}
}

func (e *Engine) isIngressTopic(ctx context.Context, name string) (bool, error) {
	chains, err := e.chains.Chains(ctx)
	if err != nil {
		return false, err
	}

	for _, c := range chains {
		for _, topic := range c.IngressTopics {
			if topic == name {
				return true, nil
			}
		}
	}

	return false, nil
}
