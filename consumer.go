package conserver

import (
	"context"
	"strconv"
	"time"

	"github.com/luno/jettison/errors"
	"github.com/luno/jettison/j"
)

const releaseTimeout = 10 * time.Second

func consumeIngress(e *Engine, chainName, queue string, shard, total int) {
	// processName is also used as the suffix of the in-flight list so it must be stable across restarts.
	processName := workerName(queue, shard, total)
	consumer := makeRole(e.opts.consumerName, processName)

	e.run(processName, func(ctx context.Context) error {
		n, err := e.queue.Recover(ctx, queue, consumer)
		if err != nil {
			return errors.Wrap(err, "recover in-flight records", j.MKV{"queue": queue})
		}

		if n > 0 {
			e.logger.maybeDebug(ctx, "recovered in-flight records", map[string]string{
				"queue":    queue,
				"consumer": consumer,
				"count":    strconv.Itoa(n),
			})
		}

		return consumeForever(ctx, e, chainName, queue, consumer)
	})
}

func consumeForever(ctx context.Context, e *Engine, chainName, queue, consumer string) error {
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		d, err := e.queue.Pop(ctx, queue, consumer, e.opts.popTimeout)
		if errors.Is(err, ErrQueueEmpty) {
			continue
		} else if err != nil {
			return err
		}

		if ctx.Err() != nil {
			// Shutting down: hand the record back rather than starting a chain.
			releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), releaseTimeout)
			err := d.Release(releaseCtx)
			cancel()
			if err != nil {
				return err
			}

			return ctx.Err()
		}

		// A chain that has started is allowed to finish even when the engine is stopped.
		err = e.handleDelivery(context.WithoutCancel(ctx), chainName, d)
		if err != nil {
			return err
		}
	}
}

// handleDelivery runs the chain for a popped record and acknowledges it. Link and egress failures are
// retried or dead lettered before the ack. Infrastructure errors release the record back to the head of its queue and are
// returned to the caller.
func (e *Engine) handleDelivery(ctx context.Context, chainName string, d *Delivery) error {
	src := source{
		name: d.Queue,
		requeue: func(ctx context.Context, value string) error {
			return e.queue.Push(ctx, d.Queue, value)
		},
	}

	err := e.handleValue(ctx, chainName, src, d.Value)
	if err != nil {
		releaseErr := d.Release(ctx)
		if releaseErr != nil {
			// NoReturnErr: Left in flight, the record is returned by Recover when the worker restarts.
			e.logger.Error(ctx, errors.Wrap(releaseErr, "release record", j.MKV{"queue": d.Queue}))
		}

		return err
	}

	return d.Ack(ctx)
}

// source is where a record came from: an ingress queue or an ingress topic. Failed records are requeued
// onto their source and dead lettered to the dead letter queue named after the source.
type source struct {
	name    string
	requeue func(ctx context.Context, value string) error
}

func (e *Engine) handleValue(ctx context.Context, chainName string, src source, value string) error {
	env, err := ParseEnvelope(value, chainName)
	if err != nil {
		e.logger.Error(ctx, errors.Wrap(err, "dead lettering unreadable value", j.MKV{"queue": src.name}))
		return e.deadLetter(ctx, src.name, value)
	}

	_, err = e.Process(ctx, env.VconID, env.Chain)
	if isStageError(err) || errors.Is(err, ErrEgressFailed) {
		// Egress failures replay the whole chain so they share the retry budget of link failures.
		e.logger.Error(ctx, err)
		return e.retryOrDeadLetter(ctx, src, env.VconID, value, err)
	} else if err != nil {
		return err
	}

	return e.counter.Reset(ctx, src.name, env.VconID)
}
