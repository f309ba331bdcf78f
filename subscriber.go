package conserver

import (
	"context"

	"github.com/luno/jettison/errors"
	"github.com/luno/jettison/j"
)

// subscribeTopic feeds the values published to an ingress topic into the chain. Pub/sub gives no delivery
// guarantee of its own so a value that hits an infrastructure error is dead lettered rather than lost.
func subscribeTopic(e *Engine, chainName, topic string) {
	processName := makeRole(topic, "subscriber")

	e.run(processName, func(ctx context.Context) error {
		sub, err := e.opts.pubSub.Subscribe(ctx, topic)
		if err != nil {
			return errors.Wrap(err, "subscribe", j.MKV{"topic": topic})
		}
		defer sub.Close()

		src := source{
			name: topic,
			requeue: func(ctx context.Context, value string) error {
				return e.opts.pubSub.Publish(ctx, topic, value)
			},
		}

		for {
			value, err := sub.Recv(ctx)
			if err != nil {
				return err
			}

			// A chain that has started is allowed to finish even when the engine is stopped.
			handleCtx := context.WithoutCancel(ctx)
			err = e.handleValue(handleCtx, chainName, src, value)
			if err != nil {
				dlqErr := e.deadLetter(handleCtx, topic, value)
				if dlqErr != nil {
					e.logger.Error(ctx, errors.Wrap(dlqErr, "dead letter after error", j.MKV{"topic": topic}))
				}

				return err
			}
		}
	})
}
